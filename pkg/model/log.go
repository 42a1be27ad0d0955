package model

type LogOp uint8

const (
	LogInsert LogOp = iota + 1
	LogRemove
)

// LogRecord is one mutation journaled while a compaction runs. Records of
// the id stream are keyed by document id, records of view streams by the
// btree key of the row.
type LogRecord struct {
	Seq       uint64 `cbor:"1,keyasint"`
	Op        LogOp  `cbor:"2,keyasint"`
	Partition uint16 `cbor:"3,keyasint"`
	Key       []byte `cbor:"4,keyasint"`
	Value     []byte `cbor:"5,keyasint,omitempty"`
}

// IDStream is the stream number of the id index, view streams are
// numbered by view position starting with 1.
const IDStream = 0

func ViewStream(pos int) int {
	return pos + 1
}

// LogFileSet are the log files of one stream, ordered by partition.
type LogFileSet struct {
	Stream int
	Files  []string
}

// LogFiles is the answer of the owner to a catch-up request.
type LogFiles struct {
	Sets              []LogFileSet
	Seqs              map[uint16]uint64
	PartitionVersions map[uint16][]PartitionVersion
}

// Paths returns all log files of all sets.
func (l *LogFiles) Paths() []string {
	var paths []string
	for _, s := range l.Sets {
		paths = append(paths, s.Files...)
	}
	return paths
}
