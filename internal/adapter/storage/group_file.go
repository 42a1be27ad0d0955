package storage

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/setview/internal/adapter/bbolt_engine"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

var (
	headerBucket = []byte("_header")
	headerKey    = []byte("header")
)

// ErrNoHeader is returned for group files that were never initialized.
var ErrNoHeader = errors.New("group file has no header")

// GroupFile is the bbolt file of a group. It holds the id btree, one
// btree per map function and the header.
type GroupFile struct {
	db *bbolt_engine.DB
}

func OpenGroupFile(path string) (*GroupFile, error) {
	db, err := bbolt_engine.Open(path)
	if err != nil {
		return nil, err
	}
	return &GroupFile{db: db}, nil
}

func (f *GroupFile) String() string {
	return "<GroupFile path=" + f.db.Path() + ">"
}

func (f *GroupFile) Path() string {
	return f.db.Path()
}

func (f *GroupFile) Engine() port.DatabaseEngine {
	return f.db
}

func (f *GroupFile) Close() error {
	return f.db.Close()
}

// Init creates the btrees named in the header and stores the header.
func (f *GroupFile) Init(h model.Header) error {
	data, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	return f.db.WriteTransaction(func(tx port.EngineWriteTransaction) error {
		tx.EnsureBucket(headerBucket)
		tx.EnsureBucket([]byte(h.IDBtree.Bucket))
		for _, v := range h.Views {
			tx.EnsureBucket([]byte(v.Bucket))
		}
		tx.Put(headerBucket, headerKey, data)
		return nil
	})
}

func (f *GroupFile) Header() (*model.Header, error) {
	var data []byte
	err := f.db.ReadTransaction(func(tx port.EngineReadTransaction) error {
		v, err := tx.Get(headerBucket, headerKey)
		if err != nil {
			return err
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if errors.Is(err, port.ErrNotFound) || errors.Is(err, port.ErrUnknownBucket) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	return DecodeHeader(data)
}

func (f *GroupFile) WriteHeader(h model.Header) error {
	data, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	return f.db.WriteTransaction(func(tx port.EngineWriteTransaction) error {
		tx.EnsureBucket(headerBucket)
		tx.Put(headerBucket, headerKey, data)
		return nil
	})
}

func (f *GroupFile) Count(bucket string) (uint64, error) {
	var n uint64
	err := f.db.ReadTransaction(func(tx port.EngineReadTransaction) error {
		var err error
		n, err = tx.Count([]byte(bucket))
		return err
	})
	return n, err
}

// Rows calls fn for every row of the view btree in key order.
func (f *GroupFile) Rows(bucket string, fn func(model.Row) error) error {
	return f.db.ReadTransaction(func(tx port.EngineReadTransaction) error {
		c, err := tx.Cursor([]byte(bucket))
		if err != nil {
			return err
		}
		for k, v := c.First(); k != nil; k, v = c.Next() {
			row, err := decodeRow(k, v)
			if err != nil {
				return err
			}
			err = fn(row)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// apply executes the records on the btree in the order given.
func (f *GroupFile) apply(bucket string, records []model.LogRecord) error {
	b := []byte(bucket)
	return f.db.WriteTransaction(func(tx port.EngineWriteTransaction) error {
		tx.EnsureBucket(b)
		for _, r := range records {
			switch r.Op {
			case model.LogInsert:
				tx.Put(b, r.Key, r.Value)
			case model.LogRemove:
				tx.Delete(b, r.Key)
			default:
				return fmt.Errorf("invalid log operation %d", r.Op)
			}
		}
		return nil
	})
}

// recount updates the btree counts of the header from the file.
func (f *GroupFile) recount(h *model.Header, spatial bool) error {
	n, err := f.Count(h.IDBtree.Bucket)
	if err != nil {
		return err
	}
	h.IDBtree.Count = n
	if spatial {
		return nil
	}
	for i, v := range h.Views {
		n, err := f.Count(v.Bucket)
		if err != nil {
			return err
		}
		h.Views[i].Count = n
	}
	return nil
}

func EncodeHeader(h model.Header) ([]byte, error) {
	data, err := cbor.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	return data, nil
}

func DecodeHeader(data []byte) (*model.Header, error) {
	var h model.Header
	err := cbor.Unmarshal(data, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if h.Seqs == nil {
		h.Seqs = make(map[uint16]uint64)
	}
	if h.PartitionVersions == nil {
		h.PartitionVersions = make(map[uint16][]model.PartitionVersion)
	}
	return &h, nil
}
