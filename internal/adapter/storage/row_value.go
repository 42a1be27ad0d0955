package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/setview/pkg/model"
	"gopkg.in/mgo.v2/bson"
)

// rowValue is stored for every row of a view btree.
type rowValue struct {
	Value     string `bson:"v"`
	Partition int    `bson:"p"`
}

func encodeRowValue(r model.Row) ([]byte, error) {
	data, err := bson.Marshal(rowValue{
		Value:     string(r.WireValue()),
		Partition: int(r.PartitionID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode row %s: %w", r, err)
	}
	return data, nil
}

func decodeRow(k, v []byte) (model.Row, error) {
	key, id, err := model.SplitBtreeKey(k)
	if err != nil {
		return model.Row{}, err
	}
	var rv rowValue
	err = bson.Unmarshal(v, &rv)
	if err != nil {
		return model.Row{}, fmt.Errorf("failed to decode row %q: %w", id, err)
	}
	return model.Row{
		Key:         key,
		DocID:       id,
		Value:       json.RawMessage(rv.Value),
		PartitionID: uint16(rv.Partition),
	}, nil
}

// idEntry is stored in the id btree, it lists the btree keys a document
// contributed to each view (by view position).
type idEntry struct {
	Partition uint16           `cbor:"1,keyasint"`
	Seq       uint64           `cbor:"2,keyasint"`
	Keys      map[int][][]byte `cbor:"3,keyasint,omitempty"`
}

func encodeIDEntry(e *idEntry) ([]byte, error) {
	return cbor.Marshal(e)
}

func decodeIDEntry(data []byte) (*idEntry, error) {
	var e idEntry
	err := cbor.Unmarshal(data, &e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode id entry: %w", err)
	}
	return &e, nil
}
