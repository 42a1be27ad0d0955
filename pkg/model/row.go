package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is a single map emission. Key and value stay encoded until a
// reducer needs them decoded.
type Row struct {
	Key         json.RawMessage `json:"key"`
	DocID       string          `json:"id"`
	Value       json.RawMessage `json:"value"`
	PartitionID uint16          `json:"partition"`
}

// WireKey returns the key in the form the script engines expect,
// the JSON array [key, docId].
func (r Row) WireKey() json.RawMessage {
	id, _ := json.Marshal(r.DocID)
	var b bytes.Buffer
	b.WriteByte('[')
	if len(r.Key) == 0 {
		b.WriteString("null")
	} else {
		b.Write(r.Key)
	}
	b.WriteByte(',')
	b.Write(id)
	b.WriteByte(']')
	return b.Bytes()
}

// WireValue returns the value, a missing value is encoded as null.
func (r Row) WireValue() json.RawMessage {
	if len(r.Value) == 0 {
		return json.RawMessage("null")
	}
	return r.Value
}

// BtreeKey is the key a row is stored under in its view btree. The
// JSON key and the document id are separated by a zero byte.
func (r Row) BtreeKey() []byte {
	k := make([]byte, 0, len(r.Key)+len(r.DocID)+1)
	k = append(k, r.Key...)
	k = append(k, 0)
	k = append(k, r.DocID...)
	return k
}

// SplitBtreeKey is the inverse of BtreeKey.
func SplitBtreeKey(k []byte) (json.RawMessage, string, error) {
	i := bytes.LastIndexByte(k, 0)
	if i < 0 {
		return nil, "", fmt.Errorf("invalid btree key %q", k)
	}
	key := make(json.RawMessage, i)
	copy(key, k[:i])
	return key, string(k[i+1:]), nil
}

func (r Row) String() string {
	return fmt.Sprintf("<Row key=%s id=%q value=%s partition=%d>", r.Key, r.DocID, r.Value, r.PartitionID)
}
