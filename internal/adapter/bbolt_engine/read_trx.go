package bbolt_engine

import (
	"github.com/goydb/setview/pkg/port"
	"go.etcd.io/bbolt"
)

var _ port.EngineReadTransaction = (*ReadTransaction)(nil)

type ReadTransaction struct {
	tx *bbolt.Tx
}

func NewReadTransaction(tx *bbolt.Tx) *ReadTransaction {
	return &ReadTransaction{
		tx: tx,
	}
}

// Count returns the number of keys in the bucket, unknown buckets are empty.
func (tx *ReadTransaction) Count(bucket []byte) (uint64, error) {
	b := tx.tx.Bucket(bucket)
	if b == nil {
		return 0, nil
	}
	return uint64(b.Stats().KeyN), nil
}

func (tx *ReadTransaction) Get(bucket, key []byte) ([]byte, error) {
	b := tx.tx.Bucket(bucket)
	if b == nil {
		return nil, port.ErrUnknownBucket
	}
	value := b.Get(key)
	if value == nil {
		return nil, port.ErrNotFound
	}
	return value, nil
}

func (tx *ReadTransaction) Cursor(bucket []byte) (port.EngineCursor, error) {
	b := tx.tx.Bucket(bucket)
	if b == nil {
		return &NoopCursor{}, nil
	}

	return b.Cursor(), nil
}
