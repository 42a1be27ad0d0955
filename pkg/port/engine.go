package port

import (
	"errors"
)

var ErrUnknownBucket = errors.New("bucket is unknown")
var ErrNotFound = errors.New("resource not found")

type DatabaseEngine interface {
	ReadTransaction(fn func(tx EngineReadTransaction) error) error
	WriteTransaction(fn func(tx EngineWriteTransaction) error) error
	// Snapshot writes a consistent copy of the database to path.
	Snapshot(path string) error
	Path() string
	Close() error
}

type EngineWriteTransaction interface {
	EnsureBucket(bucket []byte)
	DeleteBucket(bucket []byte)
	Put(bucket, k, v []byte)
	Delete(bucket, k []byte)
	EngineReadTransaction
}

type EngineReadTransaction interface {
	Count(bucket []byte) (uint64, error)
	Cursor(bucket []byte) (EngineCursor, error)
	Get(bucket, key []byte) ([]byte, error)
}

type EngineCursor interface {
	First() (key []byte, value []byte)
	Last() (key []byte, value []byte)
	Next() (key []byte, value []byte)
	Prev() (key []byte, value []byte)
	Seek(seek []byte) (key []byte, value []byte)
}
