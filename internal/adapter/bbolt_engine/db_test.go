package bbolt_engine

import (
	"path/filepath"
	"testing"

	"github.com/goydb/setview/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_WriteAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "group.bolt"))
	require.NoError(t, err)
	defer db.Close()

	bucket := []byte("view:0")
	err = db.WriteTransaction(func(tx port.EngineWriteTransaction) error {
		tx.EnsureBucket(bucket)
		tx.Put(bucket, []byte("a"), []byte("1"))
		tx.Put(bucket, []byte("b"), []byte("2"))
		tx.Put(bucket, []byte("c"), []byte("3"))
		tx.Delete(bucket, []byte("b"))
		return nil
	})
	require.NoError(t, err)

	err = db.ReadTransaction(func(tx port.EngineReadTransaction) error {
		n, err := tx.Count(bucket)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)

		v, err := tx.Get(bucket, []byte("c"))
		require.NoError(t, err)
		assert.Equal(t, "3", string(v))

		_, err = tx.Get(bucket, []byte("b"))
		assert.ErrorIs(t, err, port.ErrNotFound)

		_, err = tx.Get([]byte("unknown"), []byte("b"))
		assert.ErrorIs(t, err, port.ErrUnknownBucket)

		n, err = tx.Count([]byte("unknown"))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), n)

		c, err := tx.Cursor([]byte("unknown"))
		require.NoError(t, err)
		k, _ := c.First()
		assert.Nil(t, k)
		return nil
	})
	require.NoError(t, err)

	snap := filepath.Join(dir, "snapshot.bolt")
	require.NoError(t, db.Snapshot(snap))

	ro, err := OpenReadOnly(snap)
	require.NoError(t, err)
	defer ro.Close()
	err = ro.ReadTransaction(func(tx port.EngineReadTransaction) error {
		c, err := tx.Cursor(bucket)
		require.NoError(t, err)
		var keys []string
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		assert.Equal(t, []string{"a", "c"}, keys)
		return nil
	})
	require.NoError(t, err)
}
