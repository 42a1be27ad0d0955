package controller

import (
	"context"
	"testing"

	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups(t *testing.T) {
	ctx := context.Background()
	s, err := storage.Open(t.TempDir(), "")
	require.NoError(t, err)
	defer s.Close()

	gs := NewGroups(s, testCompaction())
	defer gs.Close()

	_, err = gs.Get("beers")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.ErrorIs(t, gs.RequestCompaction("beers"), ErrGroupNotFound)

	o, created, err := gs.Create(ctx, "beers", beerDesignDoc(t))
	require.NoError(t, err)
	assert.True(t, created)

	same, created, err := gs.Create(ctx, "beers", beerDesignDoc(t))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, o, same)
	assert.Equal(t, []string{"beers"}, gs.Names())

	require.NoError(t, o.Update(ctx, beers(0, 10, "ale")))
	require.NoError(t, gs.RequestCompaction("beers"))
	Task{Groups: gs}.ProcessAllTasks(ctx)
	assert.Empty(t, gs.takeRequests())
	assert.Equal(t, uint64(10), o.Group().IDCount())

	// another signature replaces the group
	dd, err := model.DecodeDesignDoc(map[string]interface{}{
		"views": map[string]interface{}{
			"all": map[string]interface{}{"map": "function(doc) { emit(doc._id, null) }"},
		},
	})
	require.NoError(t, err)
	replaced, created, err := gs.Create(ctx, "beers", dd)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, o.Group().Signature, replaced.Group().Signature)
	assert.Equal(t, uint64(0), replaced.Group().IDCount())
}
