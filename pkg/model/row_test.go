package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Wire(t *testing.T) {
	r := Row{Key: json.RawMessage(`["a",1]`), DocID: "doc1", Value: json.RawMessage(`3`)}
	assert.JSONEq(t, `[["a",1],"doc1"]`, string(r.WireKey()))
	assert.Equal(t, `3`, string(r.WireValue()))

	empty := Row{DocID: "x"}
	assert.JSONEq(t, `[null,"x"]`, string(empty.WireKey()))
	assert.Equal(t, `null`, string(empty.WireValue()))
}

func TestRow_BtreeKey(t *testing.T) {
	r := Row{Key: json.RawMessage(`"k"`), DocID: "doc1"}
	key, id, err := SplitBtreeKey(r.BtreeKey())
	require.NoError(t, err)
	assert.Equal(t, `"k"`, string(key))
	assert.Equal(t, "doc1", id)

	_, _, err = SplitBtreeKey([]byte("nozero"))
	assert.Error(t, err)
}

func TestResolveReducers(t *testing.T) {
	reducers := ResolveReducers([]ReducerSpec{
		{Name: "a", Source: "function(k,v,r) { return 1 }"},
		{Name: "b", Source: "_sum"},
		{Name: "c", Source: "function(k,v,r) { return 2 }"},
		{Name: "d", Source: " _count "},
	})
	assert.Equal(t, CustomReducer, reducers[0].Kind)
	assert.Equal(t, 1, reducers[0].Custom)
	assert.Equal(t, BuiltinSum, reducers[1].Builtin)
	assert.Equal(t, 2, reducers[2].Custom)
	assert.Equal(t, BuiltinCount, reducers[3].Builtin)
}

func TestGroup_TotalChanges(t *testing.T) {
	g := &Group{Name: "g", Views: []*View{{ID: 0}, {ID: 1}}}
	g.Header = g.EmptyHeader()
	g.Header.IDBtree.Count = 10
	g.Header.Views[0].Count = 20
	g.Header.Views[1].Count = 5
	assert.Equal(t, uint64(35), g.TotalChanges())

	c := g.Clone()
	c.Header.Views[0].Count = 0
	c.Header.Seqs[3] = 9
	assert.Equal(t, uint64(20), g.ViewRowCount(0))
	assert.Empty(t, g.Header.Seqs)
}
