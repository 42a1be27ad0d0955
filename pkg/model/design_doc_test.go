package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignDoc_ViewDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]interface{}
		wantErr string
	}{
		{
			name: "valid",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"by_type": map[string]interface{}{"map": "function(doc) { emit(doc.type, 1) }", "reduce": "_count"},
				},
			},
		},
		{
			name: "leading whitespace",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					" foo": map[string]interface{}{"map": "function(doc) {}"},
				},
			},
			wantErr: "View name cannot have leading or trailing whitespace",
		},
		{
			name: "empty name",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"": map[string]interface{}{"map": "function(doc) {}"},
				},
			},
			wantErr: "View name cannot be empty",
		},
		{
			name: "missing map",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"foo": map[string]interface{}{"reduce": "_sum"},
				},
			},
			wantErr: "missing map function",
		},
		{
			name: "map not a string",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"foo": map[string]interface{}{"map": 1},
				},
			},
			wantErr: "map function must be a string",
		},
		{
			name: "reduce not a string",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"foo": map[string]interface{}{"map": "function(doc) {}", "reduce": true},
				},
			},
			wantErr: "reduce function must be a string",
		},
		{
			name: "unknown builtin",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"foo": map[string]interface{}{"map": "function(doc) {}", "reduce": "_median"},
				},
			},
			wantErr: "unknown built-in reduce function `_median`",
		},
		{
			name: "disallowed builtin",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"foo": map[string]interface{}{"map": "function(doc) {}", "reduce": "_approx_count_distinct"},
				},
			},
			wantErr: "is not allowed",
		},
		{
			name: "spatial reduce",
			doc: map[string]interface{}{
				"kind": "spatial",
				"views": map[string]interface{}{
					"geo": map[string]interface{}{"map": "function(doc) {}", "reduce": "_count"},
				},
			},
			wantErr: "spatial views cannot have a reduce function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, err := DecodeDesignDoc(tt.doc)
			require.NoError(t, err)
			_, err = dd.ViewDefinitions()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDesignDoc_ViewNameMessagesDiffer(t *testing.T) {
	padded, _ := DecodeDesignDoc(map[string]interface{}{
		"views": map[string]interface{}{" foo": map[string]interface{}{"map": "function(doc) {}"}},
	})
	empty, _ := DecodeDesignDoc(map[string]interface{}{
		"views": map[string]interface{}{"": map[string]interface{}{"map": "function(doc) {}"}},
	})
	_, errPadded := padded.ViewDefinitions()
	_, errEmpty := empty.ViewDefinitions()
	require.Error(t, errPadded)
	require.Error(t, errEmpty)
	assert.NotEqual(t, errPadded.Error(), errEmpty.Error())
	assert.Contains(t, errPadded.Error(), `" foo"`)
}

func TestDesignDoc_NewGroup(t *testing.T) {
	dd, err := DecodeDesignDoc(map[string]interface{}{
		"language": "javascript",
		"views": map[string]interface{}{
			"a_count": map[string]interface{}{"map": "function(doc) { emit(doc.a, doc.v) }", "reduce": "_count"},
			"b_sum":   map[string]interface{}{"map": "function(doc) { emit(doc.a, doc.v) }", "reduce": "function(k, v, r) { return sum(v) }"},
			"c_plain": map[string]interface{}{"map": "function(doc) { emit(doc._id, null) }"},
		},
	})
	require.NoError(t, err)

	g, err := dd.NewGroup("beers", MainScope)
	require.NoError(t, err)
	assert.Equal(t, MapReduceGroup, g.Kind)
	assert.NotEmpty(t, g.Signature)
	require.Len(t, g.Views, 2)

	assert.Equal(t, []string{"a_count", "b_sum"}, g.Views[0].Names)
	require.Len(t, g.Views[0].Reducers, 2)
	assert.Equal(t, "_count", g.Views[0].Reducers[0].Source)
	assert.Equal(t, 2, g.Views[0].Reducer("b_sum"))
	assert.Equal(t, []string{"c_plain"}, g.Views[1].Names)
	assert.Empty(t, g.Views[1].Reducers)

	assert.Equal(t, "view:1", g.Header.Views[1].Bucket)
	assert.Equal(t, uint64(0), g.TotalChanges())

	v, ok := g.View("b_sum")
	require.True(t, ok)
	assert.Equal(t, 0, v.ID)

	other, err := dd.NewGroup("other", ReplicaScope)
	require.NoError(t, err)
	assert.Equal(t, g.Signature, other.Signature)
}
