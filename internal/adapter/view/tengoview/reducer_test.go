package tengoview

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func TestScriptEngine(t *testing.T) {
	e, err := NewScriptEngine([]string{
		`func(keys, values, rereduce) { return sum(values) }`,
		`func(keys, values, rereduce) {
			if rereduce {
				return len(values)
			}
			out := []
			for k in keys {
				out = append(out, k[1])
			}
			return out
		}`,
	})
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	keys := raws(`["a","doc1"]`, `["b","doc2"]`)
	values := raws(`2`, `40`)

	results, err := e.Reduce(ctx, keys, values)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.JSONEq(t, `42`, string(results[0]))
	assert.JSONEq(t, `["doc1","doc2"]`, string(results[1]))

	one, err := e.ReduceOne(ctx, 2, keys, values)
	require.NoError(t, err)
	assert.JSONEq(t, `["doc1","doc2"]`, string(one))

	re, err := e.Rereduce(ctx, 2, raws(`["doc1"]`, `["doc2"]`, `[]`))
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(re))

	re, err = e.Rereduce(ctx, 1, raws(`42`, `8`))
	require.NoError(t, err)
	assert.JSONEq(t, `50`, string(re))

	_, err = e.ReduceOne(ctx, 0, keys, values)
	assert.Error(t, err)
}

func TestScriptEngine_CompileError(t *testing.T) {
	_, err := NewScriptEngine([]string{`func(keys, values { `})
	assert.Error(t, err)
}
