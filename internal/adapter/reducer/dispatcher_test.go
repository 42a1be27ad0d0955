package reducer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScript returns "c<n>" for the nth function and records its calls.
type fakeScript struct {
	n           int
	reduceCalls int
	keys        []json.RawMessage
	oneNth      []int
	rereduceNth []int
	closed      bool
}

func (s *fakeScript) Reduce(ctx context.Context, keys, values []json.RawMessage) ([]json.RawMessage, error) {
	s.reduceCalls++
	s.keys = keys
	out := make([]json.RawMessage, s.n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`"c%d"`, i+1))
	}
	return out, nil
}

func (s *fakeScript) ReduceOne(ctx context.Context, nth int, keys, values []json.RawMessage) (json.RawMessage, error) {
	s.oneNth = append(s.oneNth, nth)
	return json.RawMessage(fmt.Sprintf(`"c%d"`, nth)), nil
}

func (s *fakeScript) Rereduce(ctx context.Context, nth int, reductions []json.RawMessage) (json.RawMessage, error) {
	s.rereduceNth = append(s.rereduceNth, nth)
	return json.RawMessage(fmt.Sprintf(`"r%d:%d"`, nth, len(reductions))), nil
}

func (s *fakeScript) Close() error {
	s.closed = true
	return nil
}

func withFakeContext(t *testing.T, sources []string, fn func(rc *Context, script *fakeScript)) {
	script := &fakeScript{}
	engines := port.ScriptEngines{
		"fake": func(srcs []string) (port.ScriptEngine, error) {
			script.n = len(srcs)
			return script, nil
		},
	}
	specs := make([]model.ReducerSpec, len(sources))
	for i, src := range sources {
		specs[i] = model.ReducerSpec{Name: fmt.Sprintf("v%d", i), Source: src}
	}
	rc, err := NewContext("fake", specs, engines)
	require.NoError(t, err)
	fn(rc, script)
	require.NoError(t, rc.Close())
}

var testRows = []model.Row{
	{Key: json.RawMessage(`"a"`), DocID: "1", Value: json.RawMessage(`2`)},
	{Key: json.RawMessage(`"b"`), DocID: "2", Value: json.RawMessage(`4`)},
	{Key: json.RawMessage(`"c"`), DocID: "3", Value: json.RawMessage(`6`)},
}

func TestReduce_PreservesOrder(t *testing.T) {
	tests := []struct {
		name        string
		sources     []string
		want        []string
		scriptCalls int
	}{
		{
			name:        "interleaved",
			sources:     []string{"custom", "_count", "custom", "_sum", "custom"},
			want:        []string{`"c1"`, `3`, `"c2"`, `12`, `"c3"`},
			scriptCalls: 1,
		},
		{
			name:        "all builtin",
			sources:     []string{"_sum", "_stats", "_count"},
			want:        []string{`12`, `{"sum":12,"count":3,"min":2,"max":6,"sumsqr":56}`, `3`},
			scriptCalls: 0,
		},
		{
			name:        "all custom",
			sources:     []string{"custom", "custom"},
			want:        []string{`"c1"`, `"c2"`},
			scriptCalls: 1,
		},
		{
			name:        "builtin first",
			sources:     []string{"_count", "_count", "custom"},
			want:        []string{`3`, `3`, `"c1"`},
			scriptCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFakeContext(t, tt.sources, func(rc *Context, script *fakeScript) {
				got, err := Reduce(context.Background(), rc, testRows)
				require.NoError(t, err)
				require.Len(t, got, len(tt.want))
				for i, w := range tt.want {
					assert.JSONEq(t, w, string(got[i]), "reducer %d", i+1)
				}
				assert.Equal(t, tt.scriptCalls, script.reduceCalls)
				if tt.scriptCalls > 0 {
					assert.JSONEq(t, `["a","1"]`, string(script.keys[0]))
				}
			})
		})
	}
}

func TestReduce_Empty(t *testing.T) {
	withFakeContext(t, nil, func(rc *Context, script *fakeScript) {
		got, err := Reduce(context.Background(), rc, testRows)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
	withFakeContext(t, []string{"custom", "_stats"}, func(rc *Context, script *fakeScript) {
		got, err := Reduce(context.Background(), rc, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, script.reduceCalls)
	})
}

func TestReduce_TypeError(t *testing.T) {
	withFakeContext(t, []string{"_sum"}, func(rc *Context, script *fakeScript) {
		rows := append([]model.Row{{Key: json.RawMessage(`1`), DocID: "x", Value: json.RawMessage(`"text"`)}}, testRows...)
		_, err := Reduce(context.Background(), rc, rows)
		var terr *model.TypeError
		assert.ErrorAs(t, err, &terr)
	})
}

func TestReduceOne_AdjustsScriptIndex(t *testing.T) {
	withFakeContext(t, []string{"_count", "custom", "_sum", "_stats", "custom"}, func(rc *Context, script *fakeScript) {
		ctx := context.Background()

		got, err := ReduceOne(ctx, rc, 2, testRows)
		require.NoError(t, err)
		assert.Equal(t, `"c1"`, string(got))

		got, err = ReduceOne(ctx, rc, 5, testRows)
		require.NoError(t, err)
		assert.Equal(t, `"c2"`, string(got))
		assert.Equal(t, []int{1, 2}, script.oneNth)

		got, err = ReduceOne(ctx, rc, 3, testRows)
		require.NoError(t, err)
		assert.Equal(t, `12`, string(got))

		_, err = ReduceOne(ctx, rc, 6, testRows)
		assert.Error(t, err)
		_, err = ReduceOne(ctx, rc, 0, testRows)
		assert.Error(t, err)
	})
}

func TestNewContext_UnknownLanguage(t *testing.T) {
	_, err := NewContext("cobol", []model.ReducerSpec{{Name: "a", Source: "function() {}"}}, port.ScriptEngines{})
	assert.Error(t, err)

	rc, err := NewContext("cobol", []model.ReducerSpec{{Name: "a", Source: "_sum"}}, port.ScriptEngines{})
	require.NoError(t, err)
	assert.Len(t, rc.Reducers(), 1)
}
