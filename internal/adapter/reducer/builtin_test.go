package reducer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/goydb/setview/pkg/model"
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

func TestReduceBuiltin(t *testing.T) {
	tests := []struct {
		name    string
		mode    model.ReduceMode
		builtin model.BuiltinName
		values  []json.RawMessage
		want    string
		wantErr bool
	}{
		{name: "count rows", mode: model.Reduce, builtin: model.BuiltinCount, values: raws(`"a"`, `null`, `{}`), want: `3`},
		{name: "count no rows", mode: model.Reduce, builtin: model.BuiltinCount, values: nil, want: `0`},
		{name: "count rereduce", mode: model.Rereduce, builtin: model.BuiltinCount, values: raws(`3`, `4`, `10`), want: `17`},
		{name: "count rereduce not a number", mode: model.Rereduce, builtin: model.BuiltinCount, values: raws(`3`, `"4"`), wantErr: true},
		{name: "sum numbers", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`1`, `2.5`, `-0.5`), want: `3`},
		{name: "sum empty", mode: model.Reduce, builtin: model.BuiltinSum, values: nil, want: `0`},
		{name: "sum lists tail passes through", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`[1,2,3]`, `[10,20]`), want: `[11,22,3]`},
		{name: "sum shorter first", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`[10,20]`, `[1,2,3]`), want: `[11,22,3]`},
		{name: "sum number promoted", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`[1,2]`, `5`), want: `[6,2]`},
		{name: "sum number then list", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`5`, `[1,2]`), want: `[6,2]`},
		{name: "sum rereduce", mode: model.Rereduce, builtin: model.BuiltinSum, values: raws(`10`, `32`), want: `42`},
		{name: "sum string", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`1`, `"x"`), wantErr: true},
		{name: "sum list with string", mode: model.Reduce, builtin: model.BuiltinSum, values: raws(`[1,"x"]`), wantErr: true},
		{name: "stats", mode: model.Reduce, builtin: model.BuiltinStats, values: raws(`2`, `4`, `6`), want: `{"sum":12,"count":3,"min":2,"max":6,"sumsqr":56}`},
		{name: "stats non number", mode: model.Reduce, builtin: model.BuiltinStats, values: raws(`2`, `[4]`), wantErr: true},
		{name: "stats no values", mode: model.Reduce, builtin: model.BuiltinStats, values: nil, wantErr: true},
		{
			name:    "stats rereduce",
			mode:    model.Rereduce,
			builtin: model.BuiltinStats,
			values: raws(
				`{"sum":5,"count":2,"min":1,"max":4,"sumsqr":17}`,
				`{"sum":9,"count":3,"min":2,"max":5,"sumsqr":33}`,
			),
			want: `{"sum":14,"count":5,"min":1,"max":5,"sumsqr":50}`,
		},
		{name: "stats rereduce number", mode: model.Rereduce, builtin: model.BuiltinStats, values: raws(`5`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReduceBuiltin(tt.mode, tt.builtin, tt.values)
			if tt.wantErr {
				require.Error(t, err)
				var terr *model.TypeError
				assert.True(t, errors.As(err, &terr))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestReduceBuiltin_Unknown(t *testing.T) {
	_, err := ReduceBuiltin(model.Reduce, "_median", raws(`1`))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownReducer)
	var terr *model.TypeError
	assert.True(t, errors.As(err, &terr))
}

func TestReduceBuiltin_SumMatchesArithmetic(t *testing.T) {
	var values []json.RawMessage
	total := 0
	for i := 1; i <= 100; i++ {
		values = append(values, json.RawMessage(itoa(i)))
		total += i
	}
	got, err := ReduceBuiltin(model.Reduce, model.BuiltinSum, values)
	require.NoError(t, err)
	assert.Equal(t, itoa(total), string(got))

	got, err = ReduceBuiltin(model.Reduce, model.BuiltinCount, values)
	require.NoError(t, err)
	assert.Equal(t, "100", string(got))
}

func TestReduceBuiltin_StatsComposition(t *testing.T) {
	parts := [][]json.RawMessage{raws(`1`, `4`), raws(`2`, `3`), raws(`5`), raws(`-7`, `0.5`)}

	var partials []json.RawMessage
	var all []json.RawMessage
	for _, p := range parts {
		s, err := ReduceBuiltin(model.Reduce, model.BuiltinStats, p)
		require.NoError(t, err)
		partials = append(partials, s)
		all = append(all, p...)
	}
	want, err := ReduceBuiltin(model.Reduce, model.BuiltinStats, all)
	require.NoError(t, err)

	groupings := [][][]int{
		{{0, 1, 2, 3}},
		{{0, 1}, {2, 3}},
		{{3, 1}, {0}, {2}},
		{{2, 0, 3}, {1}},
	}
	for _, grouping := range groupings {
		var level []json.RawMessage
		for _, group := range grouping {
			var in []json.RawMessage
			for _, i := range group {
				in = append(in, partials[i])
			}
			r, err := ReduceBuiltin(model.Rereduce, model.BuiltinStats, in)
			require.NoError(t, err)
			level = append(level, r)
		}
		got, err := ReduceBuiltin(model.Rereduce, model.BuiltinStats, level)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}
