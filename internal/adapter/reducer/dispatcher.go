package reducer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/pkg/model"
)

// Reduce runs all reducers of the view over the rows and returns one value
// per reducer in declaration order. No engine is invoked for a view without
// reducers or for an empty row set.
func Reduce(ctx context.Context, rc *Context, rows []model.Row) (model.ReductionRow, error) {
	if len(rc.reducers) == 0 || len(rows) == 0 {
		return model.ReductionRow{}, nil
	}

	values := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		values[i] = row.WireValue()
	}

	builtinResults := make([]json.RawMessage, 0, rc.builtins)
	for _, r := range rc.reducers {
		if r.Kind != model.BuiltinReducer {
			continue
		}
		res, err := ReduceBuiltin(model.Reduce, r.Builtin, values)
		if err != nil {
			return nil, err
		}
		builtinResults = append(builtinResults, res)
	}

	var scriptResults []json.RawMessage
	if rc.customs > 0 {
		keys := make([]json.RawMessage, len(rows))
		for i, row := range rows {
			keys[i] = row.WireKey()
		}
		var err error
		scriptResults, err = rc.script.Reduce(ctx, keys, values)
		if err != nil {
			return nil, err
		}
		if len(scriptResults) != rc.customs {
			return nil, fmt.Errorf("script engine returned %d results for %d reduce functions", len(scriptResults), rc.customs)
		}
	}

	return recombine(rc.reducers, builtinResults, scriptResults), nil
}

// recombine restores the declaration order from the builtin and the
// script results.
func recombine(reducers []model.Reducer, builtinResults, scriptResults []json.RawMessage) model.ReductionRow {
	row := make(model.ReductionRow, len(reducers))
	var b, s int
	for i, r := range reducers {
		if r.Kind == model.BuiltinReducer {
			row[i] = builtinResults[b]
			b++
		} else {
			row[i] = scriptResults[s]
			s++
		}
	}
	return row
}

// ReduceOne runs the nth (1-based) reducer of the view over the rows.
func ReduceOne(ctx context.Context, rc *Context, nth int, rows []model.Row) (json.RawMessage, error) {
	r, err := rc.reducer(nth)
	if err != nil {
		return nil, err
	}

	values := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		values[i] = row.WireValue()
	}
	if r.Kind == model.BuiltinReducer {
		return ReduceBuiltin(model.Reduce, r.Builtin, values)
	}

	keys := make([]json.RawMessage, len(rows))
	for i, row := range rows {
		keys[i] = row.WireKey()
	}
	return rc.script.ReduceOne(ctx, rc.scriptIndex(nth), keys, values)
}
