package reducer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/pkg/model"
)

// Transpose turns partial rows into one column per reducer, column i
// holds the i-th value of every partial. Empty partials are the result of
// reducing zero rows and are left out.
func Transpose(partials []model.ReductionRow) ([][]json.RawMessage, error) {
	nonEmpty := make([]model.ReductionRow, 0, len(partials))
	for _, p := range partials {
		if len(p) > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	partials = nonEmpty
	if len(partials) == 0 {
		return nil, nil
	}

	width := len(partials[0])
	columns := make([][]json.RawMessage, width)
	for i := range columns {
		columns[i] = make([]json.RawMessage, len(partials))
	}
	for j, p := range partials {
		if len(p) != width {
			return nil, fmt.Errorf("partial %d has %d values, expected %d: %w", j, len(p), width, model.ErrRereduceShape)
		}
		for i, v := range p {
			columns[i][j] = v
		}
	}
	return columns, nil
}

// Rereduce combines partial reductions of all reducers of the view.
func Rereduce(ctx context.Context, rc *Context, partials []model.ReductionRow) (model.ReductionRow, error) {
	columns, err := Transpose(partials)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return model.ReductionRow{}, nil
	}
	if len(columns) != len(rc.reducers) {
		return nil, fmt.Errorf("partials have %d values, view has %d reducers: %w", len(columns), len(rc.reducers), model.ErrRereduceShape)
	}

	row := make(model.ReductionRow, len(columns))
	for i, column := range columns {
		row[i], err = rereduceColumn(ctx, rc, i+1, column)
		if err != nil {
			return nil, err
		}
	}
	return row, nil
}

// RereduceOne combines partial reductions of the nth reducer, every
// partial has to hold exactly one value.
func RereduceOne(ctx context.Context, rc *Context, nth int, partials []model.ReductionRow) (json.RawMessage, error) {
	if _, err := rc.reducer(nth); err != nil {
		return nil, err
	}
	columns, err := Transpose(partials)
	if err != nil {
		return nil, err
	}
	if len(columns) != 1 {
		return nil, fmt.Errorf("got %d columns for reducer %d: %w", len(columns), nth, model.ErrRereduceShape)
	}
	return rereduceColumn(ctx, rc, nth, columns[0])
}

func rereduceColumn(ctx context.Context, rc *Context, nth int, column []json.RawMessage) (json.RawMessage, error) {
	r := rc.reducers[nth-1]
	if r.Kind == model.BuiltinReducer {
		return ReduceBuiltin(model.Rereduce, r.Builtin, column)
	}
	return rc.script.Rereduce(ctx, rc.scriptIndex(nth), column)
}
