package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/internal/adapter/reducer"
	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
)

// reduceBatchSize is the number of rows reduced at once before the
// partial results are rereduced.
const reduceBatchSize = 1000

// QueryOptions of a view query. Reduce defaults to true for views with
// a reduce function.
type QueryOptions struct {
	View   string
	Reduce *bool
	Group  bool
	BBox   string
}

type ViewResultRow struct {
	Key   json.RawMessage `json:"key"`
	ID    string          `json:"id,omitempty"`
	Value json.RawMessage `json:"value"`
}

type ViewResult struct {
	TotalRows uint64           `json:"total_rows,omitempty"`
	Rows      []*ViewResultRow `json:"rows"`
}

// Query reads the rows of a view, reduced if requested.
func (o *GroupOwner) Query(ctx context.Context, opts QueryOptions) (*ViewResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g := o.group
	v, ok := g.View(opts.View)
	if !ok {
		return nil, &model.ValidationError{View: opts.View, Reason: "view not found"}
	}
	pos := v.ID

	if g.Kind == model.SpatialGroup {
		if opts.BBox == "" {
			return nil, &model.ValidationError{View: opts.View, Reason: "bbox is required for spatial views"}
		}
		bbox, err := storage.ParseBBox(opts.BBox)
		if err != nil {
			return nil, &model.ValidationError{View: opts.View, Reason: err.Error()}
		}
		rows, err := o.Storage.SpatialRows(ctx, g, pos, bbox)
		if err != nil {
			return nil, err
		}
		return mapResult(g, pos, rows), nil
	}

	nth := v.Reducer(opts.View)
	reduce := nth > 0
	if opts.Reduce != nil {
		reduce = *opts.Reduce
	}
	if reduce && nth == 0 {
		return nil, &model.ValidationError{View: opts.View, Reason: "reduce is only available for views with a reduce function"}
	}
	if opts.Group && !reduce {
		return nil, &model.ValidationError{View: opts.View, Reason: "group requires reduce"}
	}

	if !reduce {
		var rows []model.Row
		err := o.Storage.Rows(ctx, g, pos, func(r model.Row) error {
			rows = append(rows, r)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return mapResult(g, pos, rows), nil
	}

	rc, ok := o.contexts[model.NewViewFn(g, v.ID).String()]
	if !ok {
		return nil, fmt.Errorf("no reduce context for view %q", opts.View)
	}
	if opts.Group {
		return groupReduce(ctx, o.Storage, g, pos, rc, nth)
	}
	return fullReduce(ctx, o.Storage, g, pos, rc, nth)
}

func mapResult(g *model.Group, pos int, rows []model.Row) *ViewResult {
	res := &ViewResult{
		TotalRows: g.ViewRowCount(pos),
		Rows:      make([]*ViewResultRow, len(rows)),
	}
	for i, r := range rows {
		res.Rows[i] = &ViewResultRow{Key: r.Key, ID: r.DocID, Value: r.WireValue()}
	}
	return res
}

// fullReduce reduces all rows of the view with every reducer and picks
// the value of the requested one.
func fullReduce(ctx context.Context, s *storage.Storage, g *model.Group, pos int, rc *reducer.Context, nth int) (*ViewResult, error) {
	var partials []model.ReductionRow
	batch := make([]model.Row, 0, reduceBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		red, err := reducer.Reduce(ctx, rc, batch)
		if err != nil {
			return err
		}
		partials = append(partials, red)
		batch = batch[:0]
		return nil
	}

	err := s.Rows(ctx, g, pos, func(r model.Row) error {
		batch = append(batch, r)
		if len(batch) == reduceBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = flush()
	if err != nil {
		return nil, err
	}

	res := &ViewResult{Rows: []*ViewResultRow{}}
	switch len(partials) {
	case 0:
		return res, nil
	case 1:
	default:
		red, err := reducer.Rereduce(ctx, rc, partials)
		if err != nil {
			return nil, err
		}
		partials = []model.ReductionRow{red}
	}
	res.Rows = append(res.Rows, &ViewResultRow{
		Key:   json.RawMessage("null"),
		Value: partials[0][nth-1],
	})
	return res, nil
}

// groupReduce reduces the rows of every distinct key with the requested
// reducer.
func groupReduce(ctx context.Context, s *storage.Storage, g *model.Group, pos int, rc *reducer.Context, nth int) (*ViewResult, error) {
	res := &ViewResult{Rows: []*ViewResultRow{}}

	var (
		key      json.RawMessage
		batch    []model.Row
		partials []model.ReductionRow
	)
	reduceBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		value, err := reducer.ReduceOne(ctx, rc, nth, batch)
		if err != nil {
			return err
		}
		partials = append(partials, model.ReductionRow{value})
		batch = batch[:0]
		return nil
	}
	emit := func() error {
		err := reduceBatch()
		if err != nil || len(partials) == 0 {
			return err
		}
		value := partials[0][0]
		if len(partials) > 1 {
			value, err = reducer.RereduceOne(ctx, rc, nth, partials)
			if err != nil {
				return err
			}
		}
		res.Rows = append(res.Rows, &ViewResultRow{Key: key, Value: value})
		partials = partials[:0]
		return nil
	}

	err := s.Rows(ctx, g, pos, func(r model.Row) error {
		if key != nil && !bytes.Equal(key, r.Key) {
			if err := emit(); err != nil {
				return err
			}
		}
		key = r.Key
		batch = append(batch, r)
		if len(batch) == reduceBatchSize {
			return reduceBatch()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = emit()
	if err != nil {
		return nil, err
	}
	return res, nil
}
