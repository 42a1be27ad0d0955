package reducer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/goydb/setview/pkg/model"
)

var statsFields = []string{"sum", "count", "min", "max", "sumsqr"}

func reduceStats(values []json.RawMessage) (json.RawMessage, error) {
	if len(values) == 0 {
		return nil, &model.TypeError{Reducer: model.BuiltinStats, Reason: "no values to compute statistics of"}
	}

	s := model.StatsSummary{Min: math.Inf(1), Max: math.Inf(-1)}
	for i, raw := range values {
		n, ok := decodeNumber(raw)
		if !ok {
			return nil, &model.TypeError{
				Reducer: model.BuiltinStats,
				Reason:  fmt.Sprintf("value %d is not a number: %s", i, raw),
			}
		}
		s.Sum += n
		s.Count++
		s.Min = math.Min(s.Min, n)
		s.Max = math.Max(s.Max, n)
		s.SumOfSquares += n * n
	}
	return json.Marshal(s)
}

func decodeStats(raw json.RawMessage) (model.StatsSummary, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return model.StatsSummary{}, fmt.Errorf("not a statistics object")
	}
	for _, f := range statsFields {
		if _, ok := obj[f].(float64); !ok {
			return model.StatsSummary{}, fmt.Errorf("field %q is missing or not a number", f)
		}
	}
	return model.StatsSummary{
		Sum:          obj["sum"].(float64),
		Count:        obj["count"].(float64),
		Min:          obj["min"].(float64),
		Max:          obj["max"].(float64),
		SumOfSquares: obj["sumsqr"].(float64),
	}, nil
}

// rereduceStats composes summaries, the composition is associative and
// commutative.
func rereduceStats(values []json.RawMessage) (json.RawMessage, error) {
	if len(values) == 0 {
		return nil, &model.TypeError{Reducer: model.BuiltinStats, Reason: "no statistics to combine"}
	}

	s := model.StatsSummary{Min: math.Inf(1), Max: math.Inf(-1)}
	for i, raw := range values {
		p, err := decodeStats(raw)
		if err != nil {
			return nil, &model.TypeError{
				Reducer: model.BuiltinStats,
				Reason:  fmt.Sprintf("partial %d (%s): %v", i, raw, err),
			}
		}
		s.Sum += p.Sum
		s.Count += p.Count
		s.Min = math.Min(s.Min, p.Min)
		s.Max = math.Max(s.Max, p.Max)
		s.SumOfSquares += p.SumOfSquares
	}
	return json.Marshal(s)
}
