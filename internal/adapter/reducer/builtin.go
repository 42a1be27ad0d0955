package reducer

import (
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/pkg/model"
)

// ReduceBuiltin evaluates a built-in reducer over already encoded values.
// In Reduce mode the values are row values, in Rereduce mode they are
// results of previous invocations of the same reducer.
func ReduceBuiltin(mode model.ReduceMode, name model.BuiltinName, values []json.RawMessage) (json.RawMessage, error) {
	switch name {
	case model.BuiltinCount:
		return count(mode, values)
	case model.BuiltinSum:
		return sum(values)
	case model.BuiltinStats:
		if mode == model.Rereduce {
			return rereduceStats(values)
		}
		return reduceStats(values)
	default:
		return nil, &model.TypeError{
			Reducer: name,
			Reason:  fmt.Sprintf("%q is not a built-in reducer", name),
			Err:     model.ErrUnknownReducer,
		}
	}
}

// decodeNumber returns the value if it is a plain JSON number.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

func encodeNumber(n float64) (json.RawMessage, error) {
	return json.Marshal(n)
}
