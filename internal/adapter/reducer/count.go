package reducer

import (
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/pkg/model"
)

// count returns the number of rows, on rereduce the partial counts are added.
func count(mode model.ReduceMode, values []json.RawMessage) (json.RawMessage, error) {
	if mode == model.Reduce {
		return encodeNumber(float64(len(values)))
	}

	var total float64
	for i, raw := range values {
		n, ok := decodeNumber(raw)
		if !ok {
			return nil, &model.TypeError{
				Reducer: model.BuiltinCount,
				Reason:  fmt.Sprintf("partial count %d is not a number: %s", i, raw),
			}
		}
		total += n
	}
	return encodeNumber(total)
}
