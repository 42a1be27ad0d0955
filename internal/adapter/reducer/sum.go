package reducer

import (
	"encoding/json"
	"fmt"

	"github.com/goydb/setview/pkg/model"
)

// sumValue is either a number or a list of numbers.
type sumValue struct {
	list bool
	nums []float64
}

func decodeSumValue(raw json.RawMessage) (sumValue, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return sumValue{}, err
	}

	switch t := v.(type) {
	case float64:
		return sumValue{nums: []float64{t}}, nil
	case []interface{}:
		nums := make([]float64, len(t))
		for i, e := range t {
			n, ok := e.(float64)
			if !ok {
				return sumValue{}, fmt.Errorf("element %d is not a number", i)
			}
			nums[i] = n
		}
		return sumValue{list: true, nums: nums}, nil
	default:
		return sumValue{}, fmt.Errorf("not a number or list of numbers")
	}
}

// add two values, a number matched against a list is treated as a list
// with one element. Lists are added element wise up to the shorter one,
// the tail of the longer list is kept as it is.
func (a sumValue) add(b sumValue) sumValue {
	if !a.list && !b.list {
		return sumValue{nums: []float64{a.nums[0] + b.nums[0]}}
	}

	short, long := a.nums, b.nums
	if len(short) > len(long) {
		short, long = long, short
	}
	out := make([]float64, len(long))
	copy(out, long)
	for i := range short {
		out[i] = a.nums[i] + b.nums[i]
	}
	return sumValue{list: true, nums: out}
}

func (a sumValue) encode() (json.RawMessage, error) {
	if a.list {
		return json.Marshal(a.nums)
	}
	return encodeNumber(a.nums[0])
}

// sum folds the values left to right, it is the same for reduce and
// rereduce since sums compose.
func sum(values []json.RawMessage) (json.RawMessage, error) {
	acc := sumValue{nums: []float64{0}}
	for i, raw := range values {
		v, err := decodeSumValue(raw)
		if err != nil {
			return nil, &model.TypeError{
				Reducer: model.BuiltinSum,
				Reason:  fmt.Sprintf("value %d (%s): %v", i, raw, err),
			}
		}
		if i == 0 {
			acc = v
			continue
		}
		acc = acc.add(v)
	}
	return acc.encode()
}
