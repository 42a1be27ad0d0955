package model

import (
	"encoding/json"
	"strings"
)

// BuiltinMarker prefixes the source of every engine native reducer.
const BuiltinMarker = "_"

type BuiltinName string

const (
	BuiltinSum   BuiltinName = "_sum"
	BuiltinCount BuiltinName = "_count"
	BuiltinStats BuiltinName = "_stats"
)

// ReduceMode selects between reducing raw rows and combining
// already reduced values.
type ReduceMode int

const (
	Reduce ReduceMode = iota
	Rereduce
)

func (m ReduceMode) String() string {
	if m == Rereduce {
		return "rereduce"
	}
	return "reduce"
}

// ReducerSpec is a reducer as declared in a design document.
type ReducerSpec struct {
	Name   string `json:"name" cbor:"name"`
	Source string `json:"source" cbor:"source"`
}

// IsBuiltin reports if the source carries the built-in marker.
func (s ReducerSpec) IsBuiltin() bool {
	return strings.HasPrefix(strings.TrimSpace(s.Source), BuiltinMarker)
}

type ReducerKind int

const (
	BuiltinReducer ReducerKind = iota
	CustomReducer
)

// Reducer is a ReducerSpec resolved once at activation time. Builtin
// reducers carry their name, custom reducers the 1-based number of the
// function inside the script engine of the view.
type Reducer struct {
	Spec    ReducerSpec
	Kind    ReducerKind
	Builtin BuiltinName
	Custom  int
}

// ResolveReducers tags every spec as builtin or custom. Custom reducers are
// numbered contiguously starting with 1, the way the script engine numbers
// the functions it was compiled with.
func ResolveReducers(specs []ReducerSpec) []Reducer {
	reducers := make([]Reducer, len(specs))
	custom := 0
	for i, spec := range specs {
		if spec.IsBuiltin() {
			reducers[i] = Reducer{
				Spec:    spec,
				Kind:    BuiltinReducer,
				Builtin: BuiltinName(strings.TrimSpace(spec.Source)),
			}
			continue
		}
		custom++
		reducers[i] = Reducer{
			Spec:   spec,
			Kind:   CustomReducer,
			Custom: custom,
		}
	}
	return reducers
}

// ReductionRow holds one reduced value per configured reducer, in
// declaration order.
type ReductionRow []json.RawMessage

// StatsSummary is the result of the builtin _stats reducer.
type StatsSummary struct {
	Sum          float64 `json:"sum"`
	Count        float64 `json:"count"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	SumOfSquares float64 `json:"sumsqr"`
}
