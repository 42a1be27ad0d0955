package port

import (
	"context"
	"encoding/json"
)

// ScriptEngine runs the custom reduce functions of one view. Functions are
// numbered starting with 1 in the order they were compiled.
type ScriptEngine interface {
	// Reduce runs all functions over the rows, keys are in the
	// [key, docId] wire form.
	Reduce(ctx context.Context, keys, values []json.RawMessage) ([]json.RawMessage, error)
	// ReduceOne runs the nth function over the rows.
	ReduceOne(ctx context.Context, nth int, keys, values []json.RawMessage) (json.RawMessage, error)
	// Rereduce combines reductions previously produced by the nth function.
	Rereduce(ctx context.Context, nth int, reductions []json.RawMessage) (json.RawMessage, error)
	Close() error
}

// ScriptEngineBuilder compiles the given reduce sources.
type ScriptEngineBuilder func(sources []string) (ScriptEngine, error)

// ScriptEngines maps a design document language to its builder.
type ScriptEngines map[string]ScriptEngineBuilder
