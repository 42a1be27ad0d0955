package tengoview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/goydb/setview/pkg/port"
)

var _ port.ScriptEngine = (*ScriptEngine)(nil)

// ScriptEngine runs tengo reduce functions. All functions are compiled
// into one program that calls the function selected by _nth.
type ScriptEngine struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
	n        int
}

func NewScriptEngine(sources []string) (port.ScriptEngine, error) {
	var b strings.Builder
	b.WriteString(moduleImports)
	b.WriteString(`
	sum := func(values) {
		s := 0
		for v in values {
			s += v
		}
		return s
	}
	_result := ""
	_fns := [`)
	for i, source := range sources {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
		b.WriteString(source)
	}
	b.WriteString(`]
	if _nth > 0 {
		_result = string(json.encode(_fns[_nth-1](json.decode(_keys), json.decode(_values), _rereduce)))
	}`)

	script := tengo.NewScript([]byte(b.String()))
	script.SetImports(stdlib.GetModuleMap(modules...))
	for name, v := range map[string]interface{}{
		"_keys":     "[]",
		"_values":   "[]",
		"_rereduce": false,
		"_nth":      0,
	} {
		if err := script.Add(name, v); err != nil {
			return nil, err
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	return &ScriptEngine{
		compiled: compiled,
		n:        len(sources),
	}, nil
}

func (e *ScriptEngine) Reduce(ctx context.Context, keys, values []json.RawMessage) ([]json.RawMessage, error) {
	k, v := joinJSON(keys), joinJSON(values)
	results := make([]json.RawMessage, e.n)
	for i := 0; i < e.n; i++ {
		res, err := e.run(ctx, i+1, k, v, false)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (e *ScriptEngine) ReduceOne(ctx context.Context, nth int, keys, values []json.RawMessage) (json.RawMessage, error) {
	return e.run(ctx, nth, joinJSON(keys), joinJSON(values), false)
}

func (e *ScriptEngine) Rereduce(ctx context.Context, nth int, reductions []json.RawMessage) (json.RawMessage, error) {
	return e.run(ctx, nth, "null", joinJSON(reductions), true)
}

func (e *ScriptEngine) Close() error {
	return nil
}

func (e *ScriptEngine) run(ctx context.Context, nth int, keys, values string, rereduce bool) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if nth < 1 || nth > e.n {
		return nil, fmt.Errorf("reduce function %d doesn't exist, %d compiled", nth, e.n)
	}

	for name, v := range map[string]interface{}{
		"_keys":     keys,
		"_values":   values,
		"_rereduce": rereduce,
		"_nth":      nth,
	} {
		if err := e.compiled.Set(name, v); err != nil {
			return nil, err
		}
	}

	err := e.compiled.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reduce function %d: %w", nth, err)
	}
	res := e.compiled.Get("_result").String()
	if res == "" {
		res = "null"
	}
	return json.RawMessage(res), nil
}

func joinJSON(values []json.RawMessage) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if len(v) == 0 {
			b.WriteString("null")
		} else {
			b.Write(v)
		}
	}
	b.WriteByte(']')
	return b.String()
}
