package gojaview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/goydb/setview/pkg/port"
)

var _ port.ScriptEngine = (*ScriptEngine)(nil)

// values are passed and returned as JSON text so they never have to be
// decoded on the go side
const reducePrelude = `
function sum(values) {
	var _sum = 0;
	values.forEach(function (value) {
		_sum += value
	});
	return _sum;
}
function _call(fn, keys, values, rereduce) {
	var r = fn(JSON.parse(keys), JSON.parse(values), rereduce);
	return r === undefined ? "null" : JSON.stringify(r);
}`

// ScriptEngine runs javascript reduce functions. Calls are serialized,
// a goja runtime must not be used concurrently.
type ScriptEngine struct {
	mu   sync.Mutex
	vm   *goja.Runtime
	call goja.Callable
	fns  []goja.Value
}

func NewScriptEngine(sources []string) (port.ScriptEngine, error) {
	vm := goja.New()
	_, err := vm.RunString(reducePrelude)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}
	call, ok := goja.AssertFunction(vm.Get("_call"))
	if !ok {
		return nil, fmt.Errorf("script error: reduce prelude is broken")
	}

	e := &ScriptEngine{
		vm:   vm,
		call: call,
		fns:  make([]goja.Value, len(sources)),
	}
	for i, source := range sources {
		v, err := vm.RunScript(fmt.Sprintf("reduce_%d.js", i+1), "("+source+")")
		if err != nil {
			return nil, fmt.Errorf("reduce function %d: %w", i+1, err)
		}
		if _, ok := goja.AssertFunction(v); !ok {
			return nil, fmt.Errorf("reduce function %d is not a function", i+1)
		}
		e.fns[i] = v
	}

	return e, nil
}

func (e *ScriptEngine) Reduce(ctx context.Context, keys, values []json.RawMessage) ([]json.RawMessage, error) {
	k, v := joinJSON(keys), joinJSON(values)
	results := make([]json.RawMessage, len(e.fns))
	for i := range e.fns {
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
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fns = nil
	return nil
}

func (e *ScriptEngine) run(ctx context.Context, nth int, keys, values string, rereduce bool) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if nth < 1 || nth > len(e.fns) {
		return nil, fmt.Errorf("reduce function %d doesn't exist, %d compiled", nth, len(e.fns))
	}

	stop := context.AfterFunc(ctx, func() {
		e.vm.Interrupt(ctx.Err())
	})
	defer func() {
		stop()
		e.vm.ClearInterrupt()
	}()

	res, err := e.call(goja.Undefined(), e.fns[nth-1], e.vm.ToValue(keys), e.vm.ToValue(values), e.vm.ToValue(rereduce))
	if err != nil {
		return nil, fmt.Errorf("reduce function %d: %w", nth, err)
	}
	return json.RawMessage(res.String()), nil
}

// joinJSON builds a JSON array from encoded values.
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
