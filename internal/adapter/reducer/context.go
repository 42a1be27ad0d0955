package reducer

import (
	"fmt"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// Context holds the resolved reducers of one view together with the
// script engine its custom reducers were compiled into. It is created
// when a view is activated and closed when it is deactivated.
type Context struct {
	reducers []model.Reducer
	builtins int
	customs  int
	script   port.ScriptEngine
}

// NewContext resolves the reducers and compiles all custom sources with
// the engine registered for the language.
func NewContext(language string, specs []model.ReducerSpec, engines port.ScriptEngines) (*Context, error) {
	c := &Context{
		reducers: model.ResolveReducers(specs),
	}

	var sources []string
	for _, r := range c.reducers {
		if r.Kind == model.CustomReducer {
			sources = append(sources, r.Spec.Source)
		} else {
			c.builtins++
		}
	}
	c.customs = len(sources)
	if c.customs == 0 {
		return c, nil
	}

	builder, ok := engines[language]
	if !ok {
		return nil, fmt.Errorf("no script engine for language %q", language)
	}
	script, err := builder(sources)
	if err != nil {
		return nil, err
	}
	c.script = script

	return c, nil
}

func (c *Context) Reducers() []model.Reducer {
	return c.reducers
}

func (c *Context) Close() error {
	if c.script == nil {
		return nil
	}
	err := c.script.Close()
	c.script = nil
	return err
}

func (c *Context) reducer(nth int) (model.Reducer, error) {
	if nth < 1 || nth > len(c.reducers) {
		return model.Reducer{}, fmt.Errorf("reducer %d out of range, view has %d reducers", nth, len(c.reducers))
	}
	return c.reducers[nth-1], nil
}

// scriptIndex maps the position of a reducer of the view to the number
// of the function inside the script engine, which only numbers its own
// functions.
func (c *Context) scriptIndex(nth int) int {
	preceding := 0
	for _, r := range c.reducers[:nth-1] {
		if r.Kind == model.BuiltinReducer {
			preceding++
		}
	}
	return nth - preceding
}
