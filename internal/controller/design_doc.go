package controller

import (
	"fmt"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// DesignDoc validates design documents against the available runtimes.
type DesignDoc struct {
	ViewServers   port.ViewServers
	ScriptEngines port.ScriptEngines
}

// Validate checks the view definitions of the document and compiles
// every map and custom reduce function. Problems are reported as
// *model.ValidationError.
func (c DesignDoc) Validate(dd *model.DesignDoc) ([]*model.ViewDefinition, error) {
	defs, err := dd.ViewDefinitions()
	if err != nil {
		return nil, err
	}

	lang := dd.Lang()
	servers, ok := c.ViewServers[lang]
	if !ok {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("language %q unknown", lang)}
	}
	engines := c.ScriptEngines[lang]

	for _, def := range defs {
		_, err := servers(def.Map)
		if err != nil {
			return nil, &model.ValidationError{
				View:   def.Name,
				Reason: fmt.Sprintf("syntax error in map function: %v", err),
			}
		}

		spec := model.ReducerSpec{Name: def.Name, Source: def.Reduce}
		if def.Reduce == "" || spec.IsBuiltin() {
			continue
		}
		if engines == nil {
			return nil, &model.ValidationError{
				View:   def.Name,
				Reason: fmt.Sprintf("language %q has no reduce functions", lang),
			}
		}
		engine, err := engines([]string{def.Reduce})
		if err != nil {
			return nil, &model.ValidationError{
				View:   def.Name,
				Reason: fmt.Sprintf("syntax error in reduce function: %v", err),
			}
		}
		engine.Close()
	}

	return defs, nil
}
