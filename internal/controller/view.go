package controller

import (
	"fmt"

	"github.com/goydb/setview/internal/adapter/view/gojaview"
	"github.com/goydb/setview/internal/adapter/view/tengoview"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// ViewServers are the map function runtimes by design document language.
var ViewServers = port.ViewServers{
	"javascript": gojaview.NewViewServer,
	"tengo":      tengoview.NewViewServer,
}

// ScriptEngines are the reduce function runtimes by design document language.
var ScriptEngines = port.ScriptEngines{
	"javascript": gojaview.NewScriptEngine,
	"tengo":      tengoview.NewScriptEngine,
}

// ViewServer compiles the map function of a view.
func ViewServer(servers port.ViewServers, lang string, v *model.View) (port.ViewServer, error) {
	builder, ok := servers[lang]
	if !ok {
		return nil, fmt.Errorf("language %q unknown", lang)
	}
	return builder(v.MapSource)
}
