package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/goydb/setview/internal/controller"
)

type Group struct {
	Base
}

func (c Group) Do(w http.ResponseWriter, r *http.Request) *controller.GroupOwner {
	o, err := c.Groups.Get(mux.Vars(r)["group"])
	if err != nil {
		WriteError(w, http.StatusNotFound, "Group does not exist.")
		return nil
	}
	return o
}

// scriptContext limits the time scripts may run for the request.
func (b Base) scriptContext(r *http.Request) (context.Context, context.CancelFunc) {
	if b.ScriptTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), b.ScriptTimeout)
}
