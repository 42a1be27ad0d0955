package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/goydb/setview/internal/controller"
)

type GroupView struct {
	Base
}

func (s *GroupView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	o := Group{Base: s.Base}.Do(w, r)
	if o == nil {
		return
	}

	options := r.URL.Query()
	q := controller.QueryOptions{
		View:   mux.Vars(r)["view"],
		Reduce: optionalBool("reduce", options),
		Group:  boolOption("group", false, options),
		BBox:   stringOption("bbox", "box", options),
	}

	ctx, cancel := s.scriptContext(r)
	defer cancel()
	res, err := o.Query(ctx, q)
	if err != nil {
		WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res) // nolint: errcheck
}
