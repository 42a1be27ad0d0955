package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/goydb/setview/pkg/model"
)

type GroupCreate struct {
	Base
}

func (s *GroupCreate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body map[string]interface{}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	dd, err := model.DecodeDesignDoc(body)
	if err != nil {
		WriteErr(w, err)
		return
	}

	name := mux.Vars(r)["group"]
	o, created, err := s.Groups.Create(r.Context(), name, dd)
	if err != nil {
		WriteErr(w, err)
		return
	}

	g := o.Group()
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(GroupCreateResponse{ // nolint: errcheck
		Ok:        true,
		Name:      g.Name,
		Signature: g.Signature,
	})
}

type GroupCreateResponse struct {
	Ok        bool   `json:"ok"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
}
