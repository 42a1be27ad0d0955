package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type GroupCompact struct {
	Base
}

func (s *GroupCompact) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	err := s.Groups.RequestCompaction(mux.Vars(r)["group"])
	if err != nil {
		WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true}) // nolint: errcheck
}
