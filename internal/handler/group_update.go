package handler

import (
	"encoding/json"
	"net/http"

	"github.com/goydb/setview/pkg/model"
)

type GroupUpdate struct {
	Base
}

func (s *GroupUpdate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	o := Group{Base: s.Base}.Do(w, r)
	if o == nil {
		return
	}

	var req UpdateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, doc := range req.Docs {
		if doc.ID == "" {
			WriteError(w, http.StatusBadRequest, "document without _id")
			return
		}
	}

	ctx, cancel := s.scriptContext(r)
	defer cancel()
	err = o.Update(ctx, req.Docs)
	if err != nil {
		WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(UpdateResponse{ // nolint: errcheck
		Ok:   true,
		Seqs: o.Group().Header.Seqs,
	})
}

type UpdateRequest struct {
	Docs []*model.Document `json:"docs"`
}

type UpdateResponse struct {
	Ok   bool              `json:"ok"`
	Seqs map[uint16]uint64 `json:"update_seqs"`
}
