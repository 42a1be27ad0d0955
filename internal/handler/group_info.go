package handler

import (
	"encoding/json"
	"net/http"
)

type GroupInfo struct {
	Base
}

func (s *GroupInfo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	o := Group{Base: s.Base}.Do(w, r)
	if o == nil {
		return
	}

	g := o.Group()
	response := GroupResponse{
		Name:           g.Name,
		Signature:      g.Signature,
		Language:       g.Language,
		Kind:           string(g.Kind),
		IDCount:        g.IDCount(),
		Seqs:           g.Header.Seqs,
		CompactRunning: o.Compacting(),
	}
	for _, v := range g.Views {
		response.Views = append(response.Views, ViewInfo{
			Names:    v.Names,
			RowCount: g.ViewRowCount(v.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response) // nolint: errcheck
}

type GroupResponse struct {
	Name           string            `json:"name"`
	Signature      string            `json:"signature"`
	Language       string            `json:"language"`
	Kind           string            `json:"kind"`
	IDCount        uint64            `json:"id_count"`
	Views          []ViewInfo        `json:"views"`
	Seqs           map[uint16]uint64 `json:"update_seqs"`
	CompactRunning bool              `json:"compact_running"`
}

type ViewInfo struct {
	Names    []string `json:"names"`
	RowCount uint64   `json:"row_count"`
}
