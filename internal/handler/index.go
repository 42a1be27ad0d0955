package handler

import (
	"encoding/json"
	"net/http"
	"sort"
)

type Index struct {
	Base
}

func (s *Index) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	names := s.Groups.Names()
	sort.Strings(names)
	response := &Info{
		Setview: "Welcome",
		Version: "0.1.0",
		Groups:  names,
		Features: []string{
			"mapreduce",
			"spatial",
		},
		Vendor: Vendor{
			Name: "goydb",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

type Info struct {
	Setview  string   `json:"setview"`
	Version  string   `json:"version"`
	Groups   []string `json:"groups"`
	Features []string `json:"features"`
	Vendor   Vendor   `json:"vendor"`
}

type Vendor struct {
	Name string `json:"name"`
}
