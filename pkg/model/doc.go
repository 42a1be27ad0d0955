package model

import "strings"

// Document is a source document handed to the map functions of a group.
type Document struct {
	ID        string                 `json:"_id,omitempty"`
	Rev       string                 `json:"_rev,omitempty"`
	Deleted   bool                   `json:"_deleted,omitempty"`
	Partition uint16                 `json:"_partition,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func (doc Document) IsDesignDoc() bool {
	return strings.HasPrefix(doc.ID, DesignDocPrefix)
}

// Source returns the document body as seen by map functions.
func (doc Document) Source() map[string]interface{} {
	src := make(map[string]interface{}, len(doc.Data)+2)
	for k, v := range doc.Data {
		src[k] = v
	}
	src["_id"] = doc.ID
	if doc.Rev != "" {
		src["_rev"] = doc.Rev
	}
	return src
}
