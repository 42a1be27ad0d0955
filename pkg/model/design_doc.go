package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/crypto/blake2b"
)

// DesignDocPrefix is the id prefix of design documents.
const DesignDocPrefix = "_design/"

// builtins known to the document model, only some of them can be used
// by set views
var builtinReducers = map[BuiltinName]bool{
	BuiltinSum:                true,
	BuiltinCount:              true,
	BuiltinStats:              true,
	"_approx_count_distinct": false,
}

// DesignDoc describes the views of a group.
type DesignDoc struct {
	ID       string                 `mapstructure:"_id" json:"_id,omitempty"`
	Language string                 `mapstructure:"language" json:"language,omitempty"`
	Kind     GroupKind              `mapstructure:"kind" json:"kind,omitempty"`
	Views    map[string]interface{} `mapstructure:"views" json:"views"`
}

// ViewDefinition is a validated view of a design document.
type ViewDefinition struct {
	Name   string
	Map    string
	Reduce string
}

type rawViewDefinition struct {
	Map    interface{} `mapstructure:"map"`
	Reduce interface{} `mapstructure:"reduce"`
}

// DecodeDesignDoc decodes a JSON object into a design document.
func DecodeDesignDoc(data map[string]interface{}) (*DesignDoc, error) {
	var dd DesignDoc
	err := mapstructure.Decode(data, &dd)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid design document: %v", err)}
	}
	if dd.Language == "" {
		dd.Language = "javascript"
	}
	if dd.Kind == "" {
		dd.Kind = MapReduceGroup
	}
	return &dd, nil
}

// Language of the design document, javascript is the default.
func (dd *DesignDoc) Lang() string {
	if dd.Language == "" {
		return "javascript"
	}
	return dd.Language
}

// ViewDefinitions checks all views of the document and returns them
// ordered by name.
func (dd *DesignDoc) ViewDefinitions() ([]*ViewDefinition, error) {
	if dd.Kind != MapReduceGroup && dd.Kind != SpatialGroup && dd.Kind != "" {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown index kind %q", dd.Kind)}
	}

	names := make([]string, 0, len(dd.Views))
	for name := range dd.Views {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]*ViewDefinition, 0, len(names))
	for _, name := range names {
		def, err := dd.viewDefinition(name, dd.Views[name])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (dd *DesignDoc) viewDefinition(name string, raw interface{}) (*ViewDefinition, error) {
	if name == "" {
		return nil, &ValidationError{Reason: "View name cannot be empty"}
	}
	if strings.TrimSpace(name) != name {
		return nil, &ValidationError{View: name, Reason: "View name cannot have leading or trailing whitespace"}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &ValidationError{View: name, Reason: "view definition must be an object"}
	}
	var rv rawViewDefinition
	if err := mapstructure.Decode(obj, &rv); err != nil {
		return nil, &ValidationError{View: name, Reason: err.Error()}
	}

	def := &ViewDefinition{Name: name}
	switch m := rv.Map.(type) {
	case nil:
		return nil, &ValidationError{View: name, Reason: "missing map function"}
	case string:
		if strings.TrimSpace(m) == "" {
			return nil, &ValidationError{View: name, Reason: "missing map function"}
		}
		def.Map = m
	default:
		return nil, &ValidationError{View: name, Reason: "map function must be a string"}
	}

	switch r := rv.Reduce.(type) {
	case nil:
	case string:
		def.Reduce = r
	default:
		return nil, &ValidationError{View: name, Reason: "reduce function must be a string"}
	}

	if def.Reduce == "" {
		return def, nil
	}
	if dd.Kind == SpatialGroup {
		return nil, &ValidationError{View: name, Reason: "spatial views cannot have a reduce function"}
	}
	spec := ReducerSpec{Name: name, Source: def.Reduce}
	if spec.IsBuiltin() {
		builtin := BuiltinName(strings.TrimSpace(def.Reduce))
		allowed, known := builtinReducers[builtin]
		if !known {
			return nil, &ValidationError{View: name, Reason: fmt.Sprintf("unknown built-in reduce function `%s`", builtin)}
		}
		if !allowed {
			return nil, &ValidationError{View: name, Reason: fmt.Sprintf("built-in reduce function `%s` is not allowed", builtin)}
		}
	}
	return def, nil
}

// Signature identifies the index content the document describes, two
// documents with the same views share the signature.
func (dd *DesignDoc) Signature() (string, error) {
	defs, err := dd.ViewDefinitions()
	if err != nil {
		return "", err
	}
	canonical := struct {
		Language string            `json:"language"`
		Kind     GroupKind         `json:"kind"`
		Views    []*ViewDefinition `json:"views"`
	}{dd.Lang(), dd.Kind, defs}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// NewGroup builds the group described by the design document. Views with
// the same map function share a btree, their reducers keep the order of
// the view names.
func (dd *DesignDoc) NewGroup(name string, scope GroupScope) (*Group, error) {
	defs, err := dd.ViewDefinitions()
	if err != nil {
		return nil, err
	}
	sig, err := dd.Signature()
	if err != nil {
		return nil, err
	}

	g := &Group{
		Name:      name,
		Signature: sig,
		Language:  dd.Lang(),
		Kind:      dd.Kind,
		Scope:     scope,
	}
	if g.Kind == "" {
		g.Kind = MapReduceGroup
	}

	byMap := make(map[string]*View)
	for _, def := range defs {
		v, ok := byMap[def.Map]
		if !ok {
			v = &View{ID: len(g.Views), MapSource: def.Map}
			byMap[def.Map] = v
			g.Views = append(g.Views, v)
		}
		v.Names = append(v.Names, def.Name)
		if def.Reduce != "" {
			v.Reducers = append(v.Reducers, ReducerSpec{Name: def.Name, Source: def.Reduce})
		}
	}
	g.Header = g.EmptyHeader()

	return g, nil
}
