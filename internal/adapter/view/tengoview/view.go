package tengoview

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

var _ port.ViewServer = (*ViewServer)(nil)

// modules available to map and reduce functions
var modules = []string{
	"text",   // regular expressions, string conversion, and manipulation
	"math",   // mathematical constants and functions
	"times",  // time-related functions
	"fmt",    // formatting functions
	"json",   // JSON functions
	"enum",   // Enumeration functions
	"hex",    // hex encoding and decoding functions
	"base64", // base64 encoding and decoding functions
}

const moduleImports = `text := import("text")
	math := import("math")
	times := import("times")
	fmt := import("fmt")
	json := import("json")
	enum := import("enum")
	hex := import("hex")
	base64 := import("base64")
`

type ViewServer struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
}

func NewViewServer(fn string) (port.ViewServer, error) {
	src := moduleImports + `
	_result := []
	_doc := {}
	emit := func (key, value) {
		_result = _result + [[ string(json.encode(key)), string(json.encode(value)), _doc._id ]]
	}
	docFn := ` + fn + `
	for doc in docs {
		_doc = doc
		docFn(doc)
	}`
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap(modules...))
	err := script.Add("docs", []interface{}{})
	if err != nil {
		return nil, err
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script error %v: %w", fn, err)
	}

	return &ViewServer{
		compiled: compiled,
	}, nil
}

func (s *ViewServer) ExecuteView(ctx context.Context, docs []*model.Document) ([]model.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	simpleDocs := make([]interface{}, len(docs))
	partitions := make(map[string]uint16, len(docs))
	for i, doc := range docs {
		simpleDocs[i] = doc.Source()
		partitions[doc.ID] = doc.Partition
	}

	err := s.compiled.Set("docs", simpleDocs)
	if err != nil {
		return nil, err
	}

	err = s.compiled.RunContext(ctx)
	if err != nil {
		return nil, err
	}

	resultData := s.compiled.Get("_result").Array()
	result := make([]model.Row, len(resultData))

	for i, rd := range resultData {
		row := rd.([]interface{})
		id, _ := row[2].(string)
		result[i] = model.Row{
			Key:         encoded(row[0]),
			Value:       encoded(row[1]),
			DocID:       id,
			PartitionID: partitions[id],
		}
	}

	return result, nil
}

func encoded(v interface{}) json.RawMessage {
	s, ok := v.(string)
	if !ok || s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
