package gojaview

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

var _ port.ViewServer = (*ViewServer)(nil)

type ViewServer struct {
	mu sync.Mutex
	vm *goja.Runtime
}

func NewViewServer(fn string) (port.ViewServer, error) {
	vm := goja.New()
	fn = `
	var _result = [];
	var _doc = {};
	var docs = [];
	function emit(key, value) {
		_result.push([
			key === undefined ? "null" : JSON.stringify(key),
			value === undefined ? "null" : JSON.stringify(value),
			_doc._id
		]);
	}
	var docFn = ` + fn + `;`
	_, err := vm.RunString(fn)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}
	if _, ok := goja.AssertFunction(vm.Get("docFn")); !ok {
		return nil, fmt.Errorf("script error: map function is not a function")
	}

	return &ViewServer{
		vm: vm,
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

	s.vm.Set("docs", simpleDocs)

	_, err := s.vm.RunString(`_result = [];
	docs.forEach(function (doc) {
		_doc = doc;
		docFn(doc);
	});`)
	if err != nil {
		return nil, err
	}

	resultData, ok := s.vm.Get("_result").Export().([]interface{})
	if !ok {
		return nil, fmt.Errorf("unable to export")
	}
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

// encoded returns the JSON produced by JSON.stringify, values that
// can't be represented in JSON become null.
func encoded(v interface{}) json.RawMessage {
	s, ok := v.(string)
	if !ok || s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
