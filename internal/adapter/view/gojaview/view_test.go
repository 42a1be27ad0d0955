package gojaview

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goydb/setview/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewServer_ExecuteView(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		docs    []*model.Document
		want    []model.Row
		wantErr bool
	}{
		{
			name:   "empty emit",
			script: `function(doc) {}`,
			docs: []*model.Document{
				{ID: "1", Rev: "0-REV", Data: map[string]interface{}{
					"test": 1,
				}},
			},
			want: []model.Row{},
		},
		{
			name: "one emit",
			script: `function(doc) {
				emit(doc.test, 1)
			}`,
			docs: []*model.Document{
				{ID: "1", Rev: "0-REV", Partition: 7, Data: map[string]interface{}{
					"test": 1,
				}},
			},
			want: []model.Row{
				{
					DocID:       "1",
					Key:         json.RawMessage(`1`),
					Value:       json.RawMessage(`1`),
					PartitionID: 7,
				},
			},
		},
		{
			name: "two emit",
			script: `function(doc) {
				emit(doc._id, [doc.test])
			}`,
			docs: []*model.Document{
				{ID: "1", Rev: "0-REV", Data: map[string]interface{}{
					"test": 1,
				}},
				{ID: "2", Rev: "0-REV", Data: map[string]interface{}{
					"test": 123,
				}},
			},
			want: []model.Row{
				{
					DocID: "1",
					Key:   json.RawMessage(`"1"`),
					Value: json.RawMessage(`[1]`),
				}, {
					DocID: "2",
					Key:   json.RawMessage(`"2"`),
					Value: json.RawMessage(`[123]`),
				},
			},
		},
		{
			name: "undefined value",
			script: `function(doc) {
				emit(doc._id)
			}`,
			docs: []*model.Document{
				{ID: "x", Data: map[string]interface{}{}},
			},
			want: []model.Row{
				{
					DocID: "x",
					Key:   json.RawMessage(`"x"`),
					Value: json.RawMessage(`null`),
				},
			},
		},
		{
			name:    "runtime error",
			script:  `function(doc) { throw new Error("boom") }`,
			docs:    []*model.Document{{ID: "1", Data: map[string]interface{}{}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewViewServer(tt.script)
			require.NoError(t, err)
			got, err := s.ExecuteView(context.Background(), tt.docs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, tt.want, got)
		})
	}
}

func TestNewViewServer_SyntaxError(t *testing.T) {
	_, err := NewViewServer(`function(doc) { emit(doc._id, }`)
	assert.Error(t, err)
}
