package controller

import (
	"testing"

	"github.com/goydb/setview/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesignDoc_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]interface{}
		views   int
		wantErr string
	}{
		{
			name: "javascript",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "function(doc) { emit(doc._id, 1) }", "reduce": "_count"},
					"b": map[string]interface{}{"map": "function(doc) { emit(doc._id, 1) }", "reduce": "function(k, v, r) { return sum(v) }"},
				},
			},
			views: 2,
		},
		{
			name: "tengo",
			doc: map[string]interface{}{
				"language": "tengo",
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "func(doc) { emit(doc._id, 1) }", "reduce": "_sum"},
				},
			},
			views: 1,
		},
		{
			name: "map syntax error",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "function(doc) { emit(doc._id, 1) "},
				},
			},
			wantErr: "syntax error in map function",
		},
		{
			name: "reduce syntax error",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "function(doc) {}", "reduce": "function(k, v, r) { return "},
				},
			},
			wantErr: "syntax error in reduce function",
		},
		{
			name: "unknown language",
			doc: map[string]interface{}{
				"language": "cobol",
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "function(doc) {}"},
				},
			},
			wantErr: `language "cobol" unknown`,
		},
		{
			name: "unknown builtin",
			doc: map[string]interface{}{
				"views": map[string]interface{}{
					"a": map[string]interface{}{"map": "function(doc) {}", "reduce": "_median"},
				},
			},
			wantErr: "unknown built-in reduce function",
		},
	}

	c := DesignDoc{ViewServers: ViewServers, ScriptEngines: ScriptEngines}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, err := model.DecodeDesignDoc(tt.doc)
			require.NoError(t, err)

			defs, err := c.Validate(dd)
			if tt.wantErr != "" {
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, defs, tt.views)
		})
	}
}
