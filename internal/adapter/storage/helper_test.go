package storage

import (
	"context"
	"testing"

	"github.com/goydb/setview/pkg/model"
	"github.com/stretchr/testify/require"
)

func WithTestStorage(t *testing.T, fn func(ctx context.Context, s *Storage)) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, "")
	require.NoError(t, err)
	defer s.Close()

	fn(ctx, s)
}

// testGroup returns a group with two views, the second has a reducer.
func testGroup(s *Storage, kind model.GroupKind) *model.Group {
	g := &model.Group{
		Name:      "test",
		Signature: "abc",
		Language:  "javascript",
		Kind:      kind,
		Scope:     model.MainScope,
		Views: []*model.View{
			{ID: 0, MapSource: "function(doc) { emit(doc._id, 1) }", Names: []string{"a"}},
			{ID: 1, MapSource: "function(doc) { emit(doc.v, doc.v) }", Names: []string{"b"},
				Reducers: []model.ReducerSpec{{Name: "b", Source: "_sum"}}},
		},
	}
	g.Header = g.EmptyHeader()
	g.FilePath = s.GroupFilePath(g.Name, g.Signature)
	return g
}

func WithTestGroup(t *testing.T, kind model.GroupKind, fn func(ctx context.Context, s *Storage, g *model.Group)) {
	WithTestStorage(t, func(ctx context.Context, s *Storage) {
		g := testGroup(s, kind)
		require.NoError(t, s.CreateGroupFile(ctx, g))
		fn(ctx, s, g)
	})
}

func row(key, value string) model.Row {
	return model.Row{Key: []byte(key), Value: []byte(value)}
}
