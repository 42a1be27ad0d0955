package port

import (
	"context"
	"os"

	"github.com/goydb/setview/pkg/model"
)

// IndexStore gives the compaction access to the btree files of a group.
type IndexStore interface {
	// CreateCompactFile creates the empty file the rewrite of g is
	// written to, an existing file is truncated.
	CreateCompactFile(ctx context.Context, g *model.Group) (*os.File, error)

	// PrepareRewrite takes a consistent snapshot of the group and returns
	// the serialized group descriptor and header for the rewrite helper.
	// release removes the snapshot.
	PrepareRewrite(ctx context.Context, g *model.Group) (blob []byte, release func() error, err error)

	// DecodeHeader decodes a header produced by the rewrite helper.
	DecodeHeader(blob []byte) (*model.Header, error)

	// ApplyLogFile applies the mutations of a log file to a stream of the
	// group file and returns the group with the updated btree states.
	ApplyLogFile(ctx context.Context, g *model.Group, stream int, path string) (*model.Group, error)

	// RefreshSpatialViews recomputes the state of the spatial views of a
	// group, they are maintained outside of the group file.
	RefreshSpatialViews(ctx context.Context, g *model.Group) (*model.Group, error)
}
