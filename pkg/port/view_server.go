package port

import (
	"context"

	"github.com/goydb/setview/pkg/model"
)

// ViewServer executes a compiled map function.
type ViewServer interface {
	ExecuteView(ctx context.Context, docs []*model.Document) ([]model.Row, error)
}

type ViewServerBuilder func(fn string) (ViewServer, error)

// ViewServers maps a design document language to its builder.
type ViewServers map[string]ViewServerBuilder
