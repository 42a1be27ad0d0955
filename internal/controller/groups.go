package controller

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrGroupNotFound = errors.New("group not found")

// Groups is the registry of the open groups.
type Groups struct {
	Storage    *storage.Storage
	Compaction CompactionConfig

	owners    *xsync.MapOf[string, *GroupOwner]
	requested *xsync.MapOf[string, struct{}]
}

func NewGroups(s *storage.Storage, cfg CompactionConfig) *Groups {
	return &Groups{
		Storage:    s,
		Compaction: cfg,
		owners:     xsync.NewMapOf[string, *GroupOwner](),
		requested:  xsync.NewMapOf[string, struct{}](),
	}
}

// Create opens the group described by the design document. A group
// with the same name and signature is kept, a group with another
// signature is replaced.
func (gs *Groups) Create(ctx context.Context, name string, dd *model.DesignDoc) (*GroupOwner, bool, error) {
	sig, err := dd.Signature()
	if err != nil {
		return nil, false, err
	}
	if old, ok := gs.owners.Load(name); ok {
		if old.Group().Signature == sig {
			return old, false, nil
		}
		if old.Compacting() {
			return nil, false, fmt.Errorf("group %q: %w", name, ErrCompactionRunning)
		}
	}

	o, err := NewGroupOwner(ctx, gs.Storage, name, dd, gs.Compaction)
	if err != nil {
		return nil, false, err
	}
	if old, loaded := gs.owners.LoadAndStore(name, o); loaded {
		err := old.Close()
		if err != nil {
			log.Printf("failed to close %s: %v", old, err)
		}
	}
	return o, true, nil
}

func (gs *Groups) Get(name string) (*GroupOwner, error) {
	o, ok := gs.owners.Load(name)
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, ErrGroupNotFound)
	}
	return o, nil
}

// Names of all open groups.
func (gs *Groups) Names() []string {
	var names []string
	gs.owners.Range(func(name string, _ *GroupOwner) bool {
		names = append(names, name)
		return true
	})
	return names
}

// RequestCompaction marks the group for compaction by the task runner.
func (gs *Groups) RequestCompaction(name string) error {
	o, err := gs.Get(name)
	if err != nil {
		return err
	}
	if o.Compacting() {
		return fmt.Errorf("group %q: %w", name, ErrCompactionRunning)
	}
	gs.requested.Store(name, struct{}{})
	return nil
}

// takeRequests returns and clears the requested compactions.
func (gs *Groups) takeRequests() []string {
	var names []string
	gs.requested.Range(func(name string, _ struct{}) bool {
		names = append(names, name)
		return true
	})
	for _, name := range names {
		gs.requested.Delete(name)
	}
	return names
}

func (gs *Groups) Close() error {
	var errs []error
	gs.owners.Range(func(name string, o *GroupOwner) bool {
		err := o.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("group %q: %w", name, err))
		}
		gs.owners.Delete(name)
		return true
	})
	return errors.Join(errs...)
}
