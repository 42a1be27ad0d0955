package controller

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/goydb/setview/internal/adapter/reducer"
	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
	uuid "github.com/satori/go.uuid"
)

var ErrCompactionRunning = errors.New("compaction is already running")

var (
	_ port.Owner   = (*GroupOwner)(nil)
	_ port.Updater = (*GroupOwner)(nil)
)

// CompactionConfig is used for every compaction of a group.
type CompactionConfig struct {
	Rewriter     GroupRewriter
	Merger       FileMerger
	Tracker      *ProgressTracker
	MaxRetries   uint64
	RetryBackoff time.Duration
	PauseHook    func(ctx context.Context, retry uint64)
}

// GroupOwner owns the live file of a group. It applies document
// updates, answers queries and installs compacted files.
type GroupOwner struct {
	Storage    *storage.Storage
	Compaction CompactionConfig

	mu       sync.Mutex
	group    *model.Group
	servers  []port.ViewServer
	contexts map[string]*reducer.Context
	journal  *journal
}

// NewGroupOwner validates the design document and opens the file of
// the group, an existing file with the same signature is reused.
func NewGroupOwner(ctx context.Context, s *storage.Storage, name string, dd *model.DesignDoc, cfg CompactionConfig) (*GroupOwner, error) {
	_, err := DesignDoc{ViewServers: ViewServers, ScriptEngines: ScriptEngines}.Validate(dd)
	if err != nil {
		return nil, err
	}
	g, err := dd.NewGroup(name, model.MainScope)
	if err != nil {
		return nil, err
	}
	g.FilePath = s.GroupFilePath(name, g.Signature)

	err = s.CreateGroupFile(ctx, g)
	if err != nil {
		return nil, err
	}
	f, err := s.File(g.FilePath)
	if err != nil {
		return nil, err
	}
	h, err := f.Header()
	if err != nil {
		return nil, err
	}
	g.Header = *h
	if g.Kind == model.SpatialGroup {
		g, err = s.RefreshSpatialViews(ctx, g)
		if err != nil {
			return nil, err
		}
	}

	o := &GroupOwner{
		Storage:    s,
		Compaction: cfg,
		group:      g,
		contexts:   make(map[string]*reducer.Context),
	}
	for _, v := range g.Views {
		server, err := ViewServer(ViewServers, g.Language, v)
		if err != nil {
			o.Close()
			return nil, err
		}
		o.servers = append(o.servers, server)

		rc, err := reducer.NewContext(g.Language, v.Reducers, ScriptEngines)
		if err != nil {
			o.Close()
			return nil, err
		}
		o.contexts[model.NewViewFn(g, v.ID).String()] = rc
	}

	log.Printf("opened %s", g)
	return o, nil
}

func (o *GroupOwner) String() string {
	return o.Group().String()
}

// Group returns a copy of the current group.
func (o *GroupOwner) Group() *model.Group {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.group.Clone()
}

// Close releases the reduce contexts of the views.
func (o *GroupOwner) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for key, rc := range o.contexts {
		err := rc.Close()
		if err != nil {
			return err
		}
		delete(o.contexts, key)
	}
	if o.journal != nil {
		o.journal.discard()
		o.journal = nil
	}
	return nil
}

// Update runs the map functions over the documents and stores the rows.
// Every document gets the next sequence number of its partition.
func (o *GroupOwner) Update(ctx context.Context, docs []*model.Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	g := o.group.Clone()
	updates := make([]storage.DocUpdate, 0, len(docs))
	index := make(map[string]int, len(docs))
	var live []*model.Document
	for _, doc := range docs {
		if doc.IsDesignDoc() {
			continue
		}
		if _, ok := g.Header.PartitionVersions[doc.Partition]; !ok {
			u := uuid.NewV4()
			g.Header.PartitionVersions[doc.Partition] = []model.PartitionVersion{
				{UUID: binary.BigEndian.Uint64(u[:8])},
			}
		}
		seq := g.Header.Seqs[doc.Partition] + 1
		g.Header.Seqs[doc.Partition] = seq

		index[doc.ID] = len(updates)
		updates = append(updates, storage.DocUpdate{
			DocID:     doc.ID,
			Partition: doc.Partition,
			Seq:       seq,
			Deleted:   doc.Deleted,
			Rows:      make([][]model.Row, len(g.Views)),
		})
		if !doc.Deleted {
			live = append(live, doc)
		}
	}
	if len(updates) == 0 {
		return nil
	}

	if len(live) > 0 {
		for pos, server := range o.servers {
			rows, err := server.ExecuteView(ctx, live)
			if err != nil {
				return fmt.Errorf("map function of view %d failed: %w", pos, err)
			}
			for _, r := range rows {
				i, ok := index[r.DocID]
				if !ok {
					continue
				}
				updates[i].Rows[pos] = append(updates[i].Rows[pos], r)
			}
		}
	}

	ng, entries, err := o.Storage.Update(ctx, g, updates)
	if err != nil {
		return err
	}
	// the file is updated, a broken journal only fails the compaction
	o.group = ng
	if o.journal != nil {
		err := o.journal.write(entries)
		if err != nil {
			log.Printf("compaction of %s: %v", ng.Name, err)
		}
	}
	return nil
}

// Compact compacts the group file. Only one compaction runs at a time.
func (o *GroupOwner) Compact(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	if o.journal != nil {
		o.mu.Unlock()
		return OutcomeDone, ErrCompactionRunning
	}
	o.journal = newJournal(o.Storage.TmpDir(), o.group.Name)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.journal != nil {
			o.journal.discard()
			o.journal = nil
		}
		o.mu.Unlock()
	}()

	c := &Coordinator{
		Owner:        o,
		Updater:      o,
		Store:        o.Storage,
		Rewriter:     o.Compaction.Rewriter,
		Merger:       o.Compaction.Merger,
		Tracker:      o.Compaction.Tracker,
		TmpDir:       o.Storage.TmpDir(),
		MaxRetries:   o.Compaction.MaxRetries,
		RetryBackoff: o.Compaction.RetryBackoff,
		PauseHook:    o.Compaction.PauseHook,
	}
	return c.Compact(ctx)
}

// Compacting reports whether a compaction is running.
func (o *GroupOwner) Compacting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.journal != nil
}

func (o *GroupOwner) RequestGroup(ctx context.Context) (*model.Group, error) {
	return o.Group(), nil
}

// CompactionStarted hands over the group once the update in progress,
// if any, finished.
func (o *GroupOwner) CompactionStarted(ctx context.Context) (<-chan port.UpdaterEvent, error) {
	events := make(chan port.UpdaterEvent, 1)
	go func() {
		events <- port.UpdaterEvent{
			Kind:  port.UpdaterHandoff,
			Group: o.Group(),
		}
	}()
	return events, nil
}

// CompactDone installs the compacted file if no changes were made since
// the last submission, otherwise the compaction has to catch up.
func (o *GroupOwner) CompactDone(ctx context.Context, result *port.CompactResult) (port.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.journal == nil {
		return port.Decision{}, errors.New("no compaction running")
	}
	if o.journal.err != nil {
		return port.Decision{}, o.journal.err
	}
	if o.journal.pending > 0 {
		return port.Decision{MissingCount: o.journal.pending}, nil
	}

	ng := result.Group.Clone()
	target := ng.FilePath
	live := o.group.FilePath

	f, err := o.Storage.File(target)
	if err != nil {
		return port.Decision{}, err
	}
	err = f.WriteHeader(ng.Header)
	if err != nil {
		return port.Decision{}, err
	}
	err = o.Storage.CloseFile(target)
	if err != nil {
		return port.Decision{}, err
	}
	err = o.Storage.CloseFile(live)
	if err != nil {
		return port.Decision{}, err
	}
	err = os.Rename(target, live)
	if err != nil {
		return port.Decision{}, fmt.Errorf("failed to install %q: %w", target, err)
	}
	if ng.Fd != nil {
		ng.Fd.Close()
	}

	ng.FilePath = live
	ng.Fd = nil
	o.group = ng
	log.Printf("compaction of %s: installed, %d entries cleaned up", ng.Name, result.CleanupCount)
	return port.Decision{Done: true}, nil
}

func (o *GroupOwner) CompactLogFiles(ctx context.Context) (*model.LogFiles, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.journal == nil {
		return nil, errors.New("no compaction running")
	}
	sets, err := o.journal.rotate()
	if err != nil {
		return nil, err
	}
	h := o.group.Header.Clone()
	return &model.LogFiles{
		Sets:              sets,
		Seqs:              h.Seqs,
		PartitionVersions: h.PartitionVersions,
	}, nil
}
