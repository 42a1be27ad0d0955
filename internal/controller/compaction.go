package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goydb/setview/internal/adapter/helper"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
	uuid "github.com/satori/go.uuid"
)

// Outcome of a compaction that did not fail.
type Outcome int

const (
	// OutcomeDone the owner installed the compacted group.
	OutcomeDone Outcome = iota
	// OutcomeShutdown a helper was stopped, the attempt was abandoned.
	OutcomeShutdown
)

func (o Outcome) String() string {
	if o == OutcomeShutdown {
		return "shutdown"
	}
	return "done"
}

// GroupRewriter copies a group into a new file, see helper.Rewriter.
type GroupRewriter interface {
	Rewrite(ctx context.Context, target string, totalChanges uint64, blob []byte, progress func(inserted uint64)) (*helper.RewriteResult, error)
}

// FileMerger merges log files, see helper.Merger.
type FileMerger interface {
	Merge(ctx context.Context, kind helper.MergeKind, tmpDir string, inputs []string, output string) error
}

// Coordinator runs one compaction of a group: it syncs with the
// updater, rewrites the group with the rewrite helper and catches up
// with the changes made in the meantime until the owner accepts the
// result.
type Coordinator struct {
	Owner    port.Owner
	Updater  port.Updater // optional
	Store    port.IndexStore
	Rewriter GroupRewriter
	Merger   FileMerger
	Tracker  *ProgressTracker // optional
	TmpDir   string

	// MaxRetries limits the catch-up rounds, 0 means unbounded.
	MaxRetries uint64
	// RetryBackoff is the pause before a catch-up round.
	RetryBackoff time.Duration

	// PauseHook is called before each submission to the owner.
	PauseHook func(ctx context.Context, retry uint64)
}

func (c *Coordinator) Compact(ctx context.Context) (Outcome, error) {
	group, err := c.sync(ctx)
	if err != nil {
		return OutcomeDone, err
	}

	task := model.NewCompactionTask(uuid.NewV4().String(), group.Name, group.Signature, group.TotalChanges())
	outcome := "failed"
	if c.Tracker != nil {
		c.Tracker.Start(task)
		defer func() {
			c.Tracker.Finish(task, outcome)
		}()
	}
	log.Printf("compaction of %s: started, %d changes", group.Name, task.TotalChanges())

	task.SetPhase(model.PhaseRewriting)
	newGroup, err := c.rewrite(ctx, group, task)
	if err != nil {
		return OutcomeDone, err
	}
	defer func() {
		// the owner takes the file on success
		if outcome != OutcomeDone.String() && newGroup.Fd != nil {
			newGroup.Fd.Close()
		}
	}()

	for {
		task.SetPhase(model.PhaseAwaitingDecision)
		if c.PauseHook != nil {
			c.PauseHook(ctx, task.RetryCount())
		}

		decision, err := c.Owner.CompactDone(ctx, &port.CompactResult{
			Group:        newGroup,
			Task:         task,
			CleanupCount: int64(task.TotalChanges()) - int64(newGroup.TotalChanges()),
		})
		if err != nil {
			return OutcomeDone, fmt.Errorf("compaction of %s: %w", group.Name, err)
		}
		if decision.Done {
			task.SetPhase(model.PhaseDone)
			outcome = OutcomeDone.String()
			log.Printf("compaction of %s: done after %d retries", group.Name, task.RetryCount())
			return OutcomeDone, nil
		}

		if c.MaxRetries > 0 && task.RetryCount() >= c.MaxRetries {
			return OutcomeDone, fmt.Errorf("compaction of %s after %d retries: %w", group.Name, task.RetryCount(), model.ErrTooManyRetries)
		}
		if c.RetryBackoff > 0 {
			select {
			case <-time.After(c.RetryBackoff):
			case <-ctx.Done():
				return OutcomeDone, ctx.Err()
			}
		}

		task.SetPhase(model.PhaseCatchingUp)
		log.Printf("compaction of %s: retry %d, %d missing changes", group.Name, task.RetryCount()+1, decision.MissingCount)
		caughtUp, err := c.catchUp(ctx, newGroup, task, decision.MissingCount)
		if errors.Is(err, model.ErrShutdown) {
			outcome = OutcomeShutdown.String()
			log.Printf("compaction of %s: merger was shut down", group.Name)
			return OutcomeShutdown, nil
		}
		if err != nil {
			return OutcomeDone, err
		}
		newGroup = caughtUp
		task.IncRetry()
		if c.Tracker != nil {
			c.Tracker.Retry(task)
		}
	}
}

// sync returns the group to compact. A running updater is told about
// the compaction and hands over a consistent group.
func (c *Coordinator) sync(ctx context.Context) (*model.Group, error) {
	if c.Updater == nil {
		return c.Owner.RequestGroup(ctx)
	}

	events, err := c.Updater.CompactionStarted(ctx)
	if err != nil {
		return nil, err
	}

	var ev port.UpdaterEvent
	select {
	case e, ok := <-events:
		if !ok {
			return c.Owner.RequestGroup(ctx)
		}
		ev = e
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch ev.Kind {
	case port.UpdaterHandoff, port.UpdaterFinished:
		if ev.Group == nil {
			return c.Owner.RequestGroup(ctx)
		}
		return ev.Group, nil
	case port.UpdaterGone:
		return c.Owner.RequestGroup(ctx)
	case port.UpdaterDied:
		return nil, model.UpdaterDied(ev.Reason)
	default:
		return nil, fmt.Errorf("unknown updater event %d", ev.Kind)
	}
}

// rewrite runs the rewrite helper and returns the group stored in the
// new file.
func (c *Coordinator) rewrite(ctx context.Context, group *model.Group, task *model.CompactionTask) (*model.Group, error) {
	fd, err := c.Store.CreateCompactFile(ctx, group)
	if err != nil {
		return nil, err
	}

	blob, release, err := c.Store.PrepareRewrite(ctx, group)
	if err != nil {
		fd.Close()
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			log.Printf("compaction of %s: failed to release snapshot: %v", group.Name, err)
		}
	}()

	res, err := c.Rewriter.Rewrite(ctx, fd.Name(), task.TotalChanges(), blob, func(n uint64) {
		task.AddChangesDone(n)
		if c.Tracker != nil {
			c.Tracker.Update(task)
		}
	})
	if err != nil {
		fd.Close()
		return nil, err
	}

	header, err := c.Store.DecodeHeader(res.Header)
	if err != nil {
		fd.Close()
		return nil, err
	}

	newGroup := group.Clone()
	newGroup.Header = *header
	newGroup.FilePath = fd.Name()
	newGroup.Fd = fd
	return newGroup, nil
}

// catchUp applies the changes the owner journaled since the last
// submission to the rewritten group.
func (c *Coordinator) catchUp(ctx context.Context, group *model.Group, task *model.CompactionTask, missing uint64) (*model.Group, error) {
	task.AddTotalChanges(missing)
	if c.Tracker != nil {
		c.Tracker.Update(task)
	}

	files, err := c.Owner.CompactLogFiles(ctx)
	if err != nil {
		return nil, err
	}
	consumed := files.Paths()
	defer func() {
		for _, path := range consumed {
			err := os.Remove(path)
			if err != nil && !os.IsNotExist(err) {
				log.Printf("compaction of %s: failed to remove %q: %v", group.Name, path, err)
			}
		}
	}()

	spatial := group.Kind == model.SpatialGroup
	for _, set := range files.Sets {
		if len(set.Files) == 0 || (spatial && set.Stream != model.IDStream) {
			continue
		}

		path := set.Files[0]
		if len(set.Files) > 1 {
			path = filepath.Join(c.TmpDir, group.Name+"."+uuid.NewV4().String()+".merge")
			consumed = append(consumed, path)
			err := c.Merger.Merge(ctx, mergeKind(group.Kind, set.Stream), c.TmpDir, set.Files, path)
			if err != nil {
				return nil, err
			}
		}

		group, err = c.Store.ApplyLogFile(ctx, group, set.Stream, path)
		if err != nil {
			return nil, err
		}
	}

	if spatial {
		group, err = c.Store.RefreshSpatialViews(ctx, group)
		if err != nil {
			return nil, err
		}
	}

	group = group.Clone()
	if group.Header.Seqs == nil {
		group.Header.Seqs = make(map[uint16]uint64)
	}
	if group.Header.PartitionVersions == nil {
		group.Header.PartitionVersions = make(map[uint16][]model.PartitionVersion)
	}
	for p, seq := range files.Seqs {
		group.Header.Seqs[p] = seq
	}
	for p, versions := range files.PartitionVersions {
		group.Header.PartitionVersions[p] = append([]model.PartitionVersion(nil), versions...)
	}

	task.AddChangesDone(missing)
	if c.Tracker != nil {
		c.Tracker.Update(task)
	}
	return group, nil
}

func mergeKind(kind model.GroupKind, stream int) helper.MergeKind {
	switch {
	case kind == model.SpatialGroup:
		return helper.MergeSpatial
	case stream == model.IDStream:
		return helper.MergeIDs
	default:
		return helper.MergeViews
	}
}
