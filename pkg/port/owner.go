package port

import (
	"context"

	"github.com/goydb/setview/pkg/model"
)

// CompactResult is submitted to the owner after each compaction attempt.
type CompactResult struct {
	Group        *model.Group
	Task         *model.CompactionTask
	CleanupCount int64
}

// Decision of the owner about a compaction result. If MissingCount is
// not zero the compaction has to catch up before it can be installed.
type Decision struct {
	Done         bool
	MissingCount uint64
}

// Owner is the lifecycle authority of a group.
type Owner interface {
	RequestGroup(ctx context.Context) (*model.Group, error)
	CompactDone(ctx context.Context, result *CompactResult) (Decision, error)
	CompactLogFiles(ctx context.Context) (*model.LogFiles, error)
}

type UpdaterEventKind int

const (
	// UpdaterHandoff the updater handed over a consistent group.
	UpdaterHandoff UpdaterEventKind = iota
	// UpdaterFinished the updater finished before it saw the notice.
	UpdaterFinished
	// UpdaterGone the updater is no longer running.
	UpdaterGone
	// UpdaterDied the updater terminated abnormally.
	UpdaterDied
)

type UpdaterEvent struct {
	Kind   UpdaterEventKind
	Group  *model.Group
	Reason string
}

// Updater is the online index updater running concurrently to a compaction.
type Updater interface {
	// CompactionStarted notifies the updater, exactly one event is
	// delivered on the returned channel.
	CompactionStarted(ctx context.Context) (<-chan UpdaterEvent, error)
}
