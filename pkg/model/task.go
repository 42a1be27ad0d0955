package model

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

type TaskPhase int32

const (
	PhaseSyncing TaskPhase = iota
	PhaseRewriting
	PhaseAwaitingDecision
	PhaseCatchingUp
	PhaseDone
)

var phaseNames = [...]string{"syncing", "rewriting", "awaiting_decision", "catching_up", "done"}

func (p TaskPhase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// CompactionTask tracks the progress of one compaction. The coordinator
// is the only writer, reporters read it concurrently.
type CompactionTask struct {
	ID        string
	Group     string
	Signature string
	StartedOn time.Time

	changesDone  atomic.Uint64
	totalChanges atomic.Uint64
	retryCount   atomic.Uint64
	phase        atomic.Int32
	updatedOn    atomic.Int64
}

func NewCompactionTask(id, group, signature string, totalChanges uint64) *CompactionTask {
	t := &CompactionTask{
		ID:        id,
		Group:     group,
		Signature: signature,
		StartedOn: time.Now(),
	}
	t.totalChanges.Store(totalChanges)
	t.touch()
	return t
}

func (t *CompactionTask) touch() {
	t.updatedOn.Store(time.Now().UnixNano())
}

func (t *CompactionTask) ChangesDone() uint64  { return t.changesDone.Load() }
func (t *CompactionTask) TotalChanges() uint64 { return t.totalChanges.Load() }
func (t *CompactionTask) RetryCount() uint64   { return t.retryCount.Load() }
func (t *CompactionTask) Phase() TaskPhase     { return TaskPhase(t.phase.Load()) }

func (t *CompactionTask) UpdatedOn() time.Time {
	return time.Unix(0, t.updatedOn.Load())
}

// AddChangesDone adds n processed changes, the total is never exceeded.
func (t *CompactionTask) AddChangesDone(n uint64) {
	for {
		done := t.changesDone.Load()
		next := done + n
		if total := t.totalChanges.Load(); next > total {
			next = total
		}
		if t.changesDone.CompareAndSwap(done, next) {
			break
		}
	}
	t.touch()
}

// AddTotalChanges grows the total by changes found missing on a retry.
func (t *CompactionTask) AddTotalChanges(n uint64) {
	t.totalChanges.Add(n)
	t.touch()
}

func (t *CompactionTask) IncRetry() {
	t.retryCount.Add(1)
	t.touch()
}

func (t *CompactionTask) SetPhase(p TaskPhase) {
	t.phase.Store(int32(p))
	t.touch()
}

// Progress in percent, 100 if there is nothing to do.
func (t *CompactionTask) Progress() int {
	total := t.totalChanges.Load()
	if total == 0 {
		return 100
	}
	done := t.changesDone.Load()
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}

func (t *CompactionTask) String() string {
	var b strings.Builder
	b.WriteString("<CompactionTask ID=")
	b.WriteString(t.ID)
	b.WriteString(" group=")
	b.WriteString(t.Group)
	b.WriteString(" phase=")
	b.WriteString(t.Phase().String())
	b.WriteString(" done=")
	b.WriteString(strconv.FormatUint(t.ChangesDone(), 10))
	b.WriteString(" total=")
	b.WriteString(strconv.FormatUint(t.TotalChanges(), 10))
	b.WriteString(" retries=")
	b.WriteString(strconv.FormatUint(t.RetryCount(), 10))
	b.WriteString(">")
	return b.String()
}
