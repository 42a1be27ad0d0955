package controller

import (
	"sort"

	"github.com/goydb/setview/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// ProgressTracker knows the running compactions and exports their
// progress as metrics.
type ProgressTracker struct {
	tasks *xsync.MapOf[string, *model.CompactionTask]

	changesDone  *prometheus.GaugeVec
	totalChanges *prometheus.GaugeVec
	progress     *prometheus.GaugeVec
	retries      *prometheus.CounterVec
	completed    *prometheus.CounterVec
}

func NewProgressTracker(reg prometheus.Registerer) *ProgressTracker {
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: "setview",
			Subsystem: "compaction",
			Name:      name,
			Help:      help,
		}
	}
	labels := []string{"group"}
	t := &ProgressTracker{
		tasks:        xsync.NewMapOf[string, *model.CompactionTask](),
		changesDone:  prometheus.NewGaugeVec(opts("changes_done", "Entries copied or applied by the running compaction."), labels),
		totalChanges: prometheus.NewGaugeVec(opts("total_changes", "Entries the running compaction has to process."), labels),
		progress:     prometheus.NewGaugeVec(opts("progress_percent", "Progress of the running compaction."), labels),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "setview",
			Subsystem: "compaction",
			Name:      "retries_total",
			Help:      "Catch-up rounds of compactions.",
		}, labels),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "setview",
			Subsystem: "compaction",
			Name:      "completed_total",
			Help:      "Finished compactions by outcome.",
		}, []string{"group", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(t.changesDone, t.totalChanges, t.progress, t.retries, t.completed)
	}
	return t
}

func (t *ProgressTracker) Start(task *model.CompactionTask) {
	t.tasks.Store(task.ID, task)
	t.Update(task)
}

// Update publishes the counters of the task.
func (t *ProgressTracker) Update(task *model.CompactionTask) {
	t.changesDone.WithLabelValues(task.Group).Set(float64(task.ChangesDone()))
	t.totalChanges.WithLabelValues(task.Group).Set(float64(task.TotalChanges()))
	t.progress.WithLabelValues(task.Group).Set(float64(task.Progress()))
}

func (t *ProgressTracker) Retry(task *model.CompactionTask) {
	t.retries.WithLabelValues(task.Group).Inc()
	t.Update(task)
}

// Finish removes the task, outcome is counted.
func (t *ProgressTracker) Finish(task *model.CompactionTask, outcome string) {
	t.tasks.Delete(task.ID)
	t.changesDone.DeleteLabelValues(task.Group)
	t.totalChanges.DeleteLabelValues(task.Group)
	t.progress.DeleteLabelValues(task.Group)
	t.completed.WithLabelValues(task.Group, outcome).Inc()
}

// Tasks returns the running compactions, oldest first.
func (t *ProgressTracker) Tasks() []*model.CompactionTask {
	tasks := make([]*model.CompactionTask, 0, t.tasks.Size())
	t.tasks.Range(func(_ string, task *model.CompactionTask) bool {
		tasks = append(tasks, task)
		return true
	})
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartedOn.Before(tasks[j].StartedOn)
	})
	return tasks
}
