package setview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/goydb/setview/internal/adapter/helper"
	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/internal/controller"
	"github.com/goydb/setview/internal/handler"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	compactorName = "setview-compactor"
	mergerName    = "setview-merger"
)

type Setview struct {
	Storage *storage.Storage
	Groups  *controller.Groups
	Tracker *controller.ProgressTracker
	Handler http.Handler
}

// BuildSetview opens the storage, creates the configured groups and
// builds the http handler.
func (cfg *Config) BuildSetview(ctx context.Context) (*Setview, error) {
	s, err := storage.Open(cfg.DataDir, cfg.TmpDir)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	tracker := controller.NewProgressTracker(reg)

	gs := controller.NewGroups(s, controller.CompactionConfig{
		Rewriter: &helper.Rewriter{
			Spawner: spawner(cfg.CompactorPath, compactorName, helper.RunCompactor),
			Path:    pathOr(cfg.CompactorPath, compactorName),
		},
		Merger: &helper.Merger{
			Spawner: spawner(cfg.MergerPath, mergerName, helper.RunMerger),
			Path:    pathOr(cfg.MergerPath, mergerName),
		},
		Tracker:      tracker,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})

	sv := &Setview{
		Storage: s,
		Groups:  gs,
		Tracker: tracker,
	}

	names := make([]string, 0, len(cfg.Groups))
	for name := range cfg.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dd, err := model.DecodeDesignDoc(cfg.Groups[name])
		if err != nil {
			sv.Close()
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		_, _, err = gs.Create(ctx, name, dd)
		if err != nil {
			sv.Close()
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		log.Printf("Created group %q", name)
	}

	r := mux.NewRouter()
	err = handler.Router{
		Groups:        gs,
		Tracker:       tracker,
		Gatherer:      reg,
		ScriptTimeout: cfg.ScriptTimeout,
	}.Build(r)
	if err != nil {
		sv.Close()
		return nil, err
	}
	sv.Handler = r

	return sv, nil
}

// Run runs the requested compactions until the context is done.
func (sv *Setview) Run(ctx context.Context) {
	controller.Task{Groups: sv.Groups}.Run(ctx)
}

func (sv *Setview) Close() error {
	return errors.Join(sv.Groups.Close(), sv.Storage.Close())
}

func spawner(path, name string, program helper.Program) port.Spawner {
	if path != "" {
		return helper.ExecSpawner{}
	}
	return helper.FuncSpawner{name: program}
}

func pathOr(path, name string) string {
	if path != "" {
		return path
	}
	return name
}
