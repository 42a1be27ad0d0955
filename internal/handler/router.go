package handler

import (
	"time"

	"github.com/goydb/setview/internal/controller"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Groups        *controller.Groups
	Tracker       *controller.ProgressTracker
	Gatherer      prometheus.Gatherer
	ScriptTimeout time.Duration
}

func (router Router) Build(r *mux.Router) error {
	b := Base{
		Groups:        router.Groups,
		Tracker:       router.Tracker,
		ScriptTimeout: router.ScriptTimeout,
	}

	r.Methods("GET").Path("/_active_tasks").Handler(&ActiveTasks{Base: b})
	if router.Gatherer != nil {
		r.Methods("GET").Path("/metrics").Handler(promhttp.HandlerFor(router.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Methods("GET").Path("/{group}/_view/{view}").Handler(&GroupView{Base: b})
	r.Methods("GET").Path("/{group}/_spatial/{view}").Handler(&GroupView{Base: b})
	r.Methods("POST").Path("/{group}/_update").Handler(&GroupUpdate{Base: b})
	r.Methods("POST").Path("/{group}/_compact").Handler(&GroupCompact{Base: b})

	r.Methods("GET").Path("/{group}").Handler(&GroupInfo{Base: b})
	r.Methods("PUT").Path("/{group}").Handler(&GroupCreate{Base: b})

	r.Methods("GET").Path("/").Handler(&Index{Base: b})

	return nil
}
