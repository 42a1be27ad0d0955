package handler

import (
	"time"

	"github.com/goydb/setview/internal/controller"
)

type Base struct {
	Groups  *controller.Groups
	Tracker *controller.ProgressTracker
	// ScriptTimeout limits the map and reduce functions run by one request.
	ScriptTimeout time.Duration
}
