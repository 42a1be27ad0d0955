package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

type ActiveTasks struct {
	Base
}

func (s *ActiveTasks) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	tasks := make([]*Task, 0, 10)
	for _, task := range s.Tracker.Tasks() {
		tasks = append(tasks, &Task{
			Node:         "nonode@nohost",
			Pid:          fmt.Sprintf("<%d.%s>", os.Getpid(), task.ID),
			ChangesDone:  task.ChangesDone(),
			TotalChanges: task.TotalChanges(),
			RetryCount:   task.RetryCount(),
			Group:        task.Group,
			Signature:    task.Signature,
			Phase:        task.Phase().String(),
			Progress:     task.Progress(),
			StartedOn:    task.StartedOn.Unix(),
			Type:         "view_compaction",
			UpdatedOn:    task.UpdatedOn().Unix(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

type Task struct {
	Node         string `json:"node"`
	Pid          string `json:"pid"`
	ChangesDone  uint64 `json:"changes_done"`
	Group        string `json:"set"`
	Signature    string `json:"signature"`
	Phase        string `json:"phase"`
	Progress     int    `json:"progress"`
	RetryCount   uint64 `json:"retry_count"`
	StartedOn    int64  `json:"started_on"` // unix time
	TotalChanges uint64 `json:"total_changes"`
	Type         string `json:"type"`
	UpdatedOn    int64  `json:"updated_on"` // unix time
}
