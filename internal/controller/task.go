package controller

import (
	"context"
	"log"
	"time"
)

const taskInterval = time.Millisecond * 500

// Task runs the requested compactions.
type Task struct {
	Groups *Groups
}

func (c Task) Run(ctx context.Context) {
	t := time.NewTicker(taskInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		c.ProcessAllTasks(ctx)
	}
}

func (c Task) ProcessAllTasks(ctx context.Context) {
	for _, name := range c.Groups.takeRequests() {
		// check if context should be canceled
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.ProcessTask(ctx, name)
		if err != nil {
			log.Printf("Failed to compact %q due to: %v", name, err)
		}
	}
}

func (c Task) ProcessTask(ctx context.Context, name string) error {
	o, err := c.Groups.Get(name)
	if err != nil {
		return err
	}
	outcome, err := o.Compact(ctx)
	if err != nil {
		return err
	}
	log.Printf("Compaction of %q finished: %s", name, outcome)
	return nil
}
