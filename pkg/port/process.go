package port

import (
	"context"
	"io"
)

// Process is a running helper process.
type Process interface {
	Stdin() io.WriteCloser
	// Stdout merges the standard output and error of the process.
	Stdout() io.Reader
	// Wait for the process to exit and return its exit status.
	Wait() (int, error)
	Kill() error
}

type Spawner interface {
	Spawn(ctx context.Context, path string, args ...string) (Process, error)
}
