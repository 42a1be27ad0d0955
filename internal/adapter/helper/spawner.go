package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/goydb/setview/pkg/port"
)

var _ port.Spawner = ExecSpawner{}

// ExecSpawner starts helpers as child processes. Standard output and
// error of the child are merged into one stream.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(ctx context.Context, path string, args ...string) (port.Process, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	err = cmd.Start()
	if err != nil {
		pw.Close()
		return nil, fmt.Errorf("failed to start %q: %w", path, err)
	}

	p := &execProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: pr,
		done:   make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.status = exitErr.ExitCode()
		} else {
			p.err = err
		}
		pw.Close()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	done   chan struct{}
	status int
	err    error
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }

func (p *execProcess) Wait() (int, error) {
	<-p.done
	return p.status, p.err
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Kill()
}

// Program is the body of a helper: it reads the request from stdin,
// reports to stdout and returns the exit status.
type Program func(ctx context.Context, stdin io.Reader, stdout io.Writer) int

var _ port.Spawner = FuncSpawner{}

// FuncSpawner runs helper programs in process, keyed by path. It is
// used when no helper binaries are configured.
type FuncSpawner map[string]Program

func (s FuncSpawner) Spawn(ctx context.Context, path string, args ...string) (port.Process, error) {
	fn, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("failed to start %q: %w", path, exec.ErrNotFound)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)
	p := &funcProcess{
		stdin:  inW,
		stdout: outR,
		inR:    inR,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		defer cancel()
		p.status = fn(ctx, inR, outW)
		inR.Close()
		outW.Close()
	}()
	return p, nil
}

type funcProcess struct {
	stdin  *io.PipeWriter
	stdout *io.PipeReader
	inR    *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
	status int
}

func (p *funcProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *funcProcess) Stdout() io.Reader     { return p.stdout }

func (p *funcProcess) Wait() (int, error) {
	<-p.done
	return p.status, nil
}

func (p *funcProcess) Kill() error {
	p.cancel()
	p.inR.CloseWithError(errors.New("killed"))
	return nil
}
