package helper

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// maxLastLines is the number of output lines kept for error messages.
const maxLastLines = 16

// session is one run of a helper. close drains and closes the channel
// and collects the exit status, it is safe to call more than once.
type session struct {
	name   string
	proc   port.Process
	out    *bufio.Reader
	last   []string
	status int
	err    error
	closed bool
}

func startSession(ctx context.Context, spawner port.Spawner, path string) (*session, error) {
	proc, err := spawner.Spawn(ctx, path)
	if err != nil {
		return nil, &model.ProcessError{Helper: path, Err: err}
	}
	return &session{
		name: path,
		proc: proc,
		out:  bufio.NewReader(proc.Stdout()),
	}, nil
}

// send writes the request and closes stdin. The output is read while
// the request is written, the result is delivered on the channel.
func (s *session) send(lines []string, blob []byte) <-chan error {
	errc := make(chan error, 1)
	go func() {
		w := bufio.NewWriter(s.proc.Stdin())
		for _, line := range lines {
			w.WriteString(line)
			w.WriteByte('\n')
		}
		w.Write(blob)
		err := w.Flush()
		cerr := s.proc.Stdin().Close()
		if err == nil {
			err = cerr
		}
		errc <- err
	}()
	return errc
}

// readLine returns the next line without the line break, io.EOF if the
// helper closed its output.
func (s *session) readLine() (string, error) {
	line, err := s.out.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *session) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(s.out, buf)
	return buf, err
}

func (s *session) remember(line string) {
	s.last = append(s.last, line)
	if len(s.last) > maxLastLines {
		s.last = s.last[len(s.last)-maxLastLines:]
	}
}

func (s *session) message() string {
	return strings.Join(s.last, "\n")
}

func (s *session) close() (int, error) {
	if s.closed {
		return s.status, s.err
	}
	s.closed = true
	s.proc.Stdin().Close()
	_, err := io.Copy(io.Discard, s.out)
	s.status, s.err = s.proc.Wait()
	if s.err == nil && err != nil {
		s.err = fmt.Errorf("failed to read output of %s: %w", s.name, err)
	}
	return s.status, s.err
}

// abort kills the helper and releases the channel.
func (s *session) abort() {
	if s.closed {
		return
	}
	s.proc.Kill()
	s.close()
}
