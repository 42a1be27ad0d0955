package helper

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// MergeKind is the kind of the files to merge.
type MergeKind string

const (
	MergeIDs     MergeKind = "i"
	MergeViews   MergeKind = "v"
	MergeSpatial MergeKind = "s"
)

// Merger drives the file merge helper.
type Merger struct {
	Spawner port.Spawner
	Path    string
}

// Merge merges the sorted log files into output. tmpDir is only used by
// spatial merges. If the helper was stopped model.ErrShutdown is returned.
func (m *Merger) Merge(ctx context.Context, kind MergeKind, tmpDir string, inputs []string, output string) error {
	s, err := startSession(ctx, m.Spawner, m.Path)
	if err != nil {
		return err
	}
	defer s.abort()

	lines := []string{string(kind)}
	if kind == MergeSpatial {
		lines = append(lines, tmpDir)
	}
	lines = append(lines, strconv.Itoa(len(inputs)))
	lines = append(lines, inputs...)
	lines = append(lines, output)
	sent := s.send(lines, nil)

	for {
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &model.ProcessError{Helper: m.Path, Message: s.message(), Err: err}
		}
		log.Printf("merger %s: %s", m.Path, line)
		s.remember(line)
	}

	status, err := s.close()
	sendErr := <-sent
	switch {
	case err != nil:
		return &model.ProcessError{Helper: m.Path, Message: s.message(), Err: err}
	case status == 0 && sendErr != nil:
		return &model.ProcessError{Helper: m.Path, Message: "failed to send request", Err: sendErr}
	case status == 0:
		return nil
	case status == 1:
		return model.ErrShutdown
	default:
		return &model.ProcessError{Helper: m.Path, Status: status, Message: s.message()}
	}
}
