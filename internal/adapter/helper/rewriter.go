package helper

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

const (
	statsPrefix   = "Stats = inserted : "
	headerPrefix  = "Header Len : "
	resultsPrefix = "Results = inserts : "
)

// RewriteResult is what the rewrite helper reported.
type RewriteResult struct {
	Header  []byte
	Inserts uint64
}

// Rewriter drives the group rewrite helper.
type Rewriter struct {
	Spawner port.Spawner
	Path    string
}

// Rewrite copies the group described by blob into target. progress is
// called for every batch of inserted entries.
func (r *Rewriter) Rewrite(ctx context.Context, target string, totalChanges uint64, blob []byte, progress func(inserted uint64)) (*RewriteResult, error) {
	s, err := startSession(ctx, r.Spawner, r.Path)
	if err != nil {
		return nil, err
	}
	defer s.abort()

	sent := s.send([]string{
		target,
		strconv.FormatUint(totalChanges, 10),
		strconv.Itoa(len(blob)),
	}, blob)

	var res RewriteResult
	var gotHeader bool
	for {
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.ProcessError{Helper: r.Path, Message: s.message(), Err: err}
		}

		switch {
		case strings.HasPrefix(line, statsPrefix):
			n, err := strconv.ParseUint(strings.TrimPrefix(line, statsPrefix), 10, 64)
			if err != nil {
				return nil, &model.ProcessError{Helper: r.Path, Message: "malformed stats line " + strconv.Quote(line)}
			}
			if progress != nil {
				progress(n)
			}
		case strings.HasPrefix(line, headerPrefix):
			n, err := strconv.Atoi(strings.TrimPrefix(line, headerPrefix))
			if err != nil || n < 0 {
				return nil, &model.ProcessError{Helper: r.Path, Message: "malformed header length " + strconv.Quote(line)}
			}
			res.Header, err = s.readFull(n)
			if err != nil {
				return nil, &model.ProcessError{Helper: r.Path, Message: "truncated header", Err: err}
			}
			gotHeader = true
		case strings.HasPrefix(line, resultsPrefix):
			n, err := strconv.ParseUint(strings.TrimPrefix(line, resultsPrefix), 10, 64)
			if err != nil {
				return nil, &model.ProcessError{Helper: r.Path, Message: "malformed results line " + strconv.Quote(line)}
			}
			res.Inserts = n
		default:
			log.Printf("compactor %s: %s", r.Path, line)
			s.remember(line)
		}
	}

	status, err := s.close()
	sendErr := <-sent
	if err != nil {
		return nil, &model.ProcessError{Helper: r.Path, Message: s.message(), Err: err}
	}
	if status != 0 {
		return nil, model.IndexCompactorExit(r.Path, status, s.message())
	}
	if sendErr != nil {
		return nil, &model.ProcessError{Helper: r.Path, Message: "failed to send request", Err: sendErr}
	}
	if !gotHeader {
		return nil, &model.ProcessError{Helper: r.Path, Message: "no header received"}
	}
	return &res, nil
}
