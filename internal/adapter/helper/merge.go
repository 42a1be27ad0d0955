package helper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
)

var _ Program = RunMerger

// RunMerger is the file merge helper. It reads the kind, for spatial
// merges a temp directory, the number of files, the files and the
// output path. The records of all files are written to the output
// ordered by key and sequence number. A canceled context stops the
// merge with status 1.
func RunMerger(ctx context.Context, stdin io.Reader, stdout io.Writer) int {
	in := bufio.NewReader(stdin)
	kind, err := readLine(in)
	if err != nil {
		return fail(stdout, "failed to read kind: %v", err)
	}
	var tmpDir string
	switch MergeKind(kind) {
	case MergeIDs, MergeViews:
	case MergeSpatial:
		tmpDir, err = readLine(in)
		if err != nil {
			return fail(stdout, "failed to read temp dir: %v", err)
		}
	default:
		return fail(stdout, "unknown file kind %q", kind)
	}
	n, err := readLimit(in, maxMergeFiles)
	if err != nil {
		return fail(stdout, "failed to read file count: %v", err)
	}
	inputs := make([]string, n)
	for i := range inputs {
		inputs[i], err = readLine(in)
		if err != nil {
			return fail(stdout, "failed to read file %d: %v", i+1, err)
		}
	}
	output, err := readLine(in)
	if err != nil {
		return fail(stdout, "failed to read output: %v", err)
	}

	var records []model.LogRecord
	for _, path := range inputs {
		if ctx.Err() != nil {
			fmt.Fprintln(stdout, "merge stopped")
			return 1
		}
		err := storage.ReadLogFile(path, func(r model.LogRecord) error {
			records = append(records, r)
			return nil
		})
		if err != nil {
			return fail(stdout, "%v", err)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		c := bytes.Compare(records[i].Key, records[j].Key)
		if c != 0 {
			return c < 0
		}
		return records[i].Seq < records[j].Seq
	})

	if ctx.Err() != nil {
		fmt.Fprintln(stdout, "merge stopped")
		return 1
	}

	dest := output
	if MergeKind(kind) == MergeSpatial {
		dest = filepath.Join(tmpDir, filepath.Base(output)+".tmp")
	}
	err = storage.WriteLogFile(dest, records)
	if err != nil {
		return fail(stdout, "failed to write %q: %v", dest, err)
	}
	if dest != output {
		err = os.Rename(dest, output)
		if err != nil {
			return fail(stdout, "failed to move %q: %v", dest, err)
		}
	}

	fmt.Fprintf(stdout, "merged %d records from %d files\n", len(records), len(inputs))
	return 0
}
