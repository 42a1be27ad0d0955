package helper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goydb/setview/internal/adapter/bbolt_engine"
	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// copyBatchSize is the number of entries copied per write transaction
// and progress report.
const copyBatchSize = 1000

// Limits for sizes read from stdin before anything is allocated.
const (
	maxDescriptorSize = 64 << 20
	maxMergeFiles     = 1 << 16
)

var _ Program = RunCompactor

// RunCompactor is the rewrite helper. It reads the target path, the
// number of changes, the length of the descriptor and the descriptor,
// copies every btree of the snapshot into the target and reports the
// new header.
func RunCompactor(ctx context.Context, stdin io.Reader, stdout io.Writer) int {
	in := bufio.NewReader(stdin)
	target, err := readLine(in)
	if err != nil {
		return fail(stdout, "failed to read target: %v", err)
	}
	if _, err := readUint(in); err != nil {
		return fail(stdout, "failed to read total changes: %v", err)
	}
	n, err := readLimit(in, maxDescriptorSize)
	if err != nil {
		return fail(stdout, "failed to read descriptor length: %v", err)
	}
	blob := make([]byte, n)
	_, err = io.ReadFull(in, blob)
	if err != nil {
		return fail(stdout, "failed to read descriptor: %v", err)
	}
	d, err := storage.DecodeDescriptor(blob)
	if err != nil {
		return fail(stdout, "%v", err)
	}
	header, err := storage.DecodeHeader(d.Header)
	if err != nil {
		return fail(stdout, "%v", err)
	}

	src, err := bbolt_engine.OpenReadOnly(d.Source)
	if err != nil {
		return fail(stdout, "failed to open snapshot %q: %v", d.Source, err)
	}
	defer src.Close()

	dst, err := storage.OpenGroupFile(target)
	if err != nil {
		return fail(stdout, "failed to open target %q: %v", target, err)
	}
	defer dst.Close()

	var inserts uint64
	for _, bucket := range d.Buckets {
		copied, err := copyBucket(ctx, src, dst.Engine(), bucket, func(n uint64) {
			fmt.Fprintf(stdout, "%s%d\n", statsPrefix, n)
		})
		inserts += copied
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(stdout, "%s: stopped\n", d.Group)
			return 1
		}
		if err != nil {
			return fail(stdout, "failed to copy %s: %v", bucket, err)
		}
	}

	// the spatial views are not part of the file, their state is kept
	counts := make(map[string]uint64, len(d.Buckets))
	for _, bucket := range d.Buckets {
		counts[bucket], err = dst.Count(bucket)
		if err != nil {
			return fail(stdout, "failed to count %s: %v", bucket, err)
		}
	}
	header.IDBtree.Count = counts[header.IDBtree.Bucket]
	if d.Kind == model.MapReduceGroup {
		for i, v := range header.Views {
			header.Views[i].Count = counts[v.Bucket]
		}
	}

	err = dst.Init(*header)
	if err != nil {
		return fail(stdout, "failed to write header: %v", err)
	}
	data, err := storage.EncodeHeader(*header)
	if err != nil {
		return fail(stdout, "%v", err)
	}
	fmt.Fprintf(stdout, "%s%d\n", headerPrefix, len(data))
	stdout.Write(data)
	fmt.Fprintf(stdout, "%s%d\n", resultsPrefix, inserts)
	return 0
}

// copyBucket copies the bucket in key order in batches.
func copyBucket(ctx context.Context, src, dst port.DatabaseEngine, bucket string, progress func(n uint64)) (uint64, error) {
	name := []byte(bucket)
	var copied uint64
	err := src.ReadTransaction(func(tx port.EngineReadTransaction) error {
		c, err := tx.Cursor(name)
		if err != nil {
			return err
		}

		k, v := c.First()
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n uint64
			err := dst.WriteTransaction(func(wtx port.EngineWriteTransaction) error {
				wtx.EnsureBucket(name)
				for ; k != nil && n < copyBatchSize; k, v = c.Next() {
					wtx.Put(name, k, v)
					n++
				}
				return nil
			})
			if err != nil {
				return err
			}
			copied += n
			if n > 0 {
				progress(n)
			}
			if k == nil {
				return nil
			}
		}
	})
	return copied, err
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readUint(r *bufio.Reader) (uint64, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(line, 10, 64)
}

// readLimit reads a count that must not exceed max.
func readLimit(r *bufio.Reader, max uint64) (uint64, error) {
	n, err := readUint(r)
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, fmt.Errorf("%d exceeds the limit of %d", n, max)
	}
	return n, nil
}

// fail reports an error and returns the status of failed helpers.
func fail(w io.Writer, format string, args ...interface{}) int {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	return 2
}
