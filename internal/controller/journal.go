package controller

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/goydb/setview/internal/adapter/storage"
	"github.com/goydb/setview/pkg/model"
	uuid "github.com/satori/go.uuid"
)

type journalKey struct {
	stream    int
	partition uint16
}

// journal records the changes made to a group while it is compacted,
// one log file per stream and partition.
type journal struct {
	dir     string
	group   string
	writers map[journalKey]*storage.LogWriter
	pending uint64
	// err is the first write failure, the journal is incomplete after it
	err error
}

func newJournal(dir, group string) *journal {
	return &journal{
		dir:     dir,
		group:   group,
		writers: make(map[journalKey]*storage.LogWriter),
	}
}

func (j *journal) write(entries []storage.JournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.err = j.append(entries)
	return j.err
}

func (j *journal) append(entries []storage.JournalEntry) error {
	for _, e := range entries {
		key := journalKey{stream: e.Stream, partition: e.Record.Partition}
		w, ok := j.writers[key]
		if !ok {
			name := fmt.Sprintf("%s.%d.%d.%s.log", j.group, key.stream, key.partition, uuid.NewV4())
			var err error
			w, err = storage.CreateLogFile(filepath.Join(j.dir, name))
			if err != nil {
				return fmt.Errorf("journal of %s: %w", j.group, err)
			}
			j.writers[key] = w
		}
		err := w.Write(e.Record)
		if err != nil {
			return fmt.Errorf("journal of %s: %w", j.group, err)
		}
		j.pending++
	}
	return nil
}

// rotate closes the current files and returns them per stream ordered
// by partition. Changes written afterwards go to new files.
func (j *journal) rotate() ([]model.LogFileSet, error) {
	if j.err != nil {
		return nil, j.err
	}
	keys := make([]journalKey, 0, len(j.writers))
	for key := range j.writers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].stream != keys[b].stream {
			return keys[a].stream < keys[b].stream
		}
		return keys[a].partition < keys[b].partition
	})

	var sets []model.LogFileSet
	for _, key := range keys {
		w := j.writers[key]
		err := w.Close()
		if err != nil {
			return nil, err
		}
		if n := len(sets); n == 0 || sets[n-1].Stream != key.stream {
			sets = append(sets, model.LogFileSet{Stream: key.stream})
		}
		sets[len(sets)-1].Files = append(sets[len(sets)-1].Files, w.Path())
	}

	j.writers = make(map[journalKey]*storage.LogWriter)
	j.pending = 0
	return sets, nil
}

// discard closes and removes the current files.
func (j *journal) discard() {
	for key, w := range j.writers {
		w.Close()
		err := os.Remove(w.Path())
		if err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove log file %q: %v", w.Path(), err)
		}
		delete(j.writers, key)
	}
	j.pending = 0
}
