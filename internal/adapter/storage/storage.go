package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/goydb/setview/pkg/port"
)

var _ port.IndexStore = (*Storage)(nil)

// Storage manages the group files of a data directory, the spatial
// indexes beside them and the snapshots taken for rewrites.
type Storage struct {
	path   string
	tmpDir string

	mu      sync.Mutex
	files   map[string]*GroupFile
	spatial map[string]bleve.Index
}

// Open prepares the data directory at path. Snapshots are written to
// tmpDir, or to a directory inside path if tmpDir is empty.
func Open(path, tmpDir string) (*Storage, error) {
	if tmpDir == "" {
		tmpDir = filepath.Join(path, "tmp")
	}
	for _, dir := range []string{path, tmpDir} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create %q: %w", dir, err)
		}
	}

	return &Storage{
		path:    path,
		tmpDir:  tmpDir,
		files:   make(map[string]*GroupFile),
		spatial: make(map[string]bleve.Index),
	}, nil
}

func (s *Storage) String() string {
	return "<Storage path=" + s.path + ">"
}

func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) TmpDir() string {
	return s.tmpDir
}

// GroupFilePath returns the path of the live file of a group.
func (s *Storage) GroupFilePath(name, signature string) string {
	return filepath.Join(s.path, name+"."+signature+".view")
}

// CompactFilePath returns the path the rewrite of a group is written to.
func (s *Storage) CompactFilePath(name, signature string) string {
	return filepath.Join(s.path, name+"."+signature+".compact.view")
}

// File returns the open group file at path, opening it if required.
func (s *Storage) File(path string) (*GroupFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[path]; ok {
		return f, nil
	}

	f, err := OpenGroupFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open group file %q: %w", path, err)
	}
	s.files[path] = f
	return f, nil
}

// CloseFile closes the group file at path if it is open.
func (s *Storage) CloseFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[path]
	if !ok {
		return nil
	}
	delete(s.files, path)
	return f.Close()
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, f := range s.files {
		err := f.Close()
		if err != nil {
			return fmt.Errorf("failed to close group file %q: %w", path, err)
		}
		delete(s.files, path)
	}
	for path, idx := range s.spatial {
		err := idx.Close()
		if err != nil {
			log.Printf("failed to close spatial index %q: %v", path, err)
		}
		delete(s.spatial, path)
	}

	return nil
}
