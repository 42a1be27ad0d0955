package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/setview/pkg/model"
	uuid "github.com/satori/go.uuid"
)

// Descriptor tells the rewrite helper what to copy.
type Descriptor struct {
	Group   string          `cbor:"1,keyasint"`
	Kind    model.GroupKind `cbor:"2,keyasint"`
	Source  string          `cbor:"3,keyasint"`
	Buckets []string        `cbor:"4,keyasint"`
	Header  []byte          `cbor:"5,keyasint"`
}

func EncodeDescriptor(d *Descriptor) ([]byte, error) {
	return cbor.Marshal(d)
}

func DecodeDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	err := cbor.Unmarshal(data, &d)
	if err != nil {
		return nil, fmt.Errorf("failed to decode group descriptor: %w", err)
	}
	return &d, nil
}

func (s *Storage) CreateCompactFile(ctx context.Context, g *model.Group) (*os.File, error) {
	path := s.CompactFilePath(g.Name, g.Signature)
	err := s.CloseFile(path)
	if err != nil {
		return nil, err
	}
	return os.Create(path)
}

// PrepareRewrite snapshots the group file so the helper can read it
// while the live file keeps receiving updates.
func (s *Storage) PrepareRewrite(ctx context.Context, g *model.Group) ([]byte, func() error, error) {
	f, err := s.File(g.FilePath)
	if err != nil {
		return nil, nil, err
	}

	snapshot := filepath.Join(s.tmpDir, g.Name+"."+uuid.NewV4().String()+".snapshot")
	err = f.Engine().Snapshot(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot %s: %w", g.Name, err)
	}
	release := func() error {
		err := os.Remove(snapshot)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	header, err := EncodeHeader(g.Header)
	if err != nil {
		release()
		return nil, nil, err
	}
	d := &Descriptor{
		Group:   g.Name,
		Kind:    g.Kind,
		Source:  snapshot,
		Buckets: []string{g.Header.IDBtree.Bucket},
		Header:  header,
	}
	if g.Kind == model.MapReduceGroup {
		for _, v := range g.Header.Views {
			d.Buckets = append(d.Buckets, v.Bucket)
		}
	}

	blob, err := EncodeDescriptor(d)
	if err != nil {
		release()
		return nil, nil, err
	}
	return blob, release, nil
}

func (s *Storage) DecodeHeader(blob []byte) (*model.Header, error) {
	return DecodeHeader(blob)
}

// ApplyLogFile replays a log file on the btree of the stream. Records
// are applied in file order.
func (s *Storage) ApplyLogFile(ctx context.Context, g *model.Group, stream int, path string) (*model.Group, error) {
	var bucket string
	switch {
	case stream == model.IDStream:
		bucket = g.Header.IDBtree.Bucket
	case stream > 0 && stream-1 < len(g.Header.Views) && g.Kind == model.MapReduceGroup:
		bucket = g.Header.Views[stream-1].Bucket
	default:
		return nil, fmt.Errorf("group %s has no stream %d", g.Name, stream)
	}

	records, err := LoadLogFile(path)
	if err != nil {
		return nil, err
	}

	f, err := s.File(g.FilePath)
	if err != nil {
		return nil, err
	}
	err = f.apply(bucket, records)
	if err != nil {
		return nil, fmt.Errorf("failed to apply %q to %s: %w", path, g.Name, err)
	}

	ng := g.Clone()
	err = f.recount(&ng.Header, g.Kind == model.SpatialGroup)
	if err != nil {
		return nil, err
	}
	err = f.WriteHeader(ng.Header)
	if err != nil {
		return nil, err
	}
	return ng, nil
}
