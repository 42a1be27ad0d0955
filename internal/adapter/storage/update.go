package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/goydb/setview/pkg/model"
	"github.com/goydb/setview/pkg/port"
)

// DocUpdate is the new state of one document. Rows holds the emissions
// of the document for each view position, deleted documents have none.
type DocUpdate struct {
	DocID     string
	Partition uint16
	Seq       uint64
	Deleted   bool
	Rows      [][]model.Row
}

// JournalEntry is a record written to the given stream by an update.
type JournalEntry struct {
	Stream int
	Record model.LogRecord
}

// CreateGroupFile creates the file of g with empty btrees.
func (s *Storage) CreateGroupFile(ctx context.Context, g *model.Group) error {
	f, err := s.File(g.FilePath)
	if err != nil {
		return err
	}
	_, err = f.Header()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoHeader) {
		return err
	}
	return f.Init(g.Header)
}

// Update stores the rows of the documents and returns the group with
// the new header and the records that describe the change per stream.
// Spatial views are written to their spatial index directly and are not
// journaled.
func (s *Storage) Update(ctx context.Context, g *model.Group, updates []DocUpdate) (*model.Group, []JournalEntry, error) {
	f, err := s.File(g.FilePath)
	if err != nil {
		return nil, nil, err
	}
	spatial := g.Kind == model.SpatialGroup
	ng := g.Clone()

	idBucket := []byte(g.Header.IDBtree.Bucket)
	var idRecords []model.LogRecord
	viewRecords := make([][]model.LogRecord, len(g.Views))
	var batches []*bleve.Batch
	if spatial {
		batches = make([]*bleve.Batch, len(g.Views))
		for pos := range g.Views {
			idx, err := s.spatialIndex(g, pos)
			if err != nil {
				return nil, nil, err
			}
			batches[pos] = idx.NewBatch()
		}
	}

	// entries changed by this call, later updates of the same document
	// have to see them
	pending := make(map[string]*idEntry)

	err = f.db.ReadTransaction(func(tx port.EngineReadTransaction) error {
		for _, u := range updates {
			if err := ctx.Err(); err != nil {
				return err
			}

			old, ok := pending[u.DocID]
			if !ok {
				data, err := tx.Get(idBucket, []byte(u.DocID))
				switch {
				case err == nil:
					old, err = decodeIDEntry(data)
					if err != nil {
						return err
					}
				case errors.Is(err, port.ErrNotFound), errors.Is(err, port.ErrUnknownBucket):
				default:
					return err
				}
			}

			entry := &idEntry{
				Partition: u.Partition,
				Seq:       u.Seq,
				Keys:      make(map[int][][]byte),
			}
			for pos := range g.Views {
				var rows []model.Row
				if !u.Deleted && pos < len(u.Rows) {
					rows = make([]model.Row, len(u.Rows[pos]))
					for i, r := range u.Rows[pos] {
						r.DocID = u.DocID
						r.PartitionID = u.Partition
						rows[i] = r
					}
				}

				next := make(map[string]model.Row, len(rows))
				for _, r := range rows {
					next[string(r.BtreeKey())] = r
				}

				var oldKeys [][]byte
				if old != nil {
					oldKeys = old.Keys[pos]
				}
				for _, k := range oldKeys {
					if _, ok := next[string(k)]; ok {
						continue
					}
					if spatial {
						batches[pos].Delete(string(k))
						continue
					}
					viewRecords[pos] = append(viewRecords[pos], model.LogRecord{
						Seq:       u.Seq,
						Op:        model.LogRemove,
						Partition: u.Partition,
						Key:       append([]byte(nil), k...),
					})
				}

				for _, r := range rows {
					k := r.BtreeKey()
					if _, ok := next[string(k)]; !ok {
						continue // duplicate emission, already written
					}
					delete(next, string(k))
					entry.Keys[pos] = append(entry.Keys[pos], k)

					if spatial {
						doc, err := spatialDocument(r)
						if err != nil {
							return err
						}
						err = batches[pos].Index(string(k), doc)
						if err != nil {
							return err
						}
						continue
					}
					value, err := encodeRowValue(r)
					if err != nil {
						return err
					}
					viewRecords[pos] = append(viewRecords[pos], model.LogRecord{
						Seq:       u.Seq,
						Op:        model.LogInsert,
						Partition: u.Partition,
						Key:       k,
						Value:     value,
					})
				}
			}

			if len(entry.Keys) == 0 {
				pending[u.DocID] = nil
				if old != nil {
					idRecords = append(idRecords, model.LogRecord{
						Seq:       u.Seq,
						Op:        model.LogRemove,
						Partition: u.Partition,
						Key:       []byte(u.DocID),
					})
				}
			} else {
				pending[u.DocID] = entry
				data, err := encodeIDEntry(entry)
				if err != nil {
					return err
				}
				idRecords = append(idRecords, model.LogRecord{
					Seq:       u.Seq,
					Op:        model.LogInsert,
					Partition: u.Partition,
					Key:       []byte(u.DocID),
					Value:     data,
				})
			}

			if u.Seq > ng.Header.Seqs[u.Partition] {
				ng.Header.Seqs[u.Partition] = u.Seq
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = f.apply(string(idBucket), idRecords)
	if err != nil {
		return nil, nil, err
	}
	journal := make([]JournalEntry, 0, len(idRecords))
	for _, r := range idRecords {
		journal = append(journal, JournalEntry{Stream: model.IDStream, Record: r})
	}

	for pos, records := range viewRecords {
		if len(records) == 0 {
			continue
		}
		err = f.apply(ng.Header.Views[pos].Bucket, records)
		if err != nil {
			return nil, nil, err
		}
		for _, r := range records {
			journal = append(journal, JournalEntry{Stream: model.ViewStream(pos), Record: r})
		}
	}

	for pos, b := range batches {
		idx, err := s.spatialIndex(g, pos)
		if err != nil {
			return nil, nil, err
		}
		err = idx.Batch(b)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to update spatial view %d: %w", pos, err)
		}
	}

	err = f.recount(&ng.Header, spatial)
	if err != nil {
		return nil, nil, err
	}
	if spatial {
		ng, err = s.RefreshSpatialViews(ctx, ng)
		if err != nil {
			return nil, nil, err
		}
	}
	err = f.WriteHeader(ng.Header)
	if err != nil {
		return nil, nil, err
	}

	return ng, journal, nil
}

// Rows calls fn for every row of the view at position pos in key order.
func (s *Storage) Rows(ctx context.Context, g *model.Group, pos int, fn func(model.Row) error) error {
	if pos < 0 || pos >= len(g.Header.Views) {
		return fmt.Errorf("group %s has no view %d", g.Name, pos)
	}
	f, err := s.File(g.FilePath)
	if err != nil {
		return err
	}
	return f.Rows(g.Header.Views[pos].Bucket, fn)
}
