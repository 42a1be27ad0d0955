package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/goydb/setview/pkg/model"
)

// BBox is a bounding box for spatial queries.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("invalid bbox %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
}

func spatialMapping() mapping.IndexMapping {
	stored := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Index = false
		fm.Store = true
		fm.IncludeInAll = false
		return fm
	}

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	dm.AddFieldMappingsAt("geo", bleve.NewGeoPointFieldMapping())
	dm.AddFieldMappingsAt("key", stored())
	dm.AddFieldMappingsAt("doc_id", stored())
	dm.AddFieldMappingsAt("value", stored())
	partition := bleve.NewNumericFieldMapping()
	partition.Store = true
	dm.AddFieldMappingsAt("partition", partition)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = dm
	return im
}

func (s *Storage) spatialPath(g *model.Group, pos int) string {
	return filepath.Join(s.path, g.Name+"."+g.Signature+".spatial", strconv.Itoa(g.Views[pos].ID))
}

// spatialIndex returns the index of the view at position pos, it is
// created if it doesn't exist.
func (s *Storage) spatialIndex(g *model.Group, pos int) (bleve.Index, error) {
	if pos < 0 || pos >= len(g.Views) {
		return nil, fmt.Errorf("group %s has no view %d", g.Name, pos)
	}
	path := s.spatialPath(g, pos)

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.spatial[path]; ok {
		return idx, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, spatialMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open spatial index %q: %w", path, err)
	}
	s.spatial[path] = idx
	return idx, nil
}

// spatialDocument converts a row with a [lon, lat] key into the
// document stored in the spatial index.
func spatialDocument(r model.Row) (map[string]interface{}, error) {
	var point []float64
	err := json.Unmarshal(r.Key, &point)
	if err != nil || len(point) != 2 {
		return nil, fmt.Errorf("spatial key of %q must be [lon, lat], got %s", r.DocID, r.Key)
	}
	return map[string]interface{}{
		"geo": map[string]interface{}{
			"lon": point[0],
			"lat": point[1],
		},
		"key":       string(r.Key),
		"doc_id":    r.DocID,
		"value":     string(r.WireValue()),
		"partition": float64(r.PartitionID),
	}, nil
}

// SpatialRows returns the rows of the spatial view at position pos
// within the bounding box, ordered by btree key.
func (s *Storage) SpatialRows(ctx context.Context, g *model.Group, pos int, bbox BBox) ([]model.Row, error) {
	idx, err := s.spatialIndex(g, pos)
	if err != nil {
		return nil, err
	}
	count, err := idx.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	q := bleve.NewGeoBoundingBoxQuery(bbox.MinLon, bbox.MaxLat, bbox.MaxLon, bbox.MinLat)
	q.SetField("geo")
	req := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	req.Fields = []string{"key", "doc_id", "value", "partition"}
	req.SortBy([]string{"_id"})

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("spatial query failed: %w", err)
	}

	rows := make([]model.Row, 0, len(res.Hits))
	for _, hit := range res.Hits {
		key, _ := hit.Fields["key"].(string)
		id, _ := hit.Fields["doc_id"].(string)
		value, _ := hit.Fields["value"].(string)
		partition, _ := hit.Fields["partition"].(float64)
		rows = append(rows, model.Row{
			Key:         json.RawMessage(key),
			DocID:       id,
			Value:       json.RawMessage(value),
			PartitionID: uint16(partition),
		})
	}
	return rows, nil
}

// RefreshSpatialViews updates the row counts of the spatial views in
// the header of the returned group.
func (s *Storage) RefreshSpatialViews(ctx context.Context, g *model.Group) (*model.Group, error) {
	ng := g.Clone()
	if g.Kind != model.SpatialGroup {
		return ng, nil
	}
	for pos := range g.Views {
		idx, err := s.spatialIndex(g, pos)
		if err != nil {
			return nil, err
		}
		n, err := idx.DocCount()
		if err != nil {
			return nil, err
		}
		ng.Header.Views[pos].Count = n
	}
	return ng, nil
}
