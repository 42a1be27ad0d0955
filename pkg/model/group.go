package model

import (
	"fmt"
	"os"
	"sort"
)

type GroupKind string

const (
	MapReduceGroup GroupKind = "mapreduce"
	SpatialGroup   GroupKind = "spatial"
)

type GroupScope string

const (
	MainScope    GroupScope = "main"
	ReplicaScope GroupScope = "replica"
)

// IDBtreeName is the bucket holding the id index of a group file.
const IDBtreeName = "id"

// ViewBtreeName returns the bucket name of the view with the given id.
func ViewBtreeName(id int) string {
	return fmt.Sprintf("view:%d", id)
}

// BtreeState is the root state of one btree of a group file.
type BtreeState struct {
	Bucket string `cbor:"bucket" json:"bucket"`
	Count  uint64 `cbor:"count" json:"count"`
}

type PartitionVersion struct {
	UUID uint64 `cbor:"uuid" json:"uuid"`
	Seq  uint64 `cbor:"seq" json:"seq"`
}

// Header is the persisted state of a group: btree roots, per partition
// sequence numbers and per partition versions.
type Header struct {
	Signature         string                        `cbor:"signature" json:"signature"`
	IDBtree           BtreeState                    `cbor:"id_btree" json:"id_btree"`
	Views             []BtreeState                  `cbor:"views" json:"views"`
	Seqs              map[uint16]uint64             `cbor:"seqs" json:"seqs"`
	PartitionVersions map[uint16][]PartitionVersion `cbor:"partition_versions" json:"partition_versions"`
}

func (h Header) Clone() Header {
	c := h
	c.Views = append([]BtreeState(nil), h.Views...)
	c.Seqs = make(map[uint16]uint64, len(h.Seqs))
	for p, s := range h.Seqs {
		c.Seqs[p] = s
	}
	c.PartitionVersions = make(map[uint16][]PartitionVersion, len(h.PartitionVersions))
	for p, v := range h.PartitionVersions {
		c.PartitionVersions[p] = append([]PartitionVersion(nil), v...)
	}
	return c
}

// Partitions returns the partitions known to the header in ascending order.
func (h Header) Partitions() []uint16 {
	parts := make([]uint16, 0, len(h.Seqs))
	for p := range h.Seqs {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
	return parts
}

// View is one btree of a group. Design document views sharing a map
// function share the btree and contribute one reducer each.
type View struct {
	ID        int           `cbor:"id" json:"id"`
	MapSource string        `cbor:"map" json:"map"`
	Names     []string      `cbor:"names" json:"names"`
	Reducers  []ReducerSpec `cbor:"reducers" json:"reducers"`
}

// Reducer returns the position (1-based) of the reducer with the given
// view name, or 0.
func (v *View) Reducer(name string) int {
	for i, r := range v.Reducers {
		if r.Name == name {
			return i + 1
		}
	}
	return 0
}

func (v *View) HasName(name string) bool {
	for _, n := range v.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Group is a set view group. The owner of a group is the only one
// allowed to install a new Group value, everybody else works on copies.
type Group struct {
	Name      string     `json:"name"`
	Signature string     `json:"signature"`
	Language  string     `json:"language"`
	Kind      GroupKind  `json:"kind"`
	Scope     GroupScope `json:"scope"`
	Views     []*View    `json:"views"`
	Header    Header     `json:"header"`
	FilePath  string     `json:"file_path"`
	Fd        *os.File   `json:"-"`
}

func (g *Group) String() string {
	return fmt.Sprintf("<Group name=%q kind=%s scope=%s sig=%s>", g.Name, g.Kind, g.Scope, g.Signature)
}

// Clone returns a copy that can be modified without affecting g. Views
// are immutable and shared.
func (g *Group) Clone() *Group {
	c := *g
	c.Views = append([]*View(nil), g.Views...)
	c.Header = g.Header.Clone()
	return &c
}

// View returns the view containing the given view name.
func (g *Group) View(name string) (*View, bool) {
	for _, v := range g.Views {
		if v.HasName(name) {
			return v, true
		}
	}
	return nil, false
}

func (g *Group) IDCount() uint64 {
	return g.Header.IDBtree.Count
}

func (g *Group) ViewRowCount(id int) uint64 {
	if id < 0 || id >= len(g.Header.Views) {
		return 0
	}
	return g.Header.Views[id].Count
}

// TotalChanges is the number of entries a full rewrite of the group has
// to process: the id index plus the rows of every view.
func (g *Group) TotalChanges() uint64 {
	total := g.IDCount()
	for i := range g.Header.Views {
		total += g.ViewRowCount(i)
	}
	return total
}

// EmptyHeader returns the header of a group file without any content.
func (g *Group) EmptyHeader() Header {
	h := Header{
		Signature:         g.Signature,
		IDBtree:           BtreeState{Bucket: IDBtreeName},
		Views:             make([]BtreeState, len(g.Views)),
		Seqs:              make(map[uint16]uint64),
		PartitionVersions: make(map[uint16][]PartitionVersion),
	}
	for i, v := range g.Views {
		h.Views[i] = BtreeState{Bucket: ViewBtreeName(v.ID)}
	}
	return h
}
