package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ViewFn identifies a view btree of a group with a given signature.
type ViewFn struct {
	Group     string
	Signature string
	ViewID    int
}

func NewViewFn(g *Group, viewID int) ViewFn {
	return ViewFn{
		Group:     g.Name,
		Signature: g.Signature,
		ViewID:    viewID,
	}
}

func (vfn ViewFn) String() string {
	return vfn.Group + ":" + vfn.Signature + ":" + strconv.Itoa(vfn.ViewID)
}

func ParseViewFn(str string) (*ViewFn, error) {
	parts := strings.Split(str, ":")

	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid view fn %q, expected 3 got %d parts", str, len(parts))
	}

	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid view fn %q: %w", str, err)
	}

	return &ViewFn{
		Group:     parts[0],
		Signature: parts[1],
		ViewID:    id,
	}, nil
}
