package zones

import (
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// pointTolerance is the half-width of the query box around a point. It only
// widens the bounding-box prefilter; containment is decided exactly.
const pointTolerance = 1e-9

// R-tree node fan-out.
const (
	indexMinChildren = 2
	indexMaxChildren = 8
)

// zoneBox is a zone's bounding box stored in the R-tree.
type zoneBox struct {
	pos  int
	rect rtreego.Rect
}

func (b *zoneBox) Bounds() rtreego.Rect {
	return b.rect
}

// boundsIndex narrows a point query to the zones whose bounding box
// contains it.
type boundsIndex struct {
	tree *rtreego.Rtree
}

func newBoundsIndex(zones []Zone) (*boundsIndex, error) {
	objs := make([]rtreego.Spatial, 0, len(zones))
	for i, z := range zones {
		rect, err := rtreego.NewRect(
			rtreego.Point{z.Bound.Min[0], z.Bound.Min[1]},
			[]float64{z.Bound.Max[0] - z.Bound.Min[0], z.Bound.Max[1] - z.Bound.Min[1]},
		)
		if err != nil {
			return nil, fmt.Errorf("zone %q bounds: %w", z.ID, err)
		}
		objs = append(objs, &zoneBox{pos: i, rect: rect})
	}
	return &boundsIndex{tree: rtreego.NewTree(2, indexMinChildren, indexMaxChildren, objs...)}, nil
}

// candidates returns catalog positions of zones whose bounding box touches
// pt, in catalog order.
func (b *boundsIndex) candidates(pt orb.Point) []int {
	query := rtreego.Point{pt[0], pt[1]}.ToRect(pointTolerance)
	hits := b.tree.SearchIntersect(query)

	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*zoneBox).pos)
	}
	sort.Ints(out)
	return out
}
