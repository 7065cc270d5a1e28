package zones

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// collinearEpsilon bounds the cross product under which three points are
// treated as collinear.
const collinearEpsilon = 1e-12

// polygonsOf flattens a Polygon or MultiPolygon.
func polygonsOf(g orb.Geometry) ([]orb.Polygon, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return []orb.Polygon(g), nil
	case nil:
		return nil, errors.New("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %q, want Polygon or MultiPolygon", g.GeoJSONType())
	}
}

// compactPolygon drops consecutive duplicate vertices from every ring.
// Repeated vertices are common in exported boundaries and carry no shape.
func compactPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = compactRing(r)
	}
	return out
}

func compactRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	out := make(orb.Ring, 1, len(r))
	out[0] = r[0]
	for _, pt := range r[1:] {
		if pt != out[len(out)-1] {
			out = append(out, pt)
		}
	}
	return out
}

// validatePolygon checks a compacted polygon. Every ring must be closed,
// have at least four vertices and finite coordinates, and be simple. Holes
// must lie inside the outer ring without crossing it and must not overlap
// each other. The resulting area must be positive.
func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("polygon has no rings")
	}
	for i, r := range p {
		if err := validateRing(r); err != nil {
			return fmt.Errorf("%s: %w", ringLabel(i), err)
		}
	}
	a, b, touching := scanEdges(p)
	if a != nil {
		if a.ring == b.ring {
			return fmt.Errorf("%s: ring self-intersects between edges %d and %d", ringLabel(a.ring), a.pos, b.pos)
		}
		return fmt.Errorf("%s crosses %s", ringLabel(a.ring), ringLabel(b.ring))
	}
	for i := 1; i < len(p); i++ {
		if !ringWithin(p[i], p[0], touching[ringPair{0, i}]) {
			return fmt.Errorf("hole %d lies outside the outer ring", i)
		}
	}
	for i := 1; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			if ringsOverlap(p[i], p[j], touching[ringPair{i, j}]) {
				return fmt.Errorf("holes %d and %d overlap", i, j)
			}
		}
	}
	if polygonArea(p) <= 0 {
		return errors.New("polygon has zero area")
	}
	return nil
}

func ringLabel(i int) string {
	if i == 0 {
		return "outer ring"
	}
	return fmt.Sprintf("hole %d", i)
}

func validateRing(r orb.Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("ring has %d distinct vertices, want at least 4", len(r))
	}
	for _, pt := range r {
		if !finite(pt[0]) || !finite(pt[1]) {
			return fmt.Errorf("non-finite vertex %v", pt)
		}
	}
	if r[0] != r[len(r)-1] {
		return fmt.Errorf("ring is not closed: first %v, last %v", r[0], r[len(r)-1])
	}
	return nil
}

// ringEdge is one polygon edge stored in the R-tree. It runs from
// p[ring][pos] to p[ring][pos+1].
type ringEdge struct {
	seq       int
	ring, pos int
	a, b      orb.Point
	rect      rtreego.Rect
}

func (e *ringEdge) Bounds() rtreego.Rect {
	return e.rect
}

// ringPair names two rings of a polygon, lower index first.
type ringPair [2]int

// scanEdges looks for the first pair of edges that make p invalid:
// non-adjacent edges of one ring that touch, or edges of different rings
// that cross. When there is none it returns the ring pairs that touch
// without crossing.
func scanEdges(p orb.Polygon) (*ringEdge, *ringEdge, map[ringPair]bool) {
	var edges []*ringEdge
	for ri, r := range p {
		for i := 0; i+1 < len(r); i++ {
			a, b := r[i], r[i+1]
			rect, err := rtreego.NewRectFromPoints(
				rtreego.Point{math.Min(a[0], b[0]) - pointTolerance, math.Min(a[1], b[1]) - pointTolerance},
				rtreego.Point{math.Max(a[0], b[0]) + pointTolerance, math.Max(a[1], b[1]) + pointTolerance},
			)
			if err != nil {
				continue
			}
			edges = append(edges, &ringEdge{seq: len(edges), ring: ri, pos: i, a: a, b: b, rect: rect})
		}
	}

	objs := make([]rtreego.Spatial, len(edges))
	for i, e := range edges {
		objs[i] = e
	}
	tree := rtreego.NewTree(2, indexMinChildren, indexMaxChildren, objs...)

	touching := make(map[ringPair]bool)
	for _, e := range edges {
		hits := tree.SearchIntersect(e.rect)
		sort.Slice(hits, func(i, j int) bool {
			return hits[i].(*ringEdge).seq < hits[j].(*ringEdge).seq
		})
		for _, h := range hits {
			o := h.(*ringEdge)
			if o.seq <= e.seq {
				continue
			}
			if o.ring != e.ring {
				if segmentsCross(e.a, e.b, o.a, o.b) {
					return e, o, nil
				}
				if segmentsIntersect(e.a, e.b, o.a, o.b) {
					touching[ringPair{e.ring, o.ring}] = true
				}
				continue
			}
			last := len(p[e.ring]) - 2
			if o.pos == e.pos+1 || (e.pos == 0 && o.pos == last) {
				continue
			}
			if segmentsIntersect(e.a, e.b, o.a, o.b) {
				return e, o, nil
			}
		}
	}
	return nil, nil, touching
}

// ringPoints returns the vertices of r and the midpoint of every edge.
func ringPoints(r orb.Ring) []orb.Point {
	pts := make([]orb.Point, 0, 2*len(r))
	for i := 0; i+1 < len(r); i++ {
		pts = append(pts, r[i], orb.Point{(r[i][0] + r[i+1][0]) / 2, (r[i][1] + r[i+1][1]) / 2})
	}
	return pts
}

// ringWithin reports whether inner is covered by outer and reaches its
// interior. The rings must not cross. Rings that do not touch lie wholly
// inside or outside each other, so one vertex decides.
func ringWithin(inner, outer orb.Ring, touching bool) bool {
	ob, ib := outer.Bound(), inner.Bound()
	if !ob.Contains(ib.Min) || !ob.Contains(ib.Max) {
		return false
	}
	if !touching {
		return planar.RingContains(outer, inner[0])
	}
	interior := false
	for _, pt := range ringPoints(inner) {
		if onRing(outer, pt) {
			continue
		}
		if !planar.RingContains(outer, pt) {
			return false
		}
		interior = true
	}
	return interior
}

// ringsOverlap reports whether the interiors of two non-crossing rings
// share any area.
func ringsOverlap(a, b orb.Ring, touching bool) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if !touching {
		return planar.RingContains(b, a[0]) || planar.RingContains(a, b[0])
	}
	aOnB, bOnA := true, true
	for _, pt := range ringPoints(a) {
		if onRing(b, pt) {
			continue
		}
		aOnB = false
		if planar.RingContains(b, pt) {
			return true
		}
	}
	for _, pt := range ringPoints(b) {
		if onRing(a, pt) {
			continue
		}
		bOnA = false
		if planar.RingContains(a, pt) {
			return true
		}
	}
	// Identical rings.
	return aOnB && bOnA
}

// polygonArea is the outer ring area minus the hole areas.
func polygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	area := math.Abs(planar.Area(p[0]))
	for _, hole := range p[1:] {
		area -= math.Abs(planar.Area(hole))
	}
	return area
}

// polygonCovers reports whether pt is inside p or on its boundary. Only the
// strict interior of a hole excludes a point.
func polygonCovers(p orb.Polygon, pt orb.Point) bool {
	if len(p) == 0 || !ringCovers(p[0], pt) {
		return false
	}
	for _, hole := range p[1:] {
		if planar.RingContains(hole, pt) && !onRing(hole, pt) {
			return false
		}
	}
	return true
}

func ringCovers(r orb.Ring, pt orb.Point) bool {
	return onRing(r, pt) || planar.RingContains(r, pt)
}

func onRing(r orb.Ring, pt orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		if orientation(r[i], r[i+1], pt) == 0 && withinBox(r[i], r[i+1], pt) {
			return true
		}
	}
	return false
}

// orientation returns the sign of the cross product (b-a) x (c-a).
func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case math.Abs(v) <= collinearEpsilon:
		return 0
	case v > 0:
		return 1
	default:
		return -1
	}
}

func withinBox(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsCross reports a proper crossing: each segment has one endpoint
// strictly on either side of the other.
func segmentsCross(a, b, c, d orb.Point) bool {
	o1, o2 := orientation(a, b, c), orientation(a, b, d)
	o3, o4 := orientation(c, d, a), orientation(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1, o2 := orientation(a, b, c), orientation(a, b, d)
	o3, o4 := orientation(c, d, a), orientation(c, d, b)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && withinBox(a, b, c)) ||
		(o2 == 0 && withinBox(a, b, d)) ||
		(o3 == 0 && withinBox(c, d, a)) ||
		(o4 == 0 && withinBox(c, d, b))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
