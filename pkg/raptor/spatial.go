package raptor

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// SpatialIndex answers disk and nearest queries over stop coordinates.
// It is immutable after construction.
type SpatialIndex struct {
	tree   rtree.RTreeG[StopIndex]
	stops  []*schedule.Stop
	bounds orb.Bound
}

// NewSpatialIndex indexes stops by their position in the slice.
func NewSpatialIndex(stops []*schedule.Stop) *SpatialIndex {
	idx := &SpatialIndex{stops: stops}
	for i, s := range stops {
		p := [2]float64{s.Coord.X(), s.Coord.Y()}
		idx.tree.Insert(p, p, StopIndex(i))
		if i == 0 {
			idx.bounds = s.Coord.Bound()
		} else {
			idx.bounds = idx.bounds.Extend(s.Coord)
		}
	}
	return idx
}

// Len returns the number of indexed stops.
func (s *SpatialIndex) Len() int {
	return s.tree.Len()
}

// Disk returns all stops within radius of center, ordered by stop index.
func (s *SpatialIndex) Disk(center orb.Point, radius float64) []StopIndex {
	var out []StopIndex
	s.tree.Search(
		[2]float64{center.X() - radius, center.Y() - radius},
		[2]float64{center.X() + radius, center.Y() + radius},
		func(_, _ [2]float64, idx StopIndex) bool {
			if geo.Distance(center, s.stops[idx].Coord) <= radius {
				out = append(out, idx)
			}
			return true
		},
	)
	slices.Sort(out)
	return out
}

// Nearest returns the stop closest to p and its distance. ok is false only
// when the index is empty. Ties go to the lower stop index.
func (s *SpatialIndex) Nearest(p orb.Point) (idx StopIndex, dist float64, ok bool) {
	if s.tree.Len() == 0 {
		return 0, 0, false
	}
	// Every stop lies within maxR of p.
	maxR := 0.0
	for _, c := range []orb.Point{s.bounds.Min, s.bounds.Max, s.bounds.LeftTop(), s.bounds.RightBottom()} {
		maxR = math.Max(maxR, geo.Distance(p, c))
	}

	r := 256.0
	for {
		if r > maxR {
			r = maxR
		}
		idx, dist, ok = s.nearestWithin(p, r)
		if ok {
			// A closer stop may sit just outside the searched box corner-wise.
			if dist > r {
				idx, dist, _ = s.nearestWithin(p, dist)
			}
			return idx, dist, true
		}
		r *= 2
	}
}

func (s *SpatialIndex) nearestWithin(p orb.Point, r float64) (StopIndex, float64, bool) {
	best, bestDist, found := StopIndex(0), math.Inf(1), false
	s.tree.Search(
		[2]float64{p.X() - r, p.Y() - r},
		[2]float64{p.X() + r, p.Y() + r},
		func(_, _ [2]float64, idx StopIndex) bool {
			d := geo.Distance(p, s.stops[idx].Coord)
			if d < bestDist || (d == bestDist && idx < best) {
				best, bestDist, found = idx, d, true
			}
			return true
		},
	)
	return best, bestDist, found
}
