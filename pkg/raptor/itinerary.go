package raptor

import (
	"slices"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// InitialStop is a candidate stop to enter or leave the scheduled network,
// with the cost and time needed to get there from the trip's origin (or from
// there to the destination).
type InitialStop struct {
	Stop     *schedule.Stop
	Cost     float64
	Time     float64
	Distance float64
	Mode     string
	// Parts, when set, replace the generated walk leg in the itinerary.
	Parts []Part
}

// TravelInfo is what a tree search knows about one reached stop.
type TravelInfo struct {
	DepartureStop schedule.StopID
	TransferCount int
	ArrivalTime   float64
	ArrivalCost   float64
}

// Part is one leg of an itinerary: a scheduled ride when Line is set,
// otherwise a non-scheduled segment such as a walk.
type Part struct {
	FromStop *schedule.Stop // nil at the trip origin
	ToStop   *schedule.Stop // nil at the trip destination
	Mode     string
	Line     *schedule.Line
	Route    *schedule.Route

	// DepartureTime is when the traveler starts the part. It is
	// schedule.UndefinedTime for egress segments computed ahead of time.
	DepartureTime float64
	TravelTime    float64
	Distance      float64

	// VehicleDepartureTime is when the boarded vehicle leaves FromStop.
	VehicleDepartureTime float64

	StartLink string
	EndLink   string
}

// IsRide reports whether the part is a scheduled ride.
func (p Part) IsRide() bool {
	return p.Line != nil
}

// Itinerary is a complete trip from origin to destination.
type Itinerary struct {
	DepartureTime float64
	ArrivalTime   float64
	TotalCost     float64
	Parts         []Part
}

// TransferCount is the number of vehicle changes.
func (it *Itinerary) TransferCount() int {
	rides := 0
	for _, p := range it.Parts {
		if p.IsRide() {
			rides++
		}
	}
	return max(rides-1, 0)
}

// TravelTime is the time from departure to arrival.
func (it *Itinerary) TravelTime() float64 {
	return it.ArrivalTime - it.DepartureTime
}

// FirstRide returns the first scheduled part, if any.
func (it *Itinerary) FirstRide() (Part, bool) {
	for _, p := range it.Parts {
		if p.IsRide() {
			return p, true
		}
	}
	return Part{}, false
}

// buildItinerary follows predecessor links from last back to the access
// element and converts the chain into parts.
func (c *SearchCore) buildItinerary(last int32, depTime float64, access, egress []InitialStop) *Itinerary {
	qs, d := c.qs, c.data

	var chain []int32
	for pe := last; pe != noPath; pe = qs.arena[pe].prev {
		chain = append(chain, pe)
	}
	slices.Reverse(chain)

	final := qs.arena[last]
	it := &Itinerary{
		DepartureTime: depTime,
		ArrivalTime:   final.arrivalTime,
		TotalCost:     final.arrivalCost,
	}
	egressStop := egress[final.initial]

	t := depTime
	var fromStop *schedule.Stop
	n := len(chain)
	for i, idx := range chain {
		pe := qs.arena[idx]
		var toStop *schedule.Stop
		if pe.routeStop >= 0 {
			toStop = d.Stops[d.RouteStops[pe.routeStop].Stop]
		}
		travelTime := pe.arrivalTime - t

		if !pe.isTransfer {
			boardRS := &d.RouteStops[qs.arena[pe.prev].routeStop]
			toRS := &d.RouteStops[pe.routeStop]
			route := &d.Routes[toRS.Route]
			it.Parts = append(it.Parts, Part{
				FromStop:             fromStop,
				ToStop:               toStop,
				Mode:                 d.Modes[route.Mode],
				Line:                 route.Line,
				Route:                route.Route,
				DepartureTime:        t,
				TravelTime:           travelTime,
				Distance:             toRS.Distance - boardRS.Distance,
				VehicleDepartureTime: pe.vehicleDeparture + boardRS.DepartureOffset,
				StartLink:            linkOf(fromStop),
				EndLink:              linkOf(toStop),
			})
			t, fromStop = pe.arrivalTime, toStop
			continue
		}

		switch {
		case pe.prev == noPath && len(access[pe.initial].Parts) > 0:
			// access with a prepared segment
			t = appendSegment(it, access[pe.initial].Parts, t)
		case i == n-1 && len(egressStop.Parts) > 0:
			it.Parts = append(it.Parts, egressStop.Parts...)
		case fromStop != nil && toStop != nil && fromStop == toStop:
			// staying at the same stop needs no leg
		case i == n-2 && pe.prev != noPath && len(egressStop.Parts) == 0:
			// merged into the egress walk that follows
			continue
		default:
			mode := ModeTransitWalk
			if fromStop == nil && toStop != nil {
				mode = ModeAccessWalk
			} else if fromStop != nil && toStop == nil {
				mode = ModeEgressWalk
			}
			dist := c.walkDistance(pe, fromStop, toStop, i, n, access, egressStop)
			if mode != ModeTransitWalk && travelTime == 0 && dist == 0 {
				// origin or destination is the stop itself
				break
			}
			it.Parts = append(it.Parts, Part{
				FromStop:      fromStop,
				ToStop:        toStop,
				Mode:          mode,
				DepartureTime: t,
				TravelTime:    travelTime,
				Distance:      dist,
				StartLink:     linkOf(fromStop),
				EndLink:       linkOf(toStop),
			})
		}
		t, fromStop = pe.arrivalTime, toStop
	}
	return it
}

func (c *SearchCore) walkDistance(pe pathElement, from, to *schedule.Stop, i, n int, access []InitialStop, egress InitialStop) float64 {
	switch {
	case pe.prev == noPath:
		return access[pe.initial].Distance
	case i == n-1:
		if from != nil && from.ID != egress.Stop.ID {
			// includes the merged transfer to the egress stop
			return geo.Distance(from.Coord, egress.Stop.Coord) + egress.Distance
		}
		return egress.Distance
	default:
		return geo.Distance(from.Coord, to.Coord)
	}
}

// appendSegment adds prepared parts departing at t and returns the time at the
// end of the segment.
func appendSegment(it *Itinerary, parts []Part, t float64) float64 {
	for _, p := range parts {
		p.DepartureTime = t
		it.Parts = append(it.Parts, p)
		t += p.TravelTime
	}
	return t
}

func linkOf(s *schedule.Stop) string {
	if s == nil {
		return ""
	}
	return s.LinkID
}
