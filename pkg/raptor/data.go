package raptor

import (
	"errors"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// Typed indices into the flat arrays of Data.
type (
	RouteIndex     int32
	RouteStopIndex int32
	StopIndex      int32
)

// ErrUnknownStop is returned when a stop id is not part of the compiled data.
var ErrUnknownStop = errors.New("unknown stop")

// Route is a compiled service pattern. Its route stops and departures are
// contiguous slices of Data.RouteStops and Data.Departures.
type Route struct {
	Line  *schedule.Line
	Route *schedule.Route
	Mode  int32 // index into Data.Modes, the passenger mode of this route

	FirstRouteStop  RouteStopIndex
	CountRouteStops int32
	FirstDeparture  int32
	CountDepartures int32
}

// RouteStop is one visit of a route to a stop, with normalized offsets.
type RouteStop struct {
	Route           RouteIndex
	Position        int32
	Stop            StopIndex
	ArrivalOffset   float64
	DepartureOffset float64
	// Distance is the summed beeline distance from the first stop of the route.
	Distance float64

	FirstTransfer  int32
	CountTransfers int32
}

// Transfer is a walking connection between two route stops.
type Transfer struct {
	From RouteStopIndex
	To   RouteStopIndex
	Time float64
	Cost float64
}

// Data is the immutable compiled form of a schedule. It is safe for
// concurrent reads by any number of search cores.
type Data struct {
	Config StaticConfig

	Routes     []Route
	RouteStops []RouteStop
	Departures []float64 // sorted ascending within each route's slice
	Transfers  []Transfer

	// Stops holds every stop served by at least one route, indexed by StopIndex.
	Stops []*schedule.Stop
	// Modes are the distinct passenger modes of all routes.
	Modes []string

	// Projection is the lat/lng origin the planar coordinates were produced
	// with. It is the zero value for schedules built directly in metres.
	Projection geo.Projection

	stopIndices       map[schedule.StopID]StopIndex
	routeStopsPerStop [][]RouteStopIndex
	spatial           *SpatialIndex
}

// Stats summarizes the size of a compiled dataset.
type Stats struct {
	Stops      int `json:"stops"`
	Lines      int `json:"lines"`
	Routes     int `json:"routes"`
	RouteStops int `json:"route_stops"`
	Departures int `json:"departures"`
	Transfers  int `json:"transfers"`
}

// Stats returns the element counts.
func (d *Data) Stats() Stats {
	lines := make(map[*schedule.Line]struct{})
	for _, r := range d.Routes {
		lines[r.Line] = struct{}{}
	}
	return Stats{
		Stops:      len(d.Stops),
		Lines:      len(lines),
		Routes:     len(d.Routes),
		RouteStops: len(d.RouteStops),
		Departures: len(d.Departures),
		Transfers:  len(d.Transfers),
	}
}

// StopIndexOf returns the index of the stop with the given id.
func (d *Data) StopIndexOf(id schedule.StopID) (StopIndex, bool) {
	idx, ok := d.stopIndices[id]
	return idx, ok
}

// StopByID returns the compiled stop with the given id, or nil.
func (d *Data) StopByID(id schedule.StopID) *schedule.Stop {
	if idx, ok := d.stopIndices[id]; ok {
		return d.Stops[idx]
	}
	return nil
}

// RouteStopsAt returns the route stops serving a stop, in route stop order.
func (d *Data) RouteStopsAt(stop StopIndex) []RouteStopIndex {
	return d.routeStopsPerStop[stop]
}

// Spatial returns the spatial index over all compiled stops.
func (d *Data) Spatial() *SpatialIndex {
	return d.spatial
}

// TransfersOf returns the transfers leaving a route stop.
func (d *Data) TransfersOf(rs RouteStopIndex) []Transfer {
	r := &d.RouteStops[rs]
	return d.Transfers[r.FirstTransfer : r.FirstTransfer+r.CountTransfers]
}

// RouteStopsOf returns the route stops of a route.
func (d *Data) RouteStopsOf(route RouteIndex) []RouteStop {
	r := &d.Routes[route]
	first := int32(r.FirstRouteStop)
	return d.RouteStops[first : first+r.CountRouteStops]
}

// DeparturesOf returns the sorted departures of a route.
func (d *Data) DeparturesOf(route RouteIndex) []float64 {
	r := &d.Routes[route]
	return d.Departures[r.FirstDeparture : r.FirstDeparture+r.CountDepartures]
}

// buildLookups derives the stop id map, the per-stop route stop lists and the
// spatial index from Stops and RouteStops.
func (d *Data) buildLookups() {
	d.stopIndices = make(map[schedule.StopID]StopIndex, len(d.Stops))
	for i, s := range d.Stops {
		d.stopIndices[s.ID] = StopIndex(i)
	}
	d.routeStopsPerStop = make([][]RouteStopIndex, len(d.Stops))
	for i := range d.RouteStops {
		s := d.RouteStops[i].Stop
		d.routeStopsPerStop[s] = append(d.routeStopsPerStop[s], RouteStopIndex(i))
	}
	d.spatial = NewSpatialIndex(d.Stops)
}

func (d *Data) modeIndex(mode string) int32 {
	for i, m := range d.Modes {
		if m == mode {
			return int32(i)
		}
	}
	d.Modes = append(d.Modes, mode)
	return int32(len(d.Modes) - 1)
}
