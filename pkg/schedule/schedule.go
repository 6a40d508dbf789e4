package schedule

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// UndefinedTime marks an arrival or departure offset the schedule does not specify.
const UndefinedTime = -1.0

// ErrInvalidSchedule is returned by Validate for structurally broken schedules.
var ErrInvalidSchedule = errors.New("invalid schedule")

type (
	StopID  string
	LineID  string
	RouteID string
)

// Stop is a stop facility. Coord is planar, in metres.
type Stop struct {
	ID         StopID
	Name       string
	Coord      orb.Point
	LinkID     string            // default location reference for legs starting or ending here
	Attributes map[string]string // free-form, used by access/egress filters
}

// Attr returns the attribute value and whether it is set.
func (s *Stop) Attr(key string) (string, bool) {
	if s.Attributes == nil {
		return "", false
	}
	v, ok := s.Attributes[key]
	return v, ok
}

// Line groups one or more route patterns.
type Line struct {
	ID     LineID
	Name   string
	Routes []*Route
}

// Route is one service pattern: an ordered stop sequence served by a set of departures.
type Route struct {
	ID         RouteID
	Mode       string // transport mode of the vehicles, e.g. "bus" or "rail"
	Stops      []RouteStop
	Departures []Departure
}

// RouteStop is one visit of a route to a stop. Offsets are seconds after the
// departure at the first stop; either may be UndefinedTime.
type RouteStop struct {
	Stop            *Stop
	ArrivalOffset   float64
	DepartureOffset float64
}

// Departure is the absolute time, in seconds after midnight, at which a vehicle
// leaves the first stop of its route.
type Departure struct {
	ID   string
	Time float64
}

// StopPair keys minimal transfer time overrides.
type StopPair struct {
	From StopID
	To   StopID
}

// Schedule is the complete transit supply handed to the compiler.
type Schedule struct {
	Stops []*Stop
	Lines []*Line

	// MinimalTransferTimes overrides the computed walk time between two stops.
	// Pairs listed here are also transfer candidates regardless of distance.
	MinimalTransferTimes map[StopPair]float64
}

// New returns an empty schedule ready to be filled.
func New() *Schedule {
	return &Schedule{MinimalTransferTimes: make(map[StopPair]float64)}
}

// AddStop appends a stop and returns it.
func (s *Schedule) AddStop(id StopID, x, y float64) *Stop {
	st := &Stop{ID: id, Name: string(id), Coord: orb.Point{x, y}, LinkID: string(id)}
	s.Stops = append(s.Stops, st)
	return st
}

// AddLine appends an empty line and returns it.
func (s *Schedule) AddLine(id LineID) *Line {
	l := &Line{ID: id, Name: string(id)}
	s.Lines = append(s.Lines, l)
	return l
}

// AddRoute appends a route pattern to the line and returns it.
func (l *Line) AddRoute(id RouteID, mode string) *Route {
	r := &Route{ID: id, Mode: mode}
	l.Routes = append(l.Routes, r)
	return r
}

// AddStop appends a stop visit to the route.
func (r *Route) AddStop(stop *Stop, arrivalOffset, departureOffset float64) *Route {
	r.Stops = append(r.Stops, RouteStop{Stop: stop, ArrivalOffset: arrivalOffset, DepartureOffset: departureOffset})
	return r
}

// AddDeparture appends a departure at the first stop.
func (r *Route) AddDeparture(id string, t float64) *Route {
	r.Departures = append(r.Departures, Departure{ID: id, Time: t})
	return r
}

// SetMinimalTransferTime registers a minimal transfer time between two stops.
func (s *Schedule) SetMinimalTransferTime(from, to StopID, seconds float64) {
	if s.MinimalTransferTimes == nil {
		s.MinimalTransferTimes = make(map[StopPair]float64)
	}
	s.MinimalTransferTimes[StopPair{From: from, To: to}] = seconds
}

// Stop looks up a stop by id.
func (s *Schedule) Stop(id StopID) *Stop {
	for _, st := range s.Stops {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// NormalizedOffsets returns arrival and departure offsets with an undefined
// value replaced by the other one.
func (rs RouteStop) NormalizedOffsets() (arrival, departure float64) {
	arrival, departure = rs.ArrivalOffset, rs.DepartureOffset
	if arrival == UndefinedTime {
		arrival = departure
	}
	if departure == UndefinedTime {
		departure = arrival
	}
	return arrival, departure
}

// Validate checks the structural invariants the compiler relies on.
func (s *Schedule) Validate() error {
	ids := make(map[StopID]*Stop, len(s.Stops))
	for i, st := range s.Stops {
		if st == nil {
			return fmt.Errorf("%w: stop %d is nil", ErrInvalidSchedule, i)
		}
		if st.ID == "" {
			return fmt.Errorf("%w: stop %d has no id", ErrInvalidSchedule, i)
		}
		if _, dup := ids[st.ID]; dup {
			return fmt.Errorf("%w: duplicate stop id %q", ErrInvalidSchedule, st.ID)
		}
		ids[st.ID] = st
	}
	for _, line := range s.Lines {
		for _, route := range line.Routes {
			if err := validateRoute(line, route, ids); err != nil {
				return err
			}
		}
	}
	for pair, mtt := range s.MinimalTransferTimes {
		if ids[pair.From] == nil || ids[pair.To] == nil {
			return fmt.Errorf("%w: minimal transfer time references unknown stop pair %s -> %s", ErrInvalidSchedule, pair.From, pair.To)
		}
		if mtt < 0 {
			return fmt.Errorf("%w: negative minimal transfer time %s -> %s", ErrInvalidSchedule, pair.From, pair.To)
		}
	}
	return nil
}

func validateRoute(line *Line, route *Route, ids map[StopID]*Stop) error {
	prev := -1.0
	for i, rs := range route.Stops {
		if rs.Stop == nil || ids[rs.Stop.ID] != rs.Stop {
			return fmt.Errorf("%w: route %s/%s stop %d is not part of the schedule", ErrInvalidSchedule, line.ID, route.ID, i)
		}
		arr, dep := rs.NormalizedOffsets()
		if arr == UndefinedTime {
			return fmt.Errorf("%w: route %s/%s stop %d has no offsets", ErrInvalidSchedule, line.ID, route.ID, i)
		}
		if arr < prev || dep < arr {
			return fmt.Errorf("%w: route %s/%s offsets decrease at stop %d", ErrInvalidSchedule, line.ID, route.ID, i)
		}
		prev = dep
	}
	return nil
}
