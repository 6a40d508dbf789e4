package store

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// ErrEmptySchedule is returned when the database holds no stops.
var ErrEmptySchedule = errors.New("schedule tables are empty")

// Dataset is a schedule with the projection its planar coordinates use.
type Dataset struct {
	Schedule   *schedule.Schedule
	Projection geo.Projection
}

type stopRow struct {
	ID         string
	Name       string
	Lat, Lon   float64
	LinkID     string
	Attributes map[string]string
}

type lineRow struct {
	ID   string
	Name string
}

type routeRow struct {
	LineID string
	ID     string
	Mode   string
}

type routeStopRow struct {
	LineID    string
	RouteID   string
	Seq       int
	StopID    string
	Arrival   *float64 // nil when the schedule leaves it undefined
	Departure *float64
}

type departureRow struct {
	LineID  string
	RouteID string
	ID      string
	Time    float64
}

type transferRow struct {
	FromStopID string
	ToStopID   string
	Seconds    float64
}

// tables is the raw content of the schedule tables.
type tables struct {
	stops      []stopRow
	lines      []lineRow
	routes     []routeRow
	routeStops []routeStopRow
	departures []departureRow
	transfers  []transferRow
}

type routeKey struct {
	line  string
	route string
}

// assemble builds a validated schedule from table rows. Stop coordinates are
// projected around the centroid of all stops.
func assemble(t tables) (*Dataset, error) {
	if len(t.stops) == 0 {
		return nil, ErrEmptySchedule
	}
	var lat, lon float64
	for _, s := range t.stops {
		lat += s.Lat
		lon += s.Lon
	}
	n := float64(len(t.stops))
	proj := geo.NewProjection(lat/n, lon/n)

	sched := schedule.New()
	stops := make(map[string]*schedule.Stop, len(t.stops))
	for _, s := range t.stops {
		pt := proj.ToPlanar(s.Lat, s.Lon)
		st := sched.AddStop(schedule.StopID(s.ID), pt.X(), pt.Y())
		if s.Name != "" {
			st.Name = s.Name
		}
		if s.LinkID != "" {
			st.LinkID = s.LinkID
		}
		if len(s.Attributes) > 0 {
			st.Attributes = s.Attributes
		}
		stops[s.ID] = st
	}

	lines := make(map[string]*schedule.Line, len(t.lines))
	for _, l := range t.lines {
		line := sched.AddLine(schedule.LineID(l.ID))
		if l.Name != "" {
			line.Name = l.Name
		}
		lines[l.ID] = line
	}

	routes := make(map[routeKey]*schedule.Route, len(t.routes))
	for _, r := range t.routes {
		line := lines[r.LineID]
		if line == nil {
			return nil, fmt.Errorf("route %s references unknown line %s", r.ID, r.LineID)
		}
		routes[routeKey{r.LineID, r.ID}] = line.AddRoute(schedule.RouteID(r.ID), r.Mode)
	}

	routeStops := slices.Clone(t.routeStops)
	slices.SortStableFunc(routeStops, func(a, b routeStopRow) int {
		return cmp.Or(
			cmp.Compare(a.LineID, b.LineID),
			cmp.Compare(a.RouteID, b.RouteID),
			cmp.Compare(a.Seq, b.Seq),
		)
	})
	for _, rs := range routeStops {
		route := routes[routeKey{rs.LineID, rs.RouteID}]
		if route == nil {
			return nil, fmt.Errorf("route stop references unknown route %s/%s", rs.LineID, rs.RouteID)
		}
		stop := stops[rs.StopID]
		if stop == nil {
			return nil, fmt.Errorf("route %s/%s references unknown stop %s", rs.LineID, rs.RouteID, rs.StopID)
		}
		route.AddStop(stop, offset(rs.Arrival), offset(rs.Departure))
	}

	for _, d := range t.departures {
		route := routes[routeKey{d.LineID, d.RouteID}]
		if route == nil {
			return nil, fmt.Errorf("departure %s references unknown route %s/%s", d.ID, d.LineID, d.RouteID)
		}
		route.AddDeparture(d.ID, d.Time)
	}

	for _, tr := range t.transfers {
		sched.SetMinimalTransferTime(schedule.StopID(tr.FromStopID), schedule.StopID(tr.ToStopID), tr.Seconds)
	}

	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return &Dataset{Schedule: sched, Projection: proj}, nil
}

// flatten is the inverse of assemble, with coordinates unprojected through
// ds.Projection.
func flatten(ds *Dataset) tables {
	var t tables
	for _, s := range ds.Schedule.Stops {
		lat, lon := ds.Projection.ToLatLng(s.Coord)
		t.stops = append(t.stops, stopRow{
			ID:         string(s.ID),
			Name:       s.Name,
			Lat:        lat,
			Lon:        lon,
			LinkID:     s.LinkID,
			Attributes: s.Attributes,
		})
	}
	for _, l := range ds.Schedule.Lines {
		t.lines = append(t.lines, lineRow{ID: string(l.ID), Name: l.Name})
		for _, r := range l.Routes {
			t.routes = append(t.routes, routeRow{LineID: string(l.ID), ID: string(r.ID), Mode: r.Mode})
			for i, rs := range r.Stops {
				t.routeStops = append(t.routeStops, routeStopRow{
					LineID:    string(l.ID),
					RouteID:   string(r.ID),
					Seq:       i,
					StopID:    string(rs.Stop.ID),
					Arrival:   nullable(rs.ArrivalOffset),
					Departure: nullable(rs.DepartureOffset),
				})
			}
			for _, d := range r.Departures {
				t.departures = append(t.departures, departureRow{
					LineID:  string(l.ID),
					RouteID: string(r.ID),
					ID:      d.ID,
					Time:    d.Time,
				})
			}
		}
	}
	for pair, secs := range ds.Schedule.MinimalTransferTimes {
		t.transfers = append(t.transfers, transferRow{
			FromStopID: string(pair.From),
			ToStopID:   string(pair.To),
			Seconds:    secs,
		})
	}
	return t
}

func offset(v *float64) float64 {
	if v == nil {
		return schedule.UndefinedTime
	}
	return *v
}

func nullable(v float64) *float64 {
	if v == schedule.UndefinedTime {
		return nil
	}
	return &v
}
