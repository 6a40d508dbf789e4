// Package gtfsimport turns a GTFS static feed into a schedule for one service day.
package gtfsimport

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// ErrNoService is returned when no trip runs on the requested date.
var ErrNoService = errors.New("no trips run on service date")

// transferRequiresTime is the transfers.txt type carrying a min_transfer_time.
const transferRequiresTime = 2

// Result is an imported schedule together with the projection its planar
// coordinates were produced with.
type Result struct {
	Schedule   *schedule.Schedule
	Projection geo.Projection
	Trips      int
}

// ParseFile reads and parses a GTFS zip archive.
func ParseFile(path string) (*gtfs.Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS file: %w", err)
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return static, nil
}

// Import builds the schedule of the trips active on date. Trips of one GTFS
// route with identical stop sequence and offsets form one pattern.
func Import(static *gtfs.Static, date time.Time) (*Result, error) {
	proj, ok := centroid(static.Stops)
	if !ok {
		return nil, errors.New("feed has no stops with coordinates")
	}

	sched := schedule.New()
	byID := make(map[string]*schedule.Stop, len(static.Stops))
	for i := range static.Stops {
		s := &static.Stops[i]
		if s.Latitude == nil || s.Longitude == nil || int(s.Type) != 0 {
			continue
		}
		pt := proj.ToPlanar(*s.Latitude, *s.Longitude)
		st := sched.AddStop(schedule.StopID(s.Id), pt.X(), pt.Y())
		if s.Name != "" {
			st.Name = s.Name
		}
		st.Attributes = stopAttributes(s)
		byID[s.Id] = st
	}

	active := make(map[*gtfs.Service]bool, len(static.Services))
	for i := range static.Services {
		svc := &static.Services[i]
		active[svc] = runsOn(svc, date)
	}

	lines := make(map[string]*schedule.Line)
	patterns := make(map[string]*schedule.Route)
	trips := 0
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil || trip.Service == nil || !active[trip.Service] {
			continue
		}
		stopTimes := slices.Clone(trip.StopTimes)
		slices.SortFunc(stopTimes, func(a, b gtfs.ScheduledStopTime) int {
			return cmp.Compare(a.StopSequence, b.StopSequence)
		})
		if len(stopTimes) < 2 {
			continue
		}

		first := stopTimes[0].DepartureTime
		key, visits, err := patternKey(trip, stopTimes, first, byID)
		if err != nil {
			return nil, err
		}

		route, ok := patterns[key]
		if !ok {
			line, ok := lines[trip.Route.Id]
			if !ok {
				line = sched.AddLine(schedule.LineID(trip.Route.Id))
				line.Name = lineName(trip.Route)
				lines[trip.Route.Id] = line
			}
			id := schedule.RouteID(fmt.Sprintf("%s_%d", trip.Route.Id, len(line.Routes)+1))
			route = line.AddRoute(id, RouteMode(trip.Route.Type))
			route.Stops = visits
			patterns[key] = route
		}

		if len(trip.Frequencies) == 0 {
			route.AddDeparture(trip.ID, first.Seconds())
		} else {
			for _, f := range trip.Frequencies {
				if f.Headway <= 0 {
					continue
				}
				for t := f.StartTime; t < f.EndTime; t += f.Headway {
					route.AddDeparture(trip.ID+"_"+strconv.Itoa(int(t.Seconds())), t.Seconds())
				}
			}
		}
		trips++
	}
	if trips == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoService, date.Format(time.DateOnly))
	}

	for _, tr := range static.Transfers {
		if int(tr.Type) != transferRequiresTime || tr.MinTransferTime == nil || tr.From == nil || tr.To == nil {
			continue
		}
		if byID[tr.From.Id] == nil || byID[tr.To.Id] == nil {
			continue
		}
		sched.SetMinimalTransferTime(schedule.StopID(tr.From.Id), schedule.StopID(tr.To.Id), float64(*tr.MinTransferTime))
	}

	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return &Result{Schedule: sched, Projection: proj, Trips: trips}, nil
}

// patternKey returns the key grouping trips into patterns and the stop visits
// of the trip with offsets relative to its first departure.
func patternKey(trip *gtfs.ScheduledTrip, stopTimes []gtfs.ScheduledStopTime, first time.Duration, byID map[string]*schedule.Stop) (string, []schedule.RouteStop, error) {
	var b strings.Builder
	b.WriteString(trip.Route.Id)
	visits := make([]schedule.RouteStop, 0, len(stopTimes))
	for _, st := range stopTimes {
		if st.Stop == nil || byID[st.Stop.Id] == nil {
			return "", nil, fmt.Errorf("trip %s: stop time %d references an unknown stop", trip.ID, st.StopSequence)
		}
		arr := (st.ArrivalTime - first).Seconds()
		dep := (st.DepartureTime - first).Seconds()
		fmt.Fprintf(&b, "|%s@%g/%g", st.Stop.Id, arr, dep)
		visits = append(visits, schedule.RouteStop{
			Stop:            byID[st.Stop.Id],
			ArrivalOffset:   arr,
			DepartureOffset: dep,
		})
	}
	return b.String(), visits, nil
}

// runsOn reports whether the service operates on the calendar day of date.
func runsOn(svc *gtfs.Service, date time.Time) bool {
	day := dayOf(date)
	for _, d := range svc.RemovedDates {
		if dayOf(d) == day {
			return false
		}
	}
	for _, d := range svc.AddedDates {
		if dayOf(d) == day {
			return true
		}
	}
	if day < dayOf(svc.StartDate) || day > dayOf(svc.EndDate) {
		return false
	}
	switch date.Weekday() {
	case time.Monday:
		return svc.Monday
	case time.Tuesday:
		return svc.Tuesday
	case time.Wednesday:
		return svc.Wednesday
	case time.Thursday:
		return svc.Thursday
	case time.Friday:
		return svc.Friday
	case time.Saturday:
		return svc.Saturday
	default:
		return svc.Sunday
	}
}

func dayOf(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// RouteMode maps a GTFS route type, basic or extended, to a transport mode.
func RouteMode(t gtfs.RouteType) string {
	switch v := int(t); {
	case v == 0 || (v >= 900 && v < 1000):
		return "tram"
	case v == 1 || v == 12 || v == 401 || v == 402 || v == 405:
		return "subway"
	case v == 2 || (v >= 100 && v < 200) || v == 400 || v == 403 || v == 404:
		return "rail"
	case v == 3 || v == 11 || (v >= 200 && v < 300) || (v >= 700 && v < 900):
		return "bus"
	case v == 4 || (v >= 1000 && v < 1100) || (v >= 1200 && v < 1300):
		return "ferry"
	case v == 5:
		return "cable_car"
	case v == 6 || (v >= 1300 && v < 1400):
		return "gondola"
	case v == 7 || (v >= 1400 && v < 1500):
		return "funicular"
	default:
		return "pt"
	}
}

func lineName(r *gtfs.Route) string {
	if r.ShortName != "" {
		return r.ShortName
	}
	if r.LongName != "" {
		return r.LongName
	}
	return r.Id
}

func stopAttributes(s *gtfs.Stop) map[string]string {
	attrs := make(map[string]string)
	if s.Code != "" {
		attrs["code"] = s.Code
	}
	if s.ZoneId != "" {
		attrs["zone_id"] = s.ZoneId
	}
	if s.PlatformCode != "" {
		attrs["platform_code"] = s.PlatformCode
	}
	if s.Parent != nil {
		attrs["parent_station"] = s.Parent.Id
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// centroid returns a projection centred on the mean position of the stops.
func centroid(stops []gtfs.Stop) (geo.Projection, bool) {
	var lat, lon float64
	n := 0
	for _, s := range stops {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		lat += *s.Latitude
		lon += *s.Longitude
		n++
	}
	if n == 0 {
		return geo.Projection{}, false
	}
	return geo.NewProjection(lat/float64(n), lon/float64(n)), true
}
