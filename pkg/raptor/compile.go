package raptor

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"transit_router/pkg/geo"
	"transit_router/pkg/logging"
	"transit_router/pkg/schedule"
)

// ErrIndexOverflow is returned when a schedule has more elements than the
// int32 indices of the compiled arrays can address.
var ErrIndexOverflow = errors.New("schedule exceeds index width")

// indexLimit is the largest element count per array. Tests lower it.
var indexLimit = int64(math.MaxInt32)

// Compile turns a schedule into the flat arrays used by the search core.
// The schedule must not change while compiling or afterwards.
func Compile(sched *schedule.Schedule, cfg StaticConfig) (*Data, error) {
	return compile(sched, cfg, slog.Default())
}

func compile(sched *schedule.Schedule, cfg StaticConfig, logger *slog.Logger) (*Data, error) {
	logger.Info("preparing data for transit search")
	start := time.Now()

	var countRoutes, countRouteStops, countDepartures int64
	for _, line := range sched.Lines {
		countRoutes += int64(len(line.Routes))
		for _, route := range line.Routes {
			countRouteStops += int64(len(route.Stops))
			countDepartures += int64(len(route.Departures))
		}
	}
	if countRoutes > indexLimit {
		return nil, fmt.Errorf("%w: %d routes", ErrIndexOverflow, countRoutes)
	}
	if countRouteStops > indexLimit {
		return nil, fmt.Errorf("%w: %d route stops", ErrIndexOverflow, countRouteStops)
	}
	if countDepartures > indexLimit {
		return nil, fmt.Errorf("%w: %d departures", ErrIndexOverflow, countDepartures)
	}

	d := &Data{
		Config:     cfg,
		Routes:     make([]Route, 0, countRoutes),
		RouteStops: make([]RouteStop, 0, countRouteStops),
		Departures: make([]float64, 0, countDepartures),
	}
	stopIndices := make(map[*schedule.Stop]StopIndex)

	for _, line := range sched.Lines {
		routes := slices.Clone(line.Routes)
		// Routes of a line with similar departure times end up next to each other.
		slices.SortStableFunc(routes, func(a, b *schedule.Route) int {
			return cmp.Compare(earliestDeparture(a), earliestDeparture(b))
		})
		for _, route := range routes {
			ri := RouteIndex(len(d.Routes))
			rr := Route{
				Line:            line,
				Route:           route,
				Mode:            d.modeIndex(cfg.PassengerMode(route.Mode)),
				FirstRouteStop:  RouteStopIndex(len(d.RouteStops)),
				CountRouteStops: int32(len(route.Stops)),
				FirstDeparture:  int32(len(d.Departures)),
				CountDepartures: int32(len(route.Departures)),
			}
			dist := 0.0
			for pos, rs := range route.Stops {
				si, ok := stopIndices[rs.Stop]
				if !ok {
					si = StopIndex(len(d.Stops))
					stopIndices[rs.Stop] = si
					d.Stops = append(d.Stops, rs.Stop)
				}
				if pos > 0 {
					dist += geo.Distance(route.Stops[pos-1].Stop.Coord, rs.Stop.Coord)
				}
				arr, dep := rs.NormalizedOffsets()
				d.RouteStops = append(d.RouteStops, RouteStop{
					Route:           ri,
					Position:        int32(pos),
					Stop:            si,
					ArrivalOffset:   arr,
					DepartureOffset: dep,
					Distance:        dist,
				})
			}
			for _, dep := range route.Departures {
				d.Departures = append(d.Departures, dep.Time)
			}
			slices.Sort(d.Departures[rr.FirstDeparture:])
			d.Routes = append(d.Routes, rr)
		}
	}

	d.buildLookups()

	perRouteStop := calculateTransfers(d, sched.MinimalTransferTimes)
	var countTransfers int64
	for _, ts := range perRouteStop {
		countTransfers += int64(len(ts))
	}
	if countTransfers > indexLimit {
		return nil, fmt.Errorf("%w: %d transfers", ErrIndexOverflow, countTransfers)
	}
	d.Transfers = make([]Transfer, 0, countTransfers)
	for i := range d.RouteStops {
		ts := perRouteStop[i]
		d.RouteStops[i].FirstTransfer = int32(len(d.Transfers))
		d.RouteStops[i].CountTransfers = int32(len(ts))
		d.Transfers = append(d.Transfers, ts...)
	}

	logging.LogOperation(logger, "transit data prepared",
		slog.Int("routes", len(d.Routes)),
		slog.Int("departures", len(d.Departures)),
		slog.Int("route_stops", len(d.RouteStops)),
		slog.Int("stop_facilities", len(d.Stops)),
		slog.Int("transfers", len(d.Transfers)),
		slog.Duration("duration", time.Since(start)),
	)
	return d, nil
}

func earliestDeparture(r *schedule.Route) float64 {
	earliest := math.Inf(1)
	for _, dep := range r.Departures {
		earliest = math.Min(earliest, dep.Time)
	}
	return earliest
}
