package raptor

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

// calculateTransfers returns the kept transfers per route stop, in the order
// they will be stored.
func calculateTransfers(d *Data, mtt map[schedule.StopPair]float64) [][]Transfer {
	cfg := d.Config
	out := make([][]Transfer, len(d.RouteStops))

	// Candidate destination stops per origin stop: geometric neighbours plus
	// any pair with an explicit minimal transfer time.
	candidates := make([][]StopIndex, len(d.Stops))
	for i, s := range d.Stops {
		candidates[i] = d.spatial.Disk(s.Coord, cfg.BeelineWalkConnectionDistance)
	}
	for pair := range mtt {
		from, okFrom := d.stopIndices[pair.From]
		to, okTo := d.stopIndices[pair.To]
		if !okFrom || !okTo {
			continue // stops that no route serves cannot take part in a transfer
		}
		if !slices.Contains(candidates[from], to) {
			candidates[from] = append(candidates[from], to)
		}
	}

	// Route-level departure bounds, needed by the departure window check.
	earliest := make([]float64, len(d.Routes))
	latest := make([]float64, len(d.Routes))
	for ri := range d.Routes {
		deps := d.DeparturesOf(RouteIndex(ri))
		if len(deps) == 0 {
			earliest[ri], latest[ri] = math.NaN(), math.NaN()
			continue
		}
		earliest[ri], latest[ri] = deps[0], deps[len(deps)-1]
	}
	f := transferFilter{d: d, earliest: earliest, latest: latest, maxDistance: cfg.BeelineWalkConnectionDistance}

	// Route stops belong to exactly one stop, so workers split by origin stop
	// never write the same slot of out.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	const chunk = 256
	for lo := 0; lo < len(d.Stops); lo += chunk {
		hi := min(lo+chunk, len(d.Stops))
		g.Go(func() error {
			for from := lo; from < hi; from++ {
				f.transfersFrom(StopIndex(from), candidates[from], mtt, out)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f transferFilter) transfersFrom(from StopIndex, cands []StopIndex, mtt map[schedule.StopPair]float64, out [][]Transfer) {
	d, cfg := f.d, f.d.Config
	fromStop := d.Stops[from]
	slices.Sort(cands)
	for _, to := range cands {
		toStop := d.Stops[to]
		t := geo.Distance(fromStop.Coord, toStop.Coord) / cfg.BeelineWalkSpeed
		if t < cfg.MinimalTransferTime {
			t = cfg.MinimalTransferTime
		}
		if v, ok := mtt[schedule.StopPair{From: fromStop.ID, To: toStop.ID}]; ok {
			t = v
		}
		cost := -t*cfg.MarginalUtilityOfTravelTimeWalk + cfg.TransferPenaltyCost

		for _, fromRS := range d.routeStopsPerStop[from] {
			for _, toRS := range d.routeStopsPerStop[to] {
				if !f.keep(fromRS, toRS, cfg.Optimization) {
					continue
				}
				out[fromRS] = append(out[fromRS], Transfer{From: fromRS, To: toRS, Time: t, Cost: cost})
			}
		}
	}
}

type transferFilter struct {
	d           *Data
	earliest    []float64
	latest      []float64
	maxDistance float64
}

func (f transferFilter) keep(from, to RouteStopIndex, opt Optimization) bool {
	if from == to {
		return false
	}
	if opt == OptimizeOneToAllRouting {
		return true
	}
	return f.isUseful(from, to)
}

// isUseful reports whether a transfer can ever be part of a least-cost route.
func (f transferFilter) isUseful(from, to RouteStopIndex) bool {
	d := f.d
	fromRS, toRS := &d.RouteStops[from], &d.RouteStops[to]
	fromRoute, toRoute := d.RouteStopsOf(fromRS.Route), d.RouteStopsOf(toRS.Route)

	// Leaving a route at its first stop never helps.
	if fromRS.Position == 0 {
		return false
	}
	// Nothing can be reached from a last stop.
	if int(toRS.Position) == len(toRoute)-1 {
		return false
	}
	if f.hasNoPossibleDeparture(fromRS, toRS) {
		return false
	}
	if toStopIsLaterOnRoute(fromRS, toRS, fromRoute) {
		return false
	}
	if cannotReachAdditionalStops(fromRS, toRS, fromRoute, toRoute) {
		return false
	}
	if f.couldHaveTransferredEarlier(fromRS, toRS, fromRoute, toRoute) {
		return false
	}
	return true
}

// hasNoPossibleDeparture is true when the first vehicle reaching from arrives
// after the last vehicle has left to.
func (f transferFilter) hasNoPossibleDeparture(from, to *RouteStop) bool {
	e, l := f.earliest[from.Route], f.latest[to.Route]
	if math.IsNaN(e) || math.IsNaN(l) {
		return true
	}
	return e+from.ArrivalOffset > l+to.DepartureOffset
}

// toStopIsLaterOnRoute is true when the vehicle being left will serve the
// destination stop itself.
func toStopIsLaterOnRoute(from, to *RouteStop, fromRoute []RouteStop) bool {
	if from.Stop == to.Stop {
		return false
	}
	for _, rs := range fromRoute[from.Position+1:] {
		if rs.Stop == to.Stop {
			return true
		}
	}
	return false
}

// cannotReachAdditionalStops is true when the destination route continues
// along exactly the same stops as the source route.
func cannotReachAdditionalStops(from, to *RouteStop, fromRoute, toRoute []RouteStop) bool {
	fi, ti := int(from.Position)+1, int(to.Position)+1
	for {
		if ti >= len(toRoute) {
			return true
		}
		if fi >= len(fromRoute) {
			return false
		}
		if fromRoute[fi].Stop != toRoute[ti].Stop {
			return false
		}
		fi++
		ti++
	}
}

// couldHaveTransferredEarlier is true when the stop before from on its route
// is, or lies within walking distance of, the stop after to on its route.
// That is the pattern of two lines running in opposite directions, where
// changing one stop earlier was just as good.
func (f transferFilter) couldHaveTransferredEarlier(from, to *RouteStop, fromRoute, toRoute []RouteStop) bool {
	if from.Position == 0 || int(to.Position)+1 >= len(toRoute) {
		return false
	}
	prev := fromRoute[from.Position-1].Stop
	next := toRoute[to.Position+1].Stop
	if prev == next {
		return true
	}
	return geo.Distance(f.d.Stops[prev].Coord, f.d.Stops[next].Coord) < f.maxDistance
}
