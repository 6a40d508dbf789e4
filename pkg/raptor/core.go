package raptor

import (
	"math"
	"sort"

	"transit_router/pkg/schedule"
)

// SearchCore runs round-based searches over one compiled dataset.
// A SearchCore is NOT safe for concurrent use: each worker needs its own.
// Any number of cores may share the same Data.
type SearchCore struct {
	data *Data
	qs   *queryState

	// per-query values derived from Parameters
	rideCost    []float64 // cost per in-vehicle second, by Data.Modes index
	waitCost    float64
	destination []egressTarget
}

type egressTarget struct {
	stop    StopIndex
	initial int32
	cost    float64
	time    float64
}

// NewSearchCore allocates the scratch state for data.
func NewSearchCore(data *Data) *SearchCore {
	return &SearchCore{
		data:     data,
		qs:       newQueryState(len(data.RouteStops), len(data.Stops)),
		rideCost: make([]float64, len(data.Modes)),
	}
}

// Data returns the dataset the core searches.
func (c *SearchCore) Data() *Data {
	return c.data
}

func (c *SearchCore) prepare(params *Parameters) error {
	for i, m := range c.data.Modes {
		u, err := params.MarginalUtilityOfTravelTime(m)
		if err != nil {
			return err
		}
		c.rideCost[i] = -u
	}
	c.waitCost = -params.MarginalUtilityOfWaitingPt
	c.qs.reset()
	c.destination = c.destination[:0]
	return nil
}

// FindBestRoute returns the least-cost itinerary from any access stop to any
// egress stop when leaving at depTime. It returns nil when no egress stop can
// be reached. The only error is a missing marginal utility in params.
func (c *SearchCore) FindBestRoute(depTime float64, access, egress []InitialStop, params *Parameters) (*Itinerary, error) {
	if err := c.prepare(params); err != nil {
		return nil, err
	}
	qs := c.qs

	c.seedEgress(egress)
	c.seedAccess(depTime, access)

	allowedLeft := params.MaxTransfersAfterFirstArrival
	for k := 0; k <= params.maxTransfers(); k++ {
		c.exploreRoutes()

		if pe, _ := c.leastCostArrival(); pe != noPath {
			if allowedLeft <= 0 {
				break
			}
			allowedLeft--
		}
		if qs.improvedStops.None() {
			break
		}
		c.handleTransfers()
		if qs.improvedRouteStops.None() {
			break
		}
	}

	pe, target := c.leastCostArrival()
	if pe == noPath {
		return nil, nil
	}
	last := c.addEgressElement(pe, target)
	return c.buildItinerary(last, depTime, access, egress), nil
}

// FindTree returns, for every stop reachable from the access stops, the least
// arrival cost and the matching arrival time and transfer count. There is no
// destination pruning. The search stops at a fixpoint or the round cap.
func (c *SearchCore) FindTree(depTime float64, access []InitialStop, params *Parameters) (map[schedule.StopID]TravelInfo, error) {
	if err := c.prepare(params); err != nil {
		return nil, err
	}
	qs := c.qs
	c.seedAccess(depTime, access)

	for k := 0; k <= params.maxTransfers(); k++ {
		c.exploreRoutes()
		if qs.improvedStops.None() {
			break
		}
		c.handleTransfers()
		if qs.improvedRouteStops.None() {
			break
		}
	}

	out := make(map[schedule.StopID]TravelInfo, len(qs.touchedStops))
	for _, s := range qs.touchedStops {
		pe := &qs.arena[qs.pathAtStop[s]]
		transfers := int(pe.transfers)
		if pe.isTransfer && pe.prev != noPath {
			// a walk only becomes a transfer once another vehicle is boarded
			transfers--
		}
		out[c.data.Stops[s].ID] = TravelInfo{
			DepartureStop: c.data.Stops[pe.origin].ID,
			TransferCount: transfers,
			ArrivalTime:   pe.arrivalTime,
			ArrivalCost:   pe.arrivalCost,
		}
	}
	return out, nil
}

// seedEgress marks destination route stops. Of several egress options at the
// same stop the cheapest wins; on a tie the first one.
func (c *SearchCore) seedEgress(egress []InitialStop) {
	qs := c.qs
	for i, e := range egress {
		s, ok := c.data.stopIndices[e.Stop.ID]
		if !ok {
			continue
		}
		replaced := false
		for j := range c.destination {
			if c.destination[j].stop == s {
				if e.Cost < c.destination[j].cost {
					c.destination[j] = egressTarget{stop: s, initial: int32(i), cost: e.Cost, time: e.Time}
				}
				replaced = true
				break
			}
		}
		if !replaced {
			c.destination = append(c.destination, egressTarget{stop: s, initial: int32(i), cost: e.Cost, time: e.Time})
		}
	}
	for _, t := range c.destination {
		for _, rs := range c.data.routeStopsPerStop[t.stop] {
			qs.destinations.Set(uint(rs))
			qs.egressCost[rs] = t.cost
		}
	}
}

func (c *SearchCore) seedAccess(depTime float64, access []InitialStop) {
	qs := c.qs
	for i, a := range access {
		s, ok := c.data.stopIndices[a.Stop.ID]
		if !ok {
			continue
		}
		for _, rs := range c.data.routeStopsPerStop[s] {
			if a.Cost >= qs.costAtRouteStop[rs] {
				continue
			}
			pe := qs.add(pathElement{
				prev:        noPath,
				routeStop:   rs,
				arrivalTime: depTime + a.Time,
				arrivalCost: a.Cost,
				isTransfer:  true,
				initial:     int32(i),
				origin:      s,
			})
			qs.setRouteStop(rs, pe, a.Cost)
			if a.Cost < qs.costAtStop[s] {
				qs.setStop(s, pe, a.Cost)
			}
			qs.improvedRouteStops.Set(uint(rs))
		}
	}
}

// exploreRoutes rides every route that has an improved route stop, from the
// earliest improved boarding point to the end of the route.
func (c *SearchCore) exploreRoutes() {
	qs, d := c.qs, c.data
	qs.improvedStops.ClearAll()

	lastRoute := RouteIndex(-1)
	for i, ok := qs.improvedRouteStops.NextSet(0); ok; i, ok = qs.improvedRouteStops.NextSet(i + 1) {
		firstRS := RouteStopIndex(i)
		firstRouteStop := &d.RouteStops[firstRS]
		if firstRouteStop.Route == lastRoute {
			continue
		}
		ri := firstRouteStop.Route
		route := &d.Routes[ri]

		boarding := qs.pathAtRouteStop[firstRS]
		agentArrival := qs.arena[boarding].arrivalTime
		depIdx := c.nextDeparture(route, firstRouteStop, agentArrival)
		if depIdx < 0 {
			continue
		}
		depTime := d.Departures[depIdx]
		boardingTime := math.Max(agentArrival, depTime+firstRouteStop.ArrivalOffset)
		costWhenBoarding := qs.arena[boarding].arrivalCost + c.waitCost*(boardingTime-agentArrival)
		if costWhenBoarding > qs.bestArrivalCost {
			continue
		}
		lastRoute = ri
		rideCost := c.rideCost[route.Mode]

		end := route.FirstRouteStop + RouteStopIndex(route.CountRouteStops)
		for toRS := firstRS + 1; toRS < end; toRS++ {
			toRouteStop := &d.RouteStops[toRS]
			arrivalTime := depTime + toRouteStop.ArrivalOffset
			arrivalCost := costWhenBoarding + (arrivalTime-boardingTime)*rideCost
			previous := qs.costAtRouteStop[toRS]
			if arrivalCost < previous {
				pe := qs.add(pathElement{
					prev:             boarding,
					routeStop:        toRS,
					arrivalTime:      arrivalTime,
					arrivalCost:      arrivalCost,
					transfers:        qs.arena[boarding].transfers,
					initial:          -1,
					vehicleDeparture: depTime,
					origin:           qs.arena[boarding].origin,
				})
				qs.setRouteStop(toRS, pe, arrivalCost)
				if arrivalCost < qs.costAtStop[toRouteStop.Stop] {
					qs.setStop(toRouteStop.Stop, pe, arrivalCost)
					qs.improvedStops.Set(uint(toRouteStop.Stop))
					c.checkForBestArrival(toRS, arrivalCost)
				}
			} else if previous < arrivalCost {
				// Some other path reaches this route stop cheaper. If boarding
				// here from that path is cheaper than staying seated, switch.
				alt := qs.pathAtRouteStop[toRS]
				altArrival := qs.arena[alt].arrivalTime
				altIdx := c.nextDeparture(route, toRouteStop, altArrival)
				if altIdx >= 0 {
					altDep := d.Departures[altIdx]
					altBoarding := math.Max(altArrival, altDep+toRouteStop.ArrivalOffset)
					altCost := qs.arena[alt].arrivalCost + c.waitCost*(altBoarding-altArrival)
					if altCost < arrivalCost {
						depTime = altDep
						boardingTime = altBoarding
						costWhenBoarding = altCost
						boarding = alt
					}
				}
			}
			i = uint(toRS) // handled, skip in the outer loop
		}
	}
}

func (c *SearchCore) checkForBestArrival(rs RouteStopIndex, arrivalCost float64) {
	qs := c.qs
	if !qs.destinations.Test(uint(rs)) {
		return
	}
	if total := arrivalCost + qs.egressCost[rs]; total < qs.bestArrivalCost {
		qs.bestArrivalCost = total
	}
}

// nextDeparture returns the index into Data.Departures of the first vehicle
// that leaves rs at or after t, or -1.
func (c *SearchCore) nextDeparture(route *Route, rs *RouteStop, t float64) int {
	deps := c.data.Departures[route.FirstDeparture : route.FirstDeparture+route.CountDepartures]
	atStart := t - rs.DepartureOffset
	pos := sort.SearchFloat64s(deps, atStart)
	if pos >= len(deps) {
		return -1
	}
	return int(route.FirstDeparture) + pos
}

// handleTransfers walks from the cheapest route stop of every improved stop.
func (c *SearchCore) handleTransfers() {
	qs, d := c.qs, c.data
	qs.improvedRouteStops.ClearAll()
	for i, ok := qs.improvedStops.NextSet(0); ok; i, ok = qs.improvedStops.NextSet(i + 1) {
		from := qs.pathAtStop[i]
		fromPE := qs.arena[from]
		if fromPE.arrivalCost > qs.bestArrivalCost {
			continue
		}
		for _, t := range d.TransfersOf(fromPE.routeStop) {
			cost := fromPE.arrivalCost + t.Cost
			if cost >= qs.costAtRouteStop[t.To] {
				continue
			}
			pe := qs.add(pathElement{
				prev:        from,
				routeStop:   t.To,
				arrivalTime: fromPE.arrivalTime + t.Time,
				arrivalCost: cost,
				transfers:   fromPE.transfers + 1,
				isTransfer:  true,
				initial:     -1,
				origin:      fromPE.origin,
			})
			qs.setRouteStop(t.To, pe, cost)
			qs.improvedRouteStops.Set(uint(t.To))
			toStop := d.RouteStops[t.To].Stop
			if cost < qs.costAtStop[toStop] {
				qs.setStop(toStop, pe, cost)
			}
		}
	}
}

// leastCostArrival picks the destination with the least total cost, breaking
// ties by fewer transfers.
func (c *SearchCore) leastCostArrival() (int32, int) {
	qs := c.qs
	best, bestTarget := noPath, -1
	bestCost := math.Inf(1)
	var bestTransfers int32
	for ti, t := range c.destination {
		pe := qs.pathAtStop[t.stop]
		if pe == noPath {
			continue
		}
		total := qs.arena[pe].arrivalCost + t.cost
		transfers := qs.arena[pe].transfers
		if total < bestCost || (total == bestCost && best != noPath && transfers < bestTransfers) {
			best, bestTarget, bestCost, bestTransfers = pe, ti, total, transfers
		}
	}
	return best, bestTarget
}

func (c *SearchCore) addEgressElement(pe int32, target int) int32 {
	qs := c.qs
	t := c.destination[target]
	from := qs.arena[pe]
	return qs.add(pathElement{
		prev:        pe,
		routeStop:   -1,
		arrivalTime: from.arrivalTime + t.time,
		arrivalCost: from.arrivalCost + t.cost,
		transfers:   from.transfers,
		isTransfer:  true,
		initial:     t.initial,
		origin:      from.origin,
	})
}
