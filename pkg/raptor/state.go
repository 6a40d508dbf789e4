package raptor

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

const noPath = int32(-1)

// pathElement is one node of the backward-linked search tree. Elements live in
// the state arena and point to their predecessor by index.
type pathElement struct {
	prev        int32
	routeStop   RouteStopIndex // -1 on the final egress element
	arrivalTime float64
	arrivalCost float64
	transfers   int32
	isTransfer  bool

	// initial is the index of the access or egress InitialStop this element
	// stands for, -1 otherwise.
	initial int32
	// vehicleDeparture is the departure at the first stop of the route for
	// ride elements.
	vehicleDeparture float64
	// origin is the stop the path started at.
	origin StopIndex
}

// queryState holds all per-query scratch buffers of a search core.
type queryState struct {
	arena []pathElement

	pathAtRouteStop []int32
	costAtRouteStop []float64
	pathAtStop      []int32
	costAtStop      []float64
	egressCost      []float64 // per destination route stop

	improvedRouteStops *bitset.BitSet
	improvedStops      *bitset.BitSet
	destinations       *bitset.BitSet

	touchedRouteStops []RouteStopIndex
	touchedStops      []StopIndex

	bestArrivalCost float64
}

func newQueryState(nRouteStops, nStops int) *queryState {
	qs := &queryState{
		arena:              make([]pathElement, 0, 1024),
		pathAtRouteStop:    make([]int32, nRouteStops),
		costAtRouteStop:    make([]float64, nRouteStops),
		pathAtStop:         make([]int32, nStops),
		costAtStop:         make([]float64, nStops),
		egressCost:         make([]float64, nRouteStops),
		improvedRouteStops: bitset.New(uint(nRouteStops)),
		improvedStops:      bitset.New(uint(nStops)),
		destinations:       bitset.New(uint(nRouteStops)),
		touchedRouteStops:  make([]RouteStopIndex, 0, 1024),
		touchedStops:       make([]StopIndex, 0, 256),
		bestArrivalCost:    math.Inf(1),
	}
	for i := range qs.pathAtRouteStop {
		qs.pathAtRouteStop[i] = noPath
		qs.costAtRouteStop[i] = math.Inf(1)
		qs.egressCost[i] = math.Inf(1)
	}
	for i := range qs.pathAtStop {
		qs.pathAtStop[i] = noPath
		qs.costAtStop[i] = math.Inf(1)
	}
	return qs
}

// reset clears only the touched entries for fast reuse.
func (qs *queryState) reset() {
	for _, rs := range qs.touchedRouteStops {
		qs.pathAtRouteStop[rs] = noPath
		qs.costAtRouteStop[rs] = math.Inf(1)
	}
	for _, s := range qs.touchedStops {
		qs.pathAtStop[s] = noPath
		qs.costAtStop[s] = math.Inf(1)
	}
	for i, ok := qs.destinations.NextSet(0); ok; i, ok = qs.destinations.NextSet(i + 1) {
		qs.egressCost[i] = math.Inf(1)
	}
	qs.touchedRouteStops = qs.touchedRouteStops[:0]
	qs.touchedStops = qs.touchedStops[:0]
	qs.arena = qs.arena[:0]
	qs.improvedRouteStops.ClearAll()
	qs.improvedStops.ClearAll()
	qs.destinations.ClearAll()
	qs.bestArrivalCost = math.Inf(1)
}

func (qs *queryState) add(pe pathElement) int32 {
	qs.arena = append(qs.arena, pe)
	return int32(len(qs.arena) - 1)
}

func (qs *queryState) setRouteStop(rs RouteStopIndex, pe int32, cost float64) {
	if qs.pathAtRouteStop[rs] == noPath {
		qs.touchedRouteStops = append(qs.touchedRouteStops, rs)
	}
	qs.pathAtRouteStop[rs] = pe
	qs.costAtRouteStop[rs] = cost
}

func (qs *queryState) setStop(s StopIndex, pe int32, cost float64) {
	if qs.pathAtStop[s] == noPath {
		qs.touchedStops = append(qs.touchedStops, s)
	}
	qs.pathAtStop[s] = pe
	qs.costAtStop[s] = cost
}
