package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/paulmach/orb"

	"transit_router/pkg/geo"
	"transit_router/pkg/raptor"
	"transit_router/pkg/schedule"
)

var (
	// ErrNoRoute is returned when neither a scheduled route nor a direct walk
	// connects the two locations.
	ErrNoRoute = errors.New("no route found")
	// ErrNoStops is returned when the network has no stops to access.
	ErrNoStops = errors.New("network has no stops")
)

// Location is an origin or destination of a trip. Coord is planar, in the
// metre coordinates of the compiled data.
type Location struct {
	Coord  orb.Point
	LinkID string
}

// Traveler identifies who is travelling. Class selects class-specific
// parameters, Attributes feed the intermodal person filters.
type Traveler struct {
	ID         string
	Class      string
	Attributes map[string]string
}

// Attr returns the attribute value and whether it is set.
func (t Traveler) Attr(key string) (string, bool) {
	v, ok := t.Attributes[key]
	return v, ok
}

// Router is the interface for transit queries.
type Router interface {
	Route(ctx context.Context, from, to Location, depTime float64, traveler Traveler) (*raptor.Itinerary, error)
	Routes(ctx context.Context, from, to Location, depTime float64, traveler Traveler) ([]*raptor.Itinerary, error)
	Tree(ctx context.Context, stops []schedule.StopID, depTime float64, traveler Traveler) (map[schedule.StopID]raptor.TravelInfo, error)
}

// Config holds the optional features of an Engine. The zero value routes
// everyone with raptor.DefaultParameters, walks to nearby stops and picks the
// single least-cost route.
type Config struct {
	Parameters ParametersProvider

	// UseRangeQuery makes Route search a departure window and pick one of the
	// candidates with the traveler's selector.
	UseRangeQuery   bool
	Range           RangeSettings
	RangeByClass    map[string]RangeSettings
	Selector        RouteSelector
	SelectorByClass map[string]RouteSelector

	// UseIntermodalAccessEgress replaces the plain walk search for access and
	// egress stops by the parameter sets below.
	UseIntermodalAccessEgress bool
	Intermodal                []IntermodalParameterSet
	Providers                 map[string]AccessEgressProvider

	// MaxDirectWalkDistance limits the direct walk fallback. Zero means no limit.
	MaxDirectWalkDistance float64

	Logger *slog.Logger
}

// Engine implements Router on compiled raptor data. It is safe for concurrent
// use: every query borrows its own search core from a pool.
type Engine struct {
	data  *raptor.Data
	cfg   Config
	cores sync.Pool
}

// NewEngine creates a routing engine over data.
func NewEngine(data *raptor.Data, cfg Config) (*Engine, error) {
	if len(data.Stops) == 0 {
		return nil, ErrNoStops
	}
	if cfg.Parameters == nil {
		cfg.Parameters = ClassParameters{Default: raptor.DefaultParameters()}
	}
	if cfg.Selector == nil {
		cfg.Selector = LeastCostSelector{}
	}
	if cfg.Range == (RangeSettings{}) {
		cfg.Range = DefaultRangeSettings()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UseIntermodalAccessEgress {
		for i, set := range cfg.Intermodal {
			if err := set.validate(cfg.Providers); err != nil {
				return nil, fmt.Errorf("intermodal parameter set %d: %w", i, err)
			}
		}
	}
	e := &Engine{data: data, cfg: cfg}
	if sets, ok := cfg.Parameters.(interface{ All() []*raptor.Parameters }); ok {
		for _, p := range sets.All() {
			if err := e.check(p); err != nil {
				return nil, err
			}
		}
	}
	e.cores.New = func() any { return raptor.NewSearchCore(data) }

	classes := 0
	if cp, ok := cfg.Parameters.(ClassParameters); ok {
		classes = len(cp.ByClass)
	}
	cfg.Logger.Info("router initialized",
		"stops", len(data.Stops),
		"range_query", cfg.UseRangeQuery,
		"intermodal_access_egress", cfg.UseIntermodalAccessEgress,
		"intermodal_sets", len(cfg.Intermodal),
		"parameter_classes", classes,
	)
	return e, nil
}

// Data returns the compiled data the engine searches.
func (e *Engine) Data() *raptor.Data {
	return e.data
}

// Route returns the best itinerary from one location to another when
// departing at depTime. A direct walk is returned when it is cheaper than
// every scheduled route.
func (e *Engine) Route(ctx context.Context, from, to Location, depTime float64, traveler Traveler) (*raptor.Itinerary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := e.parameters(traveler)
	if err != nil {
		return nil, err
	}
	access, err := e.accessStops(from, depTime, traveler, params)
	if err != nil {
		return nil, err
	}
	egress, err := e.egressStops(to, depTime, traveler, params)
	if err != nil {
		return nil, err
	}

	core := e.cores.Get().(*raptor.SearchCore)
	defer e.cores.Put(core)

	var found *raptor.Itinerary
	if e.cfg.UseRangeQuery {
		rs := e.rangeSettings(traveler)
		candidates, err := core.FindAllRoutes(depTime-rs.MaxEarlierDeparture, depTime, depTime+rs.MaxLaterDeparture, access, egress, params)
		if err != nil {
			return nil, err
		}
		found = e.selector(traveler).SelectOne(candidates, depTime)
	} else {
		found, err = core.FindBestRoute(depTime, access, egress, params)
		if err != nil {
			return nil, err
		}
	}

	direct, err := e.directWalk(from, to, depTime, params)
	if err != nil {
		return nil, err
	}
	if direct != nil && (found == nil || direct.TotalCost < found.TotalCost) {
		found = direct
	}
	if found == nil {
		return nil, ErrNoRoute
	}
	fillBoundaryLinks(found, from, to)
	return found, nil
}

// Routes returns every Pareto-useful itinerary departing within the
// traveler's window around depTime, closest to depTime first. The direct walk
// is appended when nothing was found or when it beats the first candidate.
func (e *Engine) Routes(ctx context.Context, from, to Location, depTime float64, traveler Traveler) ([]*raptor.Itinerary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := e.parameters(traveler)
	if err != nil {
		return nil, err
	}
	access, err := e.accessStops(from, depTime, traveler, params)
	if err != nil {
		return nil, err
	}
	egress, err := e.egressStops(to, depTime, traveler, params)
	if err != nil {
		return nil, err
	}

	core := e.cores.Get().(*raptor.SearchCore)
	defer e.cores.Put(core)

	rs := e.rangeSettings(traveler)
	found, err := core.FindAllRoutes(depTime-rs.MaxEarlierDeparture, depTime, depTime+rs.MaxLaterDeparture, access, egress, params)
	if err != nil {
		return nil, err
	}
	direct, err := e.directWalk(from, to, depTime, params)
	if err != nil {
		return nil, err
	}
	if direct != nil && (len(found) == 0 || direct.TotalCost < found[0].TotalCost) {
		found = append(found, direct)
	}
	if len(found) == 0 {
		return nil, ErrNoRoute
	}
	for _, it := range found {
		fillBoundaryLinks(it, from, to)
	}
	return found, nil
}

// Tree returns the least-cost arrival at every stop reachable from the given
// stops, which are entered at depTime without any access cost.
func (e *Engine) Tree(ctx context.Context, stops []schedule.StopID, depTime float64, traveler Traveler) (map[schedule.StopID]raptor.TravelInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := e.parameters(traveler)
	if err != nil {
		return nil, err
	}
	access := make([]raptor.InitialStop, 0, len(stops))
	for _, id := range stops {
		s := e.data.StopByID(id)
		if s == nil {
			return nil, fmt.Errorf("%w: %s", raptor.ErrUnknownStop, id)
		}
		access = append(access, raptor.InitialStop{Stop: s, Mode: raptor.ModeWalk})
	}

	core := e.cores.Get().(*raptor.SearchCore)
	defer e.cores.Put(core)
	return core.FindTree(depTime, access, params)
}

func (e *Engine) parameters(traveler Traveler) (*raptor.Parameters, error) {
	params := e.cfg.Parameters.ParametersFor(traveler)
	if err := e.check(params); err != nil {
		return nil, err
	}
	return params, nil
}

// check makes sure params carry a utility for every mode a query may price.
func (e *Engine) check(params *raptor.Parameters) error {
	modes := []string{raptor.ModeWalk, raptor.ModeAccessWalk, raptor.ModeEgressWalk}
	if e.cfg.UseIntermodalAccessEgress {
		for _, set := range e.cfg.Intermodal {
			modes = append(modes, set.Mode)
		}
	}
	return params.Check(e.data, modes...)
}

func (e *Engine) rangeSettings(traveler Traveler) RangeSettings {
	if rs, ok := e.cfg.RangeByClass[traveler.Class]; ok {
		return rs
	}
	return e.cfg.Range
}

func (e *Engine) selector(traveler Traveler) RouteSelector {
	if s, ok := e.cfg.SelectorByClass[traveler.Class]; ok {
		return s
	}
	return e.cfg.Selector
}

// directWalk is the non-scheduled trip straight from origin to destination,
// or nil when it exceeds MaxDirectWalkDistance.
func (e *Engine) directWalk(from, to Location, depTime float64, params *raptor.Parameters) (*raptor.Itinerary, error) {
	dist := geo.Distance(from.Coord, to.Coord)
	if e.cfg.MaxDirectWalkDistance > 0 && dist > e.cfg.MaxDirectWalkDistance {
		return nil, nil
	}
	util, err := params.MarginalUtilityOfTravelTime(raptor.ModeWalk)
	if err != nil {
		return nil, err
	}
	walkTime := dist / params.BeelineWalkSpeed
	return &raptor.Itinerary{
		DepartureTime: depTime,
		ArrivalTime:   depTime + walkTime,
		TotalCost:     walkTime * -util,
		Parts: []raptor.Part{{
			Mode:          raptor.ModeTransitWalk,
			DepartureTime: depTime,
			TravelTime:    walkTime,
			Distance:      dist,
			StartLink:     from.LinkID,
			EndLink:       to.LinkID,
		}},
	}, nil
}

// fillBoundaryLinks sets the origin and destination links on parts touching
// the trip boundary that do not name one yet.
func fillBoundaryLinks(it *raptor.Itinerary, from, to Location) {
	for i := range it.Parts {
		p := &it.Parts[i]
		if p.FromStop == nil && p.StartLink == "" {
			p.StartLink = from.LinkID
		}
		if p.ToStop == nil && p.EndLink == "" {
			p.EndLink = to.LinkID
		}
	}
}

// travelTime sums the defined travel times of parts.
func travelTime(parts []raptor.Part) float64 {
	var sum float64
	for _, p := range parts {
		if p.TravelTime != schedule.UndefinedTime && !math.IsNaN(p.TravelTime) {
			sum += p.TravelTime
		}
	}
	return sum
}
