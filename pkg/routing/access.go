package routing

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"transit_router/pkg/geo"
	"transit_router/pkg/raptor"
	"transit_router/pkg/schedule"
)

// AccessEgressProvider computes the non-scheduled trip between a location and
// a stop for one intermodal mode.
type AccessEgressProvider interface {
	// Route returns the parts of the trip from one location to the other,
	// departing at depTime. The parts carry their own mode.
	Route(from, to Location, depTime float64, traveler Traveler) ([]raptor.Part, error)
}

// TeleportationProvider moves along the beeline at constant speed.
type TeleportationProvider struct {
	Mode                  string
	Speed                 float64 // m/s
	BeelineDistanceFactor float64
}

// Route implements AccessEgressProvider.
func (p TeleportationProvider) Route(from, to Location, depTime float64, _ Traveler) ([]raptor.Part, error) {
	if p.Speed <= 0 {
		return nil, fmt.Errorf("teleportation %s: speed must be positive", p.Mode)
	}
	factor := p.BeelineDistanceFactor
	if factor == 0 {
		factor = 1
	}
	dist := geo.Distance(from.Coord, to.Coord) * factor
	return []raptor.Part{{
		Mode:          p.Mode,
		DepartureTime: depTime,
		TravelTime:    dist / p.Speed,
		Distance:      dist,
		StartLink:     from.LinkID,
		EndLink:       to.LinkID,
	}}, nil
}

// IntermodalParameterSet describes one way of reaching or leaving stops.
type IntermodalParameterSet struct {
	Mode   string
	Radius float64

	// Classes restricts the set to travelers of these classes. Empty means all.
	Classes []string

	PersonFilterAttribute string
	PersonFilterValue     string
	StopFilterAttribute   string
	StopFilterValue       string

	// LinkIDAttribute names a stop attribute holding the location where the
	// mode drops off or picks up, when that differs from the stop's link.
	LinkIDAttribute string
}

var errNoProvider = errors.New("no provider for mode")

func (s IntermodalParameterSet) validate(providers map[string]AccessEgressProvider) error {
	if s.Mode == "" {
		return errors.New("mode is required")
	}
	if s.Radius <= 0 {
		return fmt.Errorf("mode %s: radius must be positive", s.Mode)
	}
	if _, ok := providers[s.Mode]; !ok && !isWalk(s.Mode) {
		return fmt.Errorf("%w %s", errNoProvider, s.Mode)
	}
	return nil
}

func (s IntermodalParameterSet) appliesTo(t Traveler) bool {
	if len(s.Classes) > 0 && !slices.Contains(s.Classes, t.Class) {
		return false
	}
	if s.PersonFilterAttribute != "" {
		v, ok := t.Attr(s.PersonFilterAttribute)
		if !ok || v != s.PersonFilterValue {
			return false
		}
	}
	return true
}

func (s IntermodalParameterSet) servesStop(stop *schedule.Stop) bool {
	if s.StopFilterAttribute == "" {
		return true
	}
	v, ok := stop.Attr(s.StopFilterAttribute)
	return ok && v == s.StopFilterValue
}

func isWalk(mode string) bool {
	return mode == raptor.ModeWalk || mode == raptor.ModeTransitWalk
}

type direction int

const (
	directionAccess direction = iota
	directionEgress
)

func (e *Engine) accessStops(from Location, depTime float64, traveler Traveler, params *raptor.Parameters) ([]raptor.InitialStop, error) {
	if e.cfg.UseIntermodalAccessEgress {
		return e.intermodalStops(from, depTime, traveler, params, directionAccess)
	}
	return e.walkStops(from, params, raptor.ModeAccessWalk)
}

func (e *Engine) egressStops(to Location, depTime float64, traveler Traveler, params *raptor.Parameters) ([]raptor.InitialStop, error) {
	if e.cfg.UseIntermodalAccessEgress {
		return e.intermodalStops(to, depTime, traveler, params, directionEgress)
	}
	return e.walkStops(to, params, raptor.ModeEgressWalk)
}

// walkStops turns the stops near loc into initial stops reached on foot.
func (e *Engine) walkStops(loc Location, params *raptor.Parameters, mode string) ([]raptor.InitialStop, error) {
	util, err := params.MarginalUtilityOfTravelTime(mode)
	if err != nil {
		return nil, err
	}
	stops := e.nearbyStops(loc, params)
	out := make([]raptor.InitialStop, 0, len(stops))
	for _, si := range stops {
		stop := e.data.Stops[si]
		dist := geo.Distance(loc.Coord, stop.Coord)
		t := math.Ceil(dist / params.BeelineWalkSpeed)
		out = append(out, raptor.InitialStop{
			Stop:     stop,
			Cost:     t * -util,
			Time:     t,
			Distance: dist,
			Mode:     mode,
		})
	}
	return out, nil
}

// nearbyStops returns the stops within the search radius. With fewer than two,
// it widens the disk to the nearest stop plus the extension radius.
func (e *Engine) nearbyStops(loc Location, params *raptor.Parameters) []raptor.StopIndex {
	idx := e.data.Spatial()
	stops := idx.Disk(loc.Coord, params.SearchRadius)
	if len(stops) >= 2 {
		return stops
	}
	_, dist, ok := idx.Nearest(loc.Coord)
	if !ok {
		return nil
	}
	return idx.Disk(loc.Coord, dist+params.ExtensionRadius)
}

// intermodalStops runs every applicable parameter set for the stops within
// its radius. The same stop may appear once per set.
func (e *Engine) intermodalStops(loc Location, depTime float64, traveler Traveler, params *raptor.Parameters, dir direction) ([]raptor.InitialStop, error) {
	var out []raptor.InitialStop
	for _, set := range e.cfg.Intermodal {
		if !set.appliesTo(traveler) {
			continue
		}
		util, err := params.MarginalUtilityOfTravelTime(set.Mode)
		if err != nil {
			return nil, err
		}
		provider := e.provider(set.Mode, params)

		relabel := ""
		if isWalk(set.Mode) {
			relabel = raptor.ModeAccessWalk
			if dir == directionEgress {
				relabel = raptor.ModeEgressWalk
			}
		}

		for _, si := range e.data.Spatial().Disk(loc.Coord, set.Radius) {
			stop := e.data.Stops[si]
			if !set.servesStop(stop) {
				continue
			}
			stopLoc := Location{Coord: stop.Coord, LinkID: stop.LinkID}
			overridden := false
			if set.LinkIDAttribute != "" {
				if link, ok := stop.Attr(set.LinkIDAttribute); ok {
					stopLoc.LinkID = link
					overridden = true
				}
			}

			var parts []raptor.Part
			if dir == directionAccess {
				parts, err = provider.Route(loc, stopLoc, depTime, traveler)
			} else {
				// The egress departure is not known yet, so the parts are
				// computed for depTime and then stripped of it.
				parts, err = provider.Route(stopLoc, loc, depTime, traveler)
			}
			if err != nil {
				return nil, fmt.Errorf("%s %s stop %s: %w", set.Mode, dir, stop.ID, err)
			}
			parts = slices.Clone(parts)
			for i := range parts {
				if relabel != "" {
					parts[i].Mode = relabel
				}
				if dir == directionEgress {
					parts[i].DepartureTime = schedule.UndefinedTime
				}
			}
			parts = attachToStop(parts, stop, stopLoc.LinkID, overridden, dir)

			t := travelTime(parts)
			mode := set.Mode
			if relabel != "" {
				mode = relabel
			}
			out = append(out, raptor.InitialStop{
				Stop:     stop,
				Cost:     t * -util,
				Time:     t,
				Distance: distance(parts),
				Mode:     mode,
				Parts:    parts,
			})
		}
	}
	return out, nil
}

func (e *Engine) provider(mode string, params *raptor.Parameters) AccessEgressProvider {
	if p, ok := e.cfg.Providers[mode]; ok {
		return p
	}
	return TeleportationProvider{Mode: mode, Speed: params.BeelineWalkSpeed, BeelineDistanceFactor: 1}
}

// attachToStop marks the stop end of the segment and, when the mode uses a
// different link than the stop, adds the zero-time walk between the two.
func attachToStop(parts []raptor.Part, stop *schedule.Stop, link string, overridden bool, dir direction) []raptor.Part {
	if dir == directionAccess {
		if n := len(parts); n > 0 {
			parts[n-1].ToStop = stop
		}
		if overridden {
			parts = append(parts, raptor.Part{
				FromStop:  stop,
				ToStop:    stop,
				Mode:      raptor.ModeTransitWalk,
				StartLink: link,
				EndLink:   stop.LinkID,
			})
		}
		return parts
	}

	if len(parts) > 0 {
		parts[0].FromStop = stop
	}
	if overridden {
		parts = slices.Insert(parts, 0, raptor.Part{
			FromStop:      stop,
			ToStop:        stop,
			Mode:          raptor.ModeTransitWalk,
			DepartureTime: schedule.UndefinedTime,
			StartLink:     stop.LinkID,
			EndLink:       link,
		})
	}
	return parts
}

func distance(parts []raptor.Part) float64 {
	var sum float64
	for _, p := range parts {
		sum += p.Distance
	}
	return sum
}

func (d direction) String() string {
	if d == directionEgress {
		return "egress"
	}
	return "access"
}
