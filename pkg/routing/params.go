package routing

import "transit_router/pkg/raptor"

// ParametersProvider resolves the search parameters of a traveler. The
// returned value is shared and must not be modified.
type ParametersProvider interface {
	ParametersFor(traveler Traveler) *raptor.Parameters
}

// ClassParameters picks parameters by traveler class, falling back to Default.
type ClassParameters struct {
	Default *raptor.Parameters
	ByClass map[string]*raptor.Parameters
}

// ParametersFor implements ParametersProvider.
func (c ClassParameters) ParametersFor(traveler Traveler) *raptor.Parameters {
	if p, ok := c.ByClass[traveler.Class]; ok {
		return p
	}
	if c.Default == nil {
		return raptor.DefaultParameters()
	}
	return c.Default
}

// All returns every parameter set, the default first.
func (c ClassParameters) All() []*raptor.Parameters {
	var out []*raptor.Parameters
	if c.Default != nil {
		out = append(out, c.Default)
	}
	for _, p := range c.ByClass {
		out = append(out, p)
	}
	return out
}

// RangeSettings bound the departure window of range queries, in seconds
// before and after the desired departure.
type RangeSettings struct {
	MaxEarlierDeparture float64
	MaxLaterDeparture   float64
}

// DefaultRangeSettings allows leaving up to 10 minutes earlier and 15 minutes
// later than desired.
func DefaultRangeSettings() RangeSettings {
	return RangeSettings{MaxEarlierDeparture: 600, MaxLaterDeparture: 900}
}
