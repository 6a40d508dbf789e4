package routing

import (
	"math"

	"transit_router/pkg/raptor"
)

// RouteSelector picks one itinerary out of the candidates of a range query.
// It returns nil for an empty candidate list.
type RouteSelector interface {
	SelectOne(candidates []*raptor.Itinerary, desiredDepartureTime float64) *raptor.Itinerary
}

// LeastCostSelector picks the candidate with the lowest total cost. Ties go to
// the earlier candidate.
type LeastCostSelector struct{}

// SelectOne implements RouteSelector.
func (LeastCostSelector) SelectOne(candidates []*raptor.Itinerary, _ float64) *raptor.Itinerary {
	var best *raptor.Itinerary
	for _, c := range candidates {
		if best == nil || c.TotalCost < best.TotalCost {
			best = c
		}
	}
	return best
}

// ConfigurableSelector scores candidates by a weighted sum of travel time,
// distance from the desired departure and the number of transfers, and picks
// the lowest score.
type ConfigurableSelector struct {
	BetaTravelTime    float64
	BetaDepartureTime float64
	BetaTransferCount float64
}

// DefaultConfigurableSelector weighs one transfer like 300 seconds.
func DefaultConfigurableSelector() ConfigurableSelector {
	return ConfigurableSelector{BetaTravelTime: 1, BetaDepartureTime: 1, BetaTransferCount: 300}
}

// SelectOne implements RouteSelector.
func (s ConfigurableSelector) SelectOne(candidates []*raptor.Itinerary, desiredDepartureTime float64) *raptor.Itinerary {
	var best *raptor.Itinerary
	bestScore := math.Inf(1)
	for _, c := range candidates {
		if score := s.score(c, desiredDepartureTime); score < bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func (s ConfigurableSelector) score(it *raptor.Itinerary, desired float64) float64 {
	return s.BetaTravelTime*it.TravelTime() +
		s.BetaDepartureTime*math.Abs(it.DepartureTime-desired) +
		s.BetaTransferCount*float64(it.TransferCount())
}
