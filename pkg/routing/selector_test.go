package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"transit_router/pkg/raptor"
	"transit_router/pkg/schedule"
)

func itinerary(dep, arr, cost float64, rides int) *raptor.Itinerary {
	it := &raptor.Itinerary{DepartureTime: dep, ArrivalTime: arr, TotalCost: cost}
	for range rides {
		it.Parts = append(it.Parts, raptor.Part{Mode: raptor.ModePT, Line: &schedule.Line{ID: "L"}})
	}
	return it
}

func TestLeastCostSelector(t *testing.T) {
	a := itinerary(100, 900, 5, 1)
	b := itinerary(200, 800, 3, 2)
	c := itinerary(300, 700, 3, 1)

	assert.Same(t, b, LeastCostSelector{}.SelectOne([]*raptor.Itinerary{a, b, c}, 0))
	assert.Nil(t, LeastCostSelector{}.SelectOne(nil, 0))
}

func TestConfigurableSelector(t *testing.T) {
	// With the default weights these score 2400, 2700 and 2100.
	early := itinerary(hms(7, 0, 0), hms(7, 30, 0), 10, 1)
	onTime := itinerary(hms(7, 10, 0), hms(7, 50, 0), 10, 2)
	late := itinerary(hms(7, 25, 0), hms(7, 45, 0), 10, 1)
	candidates := []*raptor.Itinerary{early, onTime, late}
	desired := hms(7, 10, 0)

	tests := []struct {
		name     string
		selector ConfigurableSelector
		want     *raptor.Itinerary
	}{
		{name: "defaults", selector: DefaultConfigurableSelector(), want: late},
		{name: "departure time dominates", selector: ConfigurableSelector{BetaTravelTime: 1, BetaDepartureTime: 10, BetaTransferCount: 300}, want: onTime},
		{name: "transfers are expensive", selector: ConfigurableSelector{BetaTravelTime: 0, BetaDepartureTime: 1, BetaTransferCount: 10000}, want: early},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, tt.selector.SelectOne(candidates, desired))
		})
	}
	assert.Nil(t, DefaultConfigurableSelector().SelectOne(nil, desired))
}
