package raptor

import (
	"errors"
	"fmt"
	"maps"
)

// Mode names used on itinerary parts.
const (
	ModePT          = "pt"
	ModeWalk        = "walk"
	ModeAccessWalk  = "access_walk"
	ModeEgressWalk  = "egress_walk"
	ModeTransitWalk = "transit_walk"
)

// Round limits of the search. The second one allows cheaper alternatives with
// more transfers to surface after the first destination has been reached.
const (
	DefaultMaxTransfers                  = 20
	DefaultMaxTransfersAfterFirstArrival = 2
)

// ErrMissingModeUtility is returned when no marginal utility of travel time is
// configured for a mode that a query needs.
var ErrMissingModeUtility = errors.New("marginal utility of travel time missing")

// Parameters are the per-traveler query settings.
type Parameters struct {
	// SearchRadius is the radius in metres around origin and destination in
	// which access and egress stops are looked for.
	SearchRadius float64
	// ExtensionRadius is added to the distance of the nearest stop when fewer
	// than two stops lie within SearchRadius.
	ExtensionRadius  float64
	BeelineWalkSpeed float64

	MarginalUtilityOfWaitingPt float64

	MaxTransfers                  int
	MaxTransfersAfterFirstArrival int

	marginalUtilities map[string]float64 // utils per second, by mode
}

// DefaultParameters returns parameters with the usual defaults and utilities
// for pt and the walk modes.
func DefaultParameters() *Parameters {
	p := &Parameters{
		SearchRadius:                  1000,
		ExtensionRadius:               200,
		BeelineWalkSpeed:              (3.0 / 3.6) / 1.3,
		MarginalUtilityOfWaitingPt:    -6.0 / 3600,
		MaxTransfers:                  DefaultMaxTransfers,
		MaxTransfersAfterFirstArrival: DefaultMaxTransfersAfterFirstArrival,
		marginalUtilities:             make(map[string]float64),
	}
	p.SetMarginalUtilityOfTravelTime(ModePT, -12.0/3600)
	for _, m := range []string{ModeWalk, ModeAccessWalk, ModeEgressWalk, ModeTransitWalk} {
		p.SetMarginalUtilityOfTravelTime(m, -18.0/3600)
	}
	return p
}

// MarginalUtilityOfTravelTime returns the utility per second for mode.
func (p *Parameters) MarginalUtilityOfTravelTime(mode string) (float64, error) {
	u, ok := p.marginalUtilities[mode]
	if !ok {
		return 0, fmt.Errorf("%w: mode %q", ErrMissingModeUtility, mode)
	}
	return u, nil
}

// SetMarginalUtilityOfTravelTime sets the utility per second for mode.
func (p *Parameters) SetMarginalUtilityOfTravelTime(mode string, utilPerSecond float64) {
	if p.marginalUtilities == nil {
		p.marginalUtilities = make(map[string]float64)
	}
	p.marginalUtilities[mode] = utilPerSecond
}

// RemoveMarginalUtilityOfTravelTime drops the utility for mode.
func (p *Parameters) RemoveMarginalUtilityOfTravelTime(mode string) {
	delete(p.marginalUtilities, mode)
}

// Clone returns a deep copy.
func (p *Parameters) Clone() *Parameters {
	c := *p
	c.marginalUtilities = maps.Clone(p.marginalUtilities)
	if c.marginalUtilities == nil {
		c.marginalUtilities = make(map[string]float64)
	}
	return &c
}

// Check verifies that every passenger mode used by the compiled data has a
// marginal utility, plus any extra modes the caller needs.
func (p *Parameters) Check(data *Data, extraModes ...string) error {
	for _, m := range data.Modes {
		if _, err := p.MarginalUtilityOfTravelTime(m); err != nil {
			return err
		}
	}
	for _, m := range extraModes {
		if _, err := p.MarginalUtilityOfTravelTime(m); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameters) maxTransfers() int {
	if p.MaxTransfers < 0 {
		return 0
	}
	return p.MaxTransfers
}
