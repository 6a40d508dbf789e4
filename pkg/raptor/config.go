package raptor

// Optimization selects which query type the compiled transfer graph is tuned for.
type Optimization int

const (
	// OptimizeLeastCostRouting prunes transfers that can never improve a
	// one-to-one least-cost route.
	OptimizeLeastCostRouting Optimization = iota
	// OptimizeOneToAllRouting keeps every walkable transfer so that tree
	// queries also report stops that are only reachable on foot.
	OptimizeOneToAllRouting
)

func (o Optimization) String() string {
	switch o {
	case OptimizeOneToAllRouting:
		return "one_to_all"
	default:
		return "least_cost"
	}
}

// StaticConfig is only read while compiling. Changing it afterwards has no
// effect on an existing Data.
type StaticConfig struct {
	// BeelineWalkConnectionDistance is the radius in metres within which
	// stops are connected by walking transfers.
	BeelineWalkConnectionDistance float64
	// BeelineWalkSpeed in metres per second, already divided by the beeline
	// distance factor.
	BeelineWalkSpeed float64
	// MarginalUtilityOfTravelTimeWalk is in utils per second; negative values
	// make walking costly.
	MarginalUtilityOfTravelTimeWalk float64
	MinimalTransferTime             float64
	TransferPenaltyCost             float64
	Optimization                    Optimization

	UseModeMappingForPassengers bool
	PassengerModes              map[string]string // route mode -> passenger mode
}

// DefaultStaticConfig returns the defaults: 200 m transfer radius, 60 s minimal
// transfer time, no transfer penalty, 3 km/h walking with a 1.3 beeline factor.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		BeelineWalkConnectionDistance:   200,
		BeelineWalkSpeed:                (3.0 / 3.6) / 1.3,
		MarginalUtilityOfTravelTimeWalk: -18.0 / 3600,
		MinimalTransferTime:             60,
		TransferPenaltyCost:             0,
		Optimization:                    OptimizeLeastCostRouting,
	}
}

// PassengerMode returns the mode travellers are recorded with when riding a
// route of the given transport mode.
func (c StaticConfig) PassengerMode(routeMode string) string {
	if c.UseModeMappingForPassengers {
		if m, ok := c.PassengerModes[routeMode]; ok {
			return m
		}
	}
	return ModePT
}
