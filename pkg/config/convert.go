package config

import (
	"log/slog"
	"maps"

	"transit_router/pkg/raptor"
	"transit_router/pkg/routing"
)

const secondsPerHour = 3600

// Static returns the compile-time configuration.
func (c RaptorConfig) Static() raptor.StaticConfig {
	opt := raptor.OptimizeLeastCostRouting
	if c.Optimization == "one_to_all" {
		opt = raptor.OptimizeOneToAllRouting
	}
	return raptor.StaticConfig{
		BeelineWalkConnectionDistance:   c.BeelineWalkConnectionDistance,
		BeelineWalkSpeed:                c.BeelineWalkSpeed,
		MarginalUtilityOfTravelTimeWalk: c.WalkUtilityPerHour / secondsPerHour,
		MinimalTransferTime:             c.MinimalTransferTime,
		TransferPenaltyCost:             c.TransferPenalty,
		Optimization:                    opt,
		UseModeMappingForPassengers:     c.UseModeMapping,
		PassengerModes:                  maps.Clone(c.PassengerModes),
	}
}

// Build returns search parameters. Zero fields of p are taken from base, and
// mode utilities are merged over base's.
func (p ParametersConfig) Build(base ParametersConfig) *raptor.Parameters {
	merged := base.overlay(p)
	out := &raptor.Parameters{
		SearchRadius:                  merged.SearchRadius,
		ExtensionRadius:               merged.ExtensionRadius,
		BeelineWalkSpeed:              merged.BeelineWalkSpeed,
		MarginalUtilityOfWaitingPt:    merged.WaitingUtilityPerHour / secondsPerHour,
		MaxTransfers:                  merged.MaxTransfers,
		MaxTransfersAfterFirstArrival: merged.MaxTransfersAfterFirstArrival,
	}
	for mode, u := range merged.ModeUtilitiesPerHour {
		out.SetMarginalUtilityOfTravelTime(mode, u/secondsPerHour)
	}
	return out
}

func (p ParametersConfig) overlay(o ParametersConfig) ParametersConfig {
	out := p
	if o.SearchRadius != 0 {
		out.SearchRadius = o.SearchRadius
	}
	if o.ExtensionRadius != 0 {
		out.ExtensionRadius = o.ExtensionRadius
	}
	if o.BeelineWalkSpeed != 0 {
		out.BeelineWalkSpeed = o.BeelineWalkSpeed
	}
	if o.WaitingUtilityPerHour != 0 {
		out.WaitingUtilityPerHour = o.WaitingUtilityPerHour
	}
	if o.MaxTransfers != 0 {
		out.MaxTransfers = o.MaxTransfers
	}
	if o.MaxTransfersAfterFirstArrival != 0 {
		out.MaxTransfersAfterFirstArrival = o.MaxTransfersAfterFirstArrival
	}
	out.ModeUtilitiesPerHour = maps.Clone(p.ModeUtilitiesPerHour)
	if out.ModeUtilitiesPerHour == nil {
		out.ModeUtilitiesPerHour = make(map[string]float64, len(o.ModeUtilitiesPerHour))
	}
	maps.Copy(out.ModeUtilitiesPerHour, o.ModeUtilitiesPerHour)
	return out
}

// ClassParameters returns the default parameters and one set per class.
func (c *AppConfig) ClassParameters() routing.ClassParameters {
	cp := routing.ClassParameters{
		Default: c.Parameters.Build(ParametersConfig{}),
		ByClass: make(map[string]*raptor.Parameters, len(c.Classes)),
	}
	for name, pc := range c.Classes {
		cp.ByClass[name] = pc.Build(c.Parameters)
	}
	return cp
}

func (s SelectorConfig) selector() routing.RouteSelector {
	if s.Kind == "configurable" {
		return routing.ConfigurableSelector{
			BetaTravelTime:    s.BetaTravelTime,
			BetaDepartureTime: s.BetaDepartureTime,
			BetaTransferCount: s.BetaTransferCount,
		}
	}
	return routing.LeastCostSelector{}
}

func (r RangeConfig) settings() routing.RangeSettings {
	return routing.RangeSettings{
		MaxEarlierDeparture: r.MaxEarlierDeparture,
		MaxLaterDeparture:   r.MaxLaterDeparture,
	}
}

// Engine returns the routing engine configuration.
func (c *AppConfig) Engine(logger *slog.Logger) routing.Config {
	cfg := routing.Config{
		Parameters:            c.ClassParameters(),
		UseRangeQuery:         c.RangeQuery.Enabled,
		Range:                 c.RangeQuery.settings(),
		Selector:              c.RouteSelector.selector(),
		MaxDirectWalkDistance: c.Intermodal.MaxDirectWalkDistance,
		Logger:                logger,
	}
	if len(c.RangeQuery.Classes) > 0 {
		cfg.RangeByClass = make(map[string]routing.RangeSettings, len(c.RangeQuery.Classes))
		for name, rc := range c.RangeQuery.Classes {
			cfg.RangeByClass[name] = rc.settings()
		}
	}
	if len(c.RouteSelector.Classes) > 0 {
		cfg.SelectorByClass = make(map[string]routing.RouteSelector, len(c.RouteSelector.Classes))
		for name, sc := range c.RouteSelector.Classes {
			cfg.SelectorByClass[name] = sc.selector()
		}
	}

	if !c.Intermodal.Enabled {
		return cfg
	}
	cfg.UseIntermodalAccessEgress = true
	for _, s := range c.Intermodal.Sets {
		cfg.Intermodal = append(cfg.Intermodal, routing.IntermodalParameterSet{
			Mode:                  s.Mode,
			Radius:                s.Radius,
			Classes:               s.Classes,
			PersonFilterAttribute: s.PersonFilterAttribute,
			PersonFilterValue:     s.PersonFilterValue,
			StopFilterAttribute:   s.StopFilterAttribute,
			StopFilterValue:       s.StopFilterValue,
			LinkIDAttribute:       s.LinkIDAttribute,
		})
	}
	cfg.Providers = make(map[string]routing.AccessEgressProvider, len(c.Intermodal.Teleported))
	for mode, t := range c.Intermodal.Teleported {
		cfg.Providers[mode] = routing.TeleportationProvider{
			Mode:                  mode,
			Speed:                 t.Speed,
			BeelineDistanceFactor: t.BeelineDistanceFactor,
		}
	}
	return cfg
}
