package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_router/pkg/raptor"
	"transit_router/pkg/routing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	static := cfg.Raptor.Static()
	def := raptor.DefaultStaticConfig()
	assert.Equal(t, def.BeelineWalkConnectionDistance, static.BeelineWalkConnectionDistance)
	assert.InDelta(t, def.BeelineWalkSpeed, static.BeelineWalkSpeed, 1e-12)
	assert.InDelta(t, def.MarginalUtilityOfTravelTimeWalk, static.MarginalUtilityOfTravelTimeWalk, 1e-12)
	assert.Equal(t, def.MinimalTransferTime, static.MinimalTransferTime)
	assert.Equal(t, raptor.OptimizeLeastCostRouting, static.Optimization)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50_000.0, cfg.Server.ServiceAreaMargin)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  request_timeout: 2s
  service_area_margin: -1
raptor:
  optimization: one_to_all
  minimal_transfer_time: 120
parameters:
  mode_utilities_per_hour:
    bike: -24
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, -1.0, cfg.Server.ServiceAreaMargin)
	assert.Equal(t, raptor.OptimizeOneToAllRouting, cfg.Raptor.Static().Optimization)
	assert.Equal(t, 120.0, cfg.Raptor.MinimalTransferTime)

	// Mode utilities are merged with the defaults.
	assert.Equal(t, -24.0, cfg.Parameters.ModeUtilitiesPerHour["bike"])
	assert.Equal(t, -12.0, cfg.Parameters.ModeUtilitiesPerHour["pt"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "server: [\n"},
		{"empty addr", "server:\n  addr: \"\"\n"},
		{"unknown optimization", "raptor:\n  optimization: fastest\n"},
		{"zero walk speed", "raptor:\n  beeline_walk_speed: 0\n"},
		{"positive walk utility", "raptor:\n  walk_utility_per_hour: 5\n"},
		{"unknown log level", "logging:\n  level: chatty\n"},
		{"unknown selector", "route_selector:\n  kind: random\n"},
		{"negative class radius", "classes:\n  child:\n    search_radius: -1\n"},
		{"set without radius", "intermodal:\n  sets:\n    - mode: walk\n"},
		{"person filter without value", "intermodal:\n  sets:\n    - mode: walk\n      radius: 100\n      person_filter_attribute: bike\n"},
		{"set without provider", "intermodal:\n  enabled: true\n  sets:\n    - mode: bike\n      radius: 3000\n"},
		{"teleported without speed", "intermodal:\n  teleported:\n    bike: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestClassParameters(t *testing.T) {
	cfg, err := Parse([]byte(`
parameters:
  search_radius: 800
classes:
  cyclist:
    search_radius: 3000
    mode_utilities_per_hour:
      pt: -6
      bike: -9
`))
	require.NoError(t, err)

	cp := cfg.ClassParameters()
	def := cp.ParametersFor(routing.Traveler{})
	assert.Equal(t, 800.0, def.SearchRadius)
	assert.Equal(t, 200.0, def.ExtensionRadius)
	assert.Equal(t, 20, def.MaxTransfers)
	u, err := def.MarginalUtilityOfTravelTime(raptor.ModePT)
	require.NoError(t, err)
	assert.InDelta(t, -12.0/3600, u, 1e-12)
	_, err = def.MarginalUtilityOfTravelTime("bike")
	assert.ErrorIs(t, err, raptor.ErrMissingModeUtility)

	cyc := cp.ParametersFor(routing.Traveler{Class: "cyclist"})
	assert.Equal(t, 3000.0, cyc.SearchRadius)
	assert.Equal(t, 200.0, cyc.ExtensionRadius)
	assert.InDelta(t, -6.0/3600, cyc.MarginalUtilityOfWaitingPt, 1e-12)
	u, err = cyc.MarginalUtilityOfTravelTime(raptor.ModePT)
	require.NoError(t, err)
	assert.InDelta(t, -6.0/3600, u, 1e-12)
	u, err = cyc.MarginalUtilityOfTravelTime(raptor.ModeWalk)
	require.NoError(t, err)
	assert.InDelta(t, -18.0/3600, u, 1e-12)
	u, err = cyc.MarginalUtilityOfTravelTime("bike")
	require.NoError(t, err)
	assert.InDelta(t, -9.0/3600, u, 1e-12)
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
parameters:
  mode_utilities_per_hour:
    bike: -9
range_query:
  enabled: true
  max_earlier_departure: 300
  classes:
    flexible:
      max_earlier_departure: 1800
      max_later_departure: 1800
route_selector:
  kind: configurable
  beta_transfer_count: 600
  classes:
    business:
      kind: least_cost
intermodal:
  enabled: true
  max_direct_walk_distance: 2000
  sets:
    - mode: walk
      radius: 1000
    - mode: bike
      radius: 3000
      person_filter_attribute: hasBike
      person_filter_value: "true"
      stop_filter_attribute: bikeParking
      stop_filter_value: "yes"
      link_id_attribute: bikeLink
  teleported:
    bike:
      speed: 4.2
      beeline_distance_factor: 1.3
`))
	require.NoError(t, err)

	ec := cfg.Engine(nil)
	assert.True(t, ec.UseRangeQuery)
	assert.Equal(t, routing.RangeSettings{MaxEarlierDeparture: 300, MaxLaterDeparture: 900}, ec.Range)
	assert.Equal(t, routing.RangeSettings{MaxEarlierDeparture: 1800, MaxLaterDeparture: 1800}, ec.RangeByClass["flexible"])
	assert.Equal(t, routing.ConfigurableSelector{BetaTravelTime: 1, BetaDepartureTime: 1, BetaTransferCount: 600}, ec.Selector)
	assert.Equal(t, routing.LeastCostSelector{}, ec.SelectorByClass["business"])

	assert.True(t, ec.UseIntermodalAccessEgress)
	assert.Equal(t, 2000.0, ec.MaxDirectWalkDistance)
	require.Len(t, ec.Intermodal, 2)
	assert.Equal(t, "bikeLink", ec.Intermodal[1].LinkIDAttribute)
	assert.Equal(t, routing.TeleportationProvider{Mode: "bike", Speed: 4.2, BeelineDistanceFactor: 1.3}, ec.Providers["bike"])
}

func TestEngineConfig_IntermodalDisabled(t *testing.T) {
	cfg := Default()
	ec := cfg.Engine(nil)
	assert.False(t, ec.UseIntermodalAccessEgress)
	assert.False(t, ec.UseRangeQuery)
	assert.Nil(t, ec.Providers)
	assert.Nil(t, ec.RangeByClass)
	assert.Equal(t, routing.LeastCostSelector{}, ec.Selector)
}
