package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 5 * time.Second,

			ServiceAreaMargin: 50_000,
		},
		Logging: LoggingConfig{Level: "info"},
		Raptor: RaptorConfig{
			BeelineWalkConnectionDistance: 200,
			BeelineWalkSpeed:              (3.0 / 3.6) / 1.3,
			WalkUtilityPerHour:            -18,
			MinimalTransferTime:           60,
			Optimization:                  "least_cost",
		},
		Parameters: ParametersConfig{
			SearchRadius:          1000,
			ExtensionRadius:       200,
			BeelineWalkSpeed:      (3.0 / 3.6) / 1.3,
			WaitingUtilityPerHour: -6,
			ModeUtilitiesPerHour: map[string]float64{
				"pt":           -12,
				"walk":         -18,
				"access_walk":  -18,
				"egress_walk":  -18,
				"transit_walk": -18,
			},
			MaxTransfers:                  20,
			MaxTransfersAfterFirstArrival: 2,
		},
		RangeQuery: RangeQueryConfig{
			RangeConfig: RangeConfig{MaxEarlierDeparture: 600, MaxLaterDeparture: 900},
		},
		RouteSelector: RouteSelectorConfig{
			SelectorConfig: SelectorConfig{
				Kind:              "least_cost",
				BetaTravelTime:    1,
				BetaDepartureTime: 1,
				BetaTransferCount: 300,
			},
		},
	}
}

// Load reads the YAML file at path on top of Default and validates the result.
// An empty path returns the defaults.
func Load(path string) (AppConfig, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (AppConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross references between sections.
func (c *AppConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Intermodal.Enabled {
		for i, set := range c.Intermodal.Sets {
			if set.Mode == "walk" || set.Mode == "transit_walk" {
				continue
			}
			if _, ok := c.Intermodal.Teleported[set.Mode]; !ok {
				return fmt.Errorf("invalid config: intermodal set %d: no teleported mode %q", i, set.Mode)
			}
		}
	}
	return nil
}
