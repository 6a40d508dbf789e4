package config

import "time"

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
	MaxConcurrent  int           `yaml:"max_concurrent" validate:"gte=0"` // 0: twice the CPU count
	CORSOrigins    []string      `yaml:"cors_origins"`

	// ServiceAreaMargin widens the circle around the stops outside of which
	// route requests are refused. Negative disables the check.
	ServiceAreaMargin float64 `yaml:"service_area_margin"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// RaptorConfig is the static configuration used when compiling a schedule.
// Utilities are per hour.
type RaptorConfig struct {
	BeelineWalkConnectionDistance float64           `yaml:"beeline_walk_connection_distance" validate:"gte=0"`
	BeelineWalkSpeed              float64           `yaml:"beeline_walk_speed" validate:"gt=0"`
	WalkUtilityPerHour            float64           `yaml:"walk_utility_per_hour" validate:"lte=0"`
	MinimalTransferTime           float64           `yaml:"minimal_transfer_time" validate:"gte=0"`
	TransferPenalty               float64           `yaml:"transfer_penalty" validate:"gte=0"`
	Optimization                  string            `yaml:"optimization" validate:"oneof=least_cost one_to_all"`
	UseModeMapping                bool              `yaml:"use_mode_mapping"`
	PassengerModes                map[string]string `yaml:"passenger_modes"`
}

// ParametersConfig holds the per-traveler search parameters. Utilities are
// per hour. In class overrides, zero fields inherit the default value.
type ParametersConfig struct {
	SearchRadius                  float64            `yaml:"search_radius" validate:"gte=0"`
	ExtensionRadius               float64            `yaml:"extension_radius" validate:"gte=0"`
	BeelineWalkSpeed              float64            `yaml:"beeline_walk_speed" validate:"gte=0"`
	WaitingUtilityPerHour         float64            `yaml:"waiting_utility_per_hour" validate:"lte=0"`
	ModeUtilitiesPerHour          map[string]float64 `yaml:"mode_utilities_per_hour"`
	MaxTransfers                  int                `yaml:"max_transfers" validate:"gte=0"`
	MaxTransfersAfterFirstArrival int                `yaml:"max_transfers_after_first_arrival" validate:"gte=0"`
}

// RangeConfig bounds range queries, in seconds around the desired departure.
type RangeConfig struct {
	MaxEarlierDeparture float64 `yaml:"max_earlier_departure" validate:"gte=0"`
	MaxLaterDeparture   float64 `yaml:"max_later_departure" validate:"gte=0"`
}

// RangeQueryConfig enables range queries for single-route requests.
type RangeQueryConfig struct {
	Enabled     bool `yaml:"enabled"`
	RangeConfig `yaml:",inline"`
	Classes     map[string]RangeConfig `yaml:"classes" validate:"dive"`
}

// SelectorConfig describes how one route is picked out of a range query.
type SelectorConfig struct {
	Kind              string  `yaml:"kind" validate:"omitempty,oneof=least_cost configurable"`
	BetaTravelTime    float64 `yaml:"beta_travel_time" validate:"gte=0"`
	BetaDepartureTime float64 `yaml:"beta_departure_time" validate:"gte=0"`
	BetaTransferCount float64 `yaml:"beta_transfer_count" validate:"gte=0"`
}

// RouteSelectorConfig is the default selector plus per-class ones.
type RouteSelectorConfig struct {
	SelectorConfig `yaml:",inline"`
	Classes        map[string]SelectorConfig `yaml:"classes" validate:"dive"`
}

// IntermodalSetConfig is one way of reaching or leaving stops.
type IntermodalSetConfig struct {
	Mode                  string   `yaml:"mode" validate:"required"`
	Radius                float64  `yaml:"radius" validate:"gt=0"`
	Classes               []string `yaml:"classes"`
	PersonFilterAttribute string   `yaml:"person_filter_attribute"`
	PersonFilterValue     string   `yaml:"person_filter_value" validate:"required_with=PersonFilterAttribute"`
	StopFilterAttribute   string   `yaml:"stop_filter_attribute"`
	StopFilterValue       string   `yaml:"stop_filter_value" validate:"required_with=StopFilterAttribute"`
	LinkIDAttribute       string   `yaml:"link_id_attribute"`
}

// TeleportationConfig moves a mode along the beeline at constant speed.
type TeleportationConfig struct {
	Speed                 float64 `yaml:"speed" validate:"gt=0"`
	BeelineDistanceFactor float64 `yaml:"beeline_distance_factor" validate:"gte=0"`
}

// IntermodalConfig enables intermodal access and egress.
type IntermodalConfig struct {
	Enabled               bool                           `yaml:"enabled"`
	MaxDirectWalkDistance float64                        `yaml:"max_direct_walk_distance" validate:"gte=0"`
	Sets                  []IntermodalSetConfig          `yaml:"sets" validate:"dive"`
	Teleported            map[string]TeleportationConfig `yaml:"teleported" validate:"dive"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server        ServerConfig                `yaml:"server"`
	Logging       LoggingConfig               `yaml:"logging"`
	Raptor        RaptorConfig                `yaml:"raptor"`
	Parameters    ParametersConfig            `yaml:"parameters"`
	Classes       map[string]ParametersConfig `yaml:"classes" validate:"dive"`
	RangeQuery    RangeQueryConfig            `yaml:"range_query"`
	RouteSelector RouteSelectorConfig         `yaml:"route_selector"`
	Intermodal    IntermodalConfig            `yaml:"intermodal"`
}
