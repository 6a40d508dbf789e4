package api

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start    LatLngJSON    `json:"start"`
	End      LatLngJSON    `json:"end"`
	Time     string        `json:"time"` // HH:MM[:SS], may exceed 24h
	Traveler *TravelerJSON `json:"traveler,omitempty"`
	// Range returns every useful itinerary departing around Time.
	Range bool `json:"range,omitempty"`
}

// TreeRequest is the JSON body for POST /api/v1/tree.
type TreeRequest struct {
	Stops    []string      `json:"stops"`
	Time     string        `json:"time"`
	Traveler *TravelerJSON `json:"traveler,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TravelerJSON selects class parameters and feeds intermodal filters.
type TravelerJSON struct {
	ID         string            `json:"id,omitempty"`
	Class      string            `json:"class,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	RequestID   string          `json:"request_id"`
	Itineraries []ItineraryJSON `json:"itineraries"`
}

// ItineraryJSON is one trip from start to end.
type ItineraryJSON struct {
	DepartureTime     string    `json:"departure_time"`
	ArrivalTime       string    `json:"arrival_time"`
	TravelTimeSeconds float64   `json:"travel_time_seconds"`
	DistanceMeters    float64   `json:"distance_meters"`
	Transfers         int       `json:"transfers"`
	Cost              float64   `json:"cost"`
	Legs              []LegJSON `json:"legs"`
}

// LegJSON is one ride or walk of an itinerary.
type LegJSON struct {
	Mode              string       `json:"mode"`
	From              *StopJSON    `json:"from,omitempty"`
	To                *StopJSON    `json:"to,omitempty"`
	LineID            string       `json:"line_id,omitempty"`
	RouteID           string       `json:"route_id,omitempty"`
	DepartureTime     string       `json:"departure_time"`
	ArrivalTime       string       `json:"arrival_time"`
	TravelTimeSeconds float64      `json:"travel_time_seconds"`
	DistanceMeters    float64      `json:"distance_meters"`
	StartLink         string       `json:"start_link,omitempty"`
	EndLink           string       `json:"end_link,omitempty"`
	Geometry          []LatLngJSON `json:"geometry"`
}

// StopJSON identifies a stop.
type StopJSON struct {
	ID   string     `json:"id"`
	Name string     `json:"name,omitempty"`
	At   LatLngJSON `json:"location"`
}

// TreeResponse is the JSON response for POST /api/v1/tree.
type TreeResponse struct {
	RequestID string          `json:"request_id"`
	Stops     []TreeEntryJSON `json:"stops"`
}

// TreeEntryJSON is the least-cost arrival at one stop.
type TreeEntryJSON struct {
	StopID        string  `json:"stop_id"`
	DepartureStop string  `json:"departure_stop"`
	Transfers     int     `json:"transfers"`
	ArrivalTime   string  `json:"arrival_time"`
	Cost          float64 `json:"cost"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumStops      int      `json:"num_stops"`
	NumLines      int      `json:"num_lines"`
	NumRoutes     int      `json:"num_routes"`
	NumRouteStops int      `json:"num_route_stops"`
	NumDepartures int      `json:"num_departures"`
	NumTransfers  int      `json:"num_transfers"`
	Modes         []string `json:"modes"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
