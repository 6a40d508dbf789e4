package api

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"slices"

	"github.com/paulmach/orb"

	"transit_router/pkg/geo"
	"transit_router/pkg/logging"
	"transit_router/pkg/raptor"
	"transit_router/pkg/routing"
	"transit_router/pkg/schedule"
)

const maxBodyBytes = 16 << 10

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router routing.Router
	proj   geo.Projection
	area   geo.ServiceArea
	stats  StatsResponse
}

// NewHandlers creates handlers with the given router. proj converts request
// coordinates into the planar coordinates of the router's data.
func NewHandlers(router routing.Router, proj geo.Projection, stats StatsResponse) *Handlers {
	return &Handlers{
		router: router,
		proj:   proj,
		stats:  stats,
	}
}

// SetServiceArea makes HandleRoute refuse start and end points outside area.
func (h *Handlers) SetServiceArea(area geo.ServiceArea) {
	h.area = area
}

// ServiceAreaFromData returns the area covering every stop of d, widened by
// margin metres. A negative margin gives an area without limit.
func ServiceAreaFromData(d *raptor.Data, margin float64) geo.ServiceArea {
	if margin < 0 {
		return geo.ServiceArea{}
	}
	coords := make([]orb.Point, len(d.Stops))
	for i, s := range d.Stops {
		coords[i] = s.Coord
	}
	return geo.NewServiceArea(d.Projection, coords, margin)
}

// StatsFromData counts the compiled data.
func StatsFromData(d *raptor.Data) StatsResponse {
	s := d.Stats()
	return StatsResponse{
		NumStops:      s.Stops,
		NumLines:      s.Lines,
		NumRoutes:     s.Routes,
		NumRouteStops: s.RouteStops,
		NumDepartures: s.Departures,
		NumTransfers:  s.Transfers,
		Modes:         slices.Clone(d.Modes),
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}
	if !h.area.Contains(req.Start.Lat, req.Start.Lng) {
		writeError(w, r, http.StatusUnprocessableEntity, "outside_service_area", "start")
		return
	}
	if !h.area.Contains(req.End.Lat, req.End.Lng) {
		writeError(w, r, http.StatusUnprocessableEntity, "outside_service_area", "end")
		return
	}
	depTime, err := schedule.ParseTime(req.Time)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_time", "time")
		return
	}

	from := routing.Location{Coord: h.proj.ToPlanar(req.Start.Lat, req.Start.Lng)}
	to := routing.Location{Coord: h.proj.ToPlanar(req.End.Lat, req.End.Lng)}
	traveler := req.Traveler.traveler()

	var found []*raptor.Itinerary
	if req.Range {
		found, err = h.router.Routes(r.Context(), from, to, depTime, traveler)
	} else {
		var it *raptor.Itinerary
		it, err = h.router.Route(r.Context(), from, to, depTime, traveler)
		if it != nil {
			found = []*raptor.Itinerary{it}
		}
	}
	if err != nil {
		h.writeRouterError(w, r, err)
		return
	}

	resp := RouteResponse{
		RequestID:   RequestIDFromContext(r.Context()),
		Itineraries: make([]ItineraryJSON, 0, len(found)),
	}
	for _, it := range found {
		resp.Itineraries = append(resp.Itineraries, h.itinerary(it, req.Start, req.End))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTree handles POST /api/v1/tree.
func (h *Handlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	var req TreeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Stops) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "stops")
		return
	}
	depTime, err := schedule.ParseTime(req.Time)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_time", "time")
		return
	}
	ids := make([]schedule.StopID, len(req.Stops))
	for i, s := range req.Stops {
		ids[i] = schedule.StopID(s)
	}

	tree, err := h.router.Tree(r.Context(), ids, depTime, req.Traveler.traveler())
	if err != nil {
		h.writeRouterError(w, r, err)
		return
	}

	resp := TreeResponse{
		RequestID: RequestIDFromContext(r.Context()),
		Stops:     make([]TreeEntryJSON, 0, len(tree)),
	}
	for id, info := range tree {
		resp.Stops = append(resp.Stops, TreeEntryJSON{
			StopID:        string(id),
			DepartureStop: string(info.DepartureStop),
			Transfers:     info.TransferCount,
			ArrivalTime:   schedule.FormatTime(info.ArrivalTime),
			Cost:          info.ArrivalCost,
		})
	}
	slices.SortFunc(resp.Stops, func(a, b TreeEntryJSON) int {
		return cmp.Compare(a.StopID, b.StopID)
	})
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func (h *Handlers) writeRouterError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, r, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, raptor.ErrUnknownStop):
		writeError(w, r, http.StatusBadRequest, "unknown_stop", "stops")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		logging.LogError(logging.FromContext(r.Context()), "routing failed", err,
			slog.String("path", r.URL.Path))
		writeError(w, r, http.StatusInternalServerError, "internal_error", "")
	}
}

// itinerary renders it with legs in order. Egress legs carry no departure
// time of their own and start when the previous leg ends.
func (h *Handlers) itinerary(it *raptor.Itinerary, start, end LatLngJSON) ItineraryJSON {
	out := ItineraryJSON{
		DepartureTime:     schedule.FormatTime(it.DepartureTime),
		ArrivalTime:       schedule.FormatTime(it.ArrivalTime),
		TravelTimeSeconds: it.TravelTime(),
		Transfers:         it.TransferCount(),
		Cost:              it.TotalCost,
		Legs:              make([]LegJSON, 0, len(it.Parts)),
	}
	cursor := it.DepartureTime
	for _, p := range it.Parts {
		dep := p.DepartureTime
		if dep == schedule.UndefinedTime {
			dep = cursor
		}
		cursor = dep + p.TravelTime
		out.DistanceMeters += p.Distance

		leg := LegJSON{
			Mode:              p.Mode,
			From:              h.stop(p.FromStop),
			To:                h.stop(p.ToStop),
			DepartureTime:     schedule.FormatTime(dep),
			ArrivalTime:       schedule.FormatTime(cursor),
			TravelTimeSeconds: p.TravelTime,
			DistanceMeters:    p.Distance,
			StartLink:         p.StartLink,
			EndLink:           p.EndLink,
		}
		if p.IsRide() {
			leg.LineID = string(p.Line.ID)
			leg.RouteID = string(p.Route.ID)
			leg.Geometry = h.rideGeometry(p)
		} else {
			a, b := start, end
			if leg.From != nil {
				a = leg.From.At
			}
			if leg.To != nil {
				b = leg.To.At
			}
			leg.Geometry = []LatLngJSON{a, b}
		}
		out.Legs = append(out.Legs, leg)
	}
	return out
}

// rideGeometry lists the stops the vehicle passes from boarding to alighting.
func (h *Handlers) rideGeometry(p raptor.Part) []LatLngJSON {
	var geom []LatLngJSON
	boarded := false
	for _, rs := range p.Route.Stops {
		if !boarded && rs.Stop == p.FromStop {
			boarded = true
		}
		if !boarded {
			continue
		}
		geom = append(geom, h.latLng(rs.Stop))
		if rs.Stop == p.ToStop && len(geom) > 1 {
			break
		}
	}
	return geom
}

func (h *Handlers) stop(s *schedule.Stop) *StopJSON {
	if s == nil {
		return nil
	}
	return &StopJSON{ID: string(s.ID), Name: s.Name, At: h.latLng(s)}
}

func (h *Handlers) latLng(s *schedule.Stop) LatLngJSON {
	lat, lng := h.proj.ToLatLng(s.Coord)
	return LatLngJSON{Lat: lat, Lng: lng}
}

func (t *TravelerJSON) traveler() routing.Traveler {
	if t == nil {
		return routing.Traveler{}
	}
	return routing.Traveler{ID: t.ID, Class: t.Class, Attributes: t.Attributes}
}

// decodeJSON enforces the content type and size limit and decodes the body.
// It writes the error response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field, RequestID: RequestIDFromContext(r.Context())})
}
