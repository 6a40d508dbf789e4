package geo

import "github.com/paulmach/orb"

// ServiceArea is a circle around a projection origin that covers a network.
// A zero Radius contains every point.
type ServiceArea struct {
	Lat    float64
	Lon    float64
	Radius float64 // metres
}

// NewServiceArea returns the circle around the origin of proj that holds every
// planar point, widened by margin metres.
func NewServiceArea(proj Projection, points []orb.Point, margin float64) ServiceArea {
	a := ServiceArea{Lat: proj.OriginLat, Lon: proj.OriginLon}
	if len(points) == 0 {
		return a
	}
	for _, pt := range points {
		lat, lon := proj.ToLatLng(pt)
		a.Radius = max(a.Radius, Haversine(a.Lat, a.Lon, lat, lon))
	}
	a.Radius += margin
	return a
}

// Contains reports whether lat/lon lies within the area.
func (a ServiceArea) Contains(lat, lon float64) bool {
	return a.Radius <= 0 || Haversine(a.Lat, a.Lon, lat, lon) <= a.Radius
}
