package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is the Euclidean distance between two planar points in metres.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Projection maps WGS84 coordinates onto a local metric plane centred on an
// origin, using the equirectangular approximation. Over city-sized extents
// distances on the plane stay well within 1% of Haversine.
type Projection struct {
	OriginLat float64
	OriginLon float64
	cosLat    float64
}

// NewProjection returns a projection centred on the given origin.
func NewProjection(originLat, originLon float64) Projection {
	return Projection{
		OriginLat: originLat,
		OriginLon: originLon,
		cosLat:    math.Cos(originLat * math.Pi / 180),
	}
}

const degToMeters = math.Pi / 180 * earthRadiusMeters

// ToPlanar projects lat/lon to metres east (X) and north (Y) of the origin.
func (p Projection) ToPlanar(lat, lon float64) orb.Point {
	cosLat := p.cosLat
	if cosLat == 0 {
		cosLat = math.Cos(p.OriginLat * math.Pi / 180)
	}
	return orb.Point{
		(lon - p.OriginLon) * cosLat * degToMeters,
		(lat - p.OriginLat) * degToMeters,
	}
}

// ToLatLng is the inverse of ToPlanar.
func (p Projection) ToLatLng(pt orb.Point) (lat, lon float64) {
	cosLat := p.cosLat
	if cosLat == 0 {
		cosLat = math.Cos(p.OriginLat * math.Pi / 180)
	}
	lat = p.OriginLat + pt.Y()/degToMeters
	lon = p.OriginLon + pt.X()/(cosLat*degToMeters)
	return lat, lon
}
