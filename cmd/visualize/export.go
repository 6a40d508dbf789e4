package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"transit_router/pkg/geo"
	"transit_router/pkg/raptor"
)

// exportOptions selects the layers of the export.
type exportOptions struct {
	Stops     bool
	Routes    bool
	Transfers bool
}

// export renders the compiled network as GeoJSON in WGS84.
func export(data *raptor.Data, opts exportOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	toLonLat := func(p orb.Point) orb.Point {
		return lonLat(data.Projection, p)
	}

	if opts.Stops {
		for i, s := range data.Stops {
			f := geojson.NewFeature(toLonLat(s.Coord))
			f.Properties["kind"] = "stop"
			f.Properties["id"] = string(s.ID)
			f.Properties["name"] = s.Name
			f.Properties["routes"] = len(data.RouteStopsAt(raptor.StopIndex(i)))
			fc.Append(f)
		}
	}

	if opts.Routes {
		for ri, r := range data.Routes {
			rstops := data.RouteStopsOf(raptor.RouteIndex(ri))
			line := make(orb.LineString, 0, len(rstops))
			for _, rs := range rstops {
				line = append(line, toLonLat(data.Stops[rs.Stop].Coord))
			}
			f := geojson.NewFeature(line)
			f.Properties["kind"] = "route"
			f.Properties["line"] = string(r.Line.ID)
			f.Properties["route"] = string(r.Route.ID)
			f.Properties["mode"] = data.Modes[r.Mode]
			f.Properties["departures"] = int(r.CountDepartures)
			fc.Append(f)
		}
	}

	if opts.Transfers {
		type pair struct{ from, to raptor.StopIndex }
		seen := make(map[pair]bool)
		for _, t := range data.Transfers {
			from, to := data.RouteStops[t.From].Stop, data.RouteStops[t.To].Stop
			if from == to || seen[pair{from, to}] {
				continue
			}
			seen[pair{from, to}] = true
			f := geojson.NewFeature(orb.LineString{
				toLonLat(data.Stops[from].Coord),
				toLonLat(data.Stops[to].Coord),
			})
			f.Properties["kind"] = "transfer"
			f.Properties["from"] = string(data.Stops[from].ID)
			f.Properties["to"] = string(data.Stops[to].ID)
			f.Properties["seconds"] = t.Time
			fc.Append(f)
		}
	}
	return fc
}

// lonLat unprojects a planar point. GeoJSON positions are longitude first.
func lonLat(proj geo.Projection, p orb.Point) orb.Point {
	lat, lon := proj.ToLatLng(p)
	return orb.Point{lon, lat}
}
