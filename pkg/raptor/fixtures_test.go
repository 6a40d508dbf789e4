package raptor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"transit_router/pkg/schedule"
)

func hms(h, m, s int) float64 {
	return float64(h*3600 + m*60 + s)
}

// singleLine builds one line with 8 stops 1 km apart, 3 minutes between
// stops, departing every 10 minutes from 06:00 to 08:00.
func singleLine(t testing.TB) *schedule.Schedule {
	t.Helper()
	s := schedule.New()
	route := s.AddLine("L1").AddRoute("L1a", "bus")
	for i := range 8 {
		stop := s.AddStop(schedule.StopID(fmt.Sprintf("S%d", i)), float64(i)*1000, 0)
		arr, dep := float64(i*180), float64(i*180)
		if i == 0 {
			arr = schedule.UndefinedTime
		}
		if i == 7 {
			dep = schedule.UndefinedTime
		}
		route.AddStop(stop, arr, dep)
	}
	for i := 0; hms(6, 0, 0)+float64(i*600) <= hms(8, 0, 0); i++ {
		route.AddDeparture(fmt.Sprintf("d%d", i), hms(6, 0, 0)+float64(i*600))
	}
	require.NoError(t, s.Validate())
	return s
}

// treeNetwork builds three lines meeting at C (blue/red) and G (red/green):
//
//	A ── B ── C ── D      blue, every 15 min 07:00-09:00
//	          │
//	          F           red, C F G at :10 and :40 from 07:10 to 08:40
//	          │
//	          G ── H ── I green, every 20 min 07:00-09:00
//
// Stops are 2 km apart, so the only transfers are at C and G.
func treeNetwork(t testing.TB) *schedule.Schedule {
	t.Helper()
	s := schedule.New()
	a := s.AddStop("A", 0, 0)
	b := s.AddStop("B", 2000, 0)
	c := s.AddStop("C", 4000, 0)
	d := s.AddStop("D", 6000, 0)
	f := s.AddStop("F", 4000, -2000)
	g := s.AddStop("G", 4000, -4000)
	h := s.AddStop("H", 6000, -4000)
	i := s.AddStop("I", 8000, -4000)

	blue := s.AddLine("blue").AddRoute("blue1", "bus").
		AddStop(a, schedule.UndefinedTime, 0).
		AddStop(b, 300, 300).
		AddStop(c, 600, 600).
		AddStop(d, 900, schedule.UndefinedTime)
	for k := 0; k <= 8; k++ {
		blue.AddDeparture(fmt.Sprintf("b%d", k), hms(7, 0, 0)+float64(k*900))
	}

	red := s.AddLine("red").AddRoute("red1", "tram").
		AddStop(c, schedule.UndefinedTime, 0).
		AddStop(f, 300, 300).
		AddStop(g, 600, schedule.UndefinedTime)
	for k, dep := range []float64{hms(7, 10, 0), hms(7, 40, 0), hms(8, 10, 0), hms(8, 40, 0)} {
		red.AddDeparture(fmt.Sprintf("r%d", k), dep)
	}

	green := s.AddLine("green").AddRoute("green1", "bus").
		AddStop(g, schedule.UndefinedTime, 0).
		AddStop(h, 240, 240).
		AddStop(i, 480, schedule.UndefinedTime)
	for k := 0; k <= 6; k++ {
		green.AddDeparture(fmt.Sprintf("g%d", k), hms(7, 0, 0)+float64(k*1200))
	}

	require.NoError(t, s.Validate())
	return s
}

func mustCompile(t testing.TB, s *schedule.Schedule, cfg StaticConfig) *Data {
	t.Helper()
	d, err := Compile(s, cfg)
	require.NoError(t, err)
	return d
}

func atStop(t *testing.T, d *Data, id schedule.StopID, cost, tt float64) InitialStop {
	t.Helper()
	s := d.StopByID(id)
	require.NotNil(t, s, "stop %s", id)
	return InitialStop{Stop: s, Cost: cost, Time: tt, Mode: ModeWalk}
}

// routeStopAt returns the route stop of the given route (by schedule id) at stop.
func routeStopAt(t *testing.T, d *Data, route schedule.RouteID, stop schedule.StopID) RouteStopIndex {
	t.Helper()
	si, ok := d.StopIndexOf(stop)
	require.True(t, ok)
	for _, rs := range d.RouteStopsAt(si) {
		if d.Routes[d.RouteStops[rs].Route].Route.ID == route {
			return rs
		}
	}
	t.Fatalf("route %s does not serve %s", route, stop)
	return -1
}

func hasTransfer(d *Data, from, to RouteStopIndex) bool {
	for _, tr := range d.TransfersOf(from) {
		if tr.To == to {
			return true
		}
	}
	return false
}
