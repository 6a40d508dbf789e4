package raptor

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_router/pkg/schedule"
)

func TestFindBestRoute_SingleLine(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	core := NewSearchCore(d)

	it, err := core.FindBestRoute(hms(7, 0, 0),
		[]InitialStop{atStop(t, d, "S0", 0, 0)},
		[]InitialStop{atStop(t, d, "S7", 0, 0)},
		DefaultParameters())
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, it.Parts, 1)

	p := it.Parts[0]
	assert.True(t, p.IsRide())
	assert.Equal(t, schedule.StopID("S0"), p.FromStop.ID)
	assert.Equal(t, schedule.StopID("S7"), p.ToStop.ID)
	assert.Equal(t, ModePT, p.Mode)
	assert.Equal(t, schedule.LineID("L1"), p.Line.ID)
	assert.Equal(t, hms(7, 0, 0), p.DepartureTime)
	assert.Equal(t, hms(7, 0, 0), p.VehicleDepartureTime)
	assert.Equal(t, 1260.0, p.TravelTime)
	assert.InDelta(t, 7000.0, p.Distance, 1e-9)
	assert.Equal(t, "S0", p.StartLink)
	assert.Equal(t, "S7", p.EndLink)

	assert.Equal(t, hms(7, 21, 0), it.ArrivalTime)
	assert.InDelta(t, 1260.0/300, it.TotalCost, 1e-9)
	assert.Zero(t, it.TransferCount())
}

func TestFindBestRoute_WaitsForNextDeparture(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	core := NewSearchCore(d)

	it, err := core.FindBestRoute(hms(7, 4, 0),
		[]InitialStop{atStop(t, d, "S1", 0, 0)},
		[]InitialStop{atStop(t, d, "S3", 0, 0)},
		DefaultParameters())
	require.NoError(t, err)
	require.Len(t, it.Parts, 1)
	// The 07:00 vehicle passes S1 at 07:03, so the 07:10 one is taken.
	assert.Equal(t, hms(7, 13, 0), it.Parts[0].VehicleDepartureTime)
	assert.Equal(t, hms(7, 19, 0), it.ArrivalTime)
	assert.InDelta(t, 540.0/600+360.0/300, it.TotalCost, 1e-9)
}

func TestFindBestRoute_NoRoute(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	core := NewSearchCore(d)

	tests := []struct {
		name    string
		depTime float64
		from    schedule.StopID
		to      schedule.StopID
	}{
		{name: "after last departure", depTime: hms(9, 0, 0), from: "S0", to: "S7"},
		{name: "against the direction of travel", depTime: hms(7, 0, 0), from: "S5", to: "S2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := core.FindBestRoute(tt.depTime,
				[]InitialStop{atStop(t, d, tt.from, 0, 0)},
				[]InitialStop{atStop(t, d, tt.to, 0, 0)},
				DefaultParameters())
			require.NoError(t, err)
			assert.Nil(t, it)
		})
	}
}

func TestFindBestRoute_WithTransfers(t *testing.T) {
	d := mustCompile(t, treeNetwork(t), DefaultStaticConfig())
	core := NewSearchCore(d)

	it, err := core.FindBestRoute(hms(7, 40, 0),
		[]InitialStop{atStop(t, d, "A", 0, 0)},
		[]InitialStop{atStop(t, d, "I", 0, 0)},
		DefaultParameters())
	require.NoError(t, err)
	require.NotNil(t, it)

	var lines []schedule.LineID
	for _, p := range it.Parts {
		require.True(t, p.IsRide(), "same-stop transfers produce no leg")
		lines = append(lines, p.Line.ID)
	}
	assert.Equal(t, []schedule.LineID{"blue", "red", "green"}, lines)
	assert.Equal(t, 2, it.TransferCount())
	assert.Equal(t, hms(8, 48, 0), it.ArrivalTime)
	assert.InDelta(t, 10.0, it.TotalCost, 1e-9)

	red := it.Parts[1]
	assert.Equal(t, hms(7, 56, 0), red.DepartureTime, "after the minimal transfer time")
	assert.Equal(t, hms(8, 10, 0), red.VehicleDepartureTime)
	assert.Equal(t, hms(8, 20, 0)-hms(7, 56, 0), red.TravelTime)
}

func TestFindBestRoute_MergesTrailingTransferIntoEgress(t *testing.T) {
	s := schedule.New()
	w, x := s.AddStop("W", 0, 0), s.AddStop("X", 1000, 0)
	y, q := s.AddStop("Y", 1000, 100), s.AddStop("Q", 3000, 100)
	s.AddLine("one").AddRoute("one", "bus").AddStop(w, 0, 0).AddStop(x, 300, 300).AddDeparture("1", hms(8, 0, 0))
	s.AddLine("two").AddRoute("two", "bus").AddStop(y, 0, 0).AddStop(q, 300, 300).AddDeparture("1", hms(9, 0, 0))
	require.NoError(t, s.Validate())
	d := mustCompile(t, s, DefaultStaticConfig())

	it, err := NewSearchCore(d).FindBestRoute(hms(7, 55, 0),
		[]InitialStop{atStop(t, d, "W", 0, 0)},
		[]InitialStop{atStop(t, d, "Y", 0, 0)},
		DefaultParameters())
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, it.Parts, 2)

	walk := it.Parts[1]
	assert.Equal(t, ModeEgressWalk, walk.Mode)
	assert.Equal(t, schedule.StopID("X"), walk.FromStop.ID)
	assert.Nil(t, walk.ToStop)
	assert.Equal(t, hms(8, 5, 0), walk.DepartureTime)
	assert.InDelta(t, 156.0, walk.TravelTime, 1e-6)
	assert.InDelta(t, 100.0, walk.Distance, 1e-9)
	assert.InDelta(t, hms(8, 5, 0)+156, it.ArrivalTime, 1e-6)
}

func TestFindBestRoute_AccessAndEgressAtSameStop(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	s3 := d.StopByID("S3")
	access := InitialStop{Stop: s3, Cost: 0.6, Time: 120, Distance: 100, Mode: ModeAccessWalk}
	egress := InitialStop{Stop: s3, Cost: 0.3, Time: 60, Distance: 50, Mode: ModeEgressWalk}

	it, err := NewSearchCore(d).FindBestRoute(hms(7, 0, 0), []InitialStop{access}, []InitialStop{egress}, DefaultParameters())
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, it.Parts, 2)

	in, out := it.Parts[0], it.Parts[1]
	assert.Equal(t, ModeAccessWalk, in.Mode)
	assert.Nil(t, in.FromStop)
	assert.Equal(t, schedule.StopID("S3"), in.ToStop.ID)
	assert.Equal(t, 120.0, in.TravelTime)
	assert.InDelta(t, 100.0, in.Distance, 1e-9)

	assert.Equal(t, ModeEgressWalk, out.Mode)
	assert.Equal(t, schedule.StopID("S3"), out.FromStop.ID)
	assert.Nil(t, out.ToStop)
	assert.Equal(t, hms(7, 2, 0), out.DepartureTime)
	assert.Equal(t, 60.0, out.TravelTime)
	assert.InDelta(t, 50.0, out.Distance, 1e-9)

	assert.Equal(t, hms(7, 3, 0), it.ArrivalTime)
	assert.InDelta(t, 0.9, it.TotalCost, 1e-9)
}

func TestFindBestRoute_PreparedSegments(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	s1, s6 := d.StopByID("S1"), d.StopByID("S6")

	access := InitialStop{Stop: s1, Cost: 1, Time: 120, Mode: "bike", Parts: []Part{
		{ToStop: s1, Mode: "bike", TravelTime: 120, Distance: 500, StartLink: "home", EndLink: "bike-parking"},
		{FromStop: s1, ToStop: s1, Mode: ModeTransitWalk, StartLink: "bike-parking", EndLink: s1.LinkID},
	}}
	egress := InitialStop{Stop: s6, Cost: 1, Time: 120, Mode: "bike", Parts: []Part{
		{FromStop: s6, ToStop: s6, Mode: ModeTransitWalk, DepartureTime: schedule.UndefinedTime},
		{FromStop: s6, Mode: "bike", TravelTime: 120, DepartureTime: schedule.UndefinedTime},
	}}

	it, err := NewSearchCore(d).FindBestRoute(hms(6, 58, 0), []InitialStop{access}, []InitialStop{egress}, DefaultParameters())
	require.NoError(t, err)
	require.NotNil(t, it)

	var modes []string
	for _, p := range it.Parts {
		modes = append(modes, p.Mode)
	}
	assert.Equal(t, []string{"bike", ModeTransitWalk, ModePT, ModeTransitWalk, "bike"}, modes)
	assert.Equal(t, hms(6, 58, 0), it.Parts[0].DepartureTime)
	assert.Equal(t, hms(7, 0, 0), it.Parts[1].DepartureTime)
	assert.Equal(t, schedule.UndefinedTime, it.Parts[4].DepartureTime)
	assert.Equal(t, hms(7, 18, 0)+120, it.ArrivalTime)
}

func TestFindBestRoute_MissingModeUtility(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	params := DefaultParameters()
	params.RemoveMarginalUtilityOfTravelTime(ModePT)

	_, err := NewSearchCore(d).FindBestRoute(hms(7, 0, 0),
		[]InitialStop{atStop(t, d, "S0", 0, 0)},
		[]InitialStop{atStop(t, d, "S7", 0, 0)},
		params)
	assert.ErrorIs(t, err, ErrMissingModeUtility)
	assert.ErrorIs(t, params.Check(d), ErrMissingModeUtility)
}

func TestFindBestRoute_PassengerModeMapping(t *testing.T) {
	cfg := DefaultStaticConfig()
	cfg.UseModeMappingForPassengers = true
	cfg.PassengerModes = map[string]string{"bus": "bus"}
	d := mustCompile(t, singleLine(t), cfg)

	params := DefaultParameters()
	params.SetMarginalUtilityOfTravelTime("bus", -24.0/3600)
	it, err := NewSearchCore(d).FindBestRoute(hms(7, 0, 0),
		[]InitialStop{atStop(t, d, "S0", 0, 0)},
		[]InitialStop{atStop(t, d, "S7", 0, 0)},
		params)
	require.NoError(t, err)
	require.Len(t, it.Parts, 1)
	assert.Equal(t, "bus", it.Parts[0].Mode)
	assert.InDelta(t, 1260.0*24/3600, it.TotalCost, 1e-9)
}

func TestFindBestRoute_Deterministic(t *testing.T) {
	d := mustCompile(t, treeNetwork(t), DefaultStaticConfig())
	access := []InitialStop{atStop(t, d, "A", 0, 0), atStop(t, d, "B", 2, 60)}
	egress := []InitialStop{atStop(t, d, "H", 0.5, 30), atStop(t, d, "I", 0, 0)}
	params := DefaultParameters()

	first, err := NewSearchCore(d).FindBestRoute(hms(7, 40, 0), access, egress, params)
	require.NoError(t, err)
	require.NotNil(t, first)

	reused := NewSearchCore(d)
	for range 3 {
		again, err := reused.FindBestRoute(hms(7, 40, 0), access, egress, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLeastCostArrival_PrefersFewerTransfers(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())

	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		core := NewSearchCore(d)
		require.NoError(t, core.prepare(DefaultParameters()))
		qs := core.qs

		// Both reach a total cost of 3: stop 6 with two transfers, stop 7 with one.
		stops := [2]StopIndex{6, 7}
		egressCost := [2]float64{1, 0}
		arrivalCost := [2]float64{2, 3}
		transfers := [2]int32{2, 1}
		for _, k := range order {
			core.destination = append(core.destination, egressTarget{stop: stops[k], initial: int32(k), cost: egressCost[k]})
			pe := qs.add(pathElement{prev: noPath, routeStop: RouteStopIndex(stops[k]), arrivalCost: arrivalCost[k], transfers: transfers[k], initial: -1})
			qs.setStop(stops[k], pe, arrivalCost[k])
		}

		best, target := core.leastCostArrival()
		require.NotEqual(t, noPath, best)
		assert.Equal(t, StopIndex(7), core.destination[target].stop)
		assert.Equal(t, int32(1), qs.arena[best].transfers)
	}
}

// slowDirectAndFastChain builds a one-hour direct bus from O to T next to a
// chain of three 5-minute lines O-P, P-Q, Q-T with 2 minutes to change.
func slowDirectAndFastChain(t *testing.T) *schedule.Schedule {
	t.Helper()
	s := schedule.New()
	o, p := s.AddStop("O", 0, 0), s.AddStop("P", 2000, 0)
	q, dst := s.AddStop("Q", 4000, 0), s.AddStop("T", 6000, 0)
	s.AddLine("direct").AddRoute("direct", "bus").AddStop(o, 0, 0).AddStop(dst, 3600, 3600).AddDeparture("1", hms(7, 0, 0))
	s.AddLine("a").AddRoute("a", "bus").AddStop(o, 0, 0).AddStop(p, 300, 300).AddDeparture("1", hms(7, 0, 0))
	s.AddLine("b").AddRoute("b", "bus").AddStop(p, 0, 0).AddStop(q, 300, 300).AddDeparture("1", hms(7, 7, 0))
	s.AddLine("c").AddRoute("c", "bus").AddStop(q, 0, 0).AddStop(dst, 300, 300).AddDeparture("1", hms(7, 14, 0))
	require.NoError(t, s.Validate())
	return s
}

func TestFindBestRoute_RoundsAfterFirstArrival(t *testing.T) {
	d := mustCompile(t, slowDirectAndFastChain(t), DefaultStaticConfig())

	tests := []struct {
		name      string
		extra     int
		lines     []schedule.LineID
		arrival   float64
		totalCost float64
	}{
		{name: "stop at first arrival", extra: 0, lines: []schedule.LineID{"direct"}, arrival: hms(8, 0, 0), totalCost: 12},
		{name: "one more round is not enough", extra: 1, lines: []schedule.LineID{"direct"}, arrival: hms(8, 0, 0), totalCost: 12},
		// 3 rides of 1.0, 2 transfers of 0.3 and 2 waits of 0.1
		{name: "two more rounds find the chain", extra: 2, lines: []schedule.LineID{"a", "b", "c"}, arrival: hms(7, 19, 0), totalCost: 3.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParameters()
			params.MaxTransfersAfterFirstArrival = tt.extra
			it, err := NewSearchCore(d).FindBestRoute(hms(7, 0, 0),
				[]InitialStop{atStop(t, d, "O", 0, 0)},
				[]InitialStop{atStop(t, d, "T", 0, 0)},
				params)
			require.NoError(t, err)
			require.NotNil(t, it)

			var lines []schedule.LineID
			for _, p := range it.Parts {
				if p.IsRide() {
					lines = append(lines, p.Line.ID)
				}
			}
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, len(tt.lines)-1, it.TransferCount())
			assert.Equal(t, tt.arrival, it.ArrivalTime)
			assert.InDelta(t, tt.totalCost, it.TotalCost, 1e-9)
		})
	}
}

func TestFindBestRoute_SwitchesToCheaperBoarding(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())

	tests := []struct {
		name             string
		costAtS2         float64
		boardAt          schedule.StopID
		vehicleDeparture float64
		arrival          float64
		totalCost        float64
	}{
		{
			// Boarding at S2 the vehicle that left S0 at 07:00 beats sitting
			// on the 07:10 one from S0.
			name: "cheaper boarding further down", costAtS2: 0.5,
			boardAt: "S2", vehicleDeparture: hms(7, 6, 0), arrival: hms(7, 15, 0),
			totalCost: 0.5 + 300.0/600 + 540.0/300,
		},
		{
			name: "stay seated", costAtS2: 3,
			boardAt: "S0", vehicleDeparture: hms(7, 10, 0), arrival: hms(7, 25, 0),
			totalCost: 540.0/600 + 900.0/300,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := NewSearchCore(d).FindBestRoute(hms(7, 1, 0),
				[]InitialStop{atStop(t, d, "S0", 0, 0), atStop(t, d, "S2", tt.costAtS2, 0)},
				[]InitialStop{atStop(t, d, "S5", 0, 0)},
				DefaultParameters())
			require.NoError(t, err)
			require.NotNil(t, it)

			ride, ok := it.FirstRide()
			require.True(t, ok)
			assert.Equal(t, tt.boardAt, ride.FromStop.ID)
			assert.Equal(t, schedule.StopID("S5"), ride.ToStop.ID)
			assert.Equal(t, tt.vehicleDeparture, ride.VehicleDepartureTime)
			assert.Equal(t, tt.arrival, it.ArrivalTime)
			assert.InDelta(t, tt.totalCost, it.TotalCost, 1e-9)
			assert.Zero(t, it.TransferCount())
		})
	}
}

// The expected values below were worked out by hand from the treeNetwork
// timetable: blue from A at 07:45, red from C at 08:10, green from G at 08:40.
func TestFindTree_Golden(t *testing.T) {
	d := mustCompile(t, treeNetwork(t), DefaultStaticConfig())
	tree, err := NewSearchCore(d).FindTree(hms(7, 40, 0), []InitialStop{atStop(t, d, "A", 0, 0)}, DefaultParameters())
	require.NoError(t, err)

	want := map[schedule.StopID]struct {
		arrival   float64
		transfers int
		cost      float64
	}{
		"A": {hms(7, 40, 0), 0, 0},
		"B": {hms(7, 50, 0), 0, 1.5},
		"C": {hms(7, 55, 0), 0, 2.5},
		"D": {hms(8, 0, 0), 0, 3.5},
		"F": {hms(8, 15, 0), 1, 5.2},
		"G": {hms(8, 20, 0), 1, 6.2},
		"H": {hms(8, 44, 0), 2, 9.2},
		"I": {hms(8, 48, 0), 2, 10.0},
	}
	require.Len(t, tree, len(want))
	for id, w := range want {
		got, ok := tree[id]
		require.True(t, ok, "stop %s not reached", id)
		assert.Equal(t, w.arrival, got.ArrivalTime, "arrival at %s", id)
		assert.Equal(t, w.transfers, got.TransferCount, "transfers at %s", id)
		assert.InDelta(t, w.cost, got.ArrivalCost, 1e-9, "cost at %s", id)
		assert.Equal(t, schedule.StopID("A"), got.DepartureStop)
	}
}

func TestFindTree_MonotoneInRoundCap(t *testing.T) {
	d := mustCompile(t, treeNetwork(t), DefaultStaticConfig())
	core := NewSearchCore(d)
	access := []InitialStop{atStop(t, d, "A", 0, 0)}

	var prev map[schedule.StopID]TravelInfo
	for rounds := 0; rounds <= 5; rounds++ {
		params := DefaultParameters()
		params.MaxTransfers = rounds
		tree, err := core.FindTree(hms(7, 40, 0), access, params)
		require.NoError(t, err)

		for id, p := range prev {
			cur, ok := tree[id]
			require.True(t, ok, "stop %s lost with %d rounds", id, rounds)
			assert.LessOrEqual(t, cur.ArrivalCost, p.ArrivalCost)
		}
		if rounds >= 3 {
			// A round without improvement stays without improvement.
			assert.Equal(t, prev, tree)
		}
		prev = tree
	}
	assert.Len(t, prev, 8)
}

func TestFindTree_OneToAllReachesWalkOnlyStops(t *testing.T) {
	s := singleLine(t)
	// A stop 100 m off the end of the line, served by a line that only starts there.
	z := s.AddStop("Z", 7000, 100)
	s.AddLine("spur").AddRoute("spur", "bus").
		AddStop(z, schedule.UndefinedTime, 0).
		AddStop(s.Stop("S6"), 300, schedule.UndefinedTime).
		AddDeparture("1", hms(5, 0, 0))
	require.NoError(t, s.Validate())

	access := func(d *Data) []InitialStop { return []InitialStop{atStop(t, d, "S0", 0, 0)} }

	cfg := DefaultStaticConfig()
	least := mustCompile(t, s, cfg)
	tree, err := NewSearchCore(least).FindTree(hms(7, 0, 0), access(least), DefaultParameters())
	require.NoError(t, err)
	assert.NotContains(t, tree, schedule.StopID("Z"))

	cfg.Optimization = OptimizeOneToAllRouting
	all := mustCompile(t, s, cfg)
	tree, err = NewSearchCore(all).FindTree(hms(7, 0, 0), access(all), DefaultParameters())
	require.NoError(t, err)
	require.Contains(t, tree, schedule.StopID("Z"))
	// Walking off the line is not a transfer: Z keeps the count of S7.
	assert.Zero(t, tree["S7"].TransferCount)
	assert.Equal(t, tree["S7"].TransferCount, tree["Z"].TransferCount)
	assert.Greater(t, tree["Z"].ArrivalTime, tree["S7"].ArrivalTime)
}

func TestFindTree_WalkAfterRideKeepsTransferCount(t *testing.T) {
	// Two lines meeting at X, plus a stop W 100 m off the end of the second
	// one and reachable on foot only.
	s := schedule.New()
	a, x := s.AddStop("A", 0, 0), s.AddStop("X", 2000, 0)
	e, w := s.AddStop("E", 4000, 0), s.AddStop("W", 4000, 100)
	s.AddLine("first").AddRoute("first", "bus").AddStop(a, 0, 0).AddStop(x, 300, 300).AddDeparture("1", hms(7, 0, 0))
	s.AddLine("second").AddRoute("second", "bus").AddStop(x, 0, 0).AddStop(e, 300, 300).AddDeparture("1", hms(7, 10, 0))
	s.AddLine("spur").AddRoute("spur", "bus").AddStop(w, 0, 0).AddStop(a, 600, 600).AddDeparture("1", hms(5, 0, 0))
	require.NoError(t, s.Validate())

	cfg := DefaultStaticConfig()
	cfg.Optimization = OptimizeOneToAllRouting
	d := mustCompile(t, s, cfg)
	tree, err := NewSearchCore(d).FindTree(hms(7, 0, 0), []InitialStop{atStop(t, d, "A", 0, 0)}, DefaultParameters())
	require.NoError(t, err)

	tests := []struct {
		stop      schedule.StopID
		transfers int
	}{
		{stop: "A", transfers: 0},
		{stop: "X", transfers: 0},
		{stop: "E", transfers: 1},
		{stop: "W", transfers: 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.stop), func(t *testing.T) {
			require.Contains(t, tree, tt.stop)
			assert.Equal(t, tt.transfers, tree[tt.stop].TransferCount)
		})
	}
	assert.Greater(t, tree["W"].ArrivalTime, tree["E"].ArrivalTime)
}

func TestFindTree_DepartureStopOfMultipleOrigins(t *testing.T) {
	d := mustCompile(t, singleLine(t), DefaultStaticConfig())
	tree, err := NewSearchCore(d).FindTree(hms(7, 0, 0),
		[]InitialStop{atStop(t, d, "S0", 0, 0), atStop(t, d, "S4", 0, 0)},
		DefaultParameters())
	require.NoError(t, err)

	ids := slices.Sorted(maps.Keys(tree))
	assert.Len(t, ids, 8)
	assert.Equal(t, schedule.StopID("S0"), tree["S2"].DepartureStop)
	assert.Equal(t, schedule.StopID("S4"), tree["S6"].DepartureStop)
}

func BenchmarkFindBestRoute(b *testing.B) {
	d := mustCompile(b, treeNetwork(b), DefaultStaticConfig())
	core := NewSearchCore(d)
	access := []InitialStop{{Stop: d.StopByID("A")}}
	egress := []InitialStop{{Stop: d.StopByID("I")}}
	params := DefaultParameters()

	for b.Loop() {
		core.FindBestRoute(hms(7, 40, 0), access, egress, params)
	}
}
