package raptor

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"maps"
	"os"
	"slices"
	"unsafe"

	"github.com/paulmach/orb"

	"transit_router/pkg/geo"
	"transit_router/pkg/schedule"
)

const (
	magicBytes      = "TRRAPTOR"
	snapshotVersion = uint32(1)
	maxElements     = 100_000_000
	maxStringLen    = 1 << 20
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic         [8]byte
	Version       uint32
	NumStops      uint32
	NumLines      uint32
	NumRoutes     uint32
	NumRouteStops uint32
	NumDepartures uint32
	NumTransfers  uint32
	NumModes      uint32
}

// configBlock is the fixed-size part of StaticConfig plus the projection.
type configBlock struct {
	BeelineWalkConnectionDistance   float64
	BeelineWalkSpeed                float64
	MarginalUtilityOfTravelTimeWalk float64
	MinimalTransferTime             float64
	TransferPenaltyCost             float64
	Optimization                    int32
	UseModeMappingForPassengers     bool
	OriginLat                       float64
	OriginLon                       float64
}

// WriteSnapshot serializes compiled data to path. The file is written to a
// temporary name first and renamed when complete.
func WriteSnapshot(path string, d *Data) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	cw := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &cw

	hdr := fileHeader{
		Version:       snapshotVersion,
		NumStops:      uint32(len(d.Stops)),
		NumRoutes:     uint32(len(d.Routes)),
		NumRouteStops: uint32(len(d.RouteStops)),
		NumDepartures: uint32(len(d.Departures)),
		NumTransfers:  uint32(len(d.Transfers)),
		NumModes:      uint32(len(d.Modes)),
	}
	lines, lineIdx := collectLines(d)
	hdr.NumLines = uint32(len(lines))
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cfg := configBlock{
		BeelineWalkConnectionDistance:   d.Config.BeelineWalkConnectionDistance,
		BeelineWalkSpeed:                d.Config.BeelineWalkSpeed,
		MarginalUtilityOfTravelTimeWalk: d.Config.MarginalUtilityOfTravelTimeWalk,
		MinimalTransferTime:             d.Config.MinimalTransferTime,
		TransferPenaltyCost:             d.Config.TransferPenaltyCost,
		Optimization:                    int32(d.Config.Optimization),
		UseModeMappingForPassengers:     d.Config.UseModeMappingForPassengers,
		OriginLat:                       d.Projection.OriginLat,
		OriginLon:                       d.Projection.OriginLon,
	}
	if err := binary.Write(w, binary.LittleEndian, &cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := writeStringMap(w, d.Config.PassengerModes); err != nil {
		return fmt.Errorf("write passenger modes: %w", err)
	}
	if err := writeStrings(w, d.Modes); err != nil {
		return fmt.Errorf("write modes: %w", err)
	}

	// Stops.
	xs := make([]float64, len(d.Stops))
	ys := make([]float64, len(d.Stops))
	for i, s := range d.Stops {
		xs[i], ys[i] = s.Coord.X(), s.Coord.Y()
		if err := writeStrings(w, []string{string(s.ID), s.Name, s.LinkID}); err != nil {
			return fmt.Errorf("write stop %s: %w", s.ID, err)
		}
		if err := writeStringMap(w, s.Attributes); err != nil {
			return fmt.Errorf("write stop %s attributes: %w", s.ID, err)
		}
	}
	if err := writeFloat64Slice(w, xs); err != nil {
		return fmt.Errorf("write stop x: %w", err)
	}
	if err := writeFloat64Slice(w, ys); err != nil {
		return fmt.Errorf("write stop y: %w", err)
	}

	// Lines.
	for _, l := range lines {
		if err := writeStrings(w, []string{string(l.ID), l.Name}); err != nil {
			return fmt.Errorf("write line %s: %w", l.ID, err)
		}
	}

	// Routes, with the schedule's departure ids in their original order.
	routeLine := make([]int32, len(d.Routes))
	routeMode := make([]int32, len(d.Routes))
	routeFirstRS := make([]int32, len(d.Routes))
	routeCountRS := make([]int32, len(d.Routes))
	routeFirstDep := make([]int32, len(d.Routes))
	routeCountDep := make([]int32, len(d.Routes))
	for i, r := range d.Routes {
		routeLine[i] = lineIdx[r.Line]
		routeMode[i] = r.Mode
		routeFirstRS[i] = int32(r.FirstRouteStop)
		routeCountRS[i] = r.CountRouteStops
		routeFirstDep[i] = r.FirstDeparture
		routeCountDep[i] = r.CountDepartures
		if err := writeStrings(w, []string{string(r.Route.ID), r.Route.Mode}); err != nil {
			return fmt.Errorf("write route %s: %w", r.Route.ID, err)
		}
		ids := make([]string, len(r.Route.Departures))
		times := make([]float64, len(r.Route.Departures))
		for j, dep := range r.Route.Departures {
			ids[j], times[j] = dep.ID, dep.Time
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
			return fmt.Errorf("write route %s departure count: %w", r.Route.ID, err)
		}
		if err := writeStrings(w, ids); err != nil {
			return fmt.Errorf("write route %s departure ids: %w", r.Route.ID, err)
		}
		if err := writeFloat64Slice(w, times); err != nil {
			return fmt.Errorf("write route %s departure times: %w", r.Route.ID, err)
		}
	}
	for _, col := range []struct {
		name string
		s    []int32
	}{
		{"RouteLine", routeLine}, {"RouteMode", routeMode},
		{"RouteFirstRouteStop", routeFirstRS}, {"RouteCountRouteStops", routeCountRS},
		{"RouteFirstDeparture", routeFirstDep}, {"RouteCountDepartures", routeCountDep},
	} {
		if err := writeInt32Slice(w, col.s); err != nil {
			return fmt.Errorf("write %s: %w", col.name, err)
		}
	}

	// Route stops.
	n := len(d.RouteStops)
	rsRoute, rsPos, rsStop := make([]int32, n), make([]int32, n), make([]int32, n)
	rsFirstT, rsCountT := make([]int32, n), make([]int32, n)
	rsArr, rsDep, rsDist := make([]float64, n), make([]float64, n), make([]float64, n)
	for i, rs := range d.RouteStops {
		rsRoute[i], rsPos[i], rsStop[i] = int32(rs.Route), rs.Position, int32(rs.Stop)
		rsFirstT[i], rsCountT[i] = rs.FirstTransfer, rs.CountTransfers
		rsArr[i], rsDep[i], rsDist[i] = rs.ArrivalOffset, rs.DepartureOffset, rs.Distance
	}
	for _, col := range []struct {
		name string
		s    []int32
	}{
		{"RouteStopRoute", rsRoute}, {"RouteStopPosition", rsPos}, {"RouteStopStop", rsStop},
		{"RouteStopFirstTransfer", rsFirstT}, {"RouteStopCountTransfers", rsCountT},
	} {
		if err := writeInt32Slice(w, col.s); err != nil {
			return fmt.Errorf("write %s: %w", col.name, err)
		}
	}
	for _, col := range []struct {
		name string
		s    []float64
	}{
		{"RouteStopArrival", rsArr}, {"RouteStopDeparture", rsDep}, {"RouteStopDistance", rsDist},
		{"Departures", d.Departures},
	} {
		if err := writeFloat64Slice(w, col.s); err != nil {
			return fmt.Errorf("write %s: %w", col.name, err)
		}
	}

	// Transfers.
	m := len(d.Transfers)
	tFrom, tTo := make([]int32, m), make([]int32, m)
	tTime, tCost := make([]float64, m), make([]float64, m)
	for i, t := range d.Transfers {
		tFrom[i], tTo[i], tTime[i], tCost[i] = int32(t.From), int32(t.To), t.Time, t.Cost
	}
	if err := writeInt32Slice(w, tFrom); err != nil {
		return fmt.Errorf("write TransferFrom: %w", err)
	}
	if err := writeInt32Slice(w, tTo); err != nil {
		return fmt.Errorf("write TransferTo: %w", err)
	}
	if err := writeFloat64Slice(w, tTime); err != nil {
		return fmt.Errorf("write TransferTime: %w", err)
	}
	if err := writeFloat64Slice(w, tCost); err != nil {
		return fmt.Errorf("write TransferCost: %w", err)
	}

	// Write CRC32 trailer.
	if err := binary.Write(f, binary.LittleEndian, cw.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadSnapshot loads compiled data written by WriteSnapshot. Lines, routes
// and stops are rebuilt as schedule objects so itineraries can reference them.
func ReadSnapshot(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cr := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &cr

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	for _, c := range []uint32{hdr.NumStops, hdr.NumLines, hdr.NumRoutes, hdr.NumRouteStops, hdr.NumDepartures, hdr.NumTransfers, hdr.NumModes} {
		if c > maxElements {
			return nil, fmt.Errorf("element count %d exceeds limit %d", c, maxElements)
		}
	}

	var cfg configBlock
	if err := binary.Read(r, binary.LittleEndian, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	d := &Data{
		Config: StaticConfig{
			BeelineWalkConnectionDistance:   cfg.BeelineWalkConnectionDistance,
			BeelineWalkSpeed:                cfg.BeelineWalkSpeed,
			MarginalUtilityOfTravelTimeWalk: cfg.MarginalUtilityOfTravelTimeWalk,
			MinimalTransferTime:             cfg.MinimalTransferTime,
			TransferPenaltyCost:             cfg.TransferPenaltyCost,
			Optimization:                    Optimization(cfg.Optimization),
			UseModeMappingForPassengers:     cfg.UseModeMappingForPassengers,
		},
	}
	if cfg.OriginLat != 0 || cfg.OriginLon != 0 {
		d.Projection = geo.NewProjection(cfg.OriginLat, cfg.OriginLon)
	}
	if d.Config.PassengerModes, err = readStringMap(r); err != nil {
		return nil, fmt.Errorf("read passenger modes: %w", err)
	}
	if d.Modes, err = readStrings(r, int(hdr.NumModes)); err != nil {
		return nil, fmt.Errorf("read modes: %w", err)
	}

	// Stops.
	d.Stops = make([]*schedule.Stop, hdr.NumStops)
	for i := range d.Stops {
		fields, err := readStrings(r, 3)
		if err != nil {
			return nil, fmt.Errorf("read stop %d: %w", i, err)
		}
		attrs, err := readStringMap(r)
		if err != nil {
			return nil, fmt.Errorf("read stop %d attributes: %w", i, err)
		}
		d.Stops[i] = &schedule.Stop{ID: schedule.StopID(fields[0]), Name: fields[1], LinkID: fields[2], Attributes: attrs}
	}
	xs, err := readFloat64Slice(r, int(hdr.NumStops))
	if err != nil {
		return nil, fmt.Errorf("read stop x: %w", err)
	}
	ys, err := readFloat64Slice(r, int(hdr.NumStops))
	if err != nil {
		return nil, fmt.Errorf("read stop y: %w", err)
	}
	for i, s := range d.Stops {
		s.Coord = orb.Point{xs[i], ys[i]}
	}

	// Lines.
	lines := make([]*schedule.Line, hdr.NumLines)
	for i := range lines {
		fields, err := readStrings(r, 2)
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", i, err)
		}
		lines[i] = &schedule.Line{ID: schedule.LineID(fields[0]), Name: fields[1]}
	}

	// Routes.
	routes := make([]*schedule.Route, hdr.NumRoutes)
	for i := range routes {
		fields, err := readStrings(r, 2)
		if err != nil {
			return nil, fmt.Errorf("read route %d: %w", i, err)
		}
		routes[i] = &schedule.Route{ID: schedule.RouteID(fields[0]), Mode: fields[1]}
		ids, err := readLenPrefixedStrings(r)
		if err != nil {
			return nil, fmt.Errorf("read route %d departure ids: %w", i, err)
		}
		times, err := readFloat64Slice(r, len(ids))
		if err != nil {
			return nil, fmt.Errorf("read route %d departure times: %w", i, err)
		}
		for j := range ids {
			routes[i].Departures = append(routes[i].Departures, schedule.Departure{ID: ids[j], Time: times[j]})
		}
	}
	nr := int(hdr.NumRoutes)
	var routeCols [6][]int32
	for c := range routeCols {
		if routeCols[c], err = readInt32Slice(r, nr); err != nil {
			return nil, fmt.Errorf("read route column %d: %w", c, err)
		}
	}

	// Route stops.
	ns := int(hdr.NumRouteStops)
	var rsInts [5][]int32
	for c := range rsInts {
		if rsInts[c], err = readInt32Slice(r, ns); err != nil {
			return nil, fmt.Errorf("read route stop column %d: %w", c, err)
		}
	}
	var rsFloats [3][]float64
	for c := range rsFloats {
		if rsFloats[c], err = readFloat64Slice(r, ns); err != nil {
			return nil, fmt.Errorf("read route stop column %d: %w", c+len(rsInts), err)
		}
	}
	if d.Departures, err = readFloat64Slice(r, int(hdr.NumDepartures)); err != nil {
		return nil, fmt.Errorf("read Departures: %w", err)
	}

	// Transfers.
	nt := int(hdr.NumTransfers)
	tFrom, err := readInt32Slice(r, nt)
	if err != nil {
		return nil, fmt.Errorf("read TransferFrom: %w", err)
	}
	tTo, err := readInt32Slice(r, nt)
	if err != nil {
		return nil, fmt.Errorf("read TransferTo: %w", err)
	}
	tTime, err := readFloat64Slice(r, nt)
	if err != nil {
		return nil, fmt.Errorf("read TransferTime: %w", err)
	}
	tCost, err := readFloat64Slice(r, nt)
	if err != nil {
		return nil, fmt.Errorf("read TransferCost: %w", err)
	}

	// Read and validate CRC32.
	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	// Assemble and check index invariants before anything dereferences them.
	d.Routes = make([]Route, nr)
	for i := range d.Routes {
		rt := Route{
			Mode:            routeCols[1][i],
			FirstRouteStop:  RouteStopIndex(routeCols[2][i]),
			CountRouteStops: routeCols[3][i],
			FirstDeparture:  routeCols[4][i],
			CountDepartures: routeCols[5][i],
		}
		li := routeCols[0][i]
		if li < 0 || int(li) >= len(lines) {
			return nil, fmt.Errorf("route %d: line %d out of range", i, li)
		}
		if rt.Mode < 0 || int(rt.Mode) >= len(d.Modes) {
			return nil, fmt.Errorf("route %d: mode %d out of range", i, rt.Mode)
		}
		if err := checkSlice(int64(rt.FirstRouteStop), int64(rt.CountRouteStops), ns); err != nil {
			return nil, fmt.Errorf("route %d route stops: %w", i, err)
		}
		if err := checkSlice(int64(rt.FirstDeparture), int64(rt.CountDepartures), len(d.Departures)); err != nil {
			return nil, fmt.Errorf("route %d departures: %w", i, err)
		}
		deps := d.Departures[rt.FirstDeparture : rt.FirstDeparture+rt.CountDepartures]
		if !slices.IsSorted(deps) {
			return nil, fmt.Errorf("route %d: departures not sorted", i)
		}
		rt.Line = lines[li]
		rt.Route = routes[i]
		lines[li].Routes = append(lines[li].Routes, routes[i])
		d.Routes[i] = rt
	}

	d.RouteStops = make([]RouteStop, ns)
	for i := range d.RouteStops {
		rs := RouteStop{
			Route:           RouteIndex(rsInts[0][i]),
			Position:        rsInts[1][i],
			Stop:            StopIndex(rsInts[2][i]),
			FirstTransfer:   rsInts[3][i],
			CountTransfers:  rsInts[4][i],
			ArrivalOffset:   rsFloats[0][i],
			DepartureOffset: rsFloats[1][i],
			Distance:        rsFloats[2][i],
		}
		if rs.Route < 0 || int(rs.Route) >= nr {
			return nil, fmt.Errorf("route stop %d: route %d out of range", i, rs.Route)
		}
		if rs.Stop < 0 || int(rs.Stop) >= len(d.Stops) {
			return nil, fmt.Errorf("route stop %d: stop %d out of range", i, rs.Stop)
		}
		route := d.Routes[rs.Route]
		if int32(route.FirstRouteStop)+rs.Position != int32(i) {
			return nil, fmt.Errorf("route stop %d: position %d does not match its route", i, rs.Position)
		}
		if err := checkSlice(int64(rs.FirstTransfer), int64(rs.CountTransfers), nt); err != nil {
			return nil, fmt.Errorf("route stop %d transfers: %w", i, err)
		}
		d.RouteStops[i] = rs
		route.Route.Stops = append(route.Route.Stops, schedule.RouteStop{
			Stop:            d.Stops[rs.Stop],
			ArrivalOffset:   rs.ArrivalOffset,
			DepartureOffset: rs.DepartureOffset,
		})
	}

	d.Transfers = make([]Transfer, nt)
	for i := range d.Transfers {
		if tFrom[i] < 0 || int(tFrom[i]) >= ns || tTo[i] < 0 || int(tTo[i]) >= ns {
			return nil, fmt.Errorf("transfer %d: route stop out of range", i)
		}
		d.Transfers[i] = Transfer{From: RouteStopIndex(tFrom[i]), To: RouteStopIndex(tTo[i]), Time: tTime[i], Cost: tCost[i]}
	}

	d.buildLookups()
	return d, nil
}

func checkSlice(first, count int64, length int) error {
	if first < 0 || count < 0 || first+count > int64(length) {
		return fmt.Errorf("slice [%d:+%d] outside 0..%d", first, count, length)
	}
	return nil
}

// collectLines returns the distinct lines in route order and their positions.
func collectLines(d *Data) ([]*schedule.Line, map[*schedule.Line]int32) {
	var lines []*schedule.Line
	idx := make(map[*schedule.Line]int32)
	for _, r := range d.Routes {
		if _, ok := idx[r.Line]; !ok {
			idx[r.Line] = int32(len(lines))
			lines = append(lines, r.Line)
		}
	}
	return lines, idx
}

// String helpers. Strings are a uint32 length followed by the bytes.

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeStrings(w io.Writer, ss []string) error {
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// writeStringMap writes a count and the pairs sorted by key.
func writeStringMap(w io.Writer, m map[string]string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m))); err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if err := writeStrings(w, []string{k, m[k]}); err != nil {
			return err
		}
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit %d", n, maxStringLen)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readStrings(r io.Reader, n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func readLenPrefixedStrings(r io.Reader) ([]string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxElements {
		return nil, fmt.Errorf("count %d exceeds limit %d", n, maxElements)
	}
	return readStrings(r, int(n))
}

func readStringMap(r io.Reader) (map[string]string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxElements {
		return nil, fmt.Errorf("count %d exceeds limit %d", n, maxElements)
	}
	if n == 0 {
		return nil, nil
	}
	m := make(map[string]string, n)
	for range n {
		kv, err := readStrings(r, 2)
		if err != nil {
			return nil, err
		}
		m[kv[0]] = kv[1]
	}
	return m, nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
