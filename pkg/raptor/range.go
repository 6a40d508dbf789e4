package raptor

import (
	"cmp"
	"slices"
)

// FindAllRoutes searches repeatedly across [earliest, latest] and returns the
// Pareto-optimal itineraries, those departing closest to desired first. Each
// search departs just late enough to catch the first vehicle without waiting
// at the boarding stop; the next one starts a second after that.
func (c *SearchCore) FindAllRoutes(earliest, desired, latest float64, access, egress []InitialStop, params *Parameters) ([]*Itinerary, error) {
	var found []*Itinerary
	for t := earliest; t <= latest; {
		it, err := c.FindBestRoute(t, access, egress, params)
		if err != nil {
			return nil, err
		}
		if it == nil {
			break
		}
		ride, ok := it.FirstRide()
		if !ok {
			// Not using any vehicle, so a later start changes nothing.
			found = append(found, it)
			break
		}
		slack := max(ride.VehicleDepartureTime-ride.DepartureTime, 0)
		if slack > 0 && t+slack <= latest {
			tight, err := c.FindBestRoute(t+slack, access, egress, params)
			if err != nil {
				return nil, err
			}
			if tight != nil {
				it = tight
			}
		}
		found = append(found, it)
		t += slack + 1
	}
	return paretoFilter(found, desired), nil
}

// dominates reports whether a is at least as good as b in departure (later),
// arrival (earlier), transfers and cost, and better in one of them.
func dominates(a, b *Itinerary) bool {
	if a.DepartureTime < b.DepartureTime || a.ArrivalTime > b.ArrivalTime ||
		a.TransferCount() > b.TransferCount() || a.TotalCost > b.TotalCost {
		return false
	}
	return a.DepartureTime > b.DepartureTime || a.ArrivalTime < b.ArrivalTime ||
		a.TransferCount() < b.TransferCount() || a.TotalCost < b.TotalCost
}

func paretoFilter(candidates []*Itinerary, desired float64) []*Itinerary {
	var out []*Itinerary
	for i, a := range candidates {
		keep := true
		for j, b := range candidates {
			if i == j {
				continue
			}
			if dominates(b, a) || (j < i && sameTrip(a, b)) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b *Itinerary) int {
		if c := cmp.Compare(abs(a.DepartureTime-desired), abs(b.DepartureTime-desired)); c != 0 {
			return c
		}
		return cmp.Compare(a.DepartureTime, b.DepartureTime)
	})
	return out
}

// sameTrip is true for duplicates found by consecutive searches.
func sameTrip(a, b *Itinerary) bool {
	return a.DepartureTime == b.DepartureTime && a.ArrivalTime == b.ArrivalTime &&
		a.TotalCost == b.TotalCost && a.TransferCount() == b.TransferCount()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
