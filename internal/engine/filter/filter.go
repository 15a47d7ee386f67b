package filter

import "github.com/crimson-sun/flightwatch/internal/model"

// Relevant returns the records that have a flight plan touching the
// watch-list. Snapshot order is kept and duplicates pass through unchanged.
func Relevant(snap model.Snapshot, watch model.WatchList) []model.FlightRecord {
	var out []model.FlightRecord
	for _, r := range snap.Records {
		if !r.HasFlightPlan {
			continue
		}
		if watch.Contains(r.Departure) || watch.Contains(r.Arrival) {
			out = append(out, r)
		}
	}
	return out
}
