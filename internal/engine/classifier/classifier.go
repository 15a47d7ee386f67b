package classifier

import "github.com/crimson-sun/flightwatch/internal/model"

// Classify returns the event kind of a flight relative to the watch-list.
// Precedence is Combined, then Departure, then Arrival: a flight between two
// watched airports is never reported as two separate events.
func Classify(r model.FlightRecord, watch model.WatchList) model.EventKind {
	dep := watch.Contains(r.Departure)
	arr := watch.Contains(r.Arrival)
	switch {
	case dep && arr:
		return model.KindCombined
	case dep:
		return model.KindDeparture
	case arr:
		return model.KindArrival
	default:
		return model.KindNone
	}
}
