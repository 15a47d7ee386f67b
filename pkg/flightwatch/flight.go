package flightwatch

import (
	"time"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// Flight is one active flight with its filed plan.
// This is the stable public type; internal representations may evolve
// independently.
type Flight struct {
	SubjectID string `json:"subject_id"`
	Callsign  string `json:"callsign"`
	Departure string `json:"departure,omitempty"` // ICAO code
	Arrival   string `json:"arrival,omitempty"`   // ICAO code
	Aircraft  string `json:"aircraft,omitempty"`
	Level     string `json:"level,omitempty"`
	Route     string `json:"route,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
}

// Event is a newly observed flight touching the watched airports.
type Event struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"` // combined, departure or arrival
	Key        string    `json:"key"`  // CALLSIGN-DEP-ARR
	Flight     Flight    `json:"flight"`
	ObservedAt time.Time `json:"observed_at"`
}

func flightFromRecord(r model.FlightRecord) Flight {
	return Flight{
		SubjectID: r.SubjectID,
		Callsign:  r.Callsign,
		Departure: r.Departure,
		Arrival:   r.Arrival,
		Aircraft:  r.Aircraft,
		Level:     r.Level,
		Route:     r.Route,
		Remarks:   r.Remarks,
	}
}

func (f Flight) record() model.FlightRecord {
	return model.FlightRecord{
		SubjectID:     f.SubjectID,
		Callsign:      f.Callsign,
		Departure:     f.Departure,
		Arrival:       f.Arrival,
		Aircraft:      f.Aircraft,
		Level:         f.Level,
		Route:         f.Route,
		Remarks:       f.Remarks,
		HasFlightPlan: f.Departure != "" || f.Arrival != "",
	}
}

func eventFromNotification(n model.Notification) Event {
	return Event{
		ID:         n.ID,
		Kind:       n.Kind.String(),
		Key:        n.Key.String(),
		Flight:     flightFromRecord(n.Record),
		ObservedAt: n.ObservedAt,
	}
}
