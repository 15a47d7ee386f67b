package model

import "time"

// FlightRecord is one pilot entry from a tracker snapshot, flattened.
type FlightRecord struct {
	SubjectID     string `json:"subject_id"` // controlling account/session id, display only
	Callsign      string `json:"callsign"`
	Departure     string `json:"departure,omitempty"` // ICAO code, empty when not filed
	Arrival       string `json:"arrival,omitempty"`   // ICAO code, empty when not filed
	Aircraft      string `json:"aircraft,omitempty"`
	Level         string `json:"level,omitempty"` // filed cruise level
	Route         string `json:"route,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
	HasFlightPlan bool   `json:"has_flight_plan"`
}

// Key returns the dedup identity of the record.
func (r FlightRecord) Key() EventKey {
	return EventKey{Callsign: r.Callsign, Departure: r.Departure, Arrival: r.Arrival}
}

// Snapshot is one reading of all currently active flights.
type Snapshot struct {
	Records   []FlightRecord
	FetchedAt time.Time
}
