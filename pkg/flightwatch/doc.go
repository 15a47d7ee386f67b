// Package flightwatch watches a live flight tracker for departures from and
// arrivals at a set of airports.
//
// Quick start:
//
//	m, err := flightwatch.New(flightwatch.WithAirports("OJAI", "ORBI"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	events, _ := m.Check(ctx)
//	for _, e := range events {
//	    fmt.Println(e.Kind, e.Flight.Callsign) // departure RJA100
//	}
//
// Each event is returned by Check once. A Monitor is safe for concurrent
// use, but Check calls are serialized.
package flightwatch
