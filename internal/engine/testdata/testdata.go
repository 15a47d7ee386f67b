package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed corpus.json
var corpusJSON []byte

// CorpusAirports is the watch-list the corpus labels are written against.
var CorpusAirports = []string{"OJAI", "OJAM", "OSDI", "ORBI"}

// CorpusEntry is a labeled flight for classification validation.
type CorpusEntry struct {
	Callsign      string `json:"callsign"`
	Departure     string `json:"departure"`
	Arrival       string `json:"arrival"`
	HasFlightPlan bool   `json:"has_flight_plan"`
	ExpectedKind  string `json:"expected_kind"`
	Description   string `json:"description"`
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}
