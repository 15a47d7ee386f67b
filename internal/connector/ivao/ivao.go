package ivao

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/connector/httpclient"
	"github.com/crimson-sun/flightwatch/internal/model"
)

const (
	defaultEndpoint = "https://api.ivao.aero"
	whazzupPath     = "/v2/tracker/whazzup"
	defaultTimeout  = 20 * time.Second
	userAgent       = "flightwatch-ivao/1.0"
)

func init() {
	connector.Register("ivao", func(cfg connector.Config) (connector.Fetcher, error) {
		return New(cfg), nil
	})
}

// Connector implements connector.Fetcher for the IVAO whazzup tracker.
type Connector struct {
	client *httpclient.Client
	now    func() time.Time
}

// New creates an IVAO connector. cfg.Endpoint overrides the API base URL and
// cfg.Extra["timeout"] the request timeout.
func New(cfg connector.Config) *Connector {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultEndpoint
	}
	baseURL = strings.TrimSuffix(baseURL, whazzupPath)

	timeout := defaultTimeout
	if raw := cfg.Extra["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	return &Connector{
		// A failed tick is skipped, never retried.
		client: httpclient.New(baseURL,
			httpclient.WithTimeout(timeout),
			httpclient.WithMaxRetries(0),
			httpclient.WithUserAgent(userAgent),
		),
		now:    time.Now,
	}
}

func (c *Connector) Fetch(ctx context.Context) (model.Snapshot, error) {
	var doc Whazzup
	if err := c.client.GetJSON(ctx, whazzupPath, nil, &doc); err != nil {
		return model.Snapshot{}, &connector.FetchError{Source: "ivao", Err: err}
	}
	return model.Snapshot{Records: doc.Records(), FetchedAt: c.now()}, nil
}

// Response types. Only the fields flightwatch reads are declared.

// Whazzup is the tracker document. Missing clients or pilots decode to an
// empty record set.
type Whazzup struct {
	Clients *clients `json:"clients"`
}

type clients struct {
	Pilots []pilot `json:"pilots"`
}

type pilot struct {
	UserID     flexString  `json:"userId"`
	Callsign   string      `json:"callsign"`
	FlightPlan *flightPlan `json:"flightPlan"`
}

type flightPlan struct {
	DepartureID string     `json:"departureId"`
	ArrivalID   string     `json:"arrivalId"`
	AircraftID  string     `json:"aircraftId"`
	Level       flexString `json:"level"`
	Route       string     `json:"route"`
	Remarks     string     `json:"remarks"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Records flattens the document into flight records.
func (w Whazzup) Records() []model.FlightRecord {
	if w.Clients == nil {
		return nil
	}
	out := make([]model.FlightRecord, 0, len(w.Clients.Pilots))
	for _, p := range w.Clients.Pilots {
		out = append(out, toRecord(p))
	}
	return out
}

func toRecord(p pilot) model.FlightRecord {
	r := model.FlightRecord{
		SubjectID: string(p.UserID),
		Callsign:  p.Callsign,
	}
	if fp := p.FlightPlan; fp != nil {
		r.HasFlightPlan = true
		r.Departure = normalizeICAO(fp.DepartureID)
		r.Arrival = normalizeICAO(fp.ArrivalID)
		r.Aircraft = fp.AircraftID
		r.Level = string(fp.Level)
		r.Route = fp.Route
		r.Remarks = fp.Remarks
	}
	return r
}

func normalizeICAO(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Parse decodes a whazzup document from raw bytes.
func Parse(data []byte) ([]model.FlightRecord, error) {
	var doc Whazzup
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Records(), nil
}
