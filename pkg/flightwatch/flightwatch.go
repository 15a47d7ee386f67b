package flightwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/connector/file"
	"github.com/crimson-sun/flightwatch/internal/connector/ivao"
	"github.com/crimson-sun/flightwatch/internal/engine"
	"github.com/crimson-sun/flightwatch/internal/engine/classifier"
	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/engine/filter"
	"github.com/crimson-sun/flightwatch/internal/model"
)

// ErrFetch matches any failure to read the tracker snapshot.
var ErrFetch = connector.ErrFetch

// Monitor tracks which flights have already been reported.
type Monitor struct {
	fetcher      connector.Fetcher
	session      *engine.Session
	fetchTimeout time.Duration
	mu           sync.Mutex
}

// New creates a Monitor. No network traffic happens until Check or List.
func New(opts ...Option) (*Monitor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	watch := model.NewWatchList(o.airports...)
	if watch.Len() == 0 {
		return nil, errors.New("flightwatch: at least one airport is required")
	}

	var f connector.Fetcher
	if o.snapshotFile != "" {
		f = file.New(o.snapshotFile)
	} else {
		f = ivao.New(connector.Config{
			Endpoint: o.endpoint,
			Extra:    map[string]string{"timeout": o.fetchTimeout.String()},
		})
	}

	store := dedup.NewMemory(dedup.Config{Window: o.window})
	return &Monitor{
		fetcher:      f,
		session:      engine.New(watch, store, time.Now().Add(-time.Second)),
		fetchTimeout: o.fetchTimeout,
	}, nil
}

// Check reads the tracker and returns flights not returned before. Events
// are considered reported once returned. On a fetch failure nothing is
// returned and the error matches ErrFetch.
func (m *Monitor) Check(ctx context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	snap, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}

	ns, err := m.session.Candidates(ctx, filter.Relevant(snap, m.session.WatchList()), now)
	if err != nil {
		return nil, fmt.Errorf("flightwatch: %w", err)
	}

	events := make([]Event, 0, len(ns))
	for _, n := range ns {
		if err := m.session.MarkReported(ctx, n.Key, now); err != nil {
			return events, fmt.Errorf("flightwatch: %w", err)
		}
		events = append(events, eventFromNotification(n))
	}
	m.session.Advance(now)
	return events, nil
}

// List returns every current flight touching the watched airports,
// reported or not.
func (m *Monitor) List(ctx context.Context) ([]Flight, error) {
	snap, err := m.fetch(ctx)
	if err != nil {
		return nil, err
	}
	records := filter.Relevant(snap, m.session.WatchList())
	flights := make([]Flight, len(records))
	for i, r := range records {
		flights[i] = flightFromRecord(r)
	}
	return flights, nil
}

// Airports returns the watch-list.
func (m *Monitor) Airports() []string {
	return m.session.WatchList().Codes()
}

// Classify reports how f relates to airports: "combined", "departure",
// "arrival" or "none".
func Classify(f Flight, airports ...string) string {
	return classifier.Classify(f.record(), model.NewWatchList(airports...)).String()
}

// ParseWhazzup decodes a whazzup document into flights. Pilots without a
// flight plan are included with empty airports.
func ParseWhazzup(data []byte) ([]Flight, error) {
	records, err := ivao.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("flightwatch: %w", err)
	}
	flights := make([]Flight, len(records))
	for i, r := range records {
		flights[i] = flightFromRecord(r)
	}
	return flights, nil
}

func (m *Monitor) fetch(ctx context.Context) (model.Snapshot, error) {
	if m.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.fetchTimeout)
		defer cancel()
	}
	return m.fetcher.Fetch(ctx)
}
