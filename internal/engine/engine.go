package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crimson-sun/flightwatch/internal/engine/classifier"
	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/id"
	"github.com/crimson-sun/flightwatch/internal/model"
)

// Session owns the classification state of a running monitor: the
// watch-list, the reported-event store and the last completed pass time.
type Session struct {
	watch  model.WatchList
	store  dedup.Store
	nextID func() int64

	mu          sync.RWMutex
	lastChecked time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithIDFunc overrides notification ID generation.
func WithIDFunc(f func() int64) Option {
	return func(s *Session) { s.nextID = f }
}

// New creates a Session. lastChecked starts at start.
func New(watch model.WatchList, store dedup.Store, start time.Time, opts ...Option) *Session {
	s := &Session{
		watch:       watch,
		store:       store,
		nextID:      id.New,
		lastChecked: start,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WatchList returns the session's watch-list.
func (s *Session) WatchList() model.WatchList { return s.watch }

// Store returns the reported-event store.
func (s *Session) Store() dedup.Store { return s.store }

// LastChecked returns the time of the last completed pass.
func (s *Session) LastChecked() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastChecked
}

// Candidates classifies records and returns the notifications that are
// eligible for delivery, in input order. The store is not modified; callers
// mark keys via MarkReported once delivery is confirmed.
func (s *Session) Candidates(ctx context.Context, records []model.FlightRecord, now time.Time) ([]model.Notification, error) {
	if !now.After(s.LastChecked()) {
		return nil, nil
	}

	var out []model.Notification
	inBatch := make(map[model.EventKey]struct{})
	for _, r := range records {
		kind := classifier.Classify(r, s.watch)
		if kind == model.KindNone {
			continue
		}
		key := r.Key()
		if _, dup := inBatch[key]; dup {
			continue
		}
		seen, err := s.store.Seen(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		if seen {
			continue
		}
		inBatch[key] = struct{}{}
		out = append(out, model.Notification{
			ID:         s.nextID(),
			Kind:       kind,
			Key:        key,
			Record:     r,
			ObservedAt: now,
		})
	}
	return out, nil
}

// MarkReported records a confirmed delivery.
func (s *Session) MarkReported(ctx context.Context, key model.EventKey, at time.Time) error {
	if err := s.store.Mark(ctx, key, at); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Advance moves lastChecked forward to now. Earlier times are ignored.
func (s *Session) Advance(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastChecked) {
		s.lastChecked = now
	}
}
