package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// DefaultWindow is how long a reported key suppresses re-announcement.
const DefaultWindow = 24 * time.Hour

// Store remembers which event keys have already been announced.
type Store interface {
	// Seen reports whether key was marked within the retention window.
	Seen(ctx context.Context, key model.EventKey) (bool, error)

	// Mark records key as reported at the given time.
	Mark(ctx context.Context, key model.EventKey, at time.Time) error

	// Prune drops entries older than the window and returns how many went.
	Prune(ctx context.Context, now time.Time) (int, error)

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)
}

// Config controls deduplication behavior.
type Config struct {
	Window time.Duration // retention window (default 24h)
}

func (c Config) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}

// Option configures a Memory store.
type Option func(*Memory)

// WithClock overrides the time source used by Seen.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// Memory is a process-local, time-windowed Store.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[model.EventKey]time.Time
}

// NewMemory creates an in-memory store with the given config.
func NewMemory(cfg Config, opts ...Option) *Memory {
	m := &Memory{
		window: cfg.window(),
		now:    time.Now,
		seen:   make(map[model.EventKey]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Seen(_ context.Context, key model.EventKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.seen[key]
	if !ok {
		return false, nil
	}
	if m.now().Sub(at) >= m.window {
		delete(m.seen, key)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Mark(_ context.Context, key model.EventKey, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = at
	return nil
}

func (m *Memory) Prune(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, at := range m.seen {
		if now.Sub(at) >= m.window {
			delete(m.seen, key)
			n++
		}
	}
	return n, nil
}

// Len counts keys still inside the window. Expired keys awaiting Prune are
// not included.
func (m *Memory) Len(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, at := range m.seen {
		if now.Sub(at) < m.window {
			n++
		}
	}
	return n, nil
}
