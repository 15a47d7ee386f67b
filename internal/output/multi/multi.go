package multi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

// DefaultWindow is how long partial deliveries are remembered.
const DefaultWindow = 24 * time.Hour

// Multi fans out notifications to multiple output.Notifier implementations.
// Each Notify call delivers to every wrapped notifier sequentially. If one
// notifier fails, the remaining notifiers still receive the notification,
// but the call as a whole reports failure.
//
// Destinations that accepted a notification are remembered per key until
// every destination has it, so a retry only reaches the ones that failed.
type Multi struct {
	notifiers []output.Notifier
	window    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	owners  map[string]output.Notifier // receipt destination -> notifier
	partial map[model.EventKey]*progress
}

// progress tracks which notifiers already hold a notification.
type progress struct {
	started  time.Time
	receipts []*model.Receipt // indexed like notifiers; nil until delivered
}

// New creates a Multi that fans out to the given notifiers. Partial
// deliveries are forgotten after window; window <= 0 uses DefaultWindow.
func New(window time.Duration, notifiers ...output.Notifier) *Multi {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Multi{
		notifiers: notifiers,
		window:    window,
		now:       time.Now,
		owners:    make(map[string]output.Notifier),
		partial:   make(map[model.EventKey]*progress),
	}
}

// Notify delivers n to every wrapped notifier that does not have it yet.
// It succeeds once all of them have confirmed; the returned receipt is the
// first notifier's, with the others attached as Linked. Errors are joined.
func (m *Multi) Notify(ctx context.Context, n model.Notification) (model.Receipt, error) {
	if len(m.notifiers) == 0 {
		return model.Receipt{}, nil
	}
	prior := m.take(n.Key)

	var errs []error
	for i, nt := range m.notifiers {
		if prior.receipts[i] != nil {
			continue
		}
		rcpt, err := nt.Notify(ctx, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.remember(rcpt.Destination, nt)
		prior.receipts[i] = &rcpt
	}

	if len(errs) > 0 {
		m.keep(n.Key, prior)
		return model.Receipt{}, errors.Join(errs...)
	}

	first := *prior.receipts[0]
	for _, r := range prior.receipts[1:] {
		first.Linked = append(first.Linked, *r)
	}
	return first, nil
}

// Pending reports how many keys have been delivered to some but not all
// destinations.
func (m *Multi) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.partial)
}

// Delete routes the receipt to the notifier that produced it. Receipts from
// notifiers that cannot delete are ignored.
func (m *Multi) Delete(ctx context.Context, r model.Receipt) error {
	m.mu.Lock()
	owner := m.owners[r.Destination]
	m.mu.Unlock()

	if d, ok := owner.(output.Deleter); ok {
		return d.Delete(ctx, r)
	}
	return nil
}

// Close calls Close on every wrapped notifier, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, nt := range m.notifiers {
		if err := nt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// take removes and returns the progress for key, or a fresh one. Expired
// entries are dropped on the way.
func (m *Multi) take(key model.EventKey) *progress {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, p := range m.partial {
		if now.Sub(p.started) >= m.window {
			delete(m.partial, k)
		}
	}
	if p, ok := m.partial[key]; ok {
		delete(m.partial, key)
		return p
	}
	return &progress{started: now, receipts: make([]*model.Receipt, len(m.notifiers))}
}

func (m *Multi) keep(key model.EventKey, p *progress) {
	m.mu.Lock()
	m.partial[key] = p
	m.mu.Unlock()
}

func (m *Multi) remember(dest string, nt output.Notifier) {
	m.mu.Lock()
	m.owners[dest] = nt
	m.mu.Unlock()
}
