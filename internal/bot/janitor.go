package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

const deleteTimeout = 10 * time.Second

// Janitor deletes delivered messages once they are older than the
// retention window. Failures are logged, never returned.
type Janitor struct {
	deleter   output.Deleter
	retention time.Duration

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewJanitor creates a Janitor. A non-positive retention disables it.
func NewJanitor(d output.Deleter, retention time.Duration) *Janitor {
	return &Janitor{
		deleter:   d,
		retention: retention,
		timers:    make(map[*time.Timer]struct{}),
	}
}

// Enabled reports whether Schedule does anything.
func (j *Janitor) Enabled() bool {
	return j != nil && j.deleter != nil && j.retention > 0
}

// Schedule arranges for r to be deleted after the retention window,
// counted from r.SentAt.
func (j *Janitor) Schedule(r model.Receipt) {
	if !j.Enabled() || r.MessageID == "" {
		return
	}

	sentAt := r.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	delay := time.Until(sentAt.Add(j.retention))
	if delay < 0 {
		delay = 0
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return
	}

	var t *time.Timer
	j.wg.Add(1)
	t = time.AfterFunc(delay, func() {
		defer j.wg.Done()
		j.mu.Lock()
		delete(j.timers, t)
		j.mu.Unlock()
		j.delete(r)
	})
	j.timers[t] = struct{}{}
}

// Pending returns the number of scheduled deletions.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.timers)
}

// Stop drops pending deletions and waits for running ones.
func (j *Janitor) Stop() {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.stopped = true
	for t := range j.timers {
		if t.Stop() {
			j.wg.Done()
		}
		delete(j.timers, t)
	}
	j.mu.Unlock()
	j.wg.Wait()
}

func (j *Janitor) delete(r model.Receipt) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := j.deleter.Delete(ctx, r); err != nil {
		slog.Warn("delete expired message failed",
			"destination", r.Destination, "message_id", r.MessageID, "error", err)
		return
	}
	slog.Debug("deleted expired message", "destination", r.Destination, "message_id", r.MessageID)
}
