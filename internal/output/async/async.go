package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

const (
	defaultWorkers      = 4
	defaultTimeout      = 15 * time.Second
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned for deliveries dispatched after Close.
var ErrClosed = errors.New("dispatcher closed")

// Result is the outcome of one delivery.
type Result struct {
	Notification model.Notification
	Receipt      model.Receipt
	Err          error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers bounds the number of concurrent deliveries. Default: 4.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTimeout sets the per-delivery timeout. Default: 15s. 0 disables it.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

// Dispatcher runs deliveries to the wrapped notifier on a bounded pool.
// Unlike a fire-and-forget queue, every delivery reports its own result so
// callers can act on confirmed receipts only.
type Dispatcher struct {
	inner   output.Notifier
	sem     *semaphore.Weighted
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New wraps a notifier in a Dispatcher.
func New(inner output.Notifier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inner:   inner,
		workers: defaultWorkers,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.sem = semaphore.NewWeighted(int64(d.workers))
	return d
}

// Notifier returns the wrapped notifier.
func (d *Dispatcher) Notifier() output.Notifier {
	return d.inner
}

// Dispatch starts delivering n and returns a channel that receives exactly
// one Result. It never blocks on the pool.
func (d *Dispatcher) Dispatch(ctx context.Context, n model.Notification) <-chan Result {
	ch := make(chan Result, 1)

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		ch <- Result{Notification: n, Err: ErrClosed}
		return ch
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()
		ch <- d.deliver(ctx, n)
	}()
	return ch
}

// DeliverAll dispatches every notification and waits for all results.
// Results are returned in input order.
func (d *Dispatcher) DeliverAll(ctx context.Context, ns []model.Notification) []Result {
	pending := make([]<-chan Result, len(ns))
	for i, n := range ns {
		pending[i] = d.Dispatch(ctx, n)
	}
	results := make([]Result, len(ns))
	for i, ch := range pending {
		results[i] = <-ch
	}
	return results
}

// Close stops accepting deliveries, waits for in-flight ones (with a
// timeout), then closes the inner notifier.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(defaultDrainTimeout):
		}
		d.closeErr = d.inner.Close()
	})
	return d.closeErr
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) Result {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return Result{Notification: n, Err: &output.DeliveryError{Destination: "dispatcher", Key: n.Key, Err: err}}
	}
	defer d.sem.Release(1)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	rcpt, err := d.inner.Notify(ctx, n)
	return Result{Notification: n, Receipt: rcpt, Err: err}
}
