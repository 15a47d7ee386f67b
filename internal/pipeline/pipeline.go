package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/engine"
	"github.com/crimson-sun/flightwatch/internal/engine/filter"
	"github.com/crimson-sun/flightwatch/internal/logging"
	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output/async"
)

const (
	tracerName          = "github.com/crimson-sun/flightwatch/internal/pipeline"
	defaultFetchTimeout = 20 * time.Second
)

// PassResult summarizes one classification pass.
type PassResult struct {
	PassID     uuid.UUID
	Fetched    int
	Relevant   int
	Candidates int
	Delivered  int
	Failed     int
	Skipped    bool // fetch or store failure; lastChecked unchanged
}

// DeliveredFunc is called once per destination of every confirmed delivery.
type DeliveredFunc func(ctx context.Context, n model.Notification, r model.Receipt)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetchTimeout bounds each snapshot fetch. Default: 20s.
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.fetchTimeout = d }
}

// WithOnDelivered registers a hook for confirmed deliveries, e.g. to
// schedule message cleanup.
func WithOnDelivered(f DeliveredFunc) Option {
	return func(p *Pipeline) { p.onDelivered = f }
}

// WithClock overrides the pass clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline connects a fetcher, a classification session and a delivery
// dispatcher.
type Pipeline struct {
	fetcher      connector.Fetcher
	session      *engine.Session
	dispatcher   *async.Dispatcher
	fetchTimeout time.Duration
	onDelivered  DeliveredFunc
	now          func() time.Time
	tracer       trace.Tracer
}

// New creates a Pipeline from the given components.
func New(f connector.Fetcher, s *engine.Session, d *async.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:      f,
		session:      s,
		dispatcher:   d,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the classification session.
func (p *Pipeline) Session() *engine.Session {
	return p.session
}

// Pass runs one fetch, classify and deliver cycle. A fetch or store failure
// skips the cycle and is returned; delivery failures are counted in the
// result and leave their keys eligible for the next pass.
func (p *Pipeline) Pass(ctx context.Context) (PassResult, error) {
	res := PassResult{PassID: uuid.New()}
	ctx = logging.WithLogFields(ctx, logging.LogFields{
		PassID:    res.PassID.String(),
		Component: "flightwatch.pipeline",
	})
	ctx, span := p.tracer.Start(ctx, "flightwatch.pass",
		trace.WithAttributes(attribute.String("flightwatch.pass_id", res.PassID.String())))
	defer span.End()
	defer func() {
		span.SetAttributes(
			attribute.Int("flightwatch.fetched", res.Fetched),
			attribute.Int("flightwatch.relevant", res.Relevant),
			attribute.Int("flightwatch.candidates", res.Candidates),
			attribute.Int("flightwatch.delivered", res.Delivered),
			attribute.Int("flightwatch.failed", res.Failed),
			attribute.Bool("flightwatch.skipped", res.Skipped),
		)
	}()

	now := p.now()

	snap, err := p.fetch(ctx)
	if err != nil {
		res.Skipped = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		slog.WarnContext(ctx, "fetch failed, skipping pass", "error", err)
		return res, err
	}
	res.Fetched = len(snap.Records)

	relevant := filter.Relevant(snap, p.session.WatchList())
	res.Relevant = len(relevant)

	candidates, err := p.session.Candidates(ctx, relevant, now)
	if err != nil {
		res.Skipped = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "reported store unavailable")
		slog.ErrorContext(ctx, "reported store lookup failed, skipping pass", "error", err)
		return res, fmt.Errorf("pipeline candidates: %w", err)
	}
	res.Candidates = len(candidates)

	for _, r := range p.dispatcher.DeliverAll(ctx, candidates) {
		nctx := logging.WithLogFields(ctx, logging.LogFields{Callsign: r.Notification.Record.Callsign})
		if r.Err != nil {
			res.Failed++
			slog.WarnContext(nctx, "delivery failed, will retry next pass",
				"kind", r.Notification.Kind.String(), "key", r.Notification.Key.String(), "error", r.Err)
			continue
		}
		res.Delivered++
		if err := p.session.MarkReported(ctx, r.Notification.Key, p.now()); err != nil {
			slog.ErrorContext(nctx, "mark reported failed", "key", r.Notification.Key.String(), "error", err)
		}
		slog.InfoContext(nctx, "flight notified",
			"kind", r.Notification.Kind.String(),
			"departure", r.Notification.Record.Departure,
			"arrival", r.Notification.Record.Arrival,
			"destination", r.Receipt.Destination,
		)
		if p.onDelivered != nil {
			for _, rcpt := range r.Receipt.All() {
				p.onDelivered(nctx, r.Notification, rcpt)
			}
		}
	}

	if pruned, err := p.session.Store().Prune(ctx, now); err != nil {
		slog.WarnContext(ctx, "prune reported store failed", "error", err)
	} else if pruned > 0 {
		slog.DebugContext(ctx, "pruned reported keys", "count", pruned)
	}

	p.session.Advance(now)

	slog.DebugContext(ctx, "pass complete",
		"fetched", res.Fetched,
		"relevant", res.Relevant,
		"candidates", res.Candidates,
		"delivered", res.Delivered,
		"failed", res.Failed,
	)
	return res, nil
}

// ListCurrent fetches a fresh snapshot and returns the flights touching
// the watch-list. ok is false when no data could be fetched, which is
// distinct from an empty result. The session is not touched.
func (p *Pipeline) ListCurrent(ctx context.Context) ([]model.FlightRecord, bool, error) {
	snap, err := p.fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	return filter.Relevant(snap, p.session.WatchList()), true, nil
}

// Close shuts down the dispatcher and its notifier.
func (p *Pipeline) Close() error {
	return p.dispatcher.Close()
}

func (p *Pipeline) fetch(ctx context.Context) (model.Snapshot, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		var fe *connector.FetchError
		if !errors.As(err, &fe) {
			err = &connector.FetchError{Source: "pipeline", Err: err}
		}
		return model.Snapshot{}, err
	}
	return snap, nil
}
