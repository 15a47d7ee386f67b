package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/engine"
	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output/async"
	"github.com/crimson-sun/flightwatch/internal/output/multi"
)

// --- mocks ---

// mockFetcher returns snap, or err when set.
type mockFetcher struct {
	mu    sync.Mutex
	snap  model.Snapshot
	err   error
	calls int
}

func (m *mockFetcher) Fetch(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return model.Snapshot{}, m.err
	}
	return m.snap, nil
}

func (m *mockFetcher) set(snap model.Snapshot, err error) {
	m.mu.Lock()
	m.snap, m.err = snap, err
	m.mu.Unlock()
}

// mockNotifier fails deliveries for callsigns in failFor.
type mockNotifier struct {
	mu      sync.Mutex
	dest    string // receipt destination, "mock" when empty
	sent    []model.Notification
	failFor map[string]bool
}

func (m *mockNotifier) Notify(_ context.Context, n model.Notification) (model.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[n.Record.Callsign] {
		return model.Receipt{}, errors.New("channel unavailable")
	}
	m.sent = append(m.sent, n)
	dest := m.dest
	if dest == "" {
		dest = "mock"
	}
	return model.Receipt{Destination: dest, MessageID: n.Record.Callsign}, nil
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) setFail(callsign string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor == nil {
		m.failFor = make(map[string]bool)
	}
	m.failFor[callsign] = fail
}

func (m *mockNotifier) sentKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.sent {
		out = append(out, n.Key.String())
	}
	return out
}

// failingStore errors on every Seen.
type failingStore struct{ dedup.Store }

func (failingStore) Seen(context.Context, model.EventKey) (bool, error) {
	return false, errors.New("redis down")
}

// --- helpers ---

var watch = model.NewWatchList("OJAI", "OJAM", "OSDI", "ORBI")

func rec(cs, dep, arr string) model.FlightRecord {
	return model.FlightRecord{SubjectID: "7", Callsign: cs, Departure: dep, Arrival: arr, HasFlightPlan: true}
}

// tickingClock advances one second per call, starting just after base.
func tickingClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	cur := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

type fixture struct {
	fetcher  *mockFetcher
	notifier *mockNotifier
	session  *engine.Session
	pipe     *Pipeline
	start    time.Time
}

func newFixture(t *testing.T, store dedup.Store, opts ...Option) *fixture {
	t.Helper()
	start := time.Now()
	if store == nil {
		store = dedup.NewMemory(dedup.Config{})
	}
	var n int64
	var idMu sync.Mutex
	ids := func() int64 { idMu.Lock(); defer idMu.Unlock(); n++; return n }

	f := &fixture{
		fetcher:  &mockFetcher{},
		notifier: &mockNotifier{},
		session:  engine.New(watch, store, start, engine.WithIDFunc(ids)),
		start:    start,
	}
	opts = append([]Option{WithClock(tickingClock(start))}, opts...)
	f.pipe = New(f.fetcher, f.session, async.New(f.notifier, async.WithWorkers(2)), opts...)
	t.Cleanup(func() { f.pipe.Close() })
	return f
}

func snapshot(records ...model.FlightRecord) model.Snapshot {
	return model.Snapshot{Records: records, FetchedAt: time.Now()}
}

// --- tests ---

func TestPassDeliversCandidates(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(
		rec("ABC123", "OJAI", "ORBI"),
		rec("XYZ1", "OJAI", "KJFK"),
		rec("QTR8", "OTHH", "OSDI"),
		rec("DLH4", "EDDF", "KJFK"),
	), nil)

	res, err := f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.Fetched != 4 || res.Relevant != 3 || res.Candidates != 3 || res.Delivered != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Skipped {
		t.Fatal("pass should not be skipped")
	}
	if len(f.notifier.sentKeys()) != 3 {
		t.Fatalf("sent %v", f.notifier.sentKeys())
	}
	if !f.session.LastChecked().After(f.start) {
		t.Error("lastChecked not advanced after completed pass")
	}
}

func TestPassIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI")), nil)

	first, err := f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("first Pass: %v", err)
	}
	second, err := f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("second Pass: %v", err)
	}

	if first.Delivered != 1 {
		t.Fatalf("first pass delivered %d, want 1", first.Delivered)
	}
	if second.Candidates != 0 || second.Delivered != 0 {
		t.Fatalf("second pass re-announced: %+v", second)
	}
	if got := f.notifier.sentKeys(); len(got) != 1 || got[0] != "ABC123-OJAI-ORBI" {
		t.Fatalf("sent %v", got)
	}
}

func TestFailedDeliveryRetriedNextPass(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI"), rec("XYZ1", "OJAI", "KJFK")), nil)
	f.notifier.setFail("ABC123", true)

	res, err := f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.Delivered != 1 || res.Failed != 1 {
		t.Fatalf("first pass %+v, want 1 delivered 1 failed", res)
	}

	f.notifier.setFail("ABC123", false)
	res, err = f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.Candidates != 1 || res.Delivered != 1 {
		t.Fatalf("second pass %+v, want the failed key retried", res)
	}

	keys := f.notifier.sentKeys()
	if len(keys) != 2 {
		t.Fatalf("sent %v, want one notification per key", keys)
	}
}

func TestFetchFailureSkipsPass(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(model.Snapshot{}, &connector.FetchError{Source: "ivao", Err: errors.New("502")})

	res, err := f.pipe.Pass(context.Background())
	if !errors.Is(err, connector.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if !res.Skipped || res.Candidates != 0 || res.Delivered != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !f.session.LastChecked().Equal(f.start) {
		t.Error("lastChecked advanced despite fetch failure")
	}
	if len(f.notifier.sentKeys()) != 0 {
		t.Error("notifications sent despite fetch failure")
	}
}

func TestPlainFetchErrorIsWrapped(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(model.Snapshot{}, context.DeadlineExceeded)

	_, err := f.pipe.Pass(context.Background())
	if !errors.Is(err, connector.ErrFetch) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped FetchError, got %v", err)
	}
}

func TestStoreFailureSkipsPass(t *testing.T) {
	f := newFixture(t, failingStore{dedup.NewMemory(dedup.Config{})})
	f.fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI")), nil)

	res, err := f.pipe.Pass(context.Background())
	if err == nil {
		t.Fatal("expected store error")
	}
	if !res.Skipped {
		t.Fatal("expected skipped pass")
	}
	if !f.session.LastChecked().Equal(f.start) {
		t.Error("lastChecked advanced despite store failure")
	}
}

func TestEmptySnapshotAdvances(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(), nil)

	res, err := f.pipe.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.Relevant != 0 || res.Candidates != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !f.session.LastChecked().After(f.start) {
		t.Error("lastChecked should advance on an empty but successful pass")
	}
}

func TestOnDeliveredHook(t *testing.T) {
	var mu sync.Mutex
	var receipts []model.Receipt
	f := newFixture(t, nil, WithOnDelivered(func(_ context.Context, _ model.Notification, r model.Receipt) {
		mu.Lock()
		receipts = append(receipts, r)
		mu.Unlock()
	}))
	f.fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI"), rec("BAD1", "OJAI", "ORBI")), nil)
	f.notifier.setFail("BAD1", true)

	if _, err := f.pipe.Pass(context.Background()); err != nil {
		t.Fatalf("Pass: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(receipts) != 1 || receipts[0].MessageID != "ABC123" {
		t.Fatalf("hook receipts = %+v, want only the successful delivery", receipts)
	}
}

func TestFanOutDeliversOncePerDestination(t *testing.T) {
	chat := &mockNotifier{dest: "chat"}
	audit := &mockNotifier{dest: "audit"}
	audit.setFail("ABC123", true)

	fetcher := &mockFetcher{}
	fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI")), nil)
	start := time.Now()
	session := engine.New(watch, dedup.NewMemory(dedup.Config{}), start, engine.WithIDFunc(func() int64 { return 1 }))

	var mu sync.Mutex
	var hooked []string
	pipe := New(fetcher, session, async.New(multi.New(0, chat, audit)),
		WithClock(tickingClock(start)),
		WithOnDelivered(func(_ context.Context, _ model.Notification, r model.Receipt) {
			mu.Lock()
			hooked = append(hooked, r.Destination)
			mu.Unlock()
		}),
	)
	t.Cleanup(func() { pipe.Close() })

	ctx := context.Background()
	key := rec("ABC123", "OJAI", "ORBI").Key()

	for i := 0; i < 3; i++ {
		res, err := pipe.Pass(ctx)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if res.Failed != 1 {
			t.Fatalf("pass %d: failed = %d, want 1", i, res.Failed)
		}
	}
	if got := chat.sentKeys(); len(got) != 1 {
		t.Fatalf("chat received %d copies while audit was failing: %v", len(got), got)
	}
	if seen, _ := session.Store().Seen(ctx, key); seen {
		t.Fatal("key marked before every destination confirmed")
	}

	audit.setFail("ABC123", false)
	res, err := pipe.Pass(ctx)
	if err != nil {
		t.Fatalf("recovery pass: %v", err)
	}
	if res.Delivered != 1 {
		t.Fatalf("recovery pass delivered %d, want 1", res.Delivered)
	}
	if seen, _ := session.Store().Seen(ctx, key); !seen {
		t.Fatal("key not marked after all destinations confirmed")
	}

	if _, err := pipe.Pass(ctx); err != nil {
		t.Fatalf("final pass: %v", err)
	}
	if got := chat.sentKeys(); len(got) != 1 {
		t.Fatalf("chat received %d copies, want 1", len(got))
	}
	if got := audit.sentKeys(); len(got) != 1 {
		t.Fatalf("audit received %d copies, want 1", len(got))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(hooked) != 2 || hooked[0] != "chat" || hooked[1] != "audit" {
		t.Fatalf("delivered hook destinations = %v, want [chat audit]", hooked)
	}
}

func TestPassIDsDiffer(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(), nil)

	a, _ := f.pipe.Pass(context.Background())
	b, _ := f.pipe.Pass(context.Background())
	if a.PassID == b.PassID {
		t.Fatal("expected distinct pass ids")
	}
}

func TestListCurrent(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.set(snapshot(rec("ABC123", "OJAI", "ORBI"), rec("DLH4", "EDDF", "KJFK")), nil)

	records, ok, err := f.pipe.ListCurrent(context.Background())
	if err != nil || !ok {
		t.Fatalf("ListCurrent: ok=%v err=%v", ok, err)
	}
	if len(records) != 1 || records[0].Callsign != "ABC123" {
		t.Fatalf("records = %+v", records)
	}
	if !f.session.LastChecked().Equal(f.start) {
		t.Error("ListCurrent must not touch the session")
	}
}

func TestListCurrentDistinguishesNoData(t *testing.T) {
	f := newFixture(t, nil)

	f.fetcher.set(snapshot(rec("DLH4", "EDDF", "KJFK")), nil)
	records, ok, err := f.pipe.ListCurrent(context.Background())
	if err != nil || !ok || len(records) != 0 {
		t.Fatalf("zero matches: records=%v ok=%v err=%v", records, ok, err)
	}

	f.fetcher.set(model.Snapshot{}, &connector.FetchError{Source: "ivao", Err: errors.New("timeout")})
	records, ok, err = f.pipe.ListCurrent(context.Background())
	if ok || err == nil || records != nil {
		t.Fatalf("fetch failure: records=%v ok=%v err=%v", records, ok, err)
	}
}

func TestFetchTimeoutApplied(t *testing.T) {
	f := newFixture(t, nil, WithFetchTimeout(20*time.Millisecond))
	blocking := &blockingFetcher{}
	f.pipe.fetcher = blocking

	_, ok, err := f.pipe.ListCurrent(context.Background())
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got ok=%v err=%v", ok, err)
	}
}

// blockingFetcher waits for ctx to end.
type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context) (model.Snapshot, error) {
	<-ctx.Done()
	return model.Snapshot{}, &connector.FetchError{Source: "block", Err: ctx.Err()}
}
