package handler_test

import (
	"context"
	"time"

	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/model"
)

type mockLister struct {
	listFn func(ctx context.Context) ([]model.FlightRecord, bool, error)
}

func (m *mockLister) ListCurrent(ctx context.Context) ([]model.FlightRecord, bool, error) {
	return m.listFn(ctx)
}

type mockStatus struct {
	lastChecked time.Time
	watch       model.WatchList
	store       dedup.Store
}

func (m *mockStatus) LastChecked() time.Time { return m.lastChecked }
func (m *mockStatus) WatchList() model.WatchList { return m.watch }
func (m *mockStatus) Store() dedup.Store { return m.store }

// brokenStore fails every count.
type brokenStore struct{ dedup.Store }

func (brokenStore) Len(context.Context) (int, error) {
	return 0, context.DeadlineExceeded
}
