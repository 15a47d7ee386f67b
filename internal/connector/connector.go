package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// Fetcher reads the current set of active flights from a tracking source.
type Fetcher interface {
	// Fetch performs a single read. Failures are returned as *FetchError.
	Fetch(ctx context.Context) (model.Snapshot, error)
}

// Config holds provider-specific connection settings.
type Config struct {
	Provider string
	Endpoint string
	APIKey   string
	Extra    map[string]string
}

// ErrFetch matches any *FetchError via errors.Is.
var ErrFetch = errors.New("fetch failed")

// FetchError reports a transport, status or decode failure. The caller must
// skip the rest of the cycle.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s connector: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }
