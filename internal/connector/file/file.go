package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/crimson-sun/flightwatch/internal/connector"
	"github.com/crimson-sun/flightwatch/internal/connector/ivao"
	"github.com/crimson-sun/flightwatch/internal/model"
)

func init() {
	connector.Register("file", func(cfg connector.Config) (connector.Fetcher, error) {
		path := cfg.Extra["path"]
		if path == "" {
			return nil, fmt.Errorf("file connector: missing required config key \"path\" in Extra")
		}
		return New(path), nil
	})
}

// Connector reads a whazzup-shaped snapshot from disk on every fetch.
type Connector struct {
	path string
}

// New creates a file connector for the given path.
func New(path string) *Connector {
	return &Connector{path: path}
}

func (c *Connector) Fetch(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, &connector.FetchError{Source: "file", Err: err}
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return model.Snapshot{}, &connector.FetchError{Source: "file", Err: err}
	}
	recs, err := ivao.Parse(data)
	if err != nil {
		return model.Snapshot{}, &connector.FetchError{Source: "file", Err: fmt.Errorf("decode %s: %w", c.path, err)}
	}
	return model.Snapshot{Records: recs, FetchedAt: time.Now()}, nil
}
