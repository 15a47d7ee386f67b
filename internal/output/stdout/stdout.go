package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// Output writes JSON-encoded notifications to stdout, one per line.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a stdout Output with optional pretty-printed JSON.
func New(pretty bool) *Output {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Notify(_ context.Context, n model.Notification) (model.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(n); err != nil {
		return model.Receipt{}, fmt.Errorf("stdout output: %w", err)
	}
	return model.Receipt{Destination: "stdout", MessageID: strconv.FormatInt(n.ID, 10), SentAt: time.Now()}, nil
}

func (o *Output) Close() error {
	return nil
}
