package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/flightwatch/internal/model"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output appends delivered notifications as NDJSON to an audit file with
// optional size-based rotation. Each line is flushed before Notify returns.
type Output struct {
	w       *bufio.Writer
	f       *os.File
	mu      sync.Mutex
	path    string
	maxSize int64 // 0 = no rotation
	written int64
	bufSize int
}

// New creates a file output that writes NDJSON to the given path.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Notify JSON-encodes the notification and appends it as a line to the file.
func (o *Output) Notify(_ context.Context, n model.Notification) (model.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(n)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	if o.maxSize > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return model.Receipt{}, fmt.Errorf("file output: rotate: %w", err)
		}
	}

	written, err := o.w.Write(data)
	o.written += int64(written)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("file output: write: %w", err)
	}
	if err := o.w.Flush(); err != nil {
		return model.Receipt{}, fmt.Errorf("file output: flush: %w", err)
	}
	return model.Receipt{Destination: "file:" + o.path, MessageID: strconv.FormatInt(n.ID, 10), SentAt: time.Now()}, nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile opens (or creates) the output file and wraps it in a bufio.Writer.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	return nil
}

// rotate closes the current file, renames it to {path}.1 (shifting older
// rotations up to .10) and opens a new file.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	for i := 9; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		to := fmt.Sprintf("%s.%d", o.path, i+1)
		os.Rename(from, to) // file may not exist
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}

	o.written = 0
	return o.openFile()
}
