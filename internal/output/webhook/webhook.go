package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"

	"github.com/crimson-sun/flightwatch/internal/model"
	"github.com/crimson-sun/flightwatch/internal/output"
)

const defaultTimeout = 10 * time.Second

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithMaxRetries retries 5xx responses with exponential backoff.
// Default: 0, a failed post is left for the next tick.
func WithMaxRetries(n int) Option {
	return func(o *Output) { o.maxRetries = n }
}

// WithUsername overrides the webhook's display name.
func WithUsername(name string) Option {
	return func(o *Output) { o.username = name }
}

// WithFormatter sets the card formatter.
func WithFormatter(f output.Formatter) Option {
	return func(o *Output) { o.format = f }
}

// WithPlainText posts a single text line instead of a card.
func WithPlainText() Option {
	return func(o *Output) { o.plain = true }
}

// Output POSTs one card per notification to a Discord-compatible webhook.
// Each post is confirmed (?wait=true) so the message id is known.
type Output struct {
	client     *http.Client
	url        string
	headers    map[string]string
	username   string
	maxRetries int
	format     output.Formatter
	plain      bool
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client: &http.Client{Timeout: defaultTimeout},
		url:    url,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type payload struct {
	Username string                    `json:"username,omitempty"`
	Content  string                    `json:"content,omitempty"`
	Embeds   []*discordgo.MessageEmbed `json:"embeds,omitempty"`
}

type messageResponse struct {
	ID string `json:"id"`
}

func (o *Output) Notify(ctx context.Context, n model.Notification) (model.Receipt, error) {
	p := payload{Username: o.username}
	if o.plain {
		p.Content = o.format.Text(n)
	} else {
		p.Embeds = []*discordgo.MessageEmbed{o.format.Embed(n)}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return model.Receipt{}, &output.DeliveryError{Destination: "webhook", Key: n.Key, Err: fmt.Errorf("marshal: %w", err)}
	}

	resp, err := o.postWithRetry(ctx, body)
	if err != nil {
		return model.Receipt{}, &output.DeliveryError{Destination: "webhook", Key: n.Key, Err: err}
	}

	var msg messageResponse
	if len(resp) > 0 {
		// An empty or non-JSON body still means the post was accepted.
		_ = json.Unmarshal(resp, &msg)
	}
	return model.Receipt{Destination: "webhook", MessageID: msg.ID, SentAt: time.Now()}, nil
}

// Delete removes a message posted through this webhook.
func (o *Output) Delete(ctx context.Context, r model.Receipt) error {
	if r.MessageID == "" {
		return nil
	}
	u, err := o.messageURL(r.MessageID)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	o.setHeaders(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: delete HTTP %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; every Notify completes synchronously.
func (o *Output) Close() error {
	return nil
}

func (o *Output) postURL() (string, error) {
	u, err := url.Parse(o.url)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("wait", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (o *Output) messageURL(id string) (string, error) {
	u, err := url.Parse(o.url)
	if err != nil {
		return "", err
	}
	u.Path += "/messages/" + id
	u.RawQuery = ""
	return u.String(), nil
}

func (o *Output) setHeaders(req *http.Request) {
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
}

// postWithRetry sends the body via HTTP POST with retry on 5xx.
func (o *Output) postWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	target, err := o.postURL()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(time.Duration(1<<(attempt-1)) * time.Second)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		o.setHeaders(req)

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, err
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)

		// Only retry on 5xx server errors.
		if resp.StatusCode < 500 {
			return nil, lastErr
		}
	}
	return nil, lastErr
}
