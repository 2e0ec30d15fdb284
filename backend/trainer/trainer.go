// Package trainer is a training backend that enqueues episode batches to
// a remote trainer over HTTP. The trainer pops batches from its queue and
// runs the optimization step; this side only delivers the records.
package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/traject"
)

const DefaultTimeout = 30 * time.Second

type enqueueRequest struct {
	SentAtMs int64              `json:"sent_at_ms"`
	Episodes []*traject.Episode `json:"episodes"`
}

// Backend posts episode batches to a trainer endpoint.
type Backend struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures the backend.
type Option func(*Backend)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = client
	}
}

// New creates a backend for the given enqueue endpoint.
func New(endpoint string, options ...Option) *Backend {
	b := &Backend{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *Backend) Consume(ctx context.Context, episodes []*traject.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	body, err := json.Marshal(enqueueRequest{
		SentAtMs: time.Now().UnixMilli(),
		Episodes: episodes,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal episode batch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to create enqueue request", goerr.V("endpoint", b.endpoint))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to enqueue episodes", goerr.V("endpoint", b.endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return goerr.New("trainer rejected episode batch",
			goerr.V("endpoint", b.endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(msg)),
		)
	}

	return nil
}
