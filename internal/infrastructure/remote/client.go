// Package remote implements the resource service ports of the ordering
// domain as JSON-over-HTTP clients. Every resource exposes bulk endpoints
// below its base URL (read, create, update, upsert, delete and the
// resource specific actions) that take and return the list envelope.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by clients without an endpoint
var ErrNotConfigured = errors.New("remote: no endpoint configured")

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 4 << 10

// Client sends JSON requests to one resource service
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// WithTracing propagates the trace context and records client spans
func WithTracing() Option {
	return func(cl *Client) {
		base := cl.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cl.http.Transport = otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "remote." + cl.name + " " + r.URL.Path
			}),
		)
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a client for the resource called name at baseURL
func NewClient(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the resource name
func (c *Client) Name() string {
	return c.name
}

// HTTPError is a non-2xx response that carried no status envelope
type HTTPError struct {
	Resource   string
	Action     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote %s/%s: HTTP %d: %s", e.Resource, e.Action, e.StatusCode, e.Body)
}

// envelope is the part of every response that carries a batch status
type envelope struct {
	OperationStatus *struct {
		Code int `json:"code"`
	} `json:"operation_status"`
}

// call posts in to <base>/<action> and decodes the response into out.
// Error responses that still carry an operation status are decoded as
// regular responses so callers can inspect the status.
func (c *Client) call(ctx context.Context, action string, in, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w for %s", ErrNotConfigured, c.name)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s request: %w", c.name, action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s/%s request: %w", c.name, action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Remote call failed",
			zap.String("resource", c.name),
			zap.String("action", action),
			zap.Error(err),
		)
		return fmt.Errorf("remote %s/%s: %w", c.name, action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s/%s response: %w", c.name, action, err)
	}
	c.logger.Debug("Remote call",
		zap.String("resource", c.name),
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		var env envelope
		if json.Unmarshal(data, &env) != nil || env.OperationStatus == nil || env.OperationStatus.Code == 0 {
			if len(data) > maxErrorBody {
				data = data[:maxErrorBody]
			}
			return &HTTPError{Resource: c.name, Action: action, StatusCode: resp.StatusCode, Body: string(data)}
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s/%s response: %w", c.name, action, err)
	}
	return nil
}
