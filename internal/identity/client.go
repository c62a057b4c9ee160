// Package identity talks to the verification service and turns its answers, or
// a provider callback, into a domain.Identity. It never touches the session.
package identity

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trustid/internal/platform/metrics"
	"trustid/pkg/platform/circuit"
	"trustid/pkg/requestcontext"
)

const (
	loginPath    = "/auth/login"
	providerPath = "/auth/google"

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithBreaker guards outbound calls. Without one every call goes out.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient targets the verification service at baseURL. A non-positive
// timeout falls back to 10s.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tracer: otel.Tracer("trustid/internal/identity"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type credentialsRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type identityRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type providerRedirect struct {
	LoginURL string `json:"login_url"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// response is a fully read reply; the body is closed before callers see it.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r response) detail() string {
	var eb errorBody
	if err := json.Unmarshal(r.body, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	return http.StatusText(r.status)
}

// errBreakerOpen is the transport error reported while the breaker rejects calls.
var errBreakerOpen = errors.New("circuit open")

func (c *Client) do(ctx context.Context, method, path string, payload any) (response, error) {
	ctx, span := c.tracer.Start(ctx, "identity "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	defer c.metrics.ObserveAuthRequest(path, start)

	if c.breaker != nil && !c.breaker.Allow() {
		span.SetStatus(codes.Error, errBreakerOpen.Error())
		return response{}, errBreakerOpen
	}

	resp, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recordOutcome(false)
		return response{}, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	if resp.status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(resp.status))
	}
	c.recordOutcome(resp.status < http.StatusInternalServerError)
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload any) (response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	limit := int64(1 << 20)
	if resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}
	return response{status: resp.StatusCode, body: raw}, nil
}

func (c *Client) recordOutcome(ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.Info("verification service breaker closed", zap.String("breaker", c.breaker.Name()))
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("verification service breaker opened", zap.String("breaker", c.breaker.Name()))
	}
}
