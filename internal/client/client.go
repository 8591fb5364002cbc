package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/observability"
	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

// DefaultTimeout bounds every upstream request so a refresh cycle never blocks indefinitely.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of an upstream response body is read.
const maxBodyBytes = 1 << 20

// Fetcher performs one upstream call per Fetch and never returns an error:
// failures are folded into the outcome.
type Fetcher[T any] interface {
	Source() string
	Fetch(ctx context.Context) models.Outcome[T]
}

// httpSource holds the transport shared by the concrete clients.
type httpSource struct {
	name    string
	timeout time.Duration
	client  *http.Client
	headers map[string]string
	tracker *traffic.Tracker
}

func newHTTPSource(name string, timeout time.Duration, headers map[string]string) httpSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpSource{
		name:    name,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// SetTracker attaches an outcome tracker fed by every Fetch. Used by the health endpoint.
func (s *httpSource) SetTracker(t *traffic.Tracker) {
	s.tracker = t
}

// record feeds the tracker, if any, with the result of one fetch.
func (s *httpSource) record(err error) {
	if s.tracker == nil {
		return
	}
	switch {
	case err == nil:
		s.tracker.RecordSuccess()
	case errors.Is(err, ErrRateLimited):
		s.tracker.RecordRateLimited()
	default:
		s.tracker.RecordFailure()
	}
}

// getJSON issues exactly one GET and decodes a 2xx JSON body into dst.
// Errors are *TransportError, *StatusError or *ParseError.
func (s *httpSource) getJSON(ctx context.Context, rawURL string, dst any) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(s.name, "error").Inc()
		return &TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(s.name, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(s.name, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) {
			return &TransportError{Err: fmt.Errorf("request timeout after %s: %w", s.timeout, err)}
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(s.name, status).Inc()
	observability.UpstreamDuration.WithLabelValues(s.name, status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// fail records the error against the source and converts it to a failed outcome.
func fail[T any](source string, err error) models.Outcome[T] {
	observability.UpstreamErrorsTotal.WithLabelValues(source, string(CategorizeError(err))).Inc()
	return models.Failure[T](Reason(err))
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
