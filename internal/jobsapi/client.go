// Package jobsapi is the HTTP client for the backend /api/jobs resource.
package jobsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobportal/internal/domain"
	"jobportal/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const collectionPath = "/api/jobs"

type Options struct {
	// BaseURL is the backend origin, e.g. http://localhost:8080.
	BaseURL string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
	Limiter    *HostLimiter
}

type Client struct {
	base    string
	hc      *http.Client
	limiter *HostLimiter
	tracer  trace.Tracer
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:    base,
		hc:      hc,
		limiter: opts.Limiter,
		tracer:  otel.Tracer("jobportal-jobsapi"),
	}, nil
}

// BaseURL returns the normalized backend origin.
func (c *Client) BaseURL() string { return c.base }

// List returns every job in the order the backend sent them.
func (c *Client) List(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.do(ctx, "list", http.MethodGet, collectionPath, nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

// Get returns a single job. A 404 matches ErrNotFound.
func (c *Client) Get(ctx context.Context, id int64) (domain.Job, error) {
	var j domain.Job
	if err := c.do(ctx, "get", http.MethodGet, itemPath(id), nil, &j); err != nil {
		return domain.Job{}, err
	}
	return j, nil
}

// Create posts a new job. The backend may answer with the stored job; an
// empty or non-JSON answer yields the zero Job.
func (c *Client) Create(ctx context.Context, d domain.Draft) (domain.Job, error) {
	body, err := json.Marshal(d.Body())
	if err != nil {
		return domain.Job{}, fmt.Errorf("create: encode body: %w", err)
	}
	var j domain.Job
	if err := c.do(ctx, "create", http.MethodPost, collectionPath, body, &j); err != nil {
		return domain.Job{}, err
	}
	return j, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, itemPath(id), nil, nil)
}

func itemPath(id int64) string {
	return collectionPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) (err error) {
	target := c.base + path

	ctx, span := c.tracer.Start(ctx, "jobsapi."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target),
	))
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.BackendRequestsTotal.WithLabelValues(op, outcome).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	if err := c.limiter.WaitURL(ctx, target); err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: rate limit: %w", op, err)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		outcome = "status"
		if resp.StatusCode == http.StatusNotFound {
			outcome = "not_found"
		}
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: statusText(resp.Status)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		if method == http.MethodGet {
			outcome = "transport"
			return fmt.Errorf("%s: empty response body", op)
		}
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		if method == http.MethodGet {
			outcome = "transport"
			return fmt.Errorf("%s: decode body: %w", op, err)
		}
		// Writes only care about the status.
		return nil
	}
	return nil
}

// statusText strips the numeric prefix from resp.Status ("404 Not Found").
func statusText(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsTransport reports whether err came from the network rather than a
// backend status.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	return !errors.As(err, &se)
}
