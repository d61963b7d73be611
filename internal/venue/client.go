package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 16 << 20
	userAgent        = "rial-arbitrage-go/1.0"
)

// ClientConfig configures the HTTP client of one venue.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client performs rate limited, breaker guarded GET requests against one
// venue's public API.
type Client struct {
	HTTPClient *http.Client
	venue      models.VenueID
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    Breaker
	logger     *logrus.Logger
	tracer     trace.Tracer
}

// NewClient creates a client for venue. breaker may be nil.
func NewClient(venue models.VenueID, cfg ClientConfig, breaker Breaker, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		HTTPClient: &http.Client{},
		venue:      venue,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    breaker,
		logger:     logger,
		tracer:     otel.Tracer("github.com/irfndi/rial-arbitrage-go/internal/venue"),
	}
}

// BaseURL returns the venue API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Venue returns the venue this client talks to.
func (c *Client) Venue() models.VenueID {
	return c.venue
}

// get fetches path and decodes the JSON body into result. Every failure
// mode is returned as an error; callers wrap it as SourceUnavailable.
func (c *Client) get(ctx context.Context, op, path string, result interface{}) error {
	ctx, span := c.tracer.Start(ctx, "venue."+op, trace.WithAttributes(
		attribute.String("venue", c.venue.String()),
		attribute.String("http.path", path),
	))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter")
		return fmt.Errorf("rate limiter: %w", err)
	}

	call := func(ctx context.Context) error {
		return c.makeRequest(ctx, http.MethodGet, path, result)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) makeRequest(ctx context.Context, method, path string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Debug("Error closing response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"venue":       c.venue,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(body),
	}).Debug("Venue request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
