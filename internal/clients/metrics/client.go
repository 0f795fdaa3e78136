// Package metrics fetches the upstream metrics, opportunity and portfolio
// feeds over HTTP. All calls are bounded by timeouts and guarded by a
// circuit breaker; the callers fall back to persisted documents when a
// fetch fails.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/aristath/capital-governor/internal/domain"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Client is the upstream feed client.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates a metrics feed client for the given base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:     "metrics-feed",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log.With().Str("client", "metrics").Logger(),
	}
}

// FetchMetrics retrieves the per-agent metrics feed.
func (c *Client) FetchMetrics(ctx context.Context) (*domain.MetricsFeed, error) {
	var feed domain.MetricsFeed
	if err := c.getJSON(ctx, "/metrics", &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// FetchOpportunities retrieves the ranked opportunity feed.
func (c *Client) FetchOpportunities(ctx context.Context) (*domain.OpportunityFeed, error) {
	var feed domain.OpportunityFeed
	if err := c.getJSON(ctx, "/opportunities", &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// FetchPortfolio retrieves the live portfolio snapshot.
func (c *Client) FetchPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	var snapshot domain.PortfolioSnapshot
	if err := c.getJSON(ctx, "/portfolio", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Healthy probes the upstream health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	err := c.getJSON(ctx, "/health", &struct{}{})
	return err == nil
}

// getJSON performs a GET with bounded retries behind the circuit breaker.
// A tripped breaker or exhausted retries surfaces as ErrInputUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrInputUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doGet(ctx, path, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		// A malformed body will not get better on retry.
		if errors.Is(err, domain.ErrValidation) {
			return err
		}

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.log.Warn().Str("path", path).Msg("Circuit breaker open - skipping fetch")
			break
		}
		c.log.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("Fetch failed")
	}

	return fmt.Errorf("%w: GET %s: %v", domain.ErrInputUnavailable, path, lastErr)
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", domain.ErrValidation, path, err)
	}
	return nil
}
