// Package wire sends prepared connector requests over HTTP with a per-host
// circuit breaker in front of each processor.
package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/adetunji-o/relaypay/internal/connector"
)

type Config struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	BreakerMaxFails  uint32
	BreakerInterval  time.Duration
	BreakerTimeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 4 << 20
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns the circuit breaker guarding one processor host,
// creating it on first use.
func (c *Client) breakerFor(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     host,
		Interval: c.cfg.BreakerInterval,
		Timeout:  c.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.cfg.BreakerMaxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				"host", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	c.breakers[host] = cb
	return cb
}

// Send performs the wire call. Connector-side HTTP error statuses are part of
// the response, not a Go error; only transport failures and an open breaker
// surface as errors. 5xx responses still count as breaker failures.
func (c *Client) Send(ctx context.Context, req connector.WireRequest) (connector.WireResponse, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return connector.WireResponse{}, fmt.Errorf("invalid request url: %w", err)
	}

	cb := c.breakerFor(parsed.Host)
	result, err := cb.Execute(func() (any, error) {
		resp, doErr := c.do(ctx, req)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverStatusError{status: resp.StatusCode}
		}
		return resp, nil
	})

	if err != nil {
		// Breaker counted the failure; a 5xx still carries a usable response.
		var statusErr *serverStatusError
		if errors.As(err, &statusErr) {
			return result.(connector.WireResponse), nil
		}
		return connector.WireResponse{}, err
	}

	return result.(connector.WireResponse), nil
}

type serverStatusError struct {
	status int
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("connector returned status %d", e.status)
}

func (c *Client) do(ctx context.Context, req connector.WireRequest) (connector.WireResponse, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return connector.WireResponse{}, fmt.Errorf("error creating request: %w", err)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return connector.WireResponse{}, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		return connector.WireResponse{}, fmt.Errorf("error reading response body: %w", err)
	}

	return connector.WireResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
