// Package market fetches futures klines from the Binance REST API.
package market

import (
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

	"futureswatch/internal/logging"
)

var (
	// ErrExhausted is returned when every attempt failed.
	ErrExhausted = errors.New("kline fetch failed after all retries")
	// ErrGeoBlocked is HTTP 451 (restricted location).
	ErrGeoBlocked = errors.New("access restricted by location (451)")
	// ErrRateLimited is HTTP 429.
	ErrRateLimited = errors.New("rate limit exceeded (429)")
	// ErrInvalidResponse means the body was not a non-empty JSON array.
	ErrInvalidResponse = errors.New("invalid kline response")
	// ErrInsufficientData means fewer candles than requested were returned.
	ErrInsufficientData = errors.New("insufficient candles")
	// ErrInvalidValues means a candle had an unparsable field.
	ErrInvalidValues = errors.New("invalid candle values")
)

// HTTPError is a non-2xx response other than 429 and 451.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("binance request failed with status %d: %s", e.StatusCode, e.Body)
}

// Config configures the kline client.
type Config struct {
	BaseURL    string
	Endpoint   string
	Timeout    time.Duration
	Limit      int
	MaxRetries int
}

// DefaultConfig returns the production endpoint settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://fapi.binance.com",
		Endpoint:   "/fapi/v1/klines",
		Timeout:    10 * time.Second,
		Limit:      100,
		MaxRetries: 3,
	}
}

// Stats receives fetch outcomes. Either callback may be nil.
type Stats struct {
	OnSuccess func()
	OnFailure func()
}

// Client fetches klines with retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	stats      Stats
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the wait used between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithStats registers outcome callbacks.
func WithStats(s Stats) Option {
	return func(c *Client) { c.stats = s }
}

// NewClient creates a kline client. Zero config fields take defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchKlines returns the latest klines for symbol, requiring at least
// minCandles of them.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, minCandles int) ([]Kline, error) {
	log := logging.Get(logging.CategoryMarket)
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		klines, err := c.fetchOnce(ctx, symbol, interval, minCandles)
		if err == nil {
			log.Debug("%s: %d candles (attempt %d)", symbol, len(klines), attempt+1)
			if c.stats.OnSuccess != nil {
				c.stats.OnSuccess()
			}
			return klines, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		last := attempt == c.cfg.MaxRetries-1
		wait := backoff(err, attempt)
		log.Warn("%s: attempt %d/%d failed: %v", symbol, attempt+1, c.cfg.MaxRetries, err)
		if last || wait == 0 {
			continue
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	if c.stats.OnFailure != nil {
		c.stats.OnFailure()
	}
	log.Error("%s: giving up after %d attempts: %v", symbol, c.cfg.MaxRetries, lastErr)
	return nil, fmt.Errorf("%w for %s after %d attempts: %w", ErrExhausted, symbol, c.cfg.MaxRetries, lastErr)
}

// backoff returns the wait before the next attempt.
// Malformed payloads are retried immediately.
func backoff(err error, attempt int) time.Duration {
	n := time.Duration(attempt + 1)
	switch {
	case errors.Is(err, ErrGeoBlocked):
		return n * 5 * time.Second
	case errors.Is(err, ErrRateLimited):
		return n * 10 * time.Second
	case errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrInvalidValues):
		return 0
	default:
		return n * 2 * time.Second
	}
}

func (c *Client) fetchOnce(ctx context.Context, symbol, interval string, minCandles int) ([]Kline, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	endpoint := c.cfg.BaseURL + c.cfg.Endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return nil, ErrGeoBlocked
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidResponse)
	}
	if len(rows) < minCandles {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(rows), minCandles)
	}

	klines, err := parseKlines(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValues, err)
	}
	return klines, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
