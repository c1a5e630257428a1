// internal/adapters/fetch/client.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reviewscout/internal/adapters/observability"
	"reviewscout/internal/domain"
)

// Default pool of desktop browser user agents, rotated per attempt so
// repeated retries don't share a request signature.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// RelayConfig describes the anti-bot relay service. Params are the
// relay's default query parameters (js rendering, premium proxy, proxy
// country, wait time); per-call FetchOptions.RelayParams override them.
// The key always comes from configuration, never a literal.
type RelayConfig struct {
	URL     string
	APIKey  string
	Params  map[string]string
	Timeout time.Duration
}

func (r RelayConfig) enabled() bool { return r.URL != "" && r.APIKey != "" }

type Config struct {
	Retries        int           // retries after the first attempt
	BackoffBase    time.Duration // first retry delay
	BackoffFactor  float64       // multiplier per further retry
	PolitenessMin  time.Duration // randomized pre-flight delay bounds;
	PolitenessMax  time.Duration // zero max disables it (tests)
	Timeout        time.Duration // per-attempt bound for direct fetches
	RPS            int
	UserAgents     []string
	Relay          RelayConfig
	RetryableCodes map[int]bool
}

func (c Config) withDefaults() Config {
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Relay.Timeout <= 0 {
		c.Relay.Timeout = 90 * time.Second
	}
	if c.RPS <= 0 {
		c.RPS = 5
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = defaultUserAgents
	}
	if c.RetryableCodes == nil {
		c.RetryableCodes = retryableStatus
	}
	return c
}

// Client fetches raw HTML with client-side rate limiting, rotating user
// agents, retry with exponential backoff, and optional routing through
// an anti-bot relay.
type Client struct {
	cfg Config
	hc  *http.Client
	rl  *rate.Limiter
}

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		// Per-attempt deadlines come from the context; the transport
		// timeout here is only a backstop.
		hc: &http.Client{Timeout: cfg.Relay.Timeout + 10*time.Second},
		rl: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
	}
}

// FetchText GETs the URL and returns its body as text. Non-2xx and
// network failures retry per policy; exhaustion returns *domain.FetchError.
func (c *Client) FetchText(ctx context.Context, target string, opts *domain.FetchOptions) (string, error) {
	if opts == nil {
		opts = &domain.FetchOptions{}
	}
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	// Politeness: a small randomized pause before the first attempt so
	// request timing doesn't look bursty.
	if c.cfg.PolitenessMax > 0 {
		span := c.cfg.PolitenessMax - c.cfg.PolitenessMin
		d := c.cfg.PolitenessMin
		if span > 0 {
			d += time.Duration(rand.Int64N(int64(span)))
		}
		if !sleepCtx(ctx, d) {
			return "", ctx.Err()
		}
	}

	useRelay := opts.UseRelay && c.cfg.Relay.enabled()
	requestURL := target
	if useRelay {
		u, err := c.relayURL(target, opts.RelayParams)
		if err != nil {
			return "", err
		}
		requestURL = u
	}

	timeout := c.cfg.Timeout
	if useRelay {
		timeout = c.cfg.Relay.Timeout
	}
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	service := "direct"
	if useRelay {
		service = "relay"
	}
	endpoint := hostOf(target)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		started := time.Now()
		body, status, err := c.attempt(ctx, requestURL, target, opts.Headers, timeout)
		observability.ObserveExternal(service, endpoint, status, time.Since(started))
		if err == nil {
			return body, nil
		}
		if h, ok := err.(*retryHintError); ok {
			lastErr = h.FetchError
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if status != 0 && !c.cfg.RetryableCodes[status] {
			return "", err // non-retryable status: fail immediately
		}
		if attempt == c.cfg.Retries {
			break
		}
		wait := retryWait(err)
		if wait == 0 {
			wait = c.backoff(attempt)
		}
		if !sleepCtx(ctx, wait) {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// attempt performs one bounded GET. A zero status means a network-level
// failure (retryable).
func (c *Client) attempt(ctx context.Context, requestURL, target string, headers map[string]string, timeout time.Duration) (string, int, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", 0, &domain.FetchError{URL: target, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgents[rand.IntN(len(c.cfg.UserAgents))])
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", 0, &domain.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		ferr := &domain.FetchError{
			URL:    target,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
			Err:    fmt.Errorf("remote %d", resp.StatusCode),
		}
		if wait := retryAfter(resp); wait > 0 {
			return "", resp.StatusCode, &retryHintError{FetchError: ferr, wait: wait}
		}
		return "", resp.StatusCode, ferr
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &domain.FetchError{URL: target, Err: err}
	}
	return string(b), resp.StatusCode, nil
}

// relayURL wraps the target in the relay's API URL with the configured
// default params, per-call params taking precedence.
func (c *Client) relayURL(target string, params map[string]string) (string, error) {
	u, err := url.Parse(c.cfg.Relay.URL)
	if err != nil {
		return "", fmt.Errorf("relay url: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("apikey", c.cfg.Relay.APIKey)
	for k, v := range c.cfg.Relay.Params {
		q.Set(k, v)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// backoff returns the delay before retry attempt+1: base * factor^attempt.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.cfg.BackoffBase)
	for i := 0; i < attempt; i++ {
		d *= c.cfg.BackoffFactor
	}
	return time.Duration(d)
}

// retryHintError carries a server-provided Retry-After through the loop.
type retryHintError struct {
	*domain.FetchError
	wait time.Duration
}

func (e *retryHintError) Unwrap() error { return e.FetchError }

func retryWait(err error) time.Duration {
	if h, ok := err.(*retryHintError); ok {
		return h.wait
	}
	return 0
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// JitteredDelay pauses for base ± jitter; sources use it between pages
// to soften the request-rate signature.
func JitteredDelay(ctx context.Context, base, jitter time.Duration) bool {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	}
	if d < 0 {
		d = 0
	}
	return sleepCtx(ctx, d)
}

func hostOf(target string) string {
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return target
}
