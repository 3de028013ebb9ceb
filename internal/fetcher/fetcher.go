package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/cenkalti/backoff/v4"

	"github.com/tobyfan1980/nfl-project/internal/robots"
)

// RetrySettings bounds the backoff loop for throttled or failing requests.
type RetrySettings struct {
	// MaxAttempts is the total request budget per URL, first try included.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Policy       *robots.Policy
	RateLimit    RateLimitSettings
	Retry        RetrySettings
	Logger       *slog.Logger
}

// Client issues rate-limited, robots-gated HTTP GETs. It is the only
// component in the module that touches the network. One Client owns one
// crawl-delay budget; concurrent crawls need separate instances.
type Client struct {
	http         *http.Client
	policy       *robots.Policy
	limiter      *Limiter
	userAgent    string
	maxBodyBytes int64
	retry        RetrySettings
	logger       *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a fetcher honoring the policy's crawl delay.
func New(opts Options) (*Client, error) {
	if opts.UserAgent == "" {
		return nil, errors.New("fetcher requires a user agent")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 6 * 1024 * 1024
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 5
	}
	if opts.Retry.InitialBackoff <= 0 {
		opts.Retry.InitialBackoff = time.Second
	}
	if opts.Retry.MaxBackoff < opts.Retry.InitialBackoff {
		opts.Retry.MaxBackoff = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		http:         &http.Client{Timeout: opts.Timeout},
		policy:       opts.Policy,
		limiter:      NewLimiter(opts.Policy.CrawlDelay(), opts.RateLimit),
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		retry:        opts.Retry,
		logger:       opts.Logger,
	}, nil
}

// HTTPClient exposes the underlying client for reuse (eg. robots fetches).
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Fetch retrieves one URL. Disallowed paths return a Skipped outcome with
// no network call; 429 and 5xx responses are retried with exponential
// backoff until the attempt budget runs out.
func (c *Client) Fetch(ctx context.Context, rawURL string) Outcome {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !c.policy.Allowed(path) {
		c.logger.Info("skipping disallowed path", "path", path)
		return Outcome{Kind: OutcomeSkipped, URL: rawURL, Err: fmt.Errorf("path %s disallowed by robots policy", path)}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.retry.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Outcome{Kind: OutcomeFailed, URL: rawURL, Attempts: attempt - 1, Err: err}
		}

		status, body, err := c.doGet(ctx, rawURL)
		if err == nil {
			return Outcome{Kind: OutcomeSuccess, URL: rawURL, StatusCode: status, Body: body, Attempts: attempt}
		}

		lastErr = err
		var se *StatusError
		if errors.As(err, &se) {
			lastStatus = se.Code
			if !se.Retryable() {
				return Outcome{Kind: OutcomeFailed, URL: rawURL, StatusCode: se.Code, Attempts: attempt, Err: err}
			}
		}

		if attempt == c.retry.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if se != nil && se.Code == http.StatusTooManyRequests && se.RetryAfter > 0 {
			delay = se.RetryAfter
		}
		c.logger.Warn("request failed, backing off",
			"url", rawURL, "attempt", attempt, "delay", delay, "error", err)
		if serr := c.sleepFor(ctx, delay); serr != nil {
			return Outcome{Kind: OutcomeFailed, URL: rawURL, StatusCode: lastStatus, Attempts: attempt, Err: serr}
		}
	}

	return Outcome{
		Kind:       OutcomeFailed,
		URL:        rawURL,
		StatusCode: lastStatus,
		Attempts:   c.retry.MaxAttempts,
		Err:        fmt.Errorf("retry budget exhausted after %d attempts: %w", c.retry.MaxAttempts, lastErr),
	}
}

func (c *Client) sleepFor(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func (c *Client) doGet(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http get: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return resp.StatusCode, nil, &StatusError{
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := c.readBody(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, c.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

// parseRetryAfter understands the delay-seconds form of the header. The
// HTTP-date form falls through to the backoff schedule.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
