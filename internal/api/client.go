package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL       = "http://localhost:9090"
	DefaultTimeout       = 5 * time.Second
	DefaultRetryAttempts = 1
	DefaultRetryDelay    = time.Second

	maxBodyBytes  = 10 << 20
	maxErrorBytes = 1 << 16
)

// Config controls where and how patiently the client talks to the API.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
	}
}

// HTTPDoer matches the subset of http.Client used by Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps an HTTPDoer with a base URL, a per-attempt timeout and a
// bounded, flat-delay retry for GET requests.
type Client struct {
	base      *url.URL
	http      HTTPDoer
	cfg       Config
	log       *zap.Logger
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = strings.TrimSpace(ua) }
}

// New validates cfg and builds a Client. A zero Timeout falls back to the
// default; negative retry values are clamped to zero.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL scheme must be http or https, got %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	cfg.BaseURL = raw

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	c := &Client{
		base: base,
		http: &http.Client{},
		cfg:  cfg,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Get issues a GET and decodes a 2xx JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, out)
}

// Request is the typed form of Get.
func Request[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	if err := c.Get(ctx, path, query, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Do performs the request. Only GET is retried.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.resolve(path, query)
	attempts := 1
	if method == http.MethodGet {
		attempts += c.cfg.RetryAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx); err != nil {
				return lastErr
			}
		}

		start := time.Now()
		err := c.attempt(ctx, method, endpoint, path, out)
		if err == nil {
			c.log.Debug("api request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		}
		lastErr = err

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.String("kind", Kind(err)),
			zap.Error(err),
		}
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			fields = append(fields, zap.Int("status", statusErr.Status))
		}
		c.log.Warn("api request failed", fields...)

		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, endpoint, path string, out any) error {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(path, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.classify(path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &InvalidResponseShapeError{Path: path, Reason: "body is not valid JSON", Err: err}
	}
	return nil
}

func (c *Client) classify(path string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &TimeoutError{Path: path, Timeout: c.cfg.Timeout, Err: err}
	}
	return &NetworkError{Path: path, Err: err}
}

func (c *Client) wait(ctx context.Context) error {
	if c.cfg.RetryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func statusError(path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
			msg = ""
		}
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &HTTPStatusError{Path: path, Status: resp.StatusCode, Message: msg}
}
