// Package dispatch owns the single HTTP client shared by every System Manager
// service and the response convention they all follow: a 200 carries
// {"data": ...}, anything else is an error with an optional {"message": ...}.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds every request when Config.Timeout is unset
	DefaultTimeout = 30 * time.Second

	// DefaultRetryDelay is the first backoff interval between retries
	DefaultRetryDelay = 200 * time.Millisecond

	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-Id"
)

// errRetryableStatus marks an attempt whose status is in RetryableStatuses
var errRetryableStatus = errors.New("retryable status")

// Debug toggles per-call logging
type Debug struct {
	LogSuccess bool
	LogError   bool
}

// Config configures a Dispatcher. It is copied by New and never mutated.
type Config struct {
	// BaseURI every relative path is resolved against, e.g. "http://localhost:8080"
	BaseURI string

	// Timeout for a single HTTP attempt. Default: 30 seconds
	Timeout time.Duration

	// RetryAttempts is the number of extra attempts for transport errors and
	// RetryableStatuses. Zero disables retries.
	RetryAttempts int

	// RetryableStatuses lists HTTP statuses worth another attempt
	RetryableStatuses []int

	// RetryDelay is the initial exponential backoff interval. Default: 200ms
	RetryDelay time.Duration

	Debug Debug

	// Logger receives debug output. Default: zerolog.Nop()
	Logger *zerolog.Logger

	// HTTPClient overrides the pooled client built by New
	HTTPClient *http.Client
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURI) == "" {
		return &ValidationError{Field: "baseUri", Rule: "required"}
	}

	parsedURL, err := url.Parse(c.BaseURI)
	if err != nil {
		return fmt.Errorf("invalid base URI: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URI must use http or https scheme, got: %q", parsedURL.Scheme)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got: %v", c.Timeout)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got: %d", c.RetryAttempts)
	}

	return nil
}

// Request describes one System Manager call
type Request struct {
	Method string

	// Path is relative to the base URI unless it is an absolute URL
	Path  string
	Query url.Values

	// Session is sent verbatim as the Authorization header when set
	Session string

	// Body is JSON encoded when non-nil
	Body any
}

// Dispatcher issues requests against one System Manager instance
type Dispatcher struct {
	cfg     Config
	baseURL *url.URL
	client  *http.Client
	logger  zerolog.Logger
}

// New validates cfg and builds the shared HTTP client
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	cfg.RetryableStatuses = slices.Clone(cfg.RetryableStatuses)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}

	baseURL, _ := url.Parse(strings.TrimRight(cfg.BaseURI, "/"))

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Dispatcher{
		cfg:     cfg,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// HTTPClient returns the shared client
func (d *Dispatcher) HTTPClient() (*http.Client, error) {
	if d == nil || d.client == nil {
		return nil, ErrNotConfigured
	}
	return d.client, nil
}

// BaseURI returns the configured base URI without a trailing slash
func (d *Dispatcher) BaseURI() string {
	if d == nil || d.baseURL == nil {
		return ""
	}
	return d.baseURL.String()
}

// Logger returns the dispatcher's logger so services log consistently
func (d *Dispatcher) Logger() zerolog.Logger {
	return d.logger
}

// Call performs req and unwraps the response data into out
func (d *Dispatcher) Call(ctx context.Context, req Request, out any) error {
	env, err := d.Do(ctx, req)
	if err != nil {
		return err
	}
	return UnwrapInto(env, out)
}

// FetchContext GETs url with the json=true flag and returns the unwrapped
// data. Relative URLs resolve against the base URI.
func (d *Dispatcher) FetchContext(ctx context.Context, rawURL, session string) (json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid context url: %w", err)
	}

	// Appended rather than re-encoded so the caller's parameter order survives
	if u.RawQuery == "" {
		u.RawQuery = "json=true"
	} else {
		u.RawQuery += "&json=true"
	}

	env, err := d.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    u.String(),
		Session: session,
	})
	if err != nil {
		return nil, err
	}

	return Unwrap(env, json.RawMessage(`{}`))
}

// Do performs req, retrying per the configuration, and returns the raw
// envelope. Non-200 responses are not errors at this level.
func (d *Dispatcher) Do(ctx context.Context, req Request) (*Envelope, error) {
	if d == nil || d.client == nil {
		return nil, ErrNotConfigured
	}

	endpoint, err := d.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	requestID := uuid.NewString()
	start := time.Now()
	attempts := 0

	var env *Envelope
	operation := func() error {
		attempts++

		httpReq, err := d.newRequest(ctx, method, endpoint, payload, req.Session, requestID)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := d.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("failed to send request: %w", err))
			}
			return fmt.Errorf("failed to send request: %w", err)
		}

		env, err = readEnvelope(resp)
		if err != nil {
			return err
		}

		if d.retryable(env.StatusCode) {
			return errRetryableStatus
		}
		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(d.backOff(), ctx))
	if errors.Is(err, errRetryableStatus) && env != nil {
		// Out of attempts; the caller unwraps the last response
		err = nil
	}

	d.logResult(requestID, method, endpoint, env, err, attempts, time.Since(start))

	if err != nil {
		return nil, err
	}
	return env, nil
}

func (d *Dispatcher) backOff() backoff.BackOff {
	if d.cfg.RetryAttempts <= 0 {
		return &backoff.StopBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.RetryDelay
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(d.cfg.RetryAttempts))
}

func (d *Dispatcher) retryable(status int) bool {
	return d.cfg.RetryAttempts > 0 && slices.Contains(d.cfg.RetryableStatuses, status)
}

// resolve joins path onto the base URI unless path is already absolute
func (d *Dispatcher) resolve(path string, query url.Values) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}

	if !u.IsAbs() {
		joined := *d.baseURL
		joined.Path = d.baseURL.Path + "/" + strings.TrimLeft(u.Path, "/")
		joined.RawPath = d.baseURL.EscapedPath() + "/" + strings.TrimLeft(u.EscapedPath(), "/")
		joined.RawQuery = u.RawQuery
		u = &joined
	}

	if len(query) > 0 {
		extra := query.Encode()
		if u.RawQuery == "" {
			u.RawQuery = extra
		} else {
			u.RawQuery += "&" + extra
		}
	}

	return u.String(), nil
}

func (d *Dispatcher) newRequest(ctx context.Context, method, endpoint string, payload []byte, session, requestID string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(headerAuthorization, session)
	}

	return req, nil
}

func readEnvelope(resp *http.Response) (*Envelope, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	env := &Envelope{StatusCode: resp.StatusCode}
	if json.Valid(body) {
		env.Body = body
	} else if resp.StatusCode != http.StatusOK {
		env.Message = strings.TrimSpace(string(body))
	}
	env.Message = env.message()

	return env, nil
}

func (d *Dispatcher) logResult(requestID, method, endpoint string, env *Envelope, err error, attempts int, duration time.Duration) {
	// Query strings may carry session tokens
	path := endpoint
	if u, parseErr := url.Parse(endpoint); parseErr == nil {
		path = u.Path
	}

	failed := err != nil || env == nil || env.StatusCode != http.StatusOK
	if failed && d.cfg.Debug.LogError {
		event := d.logger.Warn().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Int("attempts", attempts).
			Dur("duration", duration)
		if env != nil {
			event = event.Int("status", env.StatusCode).Str("message", env.Message)
		}
		event.Err(err).Msg("System Manager request failed")
		return
	}

	if !failed && d.cfg.Debug.LogSuccess {
		d.logger.Info().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Int("status", env.StatusCode).
			Int("attempts", attempts).
			Dur("duration", duration).
			Msg("System Manager request")
	}
}
