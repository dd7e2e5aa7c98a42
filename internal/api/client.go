// Package api is the client for the portal backend: the REST endpoints under
// /api/v1 and the SSE chat stream consumed by the stream coordinator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned for HTTP 401; the unauthorized hook has already run
var ErrUnauthorized = errors.New("unauthorized")

// BusinessError is a backend application error (envelope code other than 200)
type BusinessError struct {
	Status  int
	Code    int
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error %d (http %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the REST http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithStreamHTTPClient replaces the http client used for SSE streams
func WithStreamHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.stream = hc }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit throttles outgoing requests; rps <= 0 disables throttling
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the client logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// OnUnauthorized registers fn to run whenever the backend answers 401
func OnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// Client talks to the portal backend
type Client struct {
	baseURL        string
	http           *http.Client
	stream         *http.Client
	tokens         TokenSource
	limiter        *rate.Limiter
	log            zerolog.Logger
	onUnauthorized func()
}

// New creates a client for the backend at baseURL (scheme and host, no path)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		// streams are bounded by their context, not by a client timeout
		stream:  &http.Client{},
		tokens:  StaticToken(""),
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do performs a REST call and decodes the envelope data into out (may be nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api call")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	return c.decode(resp.StatusCode, raw, out)
}

func (c *Client) decode(status int, raw []byte, out interface{}) error {
	if status == http.StatusUnauthorized {
		c.unauthorized()
		return ErrUnauthorized
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if status >= 300 {
				return &BusinessError{Status: status, Code: status, Message: strings.TrimSpace(string(raw))}
			}
			return errors.Wrap(err, "failed to decode response")
		}
	}

	if status >= 300 {
		code := env.Code
		if code == 0 {
			code = status
		}
		return &BusinessError{Status: status, Code: code, Message: env.Message}
	}
	if env.Code != 0 && env.Code != http.StatusOK {
		return &BusinessError{Status: status, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "failed to decode response data")
	}
	return nil
}

func (c *Client) unauthorized() {
	c.log.Warn().Msg("backend rejected credentials")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
