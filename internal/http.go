package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// Client executes authenticated requests against the Rantly API. Every call
// passes the local auth precondition first, is throttled by a token-bucket
// limiter, and reacts to a 401 by refreshing the access token once and
// retrying the original request exactly once. All other failures surface
// immediately: the upstream documents no idempotency guarantees for writes,
// so unsolicited retries are a correctness hazard.
type Client struct {
	client       *http.Client
	uploadClient *http.Client
	streamClient *http.Client
	BaseURL      *url.URL
	UserAgent    string
	session      *Session
	auth         *Authenticator
	logger       *slog.Logger

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching the API.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	secondsPerMinute         = 60.0
)

// NewClient returns a new executor bound to one session and its refresh
// coordinator. uploadClient carries the longer upload timeout; if nil,
// uploads fall back to the ordinary client. The stream client shares the
// transport but drops the overall timeout, since the event stream is
// expected to stay open until cancelled.
func NewClient(httpClient, uploadClient *http.Client, session *Session, auth *Authenticator, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if uploadClient == nil {
		uploadClient = httpClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:       httpClient,
		uploadClient: uploadClient,
		streamClient: &http.Client{Transport: httpClient.Transport},
		BaseURL:      parsedURL,
		UserAgent:    userAgent,
		session:      session,
		auth:         auth,
		logger:       logger,
		limiter:      buildLimiter(*rateCfg),
	}, nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client. The
// Authorization header is stamped at send time, not here, so a token
// refreshed between build and send is always the one used.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, &pkgerrs.TransportError{Operation: "build request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.TransportError{Operation: "build request", URL: u.String(), Err: err}
	}

	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return req, nil
}

// Do sends an API request with the short default timeout and decodes the
// response into v using the envelope rule. Passing a nil v discards the body.
func (c *Client) Do(req *http.Request, v any) error {
	_, err := c.execute(c.client, req, v)
	return err
}

// DoUpload sends a request through the upload client, which carries the
// independently configured long timeout for transferring file bytes.
func (c *Client) DoUpload(req *http.Request, v any) error {
	_, err := c.execute(c.uploadClient, req, v)
	return err
}

// DoRaw sends an API request and returns the raw response bytes without
// applying the envelope rule.
func (c *Client) DoRaw(req *http.Request) ([]byte, error) {
	return c.execute(c.client, req, nil)
}

// DoStream sends a request through the timeout-free stream client and hands
// back the open response body. The caller owns the body and must close it;
// cancelling the request context releases the connection.
func (c *Client) DoStream(req *http.Request) (io.ReadCloser, error) {
	if err := c.precondition(req); err != nil {
		return nil, err
	}
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &pkgerrs.TransportError{Operation: "rate limit wait", URL: req.URL.String(), Err: err}
	}

	c.stampAuth(req)
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &pkgerrs.TransportError{URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if c.auth == nil {
			return nil, &pkgerrs.APIError{StatusCode: http.StatusUnauthorized, URL: req.URL.String()}
		}
		if _, refreshErr := c.auth.Refresh(req.Context()); refreshErr != nil {
			return nil, &pkgerrs.APIError{StatusCode: http.StatusUnauthorized, URL: req.URL.String()}
		}
		retry, cloneErr := cloneRequest(req)
		if cloneErr != nil {
			return nil, &pkgerrs.APIError{StatusCode: http.StatusUnauthorized, URL: req.URL.String()}
		}
		c.stampAuth(retry)
		resp, err = c.streamClient.Do(retry)
		if err != nil {
			return nil, &pkgerrs.TransportError{URL: req.URL.String(), Err: err}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &pkgerrs.APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
	}

	return resp.Body, nil
}

func (c *Client) execute(httpClient *http.Client, req *http.Request, v any) ([]byte, error) {
	if err := c.precondition(req); err != nil {
		return nil, err
	}
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &pkgerrs.TransportError{Operation: "rate limit wait", URL: req.URL.String(), Err: err}
	}

	c.stampAuth(req)
	resp, body, err := c.send(httpClient, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.auth == nil {
			return nil, &pkgerrs.APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
		}
		if _, refreshErr := c.auth.Refresh(req.Context()); refreshErr != nil {
			// Surface the original 401; the refresh failure was logged and
			// absorbed by the coordinator.
			c.logDebug("token refresh after 401 failed", "url", req.URL.String(), "error", refreshErr)
			return nil, &pkgerrs.APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
		}

		retry, cloneErr := cloneRequest(req)
		if cloneErr != nil {
			return nil, &pkgerrs.APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
		}
		c.stampAuth(retry)

		resp, body, err = c.send(httpClient, retry)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &pkgerrs.APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(body)}
	}

	if v != nil {
		if !types.DecodeEnvelope(body, v) {
			c.logDebug("response matched neither envelope shape, returning empty result", "url", req.URL.String())
		}
	}
	return body, nil
}

func (c *Client) send(httpClient *http.Client, req *http.Request) (*http.Response, []byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, &pkgerrs.TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	c.applyRateHeaders(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &pkgerrs.TransportError{URL: req.URL.String(), Err: err}
	}
	return resp, body, nil
}

func (c *Client) precondition(req *http.Request) error {
	if !c.session.IsAuthenticated() {
		return &pkgerrs.AuthRequiredError{Operation: req.Method + " " + req.URL.Path}
	}
	return nil
}

func (c *Client) stampAuth(req *http.Request) {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / secondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, 64); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	remainingHeader := resp.Header.Get("X-Ratelimit-Remaining")
	resetHeader := resp.Header.Get("X-Ratelimit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, 64)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, 64)
	if errRemaining != nil || errReset != nil || resetSeconds <= 0 {
		return
	}

	if remaining <= 1 {
		c.deferRequests(time.Duration(resetSeconds * float64(time.Second)))
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}
