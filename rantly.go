// Package rantly provides a Go client for the unofficial Rantly social
// network HTTP API.
//
// The client wraps the authenticated REST endpoints (posts, comments,
// users, notifications, hashtags, search, file uploads, reports and
// verification) behind typed convenience methods. It manages a bearer
// access token with an automatic refresh-on-401 flow backed by a cookie
// jar, persists refreshed credentials to small text files, and offers an
// optional multi-account MirrorPool that round-robins calls across several
// authenticated sessions to spread rate-limit pressure.
//
// Basic usage:
//
//	config := &rantly.Config{
//		TokenFile:  ".env",
//		CookieFile: "cookies.txt",
//		UserAgent:  "myapp/1.0",
//	}
//
//	client, err := rantly.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	feed, err := client.GetFeed(ctx, &types.FeedRequest{Sort: "hot"})
//	if err != nil {
//		log.Fatal(err)
//	}
package rantly

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rantly-unofficial/go-rantly/internal"
	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
)

const (
	// DefaultBaseURL is the default Rantly API base URL.
	DefaultBaseURL = "https://rantly.io/api/v1/"
	// DefaultUserAgent is the default user agent string.
	DefaultUserAgent = "go-rantly/0.1"
	// DefaultTimeout is the HTTP timeout for ordinary JSON calls.
	DefaultTimeout = 15 * time.Second
	// DefaultUploadTimeout is the HTTP timeout for file uploads, which move
	// audio/image bytes rather than small JSON bodies.
	DefaultUploadTimeout = 2 * time.Minute
)

// Config holds the configuration for a Rantly client.
//
// Credentials come from the two persisted files (TokenFile, CookieFile)
// and/or the explicit AccessToken/CookieHeader overrides. A client built
// with no credentials at all is valid but every call short-circuits with
// an authentication-required error until SetAccessToken or Authenticate
// provides a session.
type Config struct {
	// TokenFile is the path of the KEY=value file holding the access token
	// line. Optional; refreshed tokens are persisted back to it.
	TokenFile string

	// CookieFile is the path of the single-line cookie-header file backing
	// the refresh endpoint. Optional; refreshed cookies are persisted to it.
	CookieFile string

	// AccessToken seeds the session directly, overriding TokenFile.
	AccessToken string

	// CookieHeader seeds the cookie jar directly ("k1=v1; k2=v2"),
	// overriding CookieFile.
	CookieHeader string

	// BaseURL for the Rantly API. Defaults to DefaultBaseURL.
	BaseURL string

	// RefreshPath overrides the token refresh endpoint path. Usually left
	// empty.
	RefreshPath string

	// UserAgent string sent on every request. Defaults to DefaultUserAgent.
	UserAgent string

	// HTTPClient to use for ordinary requests. Defaults to a client with
	// Timeout. Customize to set proxies or other transport behavior.
	HTTPClient *http.Client

	// Timeout for ordinary JSON calls when HTTPClient is not provided.
	// Defaults to DefaultTimeout.
	Timeout time.Duration

	// UploadTimeout for file uploads. Independently configurable because
	// uploads transfer file bytes. Defaults to DefaultUploadTimeout.
	UploadTimeout time.Duration

	// RequestsPerMinute caps steady-state request throughput.
	// Defaults to the internal limiter default if zero.
	RequestsPerMinute float64

	// RateLimitBurst allows short spikes above the steady-state rate.
	RateLimitBurst int

	// Logger for structured diagnostics. Optional; absorbed failures are
	// logged here at debug level when provided.
	Logger *slog.Logger
}

// Client is the Rantly API client. One client owns exactly one session
// (access token + cookie jar); nothing is shared between clients, which is
// what makes mirror-pool entries independent.
type Client struct {
	client  *internal.Client
	auth    *internal.Authenticator
	session *internal.Session
	store   *internal.CredStore
	config  *Config
}

// NewClient creates a new Rantly client from config. It loads any
// persisted credentials, seeds the session, and returns a client that is
// ready to use; no network I/O happens here.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}

	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	uploadClient := &http.Client{Transport: httpClient.Transport, Timeout: cfg.UploadTimeout}

	session := internal.NewSession()
	store := &internal.CredStore{TokenPath: cfg.TokenFile, CookiePath: cfg.CookieFile}

	if cfg.AccessToken != "" {
		session.SetToken(cfg.AccessToken)
	} else if token, ok := store.ReadToken(); ok {
		session.SetToken(token)
	}

	cookieHeader := cfg.CookieHeader
	if cookieHeader == "" {
		cookieHeader, _ = store.ReadCookieHeader()
	}
	if cookieHeader != "" {
		session.WithJar(func(jar *internal.CookieJar) {
			jar.LoadHeader(cookieHeader, baseURL.Hostname())
		})
	}

	auth, err := internal.NewAuthenticator(httpClient, session, store, cfg.BaseURL, cfg.RefreshPath, cfg.UserAgent, cfg.Logger)
	if err != nil {
		return nil, err
	}

	var rateCfg *internal.RateLimitConfig
	if cfg.RequestsPerMinute > 0 || cfg.RateLimitBurst > 0 {
		rateCfg = &internal.RateLimitConfig{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Burst:             cfg.RateLimitBurst,
		}
	}

	client, err := internal.NewClient(httpClient, uploadClient, session, auth, cfg.BaseURL, cfg.UserAgent, rateCfg, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:  client,
		auth:    auth,
		session: session,
		store:   store,
		config:  &cfg,
	}, nil
}

// IsAuthenticated reports whether the client has a usable access token or
// a pre-seeded authenticated session. Purely local; the server may still
// reject the token, which triggers the refresh-and-retry path.
func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

// SetAccessToken installs an access token obtained out of band and marks
// the session authenticated. The token is persisted to the token file when
// one is configured; persistence failures are logged and absorbed.
func (c *Client) SetAccessToken(token string) {
	c.session.SetToken(token)
	if c.config.TokenFile == "" {
		return
	}
	if err := c.store.WriteToken(token); err != nil && c.config.Logger != nil {
		c.config.Logger.Warn("failed to persist access token", "error", err)
	}
}

// Authenticate ensures the session holds an access token, performing a
// refresh exchange with the stored cookies when it does not. A session that
// already has a token is left alone.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.session.Token() != "" {
		return nil
	}
	_, err := c.auth.Refresh(ctx)
	return err
}

// Logout clears the session: token, authenticated flag and cookie jar.
// Persisted credential files are never deleted by the client.
func (c *Client) Logout() {
	c.session.Clear()
}

// get issues a GET with query parameters and decodes the enveloped result
// into v.
func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	return c.client.Do(req, v)
}

// postJSON issues a POST with a JSON body and decodes the enveloped result
// into v. A nil payload sends no body.
func (c *Client) postJSON(ctx context.Context, path string, payload, v any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &pkgerrs.TransportError{Operation: "encode request", Err: err}
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req, v)
}

// putJSON issues a PUT with a JSON body.
func (c *Client) putJSON(ctx context.Context, path string, payload, v any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return &pkgerrs.TransportError{Operation: "encode request", Err: err}
	}

	req, err := c.client.NewRequest(ctx, http.MethodPut, path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req, v)
}

// del issues a DELETE and discards the response body.
func (c *Client) del(ctx context.Context, path string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// absentOn404 converts a 404 rejection into absence: getters report a
// missing resource as (nil, nil), a valid business outcome distinct from a
// failure.
func absentOn404(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if pkgerrs.IsStatus(err, http.StatusNotFound) {
		return true, nil
	}
	return false, err
}
