package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

const defaultRefreshEndpointPath = "auth/refresh"

// Cookies the upstream expects to see again on the next refresh call.
// Everything else set by the server is dropped before persisting.
var refreshCookieNames = map[string]struct{}{
	"refresh_token": {},
	"is_auth":       {},
}

var refreshCookiePrefixes = []string{"__ddg", "__cf"}

// IsRefreshCookie reports whether a cookie by this name must be retained
// for the refresh endpoint (refresh token, auth marker, bot-challenge
// cookies).
func IsRefreshCookie(name string) bool {
	if _, ok := refreshCookieNames[name]; ok {
		return true
	}
	for _, prefix := range refreshCookiePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Authenticator drives the access-token refresh exchange for one session.
// Concurrent Refresh calls are collapsed into a single network round trip;
// every caller observes the result of the one in-flight exchange.
type Authenticator struct {
	client     *http.Client
	refreshURL *url.URL
	origin     string
	userAgent  string
	session    *Session
	store      *CredStore
	logger     *slog.Logger

	group singleflight.Group
}

// NewAuthenticator creates a refresh coordinator bound to one session and
// credential store. The refreshPath parameter can be an empty string to use
// the default refresh endpoint.
func NewAuthenticator(httpClient *http.Client, session *Session, store *CredStore, baseURL, refreshPath, userAgent string, logger *slog.Logger) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.RefreshError{Err: fmt.Errorf("failed to parse base URL: %w", err)}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if refreshPath == "" {
		refreshPath = defaultRefreshEndpointPath
	}

	resolvedRefreshURL, err := parsedURL.Parse(refreshPath)
	if err != nil {
		return nil, &pkgerrs.RefreshError{Err: fmt.Errorf("failed to parse refresh endpoint path: %w", err)}
	}

	return &Authenticator{
		client:     httpClient,
		refreshURL: resolvedRefreshURL,
		origin:     parsedURL.Scheme + "://" + parsedURL.Host,
		userAgent:  userAgent,
		session:    session,
		store:      store,
		logger:     logger,
	}, nil
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Refresh exchanges the session's refresh cookies for a new access token.
// On success the session token is updated, the authenticated flag set, and
// the new token plus the filtered cookie header are persisted. On any other
// outcome the session is left unchanged and nothing is persisted.
//
// Refresh never runs more than once concurrently for the same session:
// duplicate callers wait for and share the in-flight result.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	v, err, _ := a.group.Do("refresh", func() (any, error) {
		return a.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *Authenticator) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.refreshURL.String(), nil)
	if err != nil {
		return "", &pkgerrs.RefreshError{Err: fmt.Errorf("failed to create refresh request: %w", err)}
	}

	// The upstream rejects refresh calls that do not look like they came
	// from the site itself.
	req.Header.Set("Referer", a.origin+"/")
	req.Header.Set("Origin", a.origin)
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	if cookieHeader := a.session.CookieHeader(); cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &pkgerrs.RefreshError{Err: fmt.Errorf("failed to execute refresh request: %w", err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &pkgerrs.RefreshError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &pkgerrs.RefreshError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var refreshResp refreshResponse
	if !types.DecodeEnvelope(bodyBytes, &refreshResp) || refreshResp.AccessToken == "" {
		return "", &pkgerrs.RefreshError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
			Err:        fmt.Errorf("access token was empty in response"),
		}
	}

	a.session.SetToken(refreshResp.AccessToken)

	if err := a.store.WriteToken(refreshResp.AccessToken); err != nil {
		// The refreshed token is live in the session either way; a missing
		// or unwritable token file only costs persistence across restarts.
		a.logWarn("failed to persist refreshed token", "error", err)
	}

	var cookieHeader string
	a.session.WithJar(func(jar *CookieJar) {
		jar.MergeSetCookies(resp.Header.Values("Set-Cookie"), a.refreshURL.Hostname())
		cookieHeader = jar.FilteredHeader(IsRefreshCookie)
	})
	if cookieHeader != "" {
		if err := a.store.WriteCookieHeader(cookieHeader); err != nil {
			a.logWarn("failed to persist refreshed cookies", "error", err)
		}
	}

	return refreshResp.AccessToken, nil
}

func (a *Authenticator) logWarn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
