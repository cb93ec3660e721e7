package internal

import (
	"sort"
	"strings"
	"sync"
)

// Cookie is one stored cookie value with the domain it was set for.
type Cookie struct {
	Value  string
	Domain string
}

// CookieJar is a minimal name -> cookie store for the handful of
// non-HTTP-only cookies the refresh endpoint needs to see again. It is not
// an http.CookieJar: persistence works on a single "k1=v1; k2=v2" header
// line, and the jar must be filterable down to an allowlist before writing.
type CookieJar struct {
	cookies map[string]Cookie
}

// NewCookieJar returns an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{cookies: make(map[string]Cookie)}
}

// Set stores or replaces a cookie.
func (j *CookieJar) Set(name string, c Cookie) {
	if name == "" {
		return
	}
	j.cookies[name] = c
}

// Get returns the cookie stored under name.
func (j *CookieJar) Get(name string) (Cookie, bool) {
	c, ok := j.cookies[name]
	return c, ok
}

// Len returns the number of stored cookies.
func (j *CookieJar) Len() int {
	return len(j.cookies)
}

// Header serializes the jar as a single Cookie header line. Names are
// emitted in sorted order so the output is deterministic.
func (j *CookieJar) Header() string {
	return j.headerFor(nil)
}

// FilteredHeader serializes only the cookies accepted by keep.
func (j *CookieJar) FilteredHeader(keep func(name string) bool) string {
	return j.headerFor(keep)
}

func (j *CookieJar) headerFor(keep func(name string) bool) string {
	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		if keep != nil && !keep(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+j.cookies[name].Value)
	}
	return strings.Join(pairs, "; ")
}

// LoadHeader merges a "k1=v1; k2=v2" header line into the jar. Malformed
// fragments (no "=", empty name) are skipped without affecting the rest.
func (j *CookieJar) LoadHeader(header, domain string) {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		j.cookies[name] = Cookie{Value: strings.TrimSpace(value), Domain: domain}
	}
}

// MergeSetCookies parses raw Set-Cookie header values into the jar. Each
// value is parsed independently: a malformed cookie in a multi-cookie
// response never discards the well-formed ones. Attributes other than
// Domain are ignored.
func (j *CookieJar) MergeSetCookies(setCookies []string, fallbackDomain string) {
	for _, raw := range setCookies {
		name, c, ok := parseSetCookie(raw, fallbackDomain)
		if !ok {
			continue
		}
		j.cookies[name] = c
	}
}

func parseSetCookie(raw, fallbackDomain string) (string, Cookie, bool) {
	parts := strings.Split(raw, ";")
	if len(parts) == 0 {
		return "", Cookie{}, false
	}

	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", Cookie{}, false
	}

	c := Cookie{Value: strings.TrimSpace(value), Domain: fallbackDomain}
	for _, attr := range parts[1:] {
		attrName, attrValue, _ := strings.Cut(strings.TrimSpace(attr), "=")
		if strings.EqualFold(strings.TrimSpace(attrName), "Domain") {
			c.Domain = strings.TrimSpace(attrValue)
		}
	}
	return name, c, true
}

// Session holds the authentication state owned by exactly one client
// instance: the current access token, the sticky authenticated flag, and
// the cookie jar backing the refresh call.
//
// The token is the single source of truth for the Authorization header on
// every authenticated request; the jar is the single source of truth for
// the Cookie header on the refresh request specifically.
type Session struct {
	mu            sync.RWMutex
	token         string
	authenticated bool
	jar           *CookieJar
}

// NewSession returns an empty, unauthenticated session.
func NewSession() *Session {
	return &Session{jar: NewCookieJar()}
}

// Token returns the current access token, empty if unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken installs a new access token and marks the session authenticated.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.authenticated = true
}

// MarkAuthenticated sets the sticky flag without touching the token. Used
// for pre-seeded sessions whose token arrives out of band.
func (s *Session) MarkAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}

// IsAuthenticated reports whether requests may be attempted: a token is
// present or the session was explicitly marked authenticated. Purely local,
// never validates against the server.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" || s.authenticated
}

// Clear resets the session to its unauthenticated construction state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.authenticated = false
	s.jar = NewCookieJar()
}

// WithJar runs fn with exclusive access to the cookie jar.
func (s *Session) WithJar(fn func(jar *CookieJar)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.jar)
}

// CookieHeader returns the serialized Cookie header for the refresh call.
func (s *Session) CookieHeader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Header()
}
