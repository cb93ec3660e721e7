package rantly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// poolFixture is a set of labeled backends plus a pool of one client per
// backend. Each handler appends its label to hits so tests can assert the
// exact dispatch order.
type poolFixture struct {
	pool *MirrorPool
	mu   sync.Mutex
	hits []string
}

func newPoolFixture(t *testing.T, labels ...string) *poolFixture {
	t.Helper()

	f := &poolFixture{}
	clients := make([]*Client, 0, len(labels))
	for _, label := range labels {
		label := label
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.hits = append(f.hits, label)
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"posts":[{"id":"p-` + label + `"}]}}`))
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(&Config{
			BaseURL:           server.URL,
			AccessToken:       "token-" + label,
			RequestsPerMinute: 6000,
			RateLimitBurst:    100,
		})
		if err != nil {
			t.Fatalf("NewClient(%s): %v", label, err)
		}
		clients = append(clients, client)
	}

	pool, err := NewMirrorPool(clients)
	if err != nil {
		t.Fatalf("NewMirrorPool: %v", err)
	}
	f.pool = pool
	return f
}

func (f *poolFixture) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.hits))
	copy(out, f.hits)
	return out
}

func TestMirrorPool_RoundRobin(t *testing.T) {
	f := newPoolFixture(t, "A", "B", "C")
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := f.pool.GetFeed(ctx, nil); err != nil {
			t.Fatalf("GetFeed call %d: %v", i, err)
		}
	}

	want := []string{"A", "B", "C", "A", "B", "C", "A"}
	got := f.order()
	if len(got) != len(want) {
		t.Fatalf("got %d dispatches, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestMirrorPool_MixedOperationsShareCounter(t *testing.T) {
	f := newPoolFixture(t, "A", "B")
	ctx := context.Background()

	// Different operations through the pool all advance the one counter.
	if _, err := f.pool.GetFeed(ctx, nil); err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if _, err := f.pool.GetPost(ctx, "p1"); err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if err := f.pool.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}

	want := []string{"A", "B", "A"}
	got := f.order()
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestMirrorPool_PinnedMirrorBypassesCounter(t *testing.T) {
	f := newPoolFixture(t, "A", "B", "C")
	ctx := context.Background()

	if _, err := f.pool.GetFeed(ctx, nil); err != nil {
		t.Fatalf("pool GetFeed: %v", err)
	}

	pinned := f.pool.Mirror(0)
	if pinned == nil {
		t.Fatal("Mirror(0) returned nil")
	}
	for i := 0; i < 3; i++ {
		if _, err := pinned.GetFeed(ctx, nil); err != nil {
			t.Fatalf("pinned GetFeed %d: %v", i, err)
		}
	}

	// The pinned calls must not have advanced the shared counter: the next
	// pool call continues at B.
	if _, err := f.pool.GetFeed(ctx, nil); err != nil {
		t.Fatalf("pool GetFeed after pinned calls: %v", err)
	}

	want := []string{"A", "A", "A", "A", "B"}
	got := f.order()
	if len(got) != len(want) {
		t.Fatalf("got %d dispatches, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestMirrorPool_MirrorOutOfRange(t *testing.T) {
	f := newPoolFixture(t, "A")

	if f.pool.Mirror(-1) != nil {
		t.Error("Mirror(-1) should return nil")
	}
	if f.pool.Mirror(1) != nil {
		t.Error("Mirror(1) should return nil for a one-entry pool")
	}
}

func TestNewMirrorPool_RejectsEmptyAndNil(t *testing.T) {
	var configErr *pkgerrs.ConfigError

	if _, err := NewMirrorPool(nil); !errors.As(err, &configErr) {
		t.Errorf("empty list: expected ConfigError, got %v", err)
	}
	if _, err := NewMirrorPool([]*Client{nil}); !errors.As(err, &configErr) {
		t.Errorf("nil entry: expected ConfigError, got %v", err)
	}
}

func TestNewMirrorPoolFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")

	// One string-valued entry and one object-valued entry.
	content := `{
		"beta": {"refresh_token": "r2", "is_auth": "1"},
		"alpha": "refresh_token=r1; is_auth=1"
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	pool, err := NewMirrorPoolFromFile(path, dir, &Config{UserAgent: "test/1.0"})
	if err != nil {
		t.Fatalf("NewMirrorPoolFromFile: %v", err)
	}

	if pool.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", pool.Size())
	}

	keys := pool.Keys()
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Fatalf("Keys() = %v, want sorted [alpha beta]", keys)
	}

	if pool.MirrorFor("alpha") != pool.Mirror(0) {
		t.Error("MirrorFor(alpha) should return the first client")
	}
	if pool.MirrorFor("beta") != pool.Mirror(1) {
		t.Error("MirrorFor(beta) should return the second client")
	}
	if pool.MirrorFor("missing") != nil {
		t.Error("MirrorFor(missing) should return nil")
	}

	// Per-account token files are provisioned so the first refresh can
	// persist into them.
	for _, key := range keys {
		tokenPath := filepath.Join(dir, "accounts.json.mirrors."+key+".token")
		if _, err := os.Stat(tokenPath); err != nil {
			t.Errorf("token file for %s not provisioned: %v", key, err)
		}
	}
}

func TestNewMirrorPoolFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"malformed json", write("bad.json", `{"a": `)},
		{"empty object", write("empty.json", `{}`)},
		{"not an object", write("array.json", `["a", "b"]`)},
		{"invalid key", write("key.json", `{"has space": "refresh_token=x"}`)},
		{"empty cookie string", write("blank.json", `{"acct": "   "}`)},
		{"empty cookie object", write("noobj.json", `{"acct": {}}`)},
		{"bad entry type", write("num.json", `{"acct": 7}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMirrorPoolFromFile(tt.path, dir, nil)
			var configErr *pkgerrs.ConfigError
			if !errors.As(err, &configErr) {
				t.Errorf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestCookieHeaderFromEntry_ObjectSorted(t *testing.T) {
	header, err := cookieHeaderFromEntry([]byte(`{"z_last": "3", "a_first": "1", "m_mid": "2"}`))
	if err != nil {
		t.Fatalf("cookieHeaderFromEntry: %v", err)
	}
	want := "a_first=1; m_mid=2; z_last=3"
	if header != want {
		t.Errorf("header = %q, want %q", header, want)
	}
}

func TestMirrorPool_ClientsStayIndependent(t *testing.T) {
	f := newPoolFixture(t, "A", "B")

	a := f.pool.Mirror(0)
	b := f.pool.Mirror(1)

	a.Logout()
	if a.IsAuthenticated() {
		t.Error("client A should be logged out")
	}
	if !b.IsAuthenticated() {
		t.Error("logging out A must not touch B's session")
	}

	// Pool calls route past the logged-out mirror's local precondition only
	// when that mirror is selected; the healthy mirror still works.
	ctx := context.Background()
	if _, err := f.pool.GetFeed(ctx, nil); err == nil {
		t.Error("first pool call routes to logged-out A and should fail locally")
	} else {
		var authErr *pkgerrs.AuthRequiredError
		if !errors.As(err, &authErr) {
			t.Errorf("expected AuthRequiredError, got %v", err)
		}
	}
	if _, err := f.pool.GetFeed(ctx, nil); err != nil {
		t.Errorf("second pool call routes to B and should succeed: %v", err)
	}
}

func TestMirrorPool_GetPostPayload(t *testing.T) {
	f := newPoolFixture(t, "A")
	ctx := context.Background()

	feed, err := f.pool.GetFeed(ctx, &types.FeedRequest{Sort: "hot"})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(feed.Posts) != 1 || feed.Posts[0].ID != "p-A" {
		t.Errorf("unexpected feed payload: %+v", feed.Posts)
	}
}

func TestNewMirrorPoolFromFile_BaseCredentialsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	if err := os.WriteFile(path, []byte(`{"only": "refresh_token=r"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	base := &Config{
		AccessToken: "must-not-leak",
		TokenFile:   filepath.Join(dir, "base.env"),
	}
	pool, err := NewMirrorPoolFromFile(path, dir, base)
	if err != nil {
		t.Fatalf("NewMirrorPoolFromFile: %v", err)
	}

	client := pool.Mirror(0)
	if client.IsAuthenticated() {
		t.Error("mirror client must not inherit the base access token")
	}
	if !strings.Contains(client.config.TokenFile, "accounts.json.mirrors.only") {
		t.Errorf("mirror token file = %q, want per-account path", client.config.TokenFile)
	}
}
