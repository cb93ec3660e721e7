package rantly

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
	"github.com/rantly-unofficial/go-rantly/pkg/validation"
)

// API is the operation set shared by a single Client and a MirrorPool.
// The pool implements it by forwarding each declared operation to the next
// client in round-robin order; the set is enumerated statically rather than
// proxied dynamically.
type API interface {
	GetFeed(ctx context.Context, request *types.FeedRequest) (*types.FeedResponse, error)
	GetPost(ctx context.Context, id string) (*types.Post, error)
	CreatePost(ctx context.Context, request *types.CreatePostRequest) (*types.Post, error)
	EditPost(ctx context.Context, id string, request *types.EditPostRequest) (*types.Post, error)
	DeletePost(ctx context.Context, id string) error
	VotePost(ctx context.Context, id string, direction int) error

	GetComments(ctx context.Context, postID string, pagination types.Pagination) (*types.CommentsResponse, error)
	CreateComment(ctx context.Context, postID string, request *types.CreateCommentRequest) (*types.Comment, error)
	EditComment(ctx context.Context, id string, text string) (*types.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	VoteComment(ctx context.Context, id string, direction int) error

	Me(ctx context.Context) (*types.User, error)
	GetUser(ctx context.Context, username string) (*types.User, error)
	GetUserPosts(ctx context.Context, username string, pagination types.Pagination) (*types.FeedResponse, error)
	RequestVerification(ctx context.Context) error
	ConfirmVerification(ctx context.Context, code string) (bool, error)

	GetNotifications(ctx context.Context, pagination types.Pagination) (*types.NotificationsResponse, error)
	MarkAllNotificationsRead(ctx context.Context) error
	StreamNotifications(ctx context.Context) (*NotificationStream, error)

	SearchPosts(ctx context.Context, request *types.SearchRequest) (*types.FeedResponse, error)
	SearchUsers(ctx context.Context, request *types.SearchRequest) ([]*types.User, error)
	GetTrendingHashtags(ctx context.Context) ([]*types.Hashtag, error)
	GetHashtagPosts(ctx context.Context, tag string, pagination types.Pagination) (*types.FeedResponse, error)

	UploadFile(ctx context.Context, request *types.UploadRequest) (*types.FileInfo, error)

	ReportPost(ctx context.Context, id string, request *types.ReportRequest) error
	ReportComment(ctx context.Context, id string, request *types.ReportRequest) error
	ReportUser(ctx context.Context, username string, request *types.ReportRequest) error
}

var (
	_ API = (*Client)(nil)
	_ API = (*MirrorPool)(nil)
)

// MirrorPool distributes calls across several independently authenticated
// clients ("mirrors") to spread rate-limit pressure. Each entry owns a full
// session and credential record of its own; a rate limit or ban on one
// account cannot corrupt another's state.
//
// Every call through the pool itself advances one shared counter by exactly
// one and routes to the corresponding client. Mirror and MirrorFor return a
// pinned client for multi-step flows (read-then-reply against one fixed
// account); calls through a pinned client never advance the shared counter.
//
// The set of entries is fixed at construction.
type MirrorPool struct {
	clients []*Client
	keys    []string
	cursor  atomic.Uint64
}

// NewMirrorPool builds a pool from an explicit ordered list of clients.
// An empty list or a nil entry is a hard configuration error: the pool must
// never silently come up with zero usable accounts.
func NewMirrorPool(clients []*Client) (*MirrorPool, error) {
	if len(clients) == 0 {
		return nil, &pkgerrs.ConfigError{Field: "clients", Message: "mirror pool requires at least one client"}
	}
	for i, c := range clients {
		if c == nil {
			return nil, &pkgerrs.ConfigError{Field: "clients", Message: "mirror pool client " + strconv.Itoa(i) + " is nil"}
		}
	}

	return &MirrorPool{clients: clients}, nil
}

// NewMirrorPoolFromFile builds a pool from a multi-account credential file:
// a JSON object whose top-level keys are opaque account identifiers and
// whose values are either a raw cookie-header string or an object of named
// cookie values. Per-account refreshed credentials are persisted under dir
// as "<base>.mirrors.<key>" files, where <base> is the credential file's
// base name.
//
// base supplies the shared client settings (BaseURL, UserAgent, timeouts,
// logger); its credential fields are ignored. Parse failure or an empty
// object is a hard construction error.
func NewMirrorPoolFromFile(path, dir string, base *Config) (*MirrorPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "path", Message: "cannot read mirror file: " + err.Error()}
	}

	var accounts map[string]json.RawMessage
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, &pkgerrs.ConfigError{Field: "path", Message: "malformed mirror file: " + err.Error()}
	}
	if len(accounts) == 0 {
		return nil, &pkgerrs.ConfigError{Field: "path", Message: "mirror file defines no accounts"}
	}

	keys := make([]string, 0, len(accounts))
	for key := range accounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	baseName := filepath.Base(path)
	pool := &MirrorPool{keys: keys}

	for _, key := range keys {
		if !validation.IsValidAccountKey(key) {
			return nil, &pkgerrs.ConfigError{Field: "path", Message: "invalid account key " + key}
		}

		header, err := cookieHeaderFromEntry(accounts[key])
		if err != nil {
			return nil, &pkgerrs.ConfigError{Field: "path", Message: "account " + key + ": " + err.Error()}
		}

		cfg := Config{}
		if base != nil {
			cfg = *base
		}
		cfg.AccessToken = ""
		cfg.CookieHeader = header
		cfg.CookieFile = filepath.Join(dir, baseName+".mirrors."+key)
		cfg.TokenFile = filepath.Join(dir, baseName+".mirrors."+key+".token")

		// Provision the per-account token file so the first refresh has a
		// file to update.
		if _, statErr := os.Stat(cfg.TokenFile); os.IsNotExist(statErr) {
			if writeErr := os.WriteFile(cfg.TokenFile, nil, 0o600); writeErr != nil {
				return nil, &pkgerrs.ConfigError{Field: "dir", Message: "cannot provision " + cfg.TokenFile + ": " + writeErr.Error()}
			}
		}

		client, err := NewClient(&cfg)
		if err != nil {
			return nil, err
		}
		pool.clients = append(pool.clients, client)
	}

	return pool, nil
}

func cookieHeaderFromEntry(raw json.RawMessage) (string, error) {
	var header string
	if err := json.Unmarshal(raw, &header); err == nil {
		if strings.TrimSpace(header) == "" {
			return "", &pkgerrs.ConfigError{Message: "empty cookie header"}
		}
		return header, nil
	}

	var cookies map[string]string
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return "", &pkgerrs.ConfigError{Message: "entry is neither a cookie string nor a cookie object"}
	}
	if len(cookies) == 0 {
		return "", &pkgerrs.ConfigError{Message: "empty cookie object"}
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}
	return strings.Join(pairs, "; "), nil
}

// Size returns the number of mirrors in the pool.
func (p *MirrorPool) Size() int {
	return len(p.clients)
}

// Keys returns the account identifiers, in dispatch order, for pools built
// from a credential file. Pools built from an explicit client list have no
// keys.
func (p *MirrorPool) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Mirror returns the client at the given position for manual pinning, or
// nil if the index is out of range. Calls made through the returned client
// bypass the round robin entirely.
func (p *MirrorPool) Mirror(i int) *Client {
	if i < 0 || i >= len(p.clients) {
		return nil
	}
	return p.clients[i]
}

// MirrorFor returns the pinned client for an account key, or nil if the
// pool was not built from a credential file or the key is unknown.
func (p *MirrorPool) MirrorFor(key string) *Client {
	for i, k := range p.keys {
		if k == key {
			return p.clients[i]
		}
	}
	return nil
}

// next advances the shared round-robin counter by exactly one, regardless
// of which forwarded operation was invoked, and returns the chosen client.
func (p *MirrorPool) next() *Client {
	n := p.cursor.Add(1) - 1
	return p.clients[n%uint64(len(p.clients))]
}

// Forwarded operations. Each resolves to the next client in round-robin
// order.

func (p *MirrorPool) GetFeed(ctx context.Context, request *types.FeedRequest) (*types.FeedResponse, error) {
	return p.next().GetFeed(ctx, request)
}

func (p *MirrorPool) GetPost(ctx context.Context, id string) (*types.Post, error) {
	return p.next().GetPost(ctx, id)
}

func (p *MirrorPool) CreatePost(ctx context.Context, request *types.CreatePostRequest) (*types.Post, error) {
	return p.next().CreatePost(ctx, request)
}

func (p *MirrorPool) EditPost(ctx context.Context, id string, request *types.EditPostRequest) (*types.Post, error) {
	return p.next().EditPost(ctx, id, request)
}

func (p *MirrorPool) DeletePost(ctx context.Context, id string) error {
	return p.next().DeletePost(ctx, id)
}

func (p *MirrorPool) VotePost(ctx context.Context, id string, direction int) error {
	return p.next().VotePost(ctx, id, direction)
}

func (p *MirrorPool) GetComments(ctx context.Context, postID string, pagination types.Pagination) (*types.CommentsResponse, error) {
	return p.next().GetComments(ctx, postID, pagination)
}

func (p *MirrorPool) CreateComment(ctx context.Context, postID string, request *types.CreateCommentRequest) (*types.Comment, error) {
	return p.next().CreateComment(ctx, postID, request)
}

func (p *MirrorPool) EditComment(ctx context.Context, id string, text string) (*types.Comment, error) {
	return p.next().EditComment(ctx, id, text)
}

func (p *MirrorPool) DeleteComment(ctx context.Context, id string) error {
	return p.next().DeleteComment(ctx, id)
}

func (p *MirrorPool) VoteComment(ctx context.Context, id string, direction int) error {
	return p.next().VoteComment(ctx, id, direction)
}

func (p *MirrorPool) Me(ctx context.Context) (*types.User, error) {
	return p.next().Me(ctx)
}

func (p *MirrorPool) GetUser(ctx context.Context, username string) (*types.User, error) {
	return p.next().GetUser(ctx, username)
}

func (p *MirrorPool) GetUserPosts(ctx context.Context, username string, pagination types.Pagination) (*types.FeedResponse, error) {
	return p.next().GetUserPosts(ctx, username, pagination)
}

func (p *MirrorPool) RequestVerification(ctx context.Context) error {
	return p.next().RequestVerification(ctx)
}

func (p *MirrorPool) ConfirmVerification(ctx context.Context, code string) (bool, error) {
	return p.next().ConfirmVerification(ctx, code)
}

func (p *MirrorPool) GetNotifications(ctx context.Context, pagination types.Pagination) (*types.NotificationsResponse, error) {
	return p.next().GetNotifications(ctx, pagination)
}

func (p *MirrorPool) MarkAllNotificationsRead(ctx context.Context) error {
	return p.next().MarkAllNotificationsRead(ctx)
}

func (p *MirrorPool) StreamNotifications(ctx context.Context) (*NotificationStream, error) {
	return p.next().StreamNotifications(ctx)
}

func (p *MirrorPool) SearchPosts(ctx context.Context, request *types.SearchRequest) (*types.FeedResponse, error) {
	return p.next().SearchPosts(ctx, request)
}

func (p *MirrorPool) SearchUsers(ctx context.Context, request *types.SearchRequest) ([]*types.User, error) {
	return p.next().SearchUsers(ctx, request)
}

func (p *MirrorPool) GetTrendingHashtags(ctx context.Context) ([]*types.Hashtag, error) {
	return p.next().GetTrendingHashtags(ctx)
}

func (p *MirrorPool) GetHashtagPosts(ctx context.Context, tag string, pagination types.Pagination) (*types.FeedResponse, error) {
	return p.next().GetHashtagPosts(ctx, tag, pagination)
}

func (p *MirrorPool) UploadFile(ctx context.Context, request *types.UploadRequest) (*types.FileInfo, error) {
	return p.next().UploadFile(ctx, request)
}

func (p *MirrorPool) ReportPost(ctx context.Context, id string, request *types.ReportRequest) error {
	return p.next().ReportPost(ctx, id, request)
}

func (p *MirrorPool) ReportComment(ctx context.Context, id string, request *types.ReportRequest) error {
	return p.next().ReportComment(ctx, id, request)
}

func (p *MirrorPool) ReportUser(ctx context.Context, username string, request *types.ReportRequest) error {
	return p.next().ReportUser(ctx, username, request)
}
