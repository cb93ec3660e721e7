// Package types defines the request, response and domain types exchanged
// with the Rantly API, together with the response-envelope decoding rule.
package types

import (
	"encoding/json"
	"io"
	"strconv"
	"time"
)

// Pagination holds the limit/offset controls shared by all list endpoints.
type Pagination struct {
	// Limit caps the number of items returned. Zero means server default.
	Limit int
	// Offset skips that many items from the start of the listing.
	Offset int
}

// Timestamp wraps time.Time and accepts the two encodings the upstream API
// uses interchangeably: a unix-seconds number or an RFC 3339 string.
// Unparseable values decode to the zero time rather than failing the
// surrounding payload.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for the mixed timestamp field.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = time.Unix(int64(secs), 0).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if parsed, err := time.Parse(time.RFC3339, str); err == nil {
			t.Time = parsed
			return nil
		}
	}

	t.Time = time.Time{}
	return nil
}

// Post is a single published rant.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	Author       string    `json:"author"`
	Text         string    `json:"text"`
	Tags         []string  `json:"tags"`
	Score        int       `json:"score"`
	CommentCount int       `json:"commentCount"`
	AttachedURL  string    `json:"attachedUrl"`
	Edited       bool      `json:"edited"`
	CreatedAt    Timestamp `json:"createdAt"`
}

// Comment is a single reply on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	CreatedAt Timestamp `json:"createdAt"`
}

// User is a Rantly account profile.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	About     string    `json:"about"`
	Score     int       `json:"score"`
	Verified  bool      `json:"verified"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Notification is one entry in the authenticated user's notification feed.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	PostID    string    `json:"postId"`
	CommentID string    `json:"commentId"`
	FromUser  string    `json:"fromUser"`
	Read      bool      `json:"read"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Hashtag is a tag with its usage statistics.
type Hashtag struct {
	Tag       string `json:"tag"`
	PostCount int    `json:"postCount"`
	Trending  bool   `json:"trending"`
}

// FileInfo describes an uploaded file as reported back by the API.
type FileInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// FeedRequest controls a feed listing call.
type FeedRequest struct {
	// Sort selects the feed ordering ("hot", "new", "top"). Empty means the
	// server default.
	Sort string
	Pagination
}

// FeedResponse is a page of posts.
type FeedResponse struct {
	Posts []*Post `json:"posts"`
}

// CommentsResponse is a page of comments for one post.
type CommentsResponse struct {
	Comments []*Comment `json:"comments"`
}

// NotificationsResponse is a page of notifications plus the unread counter
// the API returns alongside it.
type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
	Unread        int             `json:"unread"`
}

// CreatePostRequest carries the fields for publishing a new post.
type CreatePostRequest struct {
	Text        string   `json:"text"`
	Tags        []string `json:"tags,omitempty"`
	AttachedURL string   `json:"attachedUrl,omitempty"`
}

// EditPostRequest carries the editable fields of an existing post.
type EditPostRequest struct {
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// CreateCommentRequest carries the fields for replying to a post.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// ReportRequest carries the reason for reporting a post, comment or user.
type ReportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// SearchRequest controls a search call.
type SearchRequest struct {
	Query string
	Pagination
}

// UploadRequest describes a file upload. The reader is consumed exactly once.
type UploadRequest struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// StreamEvent is one decoded server-sent event from the notification stream.
// Data holds the JSON payload when the event body parsed as JSON; otherwise
// Data is nil and Raw carries the payload verbatim.
type StreamEvent struct {
	Name string
	Data json.RawMessage
	Raw  string
}

// Notification decodes the event payload as a Notification when possible.
func (e *StreamEvent) Notification() (*Notification, bool) {
	if len(e.Data) == 0 {
		return nil, false
	}
	var n Notification
	if err := json.Unmarshal(e.Data, &n); err != nil {
		return nil, false
	}
	return &n, true
}
