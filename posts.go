package rantly

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
	"github.com/rantly-unofficial/go-rantly/pkg/validation"
)

func paginationQuery(p types.Pagination) url.Values {
	q := url.Values{}
	if limit := validation.ClampLimit(p.Limit); limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// GetFeed retrieves a page of posts. Provide a nil request for the default
// feed ordering and pagination.
func (c *Client) GetFeed(ctx context.Context, request *types.FeedRequest) (*types.FeedResponse, error) {
	sort := ""
	pagination := types.Pagination{}
	if request != nil {
		sort = request.Sort
		pagination = request.Pagination
	}

	q := paginationQuery(pagination)
	if sort != "" {
		q.Set("sort", sort)
	}

	var feed types.FeedResponse
	if err := c.get(ctx, "posts", q, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// GetPost retrieves a single post by ID. A missing post is reported as
// (nil, nil), not as an error.
func (c *Client) GetPost(ctx context.Context, id string) (*types.Post, error) {
	var post types.Post
	err := c.get(ctx, "posts/"+url.PathEscape(id), nil, &post)
	if absent, err := absentOn404(err); absent || err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost publishes a new post and returns the created resource.
func (c *Client) CreatePost(ctx context.Context, request *types.CreatePostRequest) (*types.Post, error) {
	var post types.Post
	if err := c.postJSON(ctx, "posts", request, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// EditPost updates the text and tags of an existing post.
func (c *Client) EditPost(ctx context.Context, id string, request *types.EditPostRequest) (*types.Post, error) {
	var post types.Post
	if err := c.putJSON(ctx, "posts/"+url.PathEscape(id), request, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post owned by the authenticated user.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.del(ctx, "posts/"+url.PathEscape(id))
}

// VotePost casts a vote on a post. Direction is +1, 0 (rescind) or -1.
func (c *Client) VotePost(ctx context.Context, id string, direction int) error {
	payload := struct {
		Vote int `json:"vote"`
	}{Vote: direction}
	return c.postJSON(ctx, "posts/"+url.PathEscape(id)+"/vote", payload, nil)
}
