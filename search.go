package rantly

import (
	"context"
	"net/url"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
	"github.com/rantly-unofficial/go-rantly/pkg/validation"
)

// SearchPosts runs a full-text search over posts.
func (c *Client) SearchPosts(ctx context.Context, request *types.SearchRequest) (*types.FeedResponse, error) {
	if request == nil || request.Query == "" {
		return &types.FeedResponse{}, nil
	}

	q := paginationQuery(request.Pagination)
	q.Set("q", request.Query)

	var feed types.FeedResponse
	if err := c.get(ctx, "search/posts", q, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// SearchUsers runs a search over usernames and profiles.
func (c *Client) SearchUsers(ctx context.Context, request *types.SearchRequest) ([]*types.User, error) {
	if request == nil || request.Query == "" {
		return nil, nil
	}

	q := paginationQuery(request.Pagination)
	q.Set("q", request.Query)

	var result struct {
		Users []*types.User `json:"users"`
	}
	if err := c.get(ctx, "search/users", q, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// GetTrendingHashtags retrieves the currently trending hashtags.
func (c *Client) GetTrendingHashtags(ctx context.Context) ([]*types.Hashtag, error) {
	var result struct {
		Hashtags []*types.Hashtag `json:"hashtags"`
	}
	if err := c.get(ctx, "hashtags/trending", nil, &result); err != nil {
		return nil, err
	}
	return result.Hashtags, nil
}

// GetHashtagPosts retrieves a page of posts carrying the given hashtag.
// The leading "#" may be included or omitted. A tag that cannot exist
// upstream yields an empty page without a network call.
func (c *Client) GetHashtagPosts(ctx context.Context, tag string, pagination types.Pagination) (*types.FeedResponse, error) {
	if len(tag) > 0 && tag[0] == '#' {
		tag = tag[1:]
	}
	if !validation.IsValidHashtag(tag) {
		return &types.FeedResponse{}, nil
	}

	var feed types.FeedResponse
	err := c.get(ctx, "hashtags/"+url.PathEscape(tag)+"/posts", paginationQuery(pagination), &feed)
	if absent, err := absentOn404(err); absent || err != nil {
		return nil, err
	}
	return &feed, nil
}
