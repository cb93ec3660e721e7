package rantly

import (
	"context"
	"net/url"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
	"github.com/rantly-unofficial/go-rantly/pkg/validation"
)

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.get(ctx, "users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser retrieves a user profile by username. A missing user is reported
// as (nil, nil), not as an error; a username that cannot exist upstream is
// reported the same way without a network call.
func (c *Client) GetUser(ctx context.Context, username string) (*types.User, error) {
	if !validation.IsValidUsername(username) {
		return nil, nil
	}

	var user types.User
	err := c.get(ctx, "users/"+url.PathEscape(username), nil, &user)
	if absent, err := absentOn404(err); absent || err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserPosts retrieves a page of posts published by one user.
func (c *Client) GetUserPosts(ctx context.Context, username string, pagination types.Pagination) (*types.FeedResponse, error) {
	var feed types.FeedResponse
	err := c.get(ctx, "users/"+url.PathEscape(username)+"/posts", paginationQuery(pagination), &feed)
	if absent, err := absentOn404(err); absent || err != nil {
		return nil, err
	}
	return &feed, nil
}

// RequestVerification asks the API to start account verification for the
// authenticated user (the server sends a confirmation code out of band).
func (c *Client) RequestVerification(ctx context.Context) error {
	return c.postJSON(ctx, "verification/request", nil, nil)
}

// ConfirmVerification submits the confirmation code and reports whether the
// account is now verified.
func (c *Client) ConfirmVerification(ctx context.Context, code string) (bool, error) {
	payload := struct {
		Code string `json:"code"`
	}{Code: code}

	var result struct {
		Verified bool `json:"verified"`
	}
	if err := c.postJSON(ctx, "verification/confirm", payload, &result); err != nil {
		return false, err
	}
	return result.Verified, nil
}
