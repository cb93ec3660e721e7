package rantly

import (
	"context"
	"net/url"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// GetComments retrieves a page of comments for a post, oldest first.
func (c *Client) GetComments(ctx context.Context, postID string, pagination types.Pagination) (*types.CommentsResponse, error) {
	var comments types.CommentsResponse
	err := c.get(ctx, "posts/"+url.PathEscape(postID)+"/comments", paginationQuery(pagination), &comments)
	if absent, err := absentOn404(err); absent || err != nil {
		return nil, err
	}
	return &comments, nil
}

// CreateComment posts a reply on a post and returns the created comment.
func (c *Client) CreateComment(ctx context.Context, postID string, request *types.CreateCommentRequest) (*types.Comment, error) {
	var comment types.Comment
	if err := c.postJSON(ctx, "posts/"+url.PathEscape(postID)+"/comments", request, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// EditComment updates the text of an existing comment.
func (c *Client) EditComment(ctx context.Context, id string, text string) (*types.Comment, error) {
	payload := struct {
		Text string `json:"text"`
	}{Text: text}

	var comment types.Comment
	if err := c.putJSON(ctx, "comments/"+url.PathEscape(id), payload, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment owned by the authenticated user.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.del(ctx, "comments/"+url.PathEscape(id))
}

// VoteComment casts a vote on a comment. Direction is +1, 0 (rescind) or -1.
func (c *Client) VoteComment(ctx context.Context, id string, direction int) error {
	payload := struct {
		Vote int `json:"vote"`
	}{Vote: direction}
	return c.postJSON(ctx, "comments/"+url.PathEscape(id)+"/vote", payload, nil)
}
