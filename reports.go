package rantly

import (
	"context"
	"net/url"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// ReportPost files a report against a post.
func (c *Client) ReportPost(ctx context.Context, id string, request *types.ReportRequest) error {
	return c.postJSON(ctx, "posts/"+url.PathEscape(id)+"/report", request, nil)
}

// ReportComment files a report against a comment.
func (c *Client) ReportComment(ctx context.Context, id string, request *types.ReportRequest) error {
	return c.postJSON(ctx, "comments/"+url.PathEscape(id)+"/report", request, nil)
}

// ReportUser files a report against a user account.
func (c *Client) ReportUser(ctx context.Context, username string, request *types.ReportRequest) error {
	return c.postJSON(ctx, "users/"+url.PathEscape(username)+"/report", request, nil)
}
