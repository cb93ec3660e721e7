package rantly

import (
	"context"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
	"github.com/rantly-unofficial/go-rantly/pkg/validation"
)

// FeedIterator pages through a feed by advancing the offset, buffering one
// page at a time.
type FeedIterator struct {
	client    *Client
	sort      string
	limit     int
	offset    int
	buffer    []*types.Post
	bufferIdx int
	hasMore   bool
	err       error
	ctx       context.Context
}

// NewFeedIterator creates an iterator over the feed with the given sort
// order ("hot", "new", "top"; empty for the server default).
func (c *Client) NewFeedIterator(ctx context.Context, sort string) *FeedIterator {
	return &FeedIterator{
		client:  c,
		sort:    sort,
		limit:   validation.MaxPageLimit,
		hasMore: true,
		ctx:     ctx,
	}
}

// WithLimit sets the number of posts fetched per request.
func (it *FeedIterator) WithLimit(limit int) *FeedIterator {
	if limit < 1 {
		limit = 1
	}
	it.limit = validation.ClampLimit(limit)
	return it
}

// Next returns the next post, fetching a new page when the buffer runs out.
// It returns (nil, nil) when the feed is exhausted.
func (it *FeedIterator) Next() (*types.Post, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return nil, nil
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return nil, err
		}
		if len(it.buffer) == 0 {
			return nil, nil
		}
	}

	post := it.buffer[it.bufferIdx]
	it.bufferIdx++
	return post, nil
}

func (it *FeedIterator) fetch() error {
	resp, err := it.client.GetFeed(it.ctx, &types.FeedRequest{
		Sort: it.sort,
		Pagination: types.Pagination{
			Limit:  it.limit,
			Offset: it.offset,
		},
	})
	if err != nil {
		return err
	}

	it.buffer = resp.Posts
	it.bufferIdx = 0
	it.offset += len(resp.Posts)
	// A short page means the feed ran out.
	it.hasMore = len(resp.Posts) == it.limit
	return nil
}
