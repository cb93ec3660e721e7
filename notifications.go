package rantly

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/rantly-unofficial/go-rantly/internal"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// streamBuffer bounds the notification event channel. A consumer that stops
// draining applies backpressure to the read loop instead of growing memory.
const streamBuffer = 16

// GetNotifications retrieves a page of the authenticated user's
// notifications, newest first, using offset/limit pagination.
func (c *Client) GetNotifications(ctx context.Context, pagination types.Pagination) (*types.NotificationsResponse, error) {
	var notifications types.NotificationsResponse
	if err := c.get(ctx, "notifications", paginationQuery(pagination), &notifications); err != nil {
		return nil, err
	}
	return &notifications, nil
}

// MarkAllNotificationsRead marks every notification as read in one batch call.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.postJSON(ctx, "notifications/read-all", nil, nil)
}

// NotificationStream is a live subscription to the notification event
// stream. Events arrive on the channel returned by Events; Close stops the
// underlying read loop promptly and releases the connection.
type NotificationStream struct {
	events chan types.StreamEvent
	cancel context.CancelFunc
	body   io.ReadCloser
	done   chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// StreamNotifications opens the long-lived notification event stream. The
// subscription inherits cancellation from ctx and additionally owns its own
// handle: either cancelling ctx or calling Close on the returned stream
// stops the read loop.
//
// This is the client's only long-lived operation.
func (c *Client) StreamNotifications(ctx context.Context) (*NotificationStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := c.client.NewRequest(streamCtx, http.MethodGet, "notifications/stream", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	body, err := c.client.DoStream(req)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &NotificationStream{
		events: make(chan types.StreamEvent, streamBuffer),
		cancel: cancel,
		body:   body,
		done:   make(chan struct{}),
	}
	go s.run(streamCtx)
	return s, nil
}

// Events returns the channel delivering parsed stream events. The channel
// is closed when the stream ends or is closed.
func (s *NotificationStream) Events() <-chan types.StreamEvent {
	return s.events
}

// Close cancels the subscription, unblocks the read loop, and waits for it
// to finish. Safe to call multiple times and concurrently with ctx
// cancellation.
func (s *NotificationStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
	<-s.done
}

// Err reports why the stream ended: nil for a clean server-side end or
// cancellation, a read error otherwise. Valid after the events channel
// closes.
func (s *NotificationStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(s.err, context.Canceled) {
		return nil
	}
	return s.err
}

func (s *NotificationStream) run(ctx context.Context) {
	err := internal.ReadEventStream(ctx, s.body, s.events)

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
	close(s.events)
	close(s.done)
}
