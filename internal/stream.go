package internal

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

// ReadEventStream consumes a text/event-stream body and delivers one
// StreamEvent per event block to events. A block ends at a blank line;
// payload lines are prefixed "data:" and an optional "event:" line names
// the event. Payloads that parse as JSON are delivered decoded, anything
// else is delivered as the raw string.
//
// The loop returns when the stream ends, the context is cancelled, or the
// consumer is no longer draining and the context is cancelled while a send
// is blocked. The caller retains ownership of body and must close it to
// unblock a read in progress.
func ReadEventStream(ctx context.Context, body io.Reader, events chan<- types.StreamEvent) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var name string
	var data []string

	flush := func() bool {
		if len(data) == 0 {
			name = ""
			return true
		}

		event := types.StreamEvent{Name: name, Raw: strings.Join(data, "\n")}
		if json.Valid([]byte(event.Raw)) {
			event.Data = json.RawMessage(event.Raw)
		}
		name = ""
		data = data[:0]

		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if !flush() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		default:
			// Comment lines (":keepalive") and unknown fields are ignored.
		}
	}

	// Deliver a final block that was not blank-line terminated.
	flush()

	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}
