package internal

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

func collectEvents(t *testing.T, input string) []types.StreamEvent {
	t.Helper()

	events := make(chan types.StreamEvent, 32)
	err := ReadEventStream(context.Background(), strings.NewReader(input), events)
	if err != nil {
		t.Fatalf("ReadEventStream returned error: %v", err)
	}
	close(events)

	var out []types.StreamEvent
	for event := range events {
		out = append(out, event)
	}
	return out
}

func TestReadEventStream_ParsesBlocks(t *testing.T) {
	input := "data: {\"id\":\"n1\"}\n\n" +
		"event: ping\ndata: {}\n\n" +
		"data: plain text payload\n\n"

	events := collectEvents(t, input)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	if events[0].Data == nil {
		t.Error("JSON payload should be delivered decoded")
	}
	if events[0].Raw != `{"id":"n1"}` {
		t.Errorf("raw payload = %q", events[0].Raw)
	}

	if events[1].Name != "ping" {
		t.Errorf("event name = %q, want ping", events[1].Name)
	}

	if events[2].Data != nil {
		t.Error("non-JSON payload must not be decoded")
	}
	if events[2].Raw != "plain text payload" {
		t.Errorf("raw payload = %q", events[2].Raw)
	}
}

func TestReadEventStream_MultiLineData(t *testing.T) {
	events := collectEvents(t, "data: line one\ndata: line two\n\n")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Raw != "line one\nline two" {
		t.Errorf("joined payload = %q", events[0].Raw)
	}
}

func TestReadEventStream_IgnoresCommentsAndUnknownFields(t *testing.T) {
	events := collectEvents(t, ":keepalive\nid: 7\ndata: x\n\n")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Raw != "x" {
		t.Errorf("payload = %q", events[0].Raw)
	}
}

func TestReadEventStream_FlushesUnterminatedFinalBlock(t *testing.T) {
	events := collectEvents(t, "data: tail")
	if len(events) != 1 || events[0].Raw != "tail" {
		t.Fatalf("expected the trailing block to be delivered, got %+v", events)
	}
}

func TestReadEventStream_CancellationStopsLoop(t *testing.T) {
	// An endless body: the loop must exit once the context is cancelled
	// even though the consumer stopped draining.
	pr, pw := io.Pipe()
	defer pw.Close()

	go func() {
		for {
			if _, err := pw.Write([]byte("data: {\"n\":1}\n\n")); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan types.StreamEvent) // unbuffered, never drained

	done := make(chan error, 1)
	go func() {
		done <- ReadEventStream(ctx, pr, events)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	pr.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected a cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after cancellation")
	}
}
