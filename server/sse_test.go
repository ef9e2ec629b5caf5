package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSSEWriter_SetsEventStreamHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	sw, err := NewSSEWriter(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sw == nil {
		t.Fatal("expected non-nil SSEWriter")
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := w.Header().Get("Connection"); got != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", got)
	}
}

type noFlushWriter struct{}

func (w *noFlushWriter) Header() http.Header         { return http.Header{} }
func (w *noFlushWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *noFlushWriter) WriteHeader(statusCode int)  {}

func TestNewSSEWriter_ErrorsWithoutFlusher(t *testing.T) {
	if _, err := NewSSEWriter(&noFlushWriter{}); err == nil {
		t.Fatal("expected error for a response writer without Flush")
	}
}

func TestSSEWriter_WriteEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    SSEEvent
		expected string
	}{
		{name: "data only", event: SSEEvent{Data: "hello"}, expected: "data: hello\n\n"},
		{name: "event and data", event: SSEEvent{Event: "message", Data: "hello"}, expected: "event: message\ndata: hello\n\n"},
		{name: "multi-line data", event: SSEEvent{Data: "line1\nline2"}, expected: "data: line1\ndata: line2\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			sw, err := NewSSEWriter(w)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := sw.WriteEvent(tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body := w.Body.String(); !strings.Contains(body, tt.expected) {
				t.Errorf("body does not contain expected event.\ngot:\n%s\nwant substring:\n%s", body, tt.expected)
			}
		})
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := httptest.NewRecorder()
	sw, err := NewSSEWriter(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.WriteHeartbeat(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body := w.Body.String(); !strings.Contains(body, ": heartbeat\n\n") {
		t.Errorf("body does not contain heartbeat, got:\n%s", body)
	}
}
