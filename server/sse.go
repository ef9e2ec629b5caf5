package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SSEEvent is one Server-Sent Event frame.
type SSEEvent struct {
	ID    string
	Event string
	Data  string
	Retry int
}

// SSEWriter writes Server-Sent Event frames to an HTTP response, flushing
// after every frame so a client sees each event as it is written instead of
// buffered until the handler returns.
type SSEWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewSSEWriter sets the event-stream headers and returns a writer for them.
// It fails if w's underlying ResponseWriter doesn't support flushing, since
// an unflushed stream is indistinguishable from a hung connection.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("server: response writer does not support flushing, cannot stream")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &SSEWriter{w: w, f: f}, nil
}

// WriteEvent writes one frame, splitting multi-line data across repeated
// "data:" fields per the SSE wire format.
func (s *SSEWriter) WriteEvent(evt SSEEvent) error {
	var b strings.Builder
	if evt.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", evt.ID)
	}
	if evt.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", evt.Event)
	}
	if evt.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", evt.Retry)
	}
	for _, line := range strings.Split(evt.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// WriteHeartbeat writes a comment-only frame, ignored by clients but enough
// to keep intermediaries from timing out an idle connection.
func (s *SSEWriter) WriteHeartbeat() error {
	if _, err := io.WriteString(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
