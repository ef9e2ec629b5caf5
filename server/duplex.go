package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
)

// pushChannel is the server-to-client half of bidirectional forwarding for
// one session's Streamable HTTP duplex stream: a GET request left open with
// Accept: text/event-stream. It mirrors external's correlator (register a
// waiter, deliver by ID), but travels proxy -> client instead of
// proxy -> upstream, and the "register" step also has to hand the request to
// a background reader (the open GET) rather than a transport's own Call.
type pushChannel struct {
	counter uint64
	events  chan *magictunnel.MCPRequest

	mu      sync.Mutex
	waiters map[string]chan *magictunnel.MCPResponse
	closed  bool
}

func newPushChannel() *pushChannel {
	return &pushChannel{
		events:  make(chan *magictunnel.MCPRequest, 8),
		waiters: make(map[string]chan *magictunnel.MCPResponse),
	}
}

func (p *pushChannel) nextID() string {
	n := atomic.AddUint64(&p.counter, 1)
	return fmt.Sprintf("push-%d", n)
}

// send assigns req a synthetic ID scoped to this channel, queues it for the
// open stream to write out, and blocks for the client's correlated response
// until it arrives, ctx is cancelled, or timeout elapses.
func (p *pushChannel) send(ctx context.Context, req *magictunnel.MCPRequest, timeout time.Duration) (*magictunnel.MCPResponse, error) {
	id := p.nextID()
	sent := *req
	sent.ID = id

	ch := make(chan *magictunnel.MCPResponse, 1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("push channel closed")
	}
	p.waiters[id] = ch
	p.mu.Unlock()

	select {
	case p.events <- &sent:
	default:
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("push channel saturated, client is not draining its stream")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("push channel closed before a response arrived")
		}
		return resp, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
		return nil, ctx.Err()
	case <-timer.C:
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("timed out waiting for the client's response")
	}
}

// deliver routes a client-sent response to its waiter, reporting whether one
// was still registered for its ID.
func (p *pushChannel) deliver(resp *magictunnel.MCPResponse) bool {
	id := fmt.Sprintf("%v", resp.ID)
	p.mu.Lock()
	ch, ok := p.waiters[id]
	if ok {
		delete(p.waiters, id)
	}
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

// close aborts every outstanding send and stops further delivery, called
// when the duplex stream's GET request ends or the session is torn down.
func (p *pushChannel) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = make(map[string]chan *magictunnel.MCPResponse)
	p.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
	close(p.events)
}

// registerPushChannel opens (replacing any existing one) the duplex push
// channel for sessionID.
func (s *Server) registerPushChannel(sessionID string) *pushChannel {
	pc := newPushChannel()
	s.mu.Lock()
	old := s.pushChannels[sessionID]
	s.pushChannels[sessionID] = pc
	s.mu.Unlock()
	if old != nil {
		old.close()
	}
	return pc
}

// dropPushChannel removes pc if it is still the registered channel for
// sessionID (it may already have been replaced by a newer GET) and closes it.
func (s *Server) dropPushChannel(sessionID string, pc *pushChannel) {
	s.mu.Lock()
	if s.pushChannels[sessionID] == pc {
		delete(s.pushChannels, sessionID)
	}
	s.mu.Unlock()
	pc.close()
}

func (s *Server) pushChannelFor(sessionID string) (*pushChannel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.pushChannels[sessionID]
	return pc, ok
}

// handleDuplexStream opens the Streamable HTTP GET side of the transport the
// external interface calls "preferred" for duplex traffic: one long-lived
// response carrying server-initiated sampling/elicitation requests as SSE
// frames, paired with the client posting its correlated responses back
// through the ordinary POST endpoint. Without this open, forwardToClient has
// nowhere to push a request even when the capability intersection allows it.
func (s *Server) handleDuplexStream(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "method not allowed - session management not enabled", http.StatusMethodNotAllowed)
		return
	}
	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		w.Header().Set("Allow", "POST, DELETE, OPTIONS")
		http.Error(w, "method not allowed - GET requires Accept: text/event-stream to open the duplex push channel", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get("MCP-Session-Id")
	if sessionID == "" {
		http.Error(w, "MCP-Session-Id header required", http.StatusBadRequest)
		return
	}
	valid, err := s.sessions.ValidateSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("session validation error: %v", err), http.StatusInternalServerError)
		return
	}
	if !valid {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pc := s.registerPushChannel(sessionID)
	defer s.dropPushChannel(sessionID, pc)

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.WriteHeartbeat(); err != nil {
				return
			}
		case req, ok := <-pc.events:
			if !ok {
				return
			}
			payload, err := json.Marshal(req)
			if err != nil {
				s.logger.Warn("duplex: failed to marshal forwarded request", zap.Error(err))
				continue
			}
			if err := sse.WriteEvent(SSEEvent{Event: "request", Data: string(payload)}); err != nil {
				return
			}
		}
	}
}

// handlePushResponse routes a POST body shaped like an MCPResponse (no
// "method" field) to the session's open push channel instead of dispatching
// it as a new JSON-RPC request: this is the client answering a request the
// server forwarded to it over the duplex stream.
func (s *Server) handlePushResponse(w http.ResponseWriter, r *http.Request, body []byte) {
	var resp magictunnel.MCPResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		http.Error(w, "invalid JSON-RPC response body", http.StatusBadRequest)
		return
	}
	sessionID := r.Header.Get("MCP-Session-Id")
	pc, ok := s.pushChannelFor(sessionID)
	if !ok || !pc.deliver(&resp) {
		http.Error(w, "no forwarded request matches this response", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
