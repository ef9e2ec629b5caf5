package external

import (
	"fmt"
	"sync"
	"sync/atomic"

	magictunnel "github.com/paularlott/magictunnel"
)

// correlator matches outbound requests to their eventual response on a
// duplex transport (stdio, websocket, streamable-http) where reads happen on
// a background goroutine independent of the call that sent the request.
type correlator struct {
	counter uint64
	mu      sync.Mutex
	waiters map[string]chan *magictunnel.MCPResponse
}

func newCorrelator() *correlator {
	return &correlator{waiters: make(map[string]chan *magictunnel.MCPResponse)}
}

// nextID returns a request ID guaranteed unique within this correlator.
func (c *correlator) nextID() string {
	n := atomic.AddUint64(&c.counter, 1)
	return fmt.Sprintf("req-%d", n)
}

// register opens a waiter for id before the request is sent, so a response
// that races ahead of the registration can never be dropped.
func (c *correlator) register(id string) chan *magictunnel.MCPResponse {
	ch := make(chan *magictunnel.MCPResponse, 1)
	c.mu.Lock()
	c.waiters[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *correlator) cancel(id string) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

// deliver routes an inbound response to its waiter, if one is still
// registered. Responses for unknown or already-cancelled IDs are dropped.
func (c *correlator) deliver(resp *magictunnel.MCPResponse) {
	id := fmt.Sprintf("%v", resp.ID)
	c.mu.Lock()
	ch, ok := c.waiters[id]
	if ok {
		delete(c.waiters, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// abortAll delivers a nil response to every outstanding waiter, waking any
// Call that is blocked on a transport that just died.
func (c *correlator) abortAll() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = make(map[string]chan *magictunnel.MCPResponse)
	c.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}
