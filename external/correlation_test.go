package external

import (
	"testing"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestCorrelator_RegisterDeliver(t *testing.T) {
	c := newCorrelator()
	id := c.nextID()
	ch := c.register(id)

	c.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: id, Result: "ok"})

	select {
	case resp := <-ch:
		if resp.Result != "ok" {
			t.Fatalf("expected result ok, got %v", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered response")
	}
}

func TestCorrelator_DeliverUnknownIDIsDropped(t *testing.T) {
	c := newCorrelator()
	// Must not panic even though nothing is registered for this ID.
	c.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: "unregistered"})
}

func TestCorrelator_CancelStopsDelivery(t *testing.T) {
	c := newCorrelator()
	id := c.nextID()
	ch := c.register(id)
	c.cancel(id)

	c.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: id})

	select {
	case <-ch:
		t.Fatal("expected no delivery after cancel")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestCorrelator_AbortAllClosesWaiters(t *testing.T) {
	c := newCorrelator()
	id := c.nextID()
	ch := c.register(id)

	c.abortAll()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel with no value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for abortAll to close the channel")
	}
}

func TestCorrelator_NextIDUnique(t *testing.T) {
	c := newCorrelator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := c.nextID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
