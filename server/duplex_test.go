package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestServeHTTP_GetWithoutEventStreamAcceptIsRejected(t *testing.T) {
	s, _ := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("MCP-Session-Id", "sess-1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 without an event-stream Accept header, got %d", rec.Code)
	}
}

func TestServeHTTP_GetWithEventStreamAcceptOpensDuplexStream(t *testing.T) {
	s, _ := newTestServer(t, true)

	createRec := postJSONRPC(t, s, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]interface{}{"protocolVersion": "2025-03-26"},
	}, nil)
	sessionID := createRec.Header().Get("MCP-Session-Id")
	if sessionID == "" {
		t.Fatal("expected a session id from initialize")
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil).WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("MCP-Session-Id", sessionID)
	rec := httptest.NewRecorder()

	streamDone := make(chan struct{})
	go func() {
		s.ServeHTTP(rec, req)
		close(streamDone)
	}()

	deadline := time.After(time.Second)
	for {
		if _, ok := s.pushChannelFor(sessionID); ok {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for the duplex stream to register its push channel")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-streamDone:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the duplex stream handler to return after cancellation")
	}

	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("expected text/event-stream content type, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestPushChannel_SendDeliverRoundTrip(t *testing.T) {
	pc := newPushChannel()

	done := make(chan *magictunnel.MCPResponse, 1)
	go func() {
		resp, err := pc.send(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", Method: magictunnel.MethodSamplingCreate}, time.Second)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		done <- resp
	}()

	var sent *magictunnel.MCPRequest
	select {
	case sent = <-pc.events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the queued request")
	}

	if !pc.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: sent.ID, Result: "ok"}) {
		t.Fatal("expected deliver to match the waiter registered by send")
	}

	select {
	case resp := <-done:
		if resp.Result != "ok" {
			t.Fatalf("expected result ok, got %v", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send to return")
	}
}

func TestPushChannel_DeliverUnknownIDIsDropped(t *testing.T) {
	pc := newPushChannel()
	if pc.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: "nobody-waiting"}) {
		t.Fatal("expected deliver to report no match for an unregistered ID")
	}
}

func TestPushChannel_SendTimesOutWithoutDelivery(t *testing.T) {
	pc := newPushChannel()
	_, err := pc.send(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", Method: magictunnel.MethodSamplingCreate}, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error when nothing ever delivers a response")
	}
}

func TestPushChannel_CloseAbortsOutstandingSend(t *testing.T) {
	pc := newPushChannel()
	errCh := make(chan error, 1)
	go func() {
		_, err := pc.send(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", Method: magictunnel.MethodSamplingCreate}, time.Second)
		errCh <- err
	}()

	select {
	case <-pc.events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the queued request")
	}

	pc.close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error after close aborts the outstanding send")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send to return after close")
	}
}

func TestServer_RegisterAndDropPushChannel(t *testing.T) {
	s, _ := newTestServer(t, true)
	pc := s.registerPushChannel("sess-1")

	got, ok := s.pushChannelFor("sess-1")
	if !ok || got != pc {
		t.Fatal("expected pushChannelFor to return the just-registered channel")
	}

	s.dropPushChannel("sess-1", pc)
	if _, ok := s.pushChannelFor("sess-1"); ok {
		t.Fatal("expected pushChannelFor to find nothing after drop")
	}
}
