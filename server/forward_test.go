package server

import (
	"context"
	"testing"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestForwardToClient_NoSessionOnContextRejects(t *testing.T) {
	s, _ := newTestServer(t, true)
	resp, err := s.forwardToClient(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "1", Method: magictunnel.MethodSamplingCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error response when ctx carries no session")
	}
}

func TestForwardToClient_NoOpenDuplexStreamRejects(t *testing.T) {
	s, _ := newTestServer(t, true)
	ctx := withSessionID(context.Background(), "sess-1")
	resp, err := s.forwardToClient(ctx, &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "1", Method: magictunnel.MethodSamplingCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error response when the session has no open push channel")
	}
}

func TestForwardToClient_DeliversThroughOpenPushChannel(t *testing.T) {
	s, _ := newTestServer(t, true)
	pc := s.registerPushChannel("sess-1")
	defer s.dropPushChannel("sess-1", pc)

	ctx := withSessionID(context.Background(), "sess-1")

	resultCh := make(chan *magictunnel.MCPResponse, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := s.forwardToClient(ctx, &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "orig-id", Method: magictunnel.MethodSamplingCreate})
		resultCh <- resp
		errCh <- err
	}()

	var pushed *magictunnel.MCPRequest
	select {
	case pushed = <-pc.events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the request to be pushed to the client")
	}
	if pushed.Method != magictunnel.MethodSamplingCreate {
		t.Fatalf("expected the forwarded method to survive, got %q", pushed.Method)
	}

	if !pc.deliver(&magictunnel.MCPResponse{JSONRPC: "2.0", ID: pushed.ID, Result: map[string]interface{}{"content": "ok"}}) {
		t.Fatal("expected deliver to find the waiter registered by forwardToClient")
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwardToClient to return")
	}
	resp := <-resultCh
	if resp.Error != nil {
		t.Fatalf("expected a successful response, got error %+v", resp.Error)
	}
	if resp.ID != "orig-id" {
		t.Fatalf("expected the original request ID restored on the response, got %v", resp.ID)
	}
}
