package external

import (
	"context"
	"testing"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/registry"
)

func TestSplitNamespace(t *testing.T) {
	server, tool, ok := splitNamespace("weather__get_forecast")
	if !ok || server != "weather" || tool != "get_forecast" {
		t.Fatalf("expected weather/get_forecast, got %q/%q ok=%v", server, tool, ok)
	}
}

func TestSplitNamespace_NoSeparator(t *testing.T) {
	_, _, ok := splitNamespace("get_forecast")
	if ok {
		t.Fatal("expected no match for an un-namespaced tool name")
	}
}

func TestCoerceToolResult_FromToolResponse(t *testing.T) {
	result, err := coerceToolResult(&magictunnel.ToolResponse{
		Content: []magictunnel.ToolContent{{Type: "text", Text: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}
}

func TestCoerceToolResult_FromRawMap(t *testing.T) {
	result, err := coerceToolResult(map[string]interface{}{
		"content": []interface{}{map[string]interface{}{"type": "text", "text": "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}
}

func TestCoerceToolResult_UnexpectedType(t *testing.T) {
	if _, err := coerceToolResult(42); err == nil {
		t.Fatal("expected error for unsupported result type")
	}
}

func TestBuildAuthProvider_EmptyTypeIsNoAuth(t *testing.T) {
	auth, err := buildAuthProvider(config.ExternalAuthConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != nil {
		t.Fatalf("expected no auth provider, got %v", auth)
	}
}

func TestBuildAuthProvider_Bearer(t *testing.T) {
	auth, err := buildAuthProvider(config.ExternalAuthConfig{Type: "bearer", Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	header, err := auth.GetAuthHeader()
	if err != nil {
		t.Fatalf("GetAuthHeader: %v", err)
	}
	if header != "Bearer secret" {
		t.Fatalf("expected 'Bearer secret', got %q", header)
	}
}

func TestBuildAuthProvider_BearerMissingToken(t *testing.T) {
	if _, err := buildAuthProvider(config.ExternalAuthConfig{Type: "bearer"}); err == nil {
		t.Fatal("expected error for bearer auth with no token")
	}
}

func TestBuildAuthProvider_UnknownType(t *testing.T) {
	if _, err := buildAuthProvider(config.ExternalAuthConfig{Type: "nope"}); err == nil {
		t.Fatal("expected error for unknown auth type")
	}
}

func TestHeadersWithAuth_MergesAuthorizationHeader(t *testing.T) {
	auth, _ := buildAuthProvider(config.ExternalAuthConfig{Type: "bearer", Token: "tok"})
	merged := headersWithAuth(map[string]string{"X-Custom": "1"}, auth)
	if merged["Authorization"] != "Bearer tok" {
		t.Fatalf("expected Authorization header to be set, got %+v", merged)
	}
	if merged["X-Custom"] != "1" {
		t.Fatalf("expected existing headers preserved, got %+v", merged)
	}
}

func TestHeadersWithAuth_NilAuthReturnsOriginal(t *testing.T) {
	original := map[string]string{"X-Custom": "1"}
	merged := headersWithAuth(original, nil)
	if len(merged) != 1 || merged["X-Custom"] != "1" {
		t.Fatalf("expected unchanged headers, got %+v", merged)
	}
}

func newTestManager(t *testing.T, proxy magictunnel.ProxyCapabilities, client magictunnel.ClientCapabilities) *Manager {
	t.Helper()
	reg := registry.New(zap.NewNop(), registry.ConflictReject)
	return NewManager(zap.NewNop(), reg, config.ExternalMCPConfig{}, proxy, func(ctx context.Context) magictunnel.ClientCapabilities {
		return client
	})
}

func TestInboundHandlerFor_CapabilityMissingRejectsWithoutForwarding(t *testing.T) {
	m := newTestManager(t, magictunnel.ProxyCapabilities{Sampling: true}, magictunnel.ClientCapabilities{Sampling: false})
	forwardCalled := false
	m.SetForwarder(func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
		forwardCalled = true
		return &magictunnel.MCPResponse{JSONRPC: "2.0", ID: req.ID}, nil
	})

	handler := m.inboundHandlerFor("weather")
	resp, err := handler(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "1", Method: magictunnel.MethodSamplingCreate})
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected a JSON-RPC error response for a capability outside the intersection")
	}
	if forwardCalled {
		t.Fatal("expected forward not to be called when the capability is missing")
	}
}

func TestInboundHandlerFor_ForwardsWithinCapabilityIntersection(t *testing.T) {
	m := newTestManager(t, magictunnel.ProxyCapabilities{Sampling: true}, magictunnel.ClientCapabilities{Sampling: true})
	m.SetForwarder(func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
		return &magictunnel.MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: "delivered"}, nil
	})

	handler := m.inboundHandlerFor("weather")
	resp, err := handler(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "1", Method: magictunnel.MethodSamplingCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("expected a successful forward, got error %+v", resp.Error)
	}
	if resp.Result != "delivered" {
		t.Fatalf("expected the forwarder's result to pass through, got %v", resp.Result)
	}
}

func TestInboundHandlerFor_NoForwarderWiredReturnsInternalError(t *testing.T) {
	m := newTestManager(t, magictunnel.ProxyCapabilities{Sampling: true}, magictunnel.ClientCapabilities{Sampling: true})
	handler := m.inboundHandlerFor("weather")
	resp, err := handler(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", ID: "1", Method: magictunnel.MethodSamplingCreate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error response when no forwarder is wired")
	}
}
