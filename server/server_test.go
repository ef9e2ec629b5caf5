package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/external"
	"github.com/paularlott/magictunnel/registry"
)

func newTestServer(t *testing.T, withSessions bool) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(zap.NewNop(), registry.ConflictReject)
	cfg := config.Default()
	cfg.Server.Name = "magictunnel-test"
	cfg.Server.Version = "0.0.0-test"

	deps := Deps{Config: cfg, Logger: zap.NewNop(), Registry: reg}
	if withSessions {
		sm, err := magictunnel.NewJWTSessionManagerWithAutoKey(30 * time.Minute)
		if err != nil {
			t.Fatalf("NewJWTSessionManagerWithAutoKey: %v", err)
		}
		deps.Sessions = sm
	}
	return New(deps), reg
}

func postJSONRPC(t *testing.T, s *Server, body map[string]interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleInitialize_CreatesSessionAndSetsHeader(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := postJSONRPC(t, s, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  map[string]interface{}{"protocolVersion": "2025-03-26"},
	}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("MCP-Session-Id") == "" {
		t.Fatal("expected MCP-Session-Id header to be set")
	}

	var resp magictunnel.MCPResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
}

func TestServeHTTP_ToolsCallWithoutSessionHeaderRejected(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := postJSONRPC(t, s, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": "whatever"},
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing session header, got %d", rec.Code)
	}
}

func TestListTools_HidesDiscoverableByDefault(t *testing.T) {
	s, reg := newTestServer(t, false)
	reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{
			{Name: "visible_tool", Description: "shown", Enabled: true, Hidden: false},
			{Name: "hidden_tool", Description: "not shown", Enabled: true, Hidden: true},
		},
	})

	tools := s.listTools(context.Background())
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
	}

	foundVisible, foundHidden := false, false
	for _, n := range names {
		if n == "visible_tool" {
			foundVisible = true
		}
		if n == "hidden_tool" {
			foundHidden = true
		}
	}
	if !foundVisible {
		t.Fatalf("expected visible_tool in listing, got %v", names)
	}
	if foundHidden {
		t.Fatalf("expected hidden_tool excluded from default listing, got %v", names)
	}
}

func TestListTools_ShowAllIncludesHidden(t *testing.T) {
	s, reg := newTestServer(t, false)
	reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{
			{Name: "hidden_tool", Description: "not shown", Enabled: true, Hidden: true},
		},
	})

	ctx := magictunnel.WithShowAllTools(context.Background())
	tools := s.listTools(ctx)
	found := false
	for _, tool := range tools {
		if tool.Name == "hidden_tool" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected hidden_tool to appear in show-all listing")
	}
}

func TestCallTool_UnknownToolReturnsErrUnknownTool(t *testing.T) {
	s, _ := newTestServer(t, false)
	_, err := s.CallTool(context.Background(), "does_not_exist", nil)
	if err != magictunnel.ErrUnknownTool {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestCallTool_DisabledToolIsFiltered(t *testing.T) {
	s, reg := newTestServer(t, false)
	reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{
			{Name: "off_tool", Description: "disabled", Enabled: false},
		},
	})
	_, err := s.CallTool(context.Background(), "off_tool", nil)
	if err != magictunnel.ErrToolFiltered {
		t.Fatalf("expected ErrToolFiltered, got %v", err)
	}
}

func TestCallSmartDiscovery_NoEngineConfiguredReturnsErrorResult(t *testing.T) {
	s, _ := newTestServer(t, false)
	result, err := s.callSmartDiscovery(context.Background(), map[string]interface{}{"request": "do a thing"})
	if err != nil {
		t.Fatalf("expected a structured error result, not a protocol error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true when discovery engine is unavailable")
	}
}

func TestServeHTTP_PostResponseBodyRoutesToPushChannel(t *testing.T) {
	s, _ := newTestServer(t, true)
	pc := s.registerPushChannel("sess-1")
	defer s.dropPushChannel("sess-1", pc)

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		pc.send(context.Background(), &magictunnel.MCPRequest{JSONRPC: "2.0", Method: magictunnel.MethodSamplingCreate}, time.Second)
	}()

	var pushed *magictunnel.MCPRequest
	select {
	case pushed = <-pc.events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the queued request")
	}

	rec := postJSONRPC(t, s, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      pushed.ID,
		"result":  map[string]interface{}{"content": "ok"},
	}, map[string]string{"MCP-Session-Id": "sess-1"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for a delivered push response, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case <-sendDone:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the in-flight send to be satisfied")
	}
}

func TestServeHTTP_PostResponseBodyWithNoMatchingPushReturns404(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := postJSONRPC(t, s, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      "req-unknown",
		"result":  map[string]interface{}{},
	}, map[string]string{"MCP-Session-Id": "sess-nonexistent"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no push channel matches, got %d", rec.Code)
	}
}

func TestCancelGroup_CancelAllAbortsTracked(t *testing.T) {
	g := newCancelGroup()
	_, cancel := context.WithCancel(context.Background())
	cancelled := false
	g.track("req-1", func() { cancelled = true; cancel() })
	g.cancelAll()
	if !cancelled {
		t.Fatal("expected cancelAll to invoke the tracked cancel func")
	}
}

func TestDiagnosticsProvider_RegistrySummary(t *testing.T) {
	s, reg := newTestServer(t, false)
	reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{{Name: "t1", Description: "d", Enabled: true}},
	})

	provider := &diagnosticsProvider{server: s}
	result, err := provider.ExecuteTool(context.Background(), "registry_summary", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map result, got %T", result)
	}
	if summary["tools"] != 1 {
		t.Fatalf("expected 1 tool counted, got %v", summary["tools"])
	}
}

func TestDiagnosticsProvider_ServerStatus_NoExternalConfiguredIgnoresFilter(t *testing.T) {
	s, _ := newTestServer(t, false)
	provider := &diagnosticsProvider{server: s}
	result, err := provider.ExecuteTool(context.Background(), "server_status", map[string]interface{}{"server": "weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map result, got %T", result)
	}
	servers, ok := summary["servers"].([]external.ServerStatus)
	if !ok || len(servers) != 0 {
		t.Fatalf("expected an empty server list, got %+v", summary["servers"])
	}
}

func TestDiagnosticsProvider_UnknownToolReturnsErrUnknownTool(t *testing.T) {
	s, _ := newTestServer(t, false)
	provider := &diagnosticsProvider{server: s}
	_, err := provider.ExecuteTool(context.Background(), "does_not_exist", nil)
	if err != magictunnel.ErrUnknownTool {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestDiagnosticsProvider_ListedAsNativeTools(t *testing.T) {
	s, _ := newTestServer(t, false)
	provider := &diagnosticsProvider{server: s}
	tools, err := provider.GetTools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
		if tool.Visibility != magictunnel.ToolVisibilityNative {
			t.Fatalf("expected %s to be natively visible, got %v", tool.Name, tool.Visibility)
		}
	}
	if !names["server_status"] || !names["registry_summary"] {
		t.Fatalf("expected both diagnostics tools present, got %v", names)
	}
}

func TestCancelGroup_CancelSingleRequest(t *testing.T) {
	g := newCancelGroup()
	var cancelledA, cancelledB bool
	g.track("a", func() { cancelledA = true })
	g.track("b", func() { cancelledB = true })
	g.cancel("a")
	if !cancelledA {
		t.Fatal("expected request a to be cancelled")
	}
	if cancelledB {
		t.Fatal("expected request b to remain untouched")
	}
}
