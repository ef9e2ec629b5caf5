package discovery

import (
	"context"
	"testing"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(zap.NewNop(), registry.ConflictReject)
	err := reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{
			{
				Name:        "list_files",
				Description: "List files in a directory",
				Keywords:    []string{"filesystem", "list"},
				InputSchema: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
					"required":   []interface{}{"path"},
				},
				Enabled: true,
			},
			{
				Name:        "send_email",
				Description: "Send an email message to a recipient",
				Keywords:    []string{"email", "communication"},
				InputSchema: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"to": map[string]interface{}{"type": "string"}},
					"required":   []interface{}{"to"},
				},
				Enabled: true,
			},
		},
	})
	if err != nil {
		t.Fatalf("InstallFile failed: %v", err)
	}
	return reg
}

func testDiscoveryConfig() config.SmartDiscoveryConfig {
	cfg := config.Default()
	return cfg.SmartDiscovery
}

func TestEngine_Discover_RuleBasedSuccess(t *testing.T) {
	reg := newTestRegistry(t)
	engine := New(zap.NewNop(), reg, nil, nil, testDiscoveryConfig())

	result, err := engine.Discover(context.Background(), Request{
		Text: "list files",
		Mode: ModeRuleBased,
		Context: map[string]interface{}{
			"path": "/tmp",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ToolName != "list_files" {
		t.Fatalf("expected list_files, got %q", result.ToolName)
	}
	if result.State != StateFailed && result.State != StateSucceeded {
		t.Fatalf("unexpected state %v", result.State)
	}
}

func TestEngine_Discover_MissingRequiredParameter(t *testing.T) {
	reg := newTestRegistry(t)
	engine := New(zap.NewNop(), reg, nil, nil, testDiscoveryConfig())

	result, err := engine.Discover(context.Background(), Request{Text: "list files", Mode: ModeRuleBased})
	if err == nil {
		t.Fatal("expected missing-parameters error")
	}
	discErr, ok := err.(*magictunnel.DiscoveryError)
	if !ok {
		t.Fatalf("expected *magictunnel.DiscoveryError, got %T", err)
	}
	if discErr.Kind != magictunnel.DiscoveryMissingParameters {
		t.Fatalf("expected DiscoveryMissingParameters, got %v", discErr.Kind)
	}
	if result.State != StateFailed {
		t.Fatalf("expected StateFailed, got %v", result.State)
	}
}

func TestEngine_Discover_NotFound(t *testing.T) {
	reg := newTestRegistry(t)
	cfg := testDiscoveryConfig()
	cfg.ConfidenceThreshold = 0.99
	engine := New(zap.NewNop(), reg, nil, nil, cfg)

	_, err := engine.Discover(context.Background(), Request{Text: "completely unrelated gibberish", Mode: ModeRuleBased})
	if err == nil {
		t.Fatal("expected not-found error")
	}
	discErr, ok := err.(*magictunnel.DiscoveryError)
	if !ok {
		t.Fatalf("expected *magictunnel.DiscoveryError, got %T", err)
	}
	if discErr.Kind != magictunnel.DiscoveryNotFound {
		t.Fatalf("expected DiscoveryNotFound, got %v", discErr.Kind)
	}
}

func TestEngine_Discover_CachesAcrossCalls(t *testing.T) {
	reg := newTestRegistry(t)
	engine := New(zap.NewNop(), reg, nil, nil, testDiscoveryConfig())

	req := Request{Text: "list files", Mode: ModeRuleBased}
	first, err := engine.Discover(context.Background(), req)
	if err != nil && first.State != StateFailed {
		t.Fatalf("unexpected error on first call: %v", err)
	}

	second, err2 := engine.Discover(context.Background(), req)
	if err2 != nil && second.State != StateFailed {
		t.Fatalf("unexpected error on second call: %v", err2)
	}
	if first.ToolName != second.ToolName {
		t.Fatalf("expected cached result to agree on tool name: %q vs %q", first.ToolName, second.ToolName)
	}
}

func TestEngine_NoteSuccess_FeedsRecentTools(t *testing.T) {
	reg := newTestRegistry(t)
	engine := New(zap.NewNop(), reg, nil, nil, testDiscoveryConfig())

	engine.NoteSuccess("send_email")

	name, ok, _ := runFallbackChain("do whatever we just did", reg.Snapshot().List(), engine.recentTools)
	if !ok || name != "send_email" {
		t.Fatalf("expected recent tool fallback to resolve send_email, got %q ok=%v", name, ok)
	}
}
