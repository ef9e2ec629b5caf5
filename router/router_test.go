package router

import (
	"context"
	"testing"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/registry"
)

type fakeExternalCaller struct {
	calledWith string
	result     *magictunnel.ToolResult
	err        error
}

func (f *fakeExternalCaller) CallTool(ctx context.Context, namespacedName string, args map[string]interface{}) (*magictunnel.ToolResult, error) {
	f.calledWith = namespacedName
	return f.result, f.err
}

func TestRouter_Route_UnknownRoutingType(t *testing.T) {
	r := New(Options{})
	tool := registry.ToolDefinition{Name: "widget", Routing: map[string]interface{}{"type": "carrier_pigeon"}}
	_, err := r.Route(context.Background(), tool, nil)
	if err == nil {
		t.Fatal("expected error for unknown routing type")
	}
}

func TestRouter_Route_MissingRoutingType(t *testing.T) {
	r := New(Options{})
	tool := registry.ToolDefinition{Name: "widget", Routing: map[string]interface{}{}}
	_, err := r.Route(context.Background(), tool, nil)
	rErr, ok := err.(*magictunnel.RoutingError)
	if !ok || rErr.Kind != magictunnel.RoutingTransportUnavailable {
		t.Fatalf("expected RoutingTransportUnavailable, got %v", err)
	}
}

func TestRouter_Route_ExternalMCP(t *testing.T) {
	caller := &fakeExternalCaller{result: textResult("done")}
	r := New(Options{ExternalCaller: caller})
	tool := registry.ToolDefinition{
		Name: "forward",
		Routing: map[string]interface{}{
			"type": "external_mcp",
			"tool": "weather__get_forecast",
		},
	}
	result, err := r.Route(context.Background(), tool, map[string]interface{}{"city": "nowhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.calledWith != "weather__get_forecast" {
		t.Fatalf("expected external call to use namespaced tool name, got %q", caller.calledWith)
	}
	if result.Content[0].Text != "done" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRouter_Route_Subprocess(t *testing.T) {
	r := New(Options{})
	tool := registry.ToolDefinition{
		Name: "echoer",
		Routing: map[string]interface{}{
			"type":       "subprocess",
			"command":    "echo",
			"args":       []interface{}{"{msg}"},
			"idempotent": true,
		},
	}
	result, err := r.Route(context.Background(), tool, map[string]interface{}{"msg": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content[0].Text != "hi\n" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
