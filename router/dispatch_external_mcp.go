package router

import (
	"context"

	magictunnel "github.com/paularlott/magictunnel"
)

// externalCaller is the slice of external.Manager that routing needs. Kept
// as a narrow interface here so router never imports external directly and
// the two packages stay wireable in either composition order.
type externalCaller interface {
	CallTool(ctx context.Context, namespacedName string, args map[string]interface{}) (*magictunnel.ToolResult, error)
}

// externalMCPDispatcher forwards a tool call to an already-supervised
// external MCP server by its namespaced tool name (serverID__toolName).
type externalMCPDispatcher struct {
	manager externalCaller
}

func (d *externalMCPDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *externalMCPDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	toolName := routingString(routing, "tool")
	if toolName == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "external_mcp"}
	}
	if d.manager == nil {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: toolName}
	}
	return d.manager.CallTool(ctx, toolName, params)
}
