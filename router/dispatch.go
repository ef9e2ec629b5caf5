package router

import (
	"context"

	magictunnel "github.com/paularlott/magictunnel"
)

// Dispatcher executes one routing variant (subprocess, http, graphql, grpc,
// sse, websocket, external_mcp) against an already-substituted routing
// config and returns a uniform tool result.
type Dispatcher interface {
	Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error)

	// Idempotent reports whether this variant is safe to retry automatically
	// on a transport-level failure. Non-idempotent variants (anything that
	// could have side effects on a partial failure) are never retried.
	Idempotent(routing map[string]interface{}) bool
}

// routingType reads the "type" discriminator out of a tool's routing
// config. An empty string means the config didn't name one.
func routingType(routing map[string]interface{}) string {
	t, _ := routing["type"].(string)
	return t
}

func routingString(routing map[string]interface{}, key string) string {
	v, _ := routing[key].(string)
	return v
}

func routingStringSlice(routing map[string]interface{}, key string) []string {
	raw, ok := routing[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func routingStringMap(routing map[string]interface{}, key string) map[string]string {
	raw, ok := routing[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func routingBool(routing map[string]interface{}, key string) bool {
	v, _ := routing[key].(bool)
	return v
}

// substituteAll runs Substitute over a template string pulled from routing
// at key, treating a missing key as an empty template (most dispatchers
// then fail their own validation rather than silently no-op).
func substituteAll(routing map[string]interface{}, key string, params map[string]interface{}, allowEnv bool) (string, error) {
	return Substitute(routingString(routing, key), params, allowEnv)
}

func textResult(text string) *magictunnel.ToolResult {
	return &magictunnel.ToolResult{Content: []magictunnel.ToolContent{{Type: "text", Text: text}}}
}

func errorResult(text string) *magictunnel.ToolResult {
	return &magictunnel.ToolResult{IsError: true, Content: []magictunnel.ToolContent{{Type: "text", Text: text}}}
}
