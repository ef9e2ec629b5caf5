package server

import (
	"context"
	"fmt"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/discovery"
)

// smartDiscoveryTool describes the single virtual tool this proxy exposes in
// place of its full, possibly very large, tool population: a free-text
// request resolved against the registry by the Smart Discovery Engine.
func smartDiscoveryTool() magictunnel.MCPTool {
	return magictunnel.MCPTool{
		Name:        magictunnel.SmartToolDiscoveryName,
		Description: "Find and invoke the best-matching tool for a free-text request.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"request": map[string]interface{}{
					"type":        "string",
					"description": "Free-text description of what you want to do.",
				},
				"confidence_threshold": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "Minimum confidence required to auto-invoke the matched tool.",
				},
				"preferred_mode": map[string]interface{}{
					"type": "string",
					"enum": []string{"hybrid", "rule_based", "semantic", "llm_based"},
				},
				"context": map[string]interface{}{
					"type":        "object",
					"description": "Extra key/value context fed to parameter extraction.",
				},
			},
			"required": []string{"request"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"tool_name":     map[string]interface{}{"type": "string"},
				"confidence":    map[string]interface{}{"type": "number"},
				"method_scores": map[string]interface{}{"type": "object"},
				"parameters":    map[string]interface{}{"type": "object"},
				"reasoning":     map[string]interface{}{"type": "array"},
				"result":        map[string]interface{}{"description": "the forwarded tool's normalised result"},
				"error":         map[string]interface{}{"type": "object"},
			},
		},
		Visibility: magictunnel.ToolVisibilityNative,
	}
}

type smartDiscoveryArgs struct {
	Request             string                 `json:"request"`
	ConfidenceThreshold float64                `json:"confidence_threshold"`
	PreferredMode       string                 `json:"preferred_mode"`
	Context             map[string]interface{} `json:"context"`
}

// callSmartDiscovery runs the full discover-then-invoke path: resolve a tool
// name and parameters from free text, then forward the call through the
// same CallTool path a direct tools/call would take. Every failure mode
// returns is_error=true with an emoji-tagged, category-prefixed message per
// the error propagation policy — this tool never returns a bare JSON-RPC
// error for a discovery miss, only for malformed input.
func (s *Server) callSmartDiscovery(ctx context.Context, raw map[string]interface{}) (*magictunnel.ToolResult, error) {
	if s.discovery == nil {
		return errorToolResult("⚙️ discovery unavailable: no discovery engine configured"), nil
	}

	args := decodeSmartDiscoveryArgs(raw)
	if args.Request == "" {
		return nil, magictunnel.NewToolErrorInvalidParams("request is required")
	}

	result, err := s.discovery.Discover(ctx, discovery.Request{
		Text:                args.Request,
		Mode:                discovery.Mode(args.PreferredMode),
		ConfidenceThreshold: args.ConfidenceThreshold,
		Context:             args.Context,
	})
	if err != nil {
		if magictunnel.IsCancelled(err) {
			return nil, err
		}
		return discoveryErrorResult(err), nil
	}

	invoked, invokeErr := s.CallTool(ctx, result.ToolName, result.Parameters)
	structured := map[string]interface{}{
		"tool_name":     result.ToolName,
		"confidence":    result.Confidence,
		"method_scores": result.Scores,
		"parameters":    result.Parameters,
		"reasoning":     result.Reasoning,
	}
	if invokeErr != nil {
		structured["error"] = map[string]interface{}{
			"category": "routing",
			"message":  invokeErr.Error(),
		}
		return &magictunnel.ToolResult{
			Content:           []magictunnel.ToolContent{{Type: "text", Text: fmt.Sprintf("🔌 %s matched (%.0f%% confidence) but invocation failed: %v", result.ToolName, result.Confidence*100, invokeErr)}},
			StructuredContent: structured,
			IsError:           true,
		}, nil
	}

	structured["result"] = invoked
	return &magictunnel.ToolResult{
		Content:           invoked.Content,
		StructuredContent: structured,
		IsError:           invoked.IsError,
	}, nil
}

func decodeSmartDiscoveryArgs(raw map[string]interface{}) smartDiscoveryArgs {
	var args smartDiscoveryArgs
	if v, ok := raw["request"].(string); ok {
		args.Request = v
	}
	if v, ok := raw["confidence_threshold"].(float64); ok {
		args.ConfidenceThreshold = v
	}
	if v, ok := raw["preferred_mode"].(string); ok {
		args.PreferredMode = v
	}
	if v, ok := raw["context"].(map[string]interface{}); ok {
		args.Context = v
	}
	return args
}

func errorToolResult(text string) *magictunnel.ToolResult {
	return &magictunnel.ToolResult{
		Content: []magictunnel.ToolContent{{Type: "text", Text: text}},
		IsError: true,
	}
}

// discoveryErrorResult renders a DiscoveryError into the emoji-tagged,
// category-prefixed human-readable text the error propagation policy
// requires, carrying the structured detail alongside for programmatic callers.
func discoveryErrorResult(err error) *magictunnel.ToolResult {
	discErr, ok := err.(*magictunnel.DiscoveryError)
	if !ok {
		return errorToolResult(fmt.Sprintf("❌ discovery failed: %v", err))
	}

	var text string
	switch discErr.Kind {
	case magictunnel.DiscoveryNotFound:
		text = fmt.Sprintf("🔍 no tool found for %q", discErr.Request)
		if len(discErr.Suggestions) > 0 {
			text += fmt.Sprintf(" — did you mean: %v?", discErr.Suggestions)
		}
	case magictunnel.DiscoveryMissingParameters:
		text = fmt.Sprintf("📝 missing required parameters %v for %q", discErr.MissingNames, discErr.Request)
	case magictunnel.DiscoveryAmbiguous:
		text = fmt.Sprintf("🤔 ambiguous request %q, candidates: %v", discErr.Request, discErr.AmbiguousNames)
	case magictunnel.DiscoveryLlmUnavailable:
		text = "🧠 semantic/llm discovery layer unavailable, try a more specific request"
	default:
		text = fmt.Sprintf("❌ discovery failed: %v", err)
	}

	return &magictunnel.ToolResult{
		Content: []magictunnel.ToolContent{{Type: "text", Text: text}},
		StructuredContent: map[string]interface{}{
			"error": map[string]interface{}{
				"category":        string(discErr.Kind),
				"message":         text,
				"suggestions":     discErr.Suggestions,
				"missing_names":   discErr.MissingNames,
				"param_examples":  discErr.ParamExamples,
				"ambiguous_names": discErr.AmbiguousNames,
			},
		},
		IsError: true,
	}
}
