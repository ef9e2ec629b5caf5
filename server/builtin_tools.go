package server

import (
	"context"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/external"
	"github.com/paularlott/magictunnel/toolmetadata"
)

// diagnosticsProvider exposes a handful of native, always-listed tools for
// operators to inspect the proxy's own state without going through the
// discovery pipeline: the external-MCP fleet's connection state and the
// registry's current tool/prompt/resource counts.
type diagnosticsProvider struct {
	server *Server
}

var serverStatusTool = toolmetadata.BuildMCPTool("server_status", &toolmetadata.ToolMetadata{
	Description:  "Report the connection state of every supervised external MCP server, or one server named by the optional 'server' argument.",
	Discoverable: false,
})

var registrySummaryTool = toolmetadata.BuildMCPTool("registry_summary", &toolmetadata.ToolMetadata{
	Description:  "Report the current tool, prompt and resource counts held by the capability registry.",
	Discoverable: false,
})

func (p *diagnosticsProvider) GetTools(ctx context.Context) ([]magictunnel.MCPTool, error) {
	return []magictunnel.MCPTool{serverStatusTool.ToMCPTool(), registrySummaryTool.ToMCPTool()}, nil
}

func (p *diagnosticsProvider) ExecuteTool(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	switch name {
	case "server_status":
		if p.server.external == nil {
			return map[string]interface{}{"servers": []external.ServerStatus{}}, nil
		}
		statuses := p.server.external.Statuses()
		if filter := magictunnel.NewToolRequest(params).StringOr("server", ""); filter != "" {
			for _, st := range statuses {
				if st.ID == filter {
					return map[string]interface{}{"servers": []external.ServerStatus{st}}, nil
				}
			}
			return map[string]interface{}{"servers": []external.ServerStatus{}}, nil
		}
		return map[string]interface{}{"servers": statuses}, nil
	case "registry_summary":
		if p.server.reg == nil {
			return map[string]interface{}{"tools": 0, "prompts": 0, "resources": 0}, nil
		}
		snap := p.server.reg.Snapshot()
		return map[string]interface{}{
			"tools":     len(snap.Tools),
			"prompts":   len(snap.Prompts),
			"resources": len(snap.Resources),
			"version":   snap.Version,
		}, nil
	default:
		return nil, magictunnel.ErrUnknownTool
	}
}
