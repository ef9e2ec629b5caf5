package server

import (
	"fmt"
	"net/http"
	"sort"

	magictunnel "github.com/paularlott/magictunnel"
)

func (s *Server) handlePromptsList(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var prompts []map[string]interface{}
	if s.reg != nil {
		for _, p := range s.reg.Snapshot().Prompts {
			prompts = append(prompts, map[string]interface{}{
				"name":        p.Name,
				"description": p.Description,
				"arguments":   p.Arguments,
			})
		}
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i]["name"].(string) < prompts[j]["name"].(string) })
	writeResponse(w, req.ID, map[string]interface{}{"prompts": prompts})
}

type promptsGetParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func (s *Server) handlePromptsGet(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var params promptsGetParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}
	if s.reg == nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, fmt.Sprintf("unknown prompt %q", params.Name), nil)
		return
	}
	for _, p := range s.reg.Snapshot().Prompts {
		if p.Name == params.Name {
			writeResponse(w, req.ID, map[string]interface{}{
				"description": p.Description,
				"messages":    []interface{}{},
			})
			return
		}
	}
	writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, fmt.Sprintf("unknown prompt %q", params.Name), nil)
}

func (s *Server) handleResourcesList(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var resources []map[string]interface{}
	if s.reg != nil {
		for _, res := range s.reg.Snapshot().Resources {
			resources = append(resources, map[string]interface{}{
				"uri":         res.URI,
				"name":        res.Name,
				"description": res.Description,
				"mimeType":    res.MimeType,
			})
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i]["uri"].(string) < resources[j]["uri"].(string) })
	writeResponse(w, req.ID, map[string]interface{}{"resources": resources})
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var params resourcesReadParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}
	if s.reg == nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, fmt.Sprintf("unknown resource %q", params.URI), nil)
		return
	}
	for _, res := range s.reg.Snapshot().Resources {
		if res.URI == params.URI {
			writeResponse(w, req.ID, magictunnel.ResourceResponse{
				Contents: []magictunnel.ResourceContent{{URI: res.URI, MimeType: res.MimeType}},
			})
			return
		}
	}
	writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, fmt.Sprintf("unknown resource %q", params.URI), nil)
}
