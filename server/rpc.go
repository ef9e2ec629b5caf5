package server

import (
	"encoding/json"
	"net/http"

	magictunnel "github.com/paularlott/magictunnel"
)

func parseParams(req *magictunnel.MCPRequest, target interface{}) error {
	if req.Params == nil {
		return nil
	}
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func writeResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := magictunnel.MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	resp := magictunnel.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &magictunnel.MCPError{Code: code, Message: message, Data: data},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors still ride on HTTP 200
	json.NewEncoder(w).Encode(resp)
}
