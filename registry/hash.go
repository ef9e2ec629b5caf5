package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// contentHash computes a stable hash over the fields an external authority
// owns (name, description, schemas, routing) — explicitly excluding the
// user-owned Hidden/Enabled flags. Two rediscoveries of the same tool that
// only differ in those flags must hash identically so installExternal can
// tell "nothing external changed" from "the schema changed upstream".
func contentHash(t ToolDefinition) string {
	canon := struct {
		Name         string                 `json:"name"`
		Description  string                 `json:"description"`
		InputSchema  map[string]interface{} `json:"input_schema"`
		OutputSchema map[string]interface{} `json:"output_schema,omitempty"`
		Routing      map[string]interface{} `json:"routing,omitempty"`
	}{
		Name:         t.Name,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
		Routing:      t.Routing,
	}

	// json.Marshal sorts map keys for map[string]interface{} values, giving
	// a deterministic encoding regardless of schema key insertion order.
	data, err := json.Marshal(canon)
	if err != nil {
		// Marshalling a plain struct of maps/strings cannot fail in practice;
		// fall back to hashing name, description and the sorted input-schema
		// key list so hashing never panics.
		keys := make([]string, 0, len(t.InputSchema))
		for k := range t.InputSchema {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		data = []byte(t.Name + t.Description)
		for _, k := range keys {
			data = append(data, k...)
		}
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
