package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseCapabilityFile decodes a capability file document. Fields not named
// in CapabilityFile are silently ignored by yaml.v3's default decoding,
// giving capability files forward compatibility with newer, richer schemas
// without this proxy needing to know about them.
func ParseCapabilityFile(data []byte) (*CapabilityFile, error) {
	var file CapabilityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing capability file: %w", err)
	}
	if file.Metadata.Name == "" {
		return nil, fmt.Errorf("capability file missing metadata.name")
	}
	for i := range file.Tools {
		if file.Tools[i].InputSchema == nil {
			file.Tools[i].InputSchema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
	}
	return &file, nil
}
