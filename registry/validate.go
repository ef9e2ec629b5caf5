package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks structural rules a capability file's tool entries must
// satisfy: non-empty name/description, and an input_schema that is itself a
// well-formed JSON Schema document. It does not validate tool arguments —
// that happens per-call in the discovery package's parameter extraction.
func Validate(file *CapabilityFile) error {
	seen := make(map[string]bool, len(file.Tools))
	for _, t := range file.Tools {
		if t.Name == "" {
			return fmt.Errorf("tool entry missing name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool name %q within one capability file", t.Name)
		}
		seen[t.Name] = true

		if t.Description == "" {
			return fmt.Errorf("tool %q missing description", t.Name)
		}
		if err := validateSchemaDocument(t.Name, t.InputSchema); err != nil {
			return err
		}
		if t.OutputSchema != nil {
			if err := validateSchemaDocument(t.Name, t.OutputSchema); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateSchemaDocument(toolName string, schema map[string]interface{}) error {
	loader := gojsonschema.NewGoLoader(schema)
	// gojsonschema.NewSchema compiles the document and fails on structurally
	// invalid JSON Schema (bad "type", malformed "properties", etc.) without
	// needing a separate instance to validate against.
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return fmt.Errorf("tool %q has an invalid schema: %w", toolName, err)
	}
	return nil
}
