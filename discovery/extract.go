package discovery

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/xeipuuv/gojsonschema"

	magictunnel "github.com/paularlott/magictunnel"
)

// extractParameters implements the parameter-extraction priority order:
// (1) an LLM-produced parameter map, validated against the tool's schema;
// (2) falls through to a dedicated extraction prompt is the caller's job
// (scoreLlm already asked for parameters alongside the rerank, so there is
// no separate round-trip here);
// (3) missing required parameters are reported for the fallback chain to
// turn into a DiscoveryError.
func extractParameters(schema map[string]interface{}, llmParams map[string]interface{}) (map[string]interface{}, []string, error) {
	coerced, err := coerceParams(schema, llmParams)
	if err != nil {
		return nil, nil, err
	}

	missing := missingRequired(schema, coerced)
	if len(missing) > 0 {
		return coerced, missing, nil
	}

	if err := validateParams(schema, coerced); err != nil {
		return coerced, nil, err
	}

	return coerced, nil, nil
}

// validateParams runs the candidate argument map through the tool's
// input_schema, the same gojsonschema engine used to validate schema
// documents themselves at registration time.
func validateParams(schema map[string]interface{}, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewGoLoader(params)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("discovery: parameter validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("discovery: parameters invalid: %v", msgs)
	}
	return nil
}

// missingRequired returns the required property names absent from params,
// sorted for deterministic reporting.
func missingRequired(schema map[string]interface{}, params map[string]interface{}) []string {
	required, _ := schema["required"].([]interface{})
	if len(required) == 0 {
		return nil
	}
	var missing []string
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := params[name]; !present {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// coerceParams applies the JSON-Schema-permitted string<->number coercions
// and leaves everything else untouched, returning a fresh map so the
// caller's llmParams is never mutated in place.
func coerceParams(schema map[string]interface{}, params map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(params))
	properties, _ := schema["properties"].(map[string]interface{})
	for k, v := range params {
		propSchema, _ := properties[k].(map[string]interface{})
		coerced, err := coerceValue(propSchema, v)
		if err != nil {
			return nil, fmt.Errorf("discovery: parameter %q: %w", k, err)
		}
		out[k] = coerced
	}
	return out, nil
}

func coerceValue(propSchema map[string]interface{}, v interface{}) (interface{}, error) {
	if propSchema == nil {
		return v, nil
	}
	wantType, _ := propSchema["type"].(string)

	switch wantType {
	case "number", "integer":
		switch t := v.(type) {
		case string:
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to %s", t, wantType)
			}
			return f, nil
		case float64, int, int64:
			return t, nil
		}
	case "string":
		switch t := v.(type) {
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		case string:
			return t, nil
		}
	case "boolean":
		if s, ok := v.(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to boolean", s)
			}
			return b, nil
		}
	case "array":
		arr, ok := v.([]interface{})
		if !ok {
			return v, nil
		}
		itemSchema, _ := propSchema["items"].(map[string]interface{})
		out := make([]interface{}, len(arr))
		for i, item := range arr {
			coerced, err := coerceValue(itemSchema, item)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	case "object":
		obj, ok := v.(map[string]interface{})
		if !ok {
			return v, nil
		}
		if additional, set := propSchema["additionalProperties"]; set {
			if allowed, isBool := additional.(bool); isBool && !allowed {
				nestedProps, _ := propSchema["properties"].(map[string]interface{})
				for k := range obj {
					if _, ok := nestedProps[k]; !ok {
						return nil, fmt.Errorf("additional property %q not permitted", k)
					}
				}
			}
		}
		return obj, nil
	}

	return v, nil
}

// paramExamplesFromSchema builds the schema-derived example map used in a
// DiscoveryMissingParameters error: one short example value per missing
// required property, derived from its declared type.
func paramExamplesFromSchema(schema map[string]interface{}, missing []string) map[string]string {
	properties, _ := schema["properties"].(map[string]interface{})
	examples := make(map[string]string, len(missing))
	for _, name := range missing {
		propSchema, _ := properties[name].(map[string]interface{})
		examples[name] = exampleForType(propSchema)
	}
	return examples
}

func exampleForType(propSchema map[string]interface{}) string {
	if propSchema == nil {
		return "<value>"
	}
	if ex, ok := propSchema["example"]; ok {
		return fmt.Sprintf("%v", ex)
	}
	switch propSchema["type"] {
	case "string":
		return "\"example\""
	case "number", "integer":
		return "42"
	case "boolean":
		return "true"
	case "array":
		return "[]"
	case "object":
		return "{}"
	default:
		return "<value>"
	}
}

// asDiscoveryMissingParametersError is a small adapter so engine.go can
// build the root package's DiscoveryError without importing discovery
// internals back into the root package.
func asDiscoveryMissingParametersError(requestText string, schema map[string]interface{}, missing []string) *magictunnel.DiscoveryError {
	return &magictunnel.DiscoveryError{
		Kind:          magictunnel.DiscoveryMissingParameters,
		Request:       requestText,
		MissingNames:  missing,
		ParamExamples: paramExamplesFromSchema(schema, missing),
	}
}
