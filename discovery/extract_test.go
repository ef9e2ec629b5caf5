package discovery

import "testing"

func schemaFixture() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":      map[string]interface{}{"type": "string"},
			"recursive": map[string]interface{}{"type": "boolean"},
			"limit":     map[string]interface{}{"type": "number"},
		},
		"required":             []interface{}{"path"},
		"additionalProperties": false,
	}
}

func TestExtractParameters_Success(t *testing.T) {
	params, missing, err := extractParameters(schemaFixture(), map[string]interface{}{"path": "/tmp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing params, got %v", missing)
	}
	if params["path"] != "/tmp" {
		t.Fatalf("expected path to be /tmp, got %v", params["path"])
	}
}

func TestExtractParameters_MissingRequired(t *testing.T) {
	_, missing, err := extractParameters(schemaFixture(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) != 1 || missing[0] != "path" {
		t.Fatalf("expected missing [path], got %v", missing)
	}
}

func TestCoerceValue_StringToNumber(t *testing.T) {
	got, err := coerceValue(map[string]interface{}{"type": "number"}, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42.0 {
		t.Fatalf("expected 42.0, got %v", got)
	}
}

func TestCoerceValue_StringToBoolean(t *testing.T) {
	got, err := coerceValue(map[string]interface{}{"type": "boolean"}, "true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}

func TestCoerceValue_InvalidNumber(t *testing.T) {
	if _, err := coerceValue(map[string]interface{}{"type": "number"}, "not-a-number"); err == nil {
		t.Fatal("expected error for invalid number coercion")
	}
}

func TestCoerceValue_RejectsAdditionalProperties(t *testing.T) {
	propSchema := map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{"known": map[string]interface{}{"type": "string"}},
		"additionalProperties": false,
	}
	_, err := coerceValue(propSchema, map[string]interface{}{"unknown": "x"})
	if err == nil {
		t.Fatal("expected error for disallowed additional property")
	}
}

func TestParamExamplesFromSchema(t *testing.T) {
	examples := paramExamplesFromSchema(schemaFixture(), []string{"path", "limit"})
	if examples["path"] != `"example"` {
		t.Fatalf("expected string example, got %v", examples["path"])
	}
	if examples["limit"] != "42" {
		t.Fatalf("expected number example, got %v", examples["limit"])
	}
}
