package discovery

import (
	"strings"
	"testing"
)

func TestCompactTrace_Empty(t *testing.T) {
	r := &Result{}
	if got := r.CompactTrace(); got != "" {
		t.Fatalf("expected empty trace, got %q", got)
	}
}

func TestCompactTrace_EncodesReasoningAsTOON(t *testing.T) {
	r := &Result{Reasoning: []string{"matched keyword: forecast", "confidence above threshold"}}
	got := r.CompactTrace()
	if got == "" {
		t.Fatal("expected a non-empty trace")
	}
	if !strings.Contains(got, "forecast") || !strings.Contains(got, "confidence") {
		t.Fatalf("expected both reasoning lines represented, got %q", got)
	}
}
