package discovery

import (
	"testing"

	"github.com/paularlott/magictunnel/registry"
)

func toolFixtures() []registry.ToolDefinition {
	return []registry.ToolDefinition{
		{Name: "list_files", Description: "List files in a directory", Keywords: []string{"filesystem", "list"}},
		{Name: "read_file", Description: "Read the contents of a file", Keywords: []string{"filesystem", "read"}},
		{Name: "send_email", Description: "Send an email message", Keywords: []string{"email", "communication"}},
	}
}

func TestRunFallbackChain_FuzzyNameMatch(t *testing.T) {
	name, ok, _ := runFallbackChain("list_flies", toolFixtures(), nil)
	if !ok || name != "list_files" {
		t.Fatalf("expected fuzzy match to list_files, got %q ok=%v", name, ok)
	}
}

func TestRunFallbackChain_KeywordMatch(t *testing.T) {
	name, ok, _ := runFallbackChain("please read the contents for me", toolFixtures(), nil)
	if !ok || name != "read_file" {
		t.Fatalf("expected keyword match to read_file, got %q ok=%v", name, ok)
	}
}

func TestRunFallbackChain_PartialNameMatch(t *testing.T) {
	name, ok, _ := runFallbackChain("please run send_email now", toolFixtures(), nil)
	if !ok || name != "send_email" {
		t.Fatalf("expected partial name match to send_email, got %q ok=%v", name, ok)
	}
}

func TestRunFallbackChain_RecentToolsFallback(t *testing.T) {
	name, ok, _ := runFallbackChain("run that previous task again", toolFixtures(), []string{"send_email"})
	if !ok || name != "send_email" {
		t.Fatalf("expected recent-tool fallback to send_email, got %q ok=%v", name, ok)
	}
}

func TestRunFallbackChain_NoMatchReturnsSuggestions(t *testing.T) {
	name, ok, suggestions := runFallbackChain("completely unrelated gibberish query", toolFixtures(), nil)
	if ok {
		t.Fatalf("expected no match, got %q", name)
	}
	if len(suggestions) == 0 || len(suggestions) > maxSuggestions {
		t.Fatalf("expected 1-%d suggestions, got %v", maxSuggestions, suggestions)
	}
}
