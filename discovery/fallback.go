package discovery

import (
	"sort"
	"strings"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/registry"
)

// maxSuggestions bounds the DiscoveryNotFound suggestion list.
const maxSuggestions = 3

// runFallbackChain is invoked once the primary hybrid score fails to clear
// the confidence threshold. It tries, in order: fuzzy name match, keyword
// match across descriptions, category-based search, partial-name search,
// then recently-successful tools. The first step that produces any match
// wins; if every step comes up empty the caller returns a DiscoveryNotFound
// error with up to maxSuggestions closest names.
func runFallbackChain(requestText string, tools []registry.ToolDefinition, recent []string) (string, bool, []string) {
	queryLower := strings.ToLower(requestText)

	if name, ok := fuzzyNameMatch(queryLower, tools); ok {
		return name, true, nil
	}
	if name, ok := keywordMatch(queryLower, tools); ok {
		return name, true, nil
	}
	if name, ok := categoryMatch(queryLower, tools); ok {
		return name, true, nil
	}
	if name, ok := partialNameMatch(queryLower, tools); ok {
		return name, true, nil
	}
	if name, ok := recentMatch(recent, tools); ok {
		return name, true, nil
	}

	return "", false, closestSuggestions(queryLower, tools)
}

func fuzzyNameMatch(queryLower string, tools []registry.ToolDefinition) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, t := range tools {
		if s := fuzzyMatch(queryLower, strings.ToLower(t.Name)); s > bestScore {
			bestScore = s
			best = t.Name
		}
	}
	if bestScore >= 0.75 {
		return best, true
	}
	return "", false
}

func keywordMatch(queryLower string, tools []registry.ToolDefinition) (string, bool) {
	words := strings.Fields(queryLower)
	for _, t := range tools {
		descLower := strings.ToLower(t.Description)
		for _, w := range words {
			if len(w) >= 3 && containsWord(descLower, w) {
				return t.Name, true
			}
		}
	}
	return "", false
}

func categoryMatch(queryLower string, tools []registry.ToolDefinition) (string, bool) {
	inferred := inferCategory(queryLower)
	if inferred == "" {
		return "", false
	}
	for _, t := range tools {
		if primaryCategory(t.Keywords) == inferred {
			return t.Name, true
		}
	}
	return "", false
}

func partialNameMatch(queryLower string, tools []registry.ToolDefinition) (string, bool) {
	for _, t := range tools {
		nameLower := strings.ToLower(t.Name)
		if strings.Contains(nameLower, queryLower) || strings.Contains(queryLower, nameLower) {
			return t.Name, true
		}
	}
	return "", false
}

func recentMatch(recent []string, tools []registry.ToolDefinition) (string, bool) {
	if len(recent) == 0 {
		return "", false
	}
	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}
	for _, name := range recent {
		if known[name] {
			return name, true
		}
	}
	return "", false
}

// closestSuggestions ranks every tool by fuzzy name similarity to the
// request and returns up to maxSuggestions names, for a DiscoveryNotFound
// error's Suggestions field.
func closestSuggestions(queryLower string, tools []registry.ToolDefinition) []string {
	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, 0, len(tools))
	for _, t := range tools {
		ranked = append(ranked, scored{t.Name, fuzzyMatch(queryLower, strings.ToLower(t.Name))})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := maxSuggestions
	if len(ranked) < n {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].name
	}
	return out
}

func asDiscoveryNotFoundError(requestText string, suggestions []string) *magictunnel.DiscoveryError {
	return &magictunnel.DiscoveryError{
		Kind:        magictunnel.DiscoveryNotFound,
		Request:     requestText,
		Suggestions: suggestions,
	}
}
