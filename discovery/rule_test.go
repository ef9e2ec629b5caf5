package discovery

import "testing"

func TestRuleScore_ExactNameMatch(t *testing.T) {
	score := ruleScore("analyze_data", "analyze_data", "Analyze datasets", nil)
	if score != 1.0 {
		t.Fatalf("expected exact match score 1.0, got %v", score)
	}
}

func TestRuleScore_KeywordMatch(t *testing.T) {
	score := ruleScore("statistics", "analyze_data", "Analyze datasets with statistical methods", []string{"statistics", "data"})
	if score < 0.8 {
		t.Fatalf("expected high score for keyword match, got %v", score)
	}
}

func TestRuleScore_DescriptionWordMatch(t *testing.T) {
	score := ruleScore("pdf", "generate_report", "Generate PDF reports from data", []string{"report", "export"})
	if score <= 0 {
		t.Fatalf("expected non-zero score for description word match, got %v", score)
	}
}

func TestRuleScore_NoMatch(t *testing.T) {
	score := ruleScore("zzzzzz", "analyze_data", "Analyze datasets", []string{"statistics"})
	if score != 0 {
		t.Fatalf("expected zero score for unrelated query, got %v", score)
	}
}

func TestRuleScore_MultiWordQuery(t *testing.T) {
	score := ruleScore("generate pdf report", "generate_report", "Generate PDF reports from data", []string{"pdf", "report"})
	if score <= 0 {
		t.Fatalf("expected non-zero score for multi-word query, got %v", score)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
	}
	for _, c := range cases {
		if got := levenshteinDistance(c.a, c.b); got != c.want {
			t.Errorf("levenshteinDistance(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFuzzyMatch_TypoTolerance(t *testing.T) {
	score := fuzzyMatch("analyz_data", "analyze_data")
	if score < 0.8 {
		t.Fatalf("expected high fuzzy score for near-typo, got %v", score)
	}
}

func TestContainsWord_BoundaryAware(t *testing.T) {
	if !containsWord("generate pdf reports from data", "pdf") {
		t.Fatal("expected containsWord to find whole word pdf")
	}
	if containsWord("generate pdfs from data", "pdf") {
		t.Fatal("containsWord should not match pdf inside pdfs")
	}
}
