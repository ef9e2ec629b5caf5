package discovery

import "testing"

type fakeLookup map[string][]float64

func (f fakeLookup) Lookup(name string) ([]float64, bool) {
	v, ok := f[name]
	return v, ok
}

func TestCosineSimilarity_Identical(t *testing.T) {
	a := []float64{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %v", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	if got := cosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestScoreSemantic_BelowThresholdExcluded(t *testing.T) {
	lookup := fakeLookup{
		"close_match": {1, 0, 0},
		"far_match":   {0, 1, 0},
	}
	candidates := []candidate{{name: "close_match"}, {name: "far_match"}}
	scoreSemantic(lookup, []float64{1, 0, 0}, candidates)

	if !candidates[0].semanticOK || candidates[0].semantic < semanticThreshold {
		t.Fatalf("expected close_match to clear threshold, got %+v", candidates[0])
	}
	if candidates[1].semanticOK {
		t.Fatalf("expected far_match to be excluded below threshold, got %+v", candidates[1])
	}
}

func TestScoreSemantic_NilLookupNoop(t *testing.T) {
	candidates := []candidate{{name: "a"}}
	scoreSemantic(nil, []float64{1, 0}, candidates)
	if candidates[0].semanticOK {
		t.Fatal("expected no-op with nil lookup")
	}
}
