package discovery

import "math"

// semanticThreshold is the minimum cosine similarity for a tool's semantic
// score to count toward the hybrid blend. Below it the tool is excluded from
// the semantic contribution only — it can still win on rule or llm score.
const semanticThreshold = 0.55

// cosineSimilarity returns the cosine similarity of two equal-length vectors
// in [-1,1]. A length mismatch or zero-magnitude vector yields 0, treated by
// callers as "no semantic signal" rather than an error — embeddings can be
// regenerated on a different model with a different dimensionality mid-flight.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scoreSemantic fills in c.semantic/c.semanticOK for every candidate that has
// a fresh embedding and a similarity to queryVec at or above semanticThreshold.
func scoreSemantic(lookup EmbeddingLookup, queryVec []float64, candidates []candidate) {
	if lookup == nil || len(queryVec) == 0 {
		return
	}
	for i := range candidates {
		vec, ok := lookup.Lookup(candidates[i].name)
		if !ok {
			continue
		}
		sim := cosineSimilarity(queryVec, vec)
		if sim < semanticThreshold {
			continue
		}
		candidates[i].semantic = sim
		candidates[i].semanticOK = true
	}
}
