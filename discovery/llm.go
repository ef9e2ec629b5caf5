package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/paularlott/magictunnel/ai"
)

// llmRerankMax bounds the candidate set handed to the LLM layer: 10 top
// combined-score candidates, 5 for category diversity, 5 low-scorers kept
// for recall, 10 matched to the inferred intent category.
const (
	llmTopCombined     = 10
	llmDiverse         = 5
	llmLowScoreRecall  = 5
	llmCategoryMatched = 10
	llmRerankMax       = llmTopCombined + llmDiverse + llmLowScoreRecall + llmCategoryMatched
)

// buildLlmCandidateSet selects at most llmRerankMax candidates from the full
// set per spec: top-10 by semantic+rule combined, 5 more for category
// diversity (first unseen candidate per distinct keyword-derived category),
// 5 low scorers kept for recall, and up to 10 whose keywords match the
// request's inferred category. Order of selection is preserved so ties
// within a bucket resolve by whichever appeared first, and duplicates across
// buckets are skipped.
func buildLlmCandidateSet(queryLower string, candidates []candidate) []candidate {
	if len(candidates) <= llmRerankMax {
		return candidates
	}

	byCombined := make([]candidate, len(candidates))
	copy(byCombined, candidates)
	sort.SliceStable(byCombined, func(i, j int) bool {
		ci, cj := byCombined[i], byCombined[j]
		si := ci.semantic + ci.rule
		sj := cj.semantic + cj.rule
		if si != sj {
			return si > sj
		}
		return ci.insertionIdx < cj.insertionIdx
	})

	picked := make(map[string]bool)
	var out []candidate

	take := func(c candidate) bool {
		if picked[c.name] {
			return false
		}
		picked[c.name] = true
		out = append(out, c)
		return true
	}

	for i := 0; i < len(byCombined) && len(out) < llmTopCombined; i++ {
		take(byCombined[i])
	}

	seenCategory := make(map[string]bool)
	for _, c := range byCombined {
		if len(out) >= llmTopCombined+llmDiverse {
			break
		}
		cat := primaryCategory(c.keywords)
		if cat == "" || seenCategory[cat] {
			continue
		}
		if take(c) {
			seenCategory[cat] = true
		}
	}

	for i := len(byCombined) - 1; i >= 0 && len(out) < llmTopCombined+llmDiverse+llmLowScoreRecall; i-- {
		take(byCombined[i])
	}

	inferred := inferCategory(queryLower)
	if inferred != "" {
		for _, c := range byCombined {
			if len(out) >= llmRerankMax {
				break
			}
			if primaryCategory(c.keywords) == inferred {
				take(c)
			}
		}
	}

	return out
}

func primaryCategory(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return strings.ToLower(keywords[0])
}

func inferCategory(queryLower string) string {
	words := strings.Fields(queryLower)
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// llmRerankResult is the structured response the LLM layer asks its model to
// produce: a ranked subset of the candidate names with per-candidate scores
// in [0,1] and an optional parameter guess for the top choice.
type llmRerankResult struct {
	Scores     map[string]float64     `json:"scores"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Reasoning  string                 `json:"reasoning,omitempty"`
}

// scoreLlm asks client to rank the given candidate subset against the
// request text, filling in c.llm/c.llmOK for every candidate the model
// scored. It returns the model's parameter guess for later stages of
// extraction to consult as priority (1) per the extraction order, and the
// model's reasoning string for the trace.
func scoreLlm(ctx context.Context, client ai.Client, queryText string, subset []candidate) (map[string]interface{}, string, error) {
	if client == nil || len(subset) == 0 {
		return nil, "", nil
	}

	prompt := buildRerankPrompt(queryText, subset)
	resp, err := client.ChatCompletion(ctx, ai.ChatCompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: rerankSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("discovery: llm rerank: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, "", fmt.Errorf("discovery: llm rerank: empty response")
	}

	raw := resp.Choices[0].Message.GetContentAsString()
	raw = extractJSONObject(raw)

	var parsed llmRerankResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, "", fmt.Errorf("discovery: llm rerank: malformed response: %w", err)
	}

	byName := make(map[string]int, len(subset))
	for i, c := range subset {
		byName[c.name] = i
	}
	subsetCopy := make([]candidate, len(subset))
	copy(subsetCopy, subset)
	for name, score := range parsed.Scores {
		if idx, ok := byName[name]; ok {
			subsetCopy[idx].llm = clamp01(score)
			subsetCopy[idx].llmOK = true
		}
	}
	for _, c := range subsetCopy {
		*findCandidate(subset, c.name) = c
	}

	return parsed.Parameters, parsed.Reasoning, nil
}

func findCandidate(cs []candidate, name string) *candidate {
	for i := range cs {
		if cs[i].name == name {
			return &cs[i]
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const rerankSystemPrompt = `You rank candidate tools for a request and propose parameters for the best match.
Respond with a single JSON object: {"scores": {"tool_name": 0.0-1.0, ...}, "parameters": {...for the top tool...}, "reasoning": "one sentence"}.
Score every candidate you are given. Do not include any text outside the JSON object.`

func buildRerankPrompt(queryText string, subset []candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nCandidates:\n", queryText)
	for _, c := range subset {
		fmt.Fprintf(&b, "- %s: %s\n", c.name, c.description)
	}
	return b.String()
}

// extractJSONObject trims any leading/trailing prose a model added around
// its JSON object, returning the substring from the first '{' to the last
// matching '}'.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
