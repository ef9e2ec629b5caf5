package discovery

import "strings"

// ruleScore is the deterministic keyword/pattern scorer described for the
// rule layer: exact token matches against name/description/keywords score
// highest, word-boundary-aware substring matches next, and a Levenshtein
// fuzzy fallback catches typos. The result is normalised to [0,1] by
// construction — every branch below already returns a score in that range.
func ruleScore(queryLower string, name, description string, keywords []string) float64 {
	nameLower := strings.ToLower(name)
	descLower := strings.ToLower(description)

	if nameLower == queryLower {
		return 1.0
	}

	words := strings.Fields(queryLower)
	if len(words) <= 1 {
		return singleWordScore(queryLower, nameLower, descLower, keywords)
	}

	var total float64
	matched := 0
	for _, w := range words {
		s := singleWordScore(w, nameLower, descLower, keywords)
		if s > 0 {
			matched++
			total += s
		}
	}
	if matched == 0 {
		return 0
	}

	avg := total / float64(len(words))
	if matched == len(words) {
		return avg * 0.9 // full match, slightly below a literal exact match
	}
	return avg * (float64(matched) / float64(len(words)))
}

func singleWordScore(word, nameLower, descLower string, keywords []string) float64 {
	var score float64

	if strings.HasPrefix(nameLower, word) {
		score = maxf(score, 0.9)
	}
	if strings.Contains(nameLower, word) {
		score = maxf(score, 0.8)
	}

	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if kwLower == word {
			score = maxf(score, 0.85)
		} else if strings.Contains(kwLower, word) {
			score = maxf(score, 0.7)
		}
	}

	if containsWord(descLower, word) {
		score = maxf(score, 0.6)
	} else if strings.Contains(descLower, word) {
		score = maxf(score, 0.5)
	}

	if score == 0 {
		if fs := fuzzyMatch(word, nameLower); fs > 0.6 {
			score = maxf(score, fs*0.7)
		}
		for _, kw := range keywords {
			if fs := fuzzyMatch(word, strings.ToLower(kw)); fs > 0.6 {
				score = maxf(score, fs*0.6)
			}
		}
	}

	return score
}

func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if strings.ToLower(w) == word {
			return true
		}
	}
	return false
}

// fuzzyMatch returns an edit-distance-derived similarity in [0,1].
func fuzzyMatch(query, target string) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}
	d := levenshteinDistance(query, target)
	maxLen := len(query)
	if len(target) > maxLen {
		maxLen = len(target)
	}
	return 1.0 - float64(d)/float64(maxLen)
}

func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	m, n := len(r1), len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = minOf3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}
