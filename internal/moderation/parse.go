// internal/moderation/parse.go
package moderation

import (
	"regexp"
	"strings"
)

// Patterns for parsing model-backed moderator responses.
var (
	verdictPattern = regexp.MustCompile(`(?i)VERDICT:\s*(CONVINCED|CONTINUE|ON-TOPIC|OFF-TOPIC)`)

	// Fallback keyword patterns for models that ignore the format.
	convincedKeywords = []string{"is convinced", "has been convinced", "concedes the claim", "accepts the claim"}
	offTopicKeywords  = []string{"off topic", "off-topic", "no longer about", "drifted away from"}
)

// parseVerdict extracts the categorical verdict from a moderator model's
// response, falling back to keyword detection when the explicit format is
// missing. Returns the matched token and true, or "" and false.
func parseVerdict(content string) (string, bool) {
	if match := verdictPattern.FindStringSubmatch(content); match != nil {
		return strings.ToUpper(match[1]), true
	}

	lower := strings.ToLower(content)
	for _, kw := range convincedKeywords {
		if strings.Contains(lower, kw) {
			return "CONVINCED", true
		}
	}
	for _, kw := range offTopicKeywords {
		if strings.Contains(lower, kw) {
			return "OFF-TOPIC", true
		}
	}
	return "", false
}

// rationaleAfterVerdict returns the text following the verdict line,
// trimmed to a single sentence.
func rationaleAfterVerdict(content string) string {
	loc := verdictPattern.FindStringIndex(content)
	if loc == nil {
		return strings.TrimSpace(firstSentence(content))
	}
	after := strings.TrimSpace(content[loc[1]:])
	after = strings.TrimLeft(after, ".,:;- \t\n")
	return firstSentence(after)
}

func firstSentence(s string) string {
	if idx := strings.IndexAny(s, ".\n"); idx != -1 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

// stopwords filtered out of keyword extraction.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "can": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"with": true, "at": true, "by": true, "from": true, "about": true,
	"into": true, "through": true, "during": true, "before": true, "after": true,
	"and": true, "or": true, "but": true, "if": true, "then": true, "not": true,
	"this": true, "that": true, "these": true, "those": true,
	"what": true, "which": true, "who": true, "how": true, "why": true, "when": true,
	"it": true, "its": true, "as": true, "you": true, "your": true, "i": true,
}

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// extractKeywords returns the significant lowercase words of a text,
// deduplicated, in order of first appearance.
func extractKeywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) > 2 && !stopwords[w] && !seen[w] {
			keywords = append(keywords, w)
			seen[w] = true
		}
	}
	return keywords
}

// overlapRatio is the fraction of reference keywords present in text.
func overlapRatio(reference []string, text string) float64 {
	if len(reference) == 0 {
		return 1
	}
	present := make(map[string]bool)
	for _, w := range extractKeywords(text) {
		present[w] = true
	}
	hits := 0
	for _, w := range reference {
		if present[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(reference))
}

// jaccard is the token-set similarity of two texts.
func jaccard(a, b string) float64 {
	setA := make(map[string]bool)
	for _, w := range extractKeywords(a) {
		setA[w] = true
	}
	setB := make(map[string]bool)
	for _, w := range extractKeywords(b) {
		setB[w] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
