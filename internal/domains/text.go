package domains

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "what": true, "how": true,
	"are": true, "was": true, "can": true, "you": true, "your": true, "about": true,
	"this": true, "that": true, "from": true, "into": true, "under": true, "over": true,
	"does": true, "any": true, "all": true, "some": true, "please": true, "latest": true,
	"find": true, "search": true, "help": true, "want": true, "need": true, "should": true,
}

// keywords returns the distinct content words of text in first-seen order.
func keywords(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// topKeywords returns up to n keywords by frequency, ties alphabetical.
func topKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) >= 3 && !stopwords[w] {
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// leadingVerbs are stripped when deriving a topic from a request.
var leadingVerbs = regexp.MustCompile(`^(please\s+)?(research|find|search( for)?|look up|learn about|tell me about|what is|what are|how does|how to|explain|buy|analyze|summarize|automate|plan)\s+`)

// topic strips request verbs and articles from text.
func topic(text string) string {
	t := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	t = leadingVerbs.ReplaceAllString(t, "")
	t = strings.TrimPrefix(t, "the ")
	t = strings.TrimPrefix(t, "a ")
	t = strings.TrimRight(t, "?.! ")
	if t == "" {
		return strings.TrimSpace(text)
	}
	return t
}
