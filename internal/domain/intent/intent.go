// Package intent holds the keyword policy that drives plan construction.
// The vocabularies are configuration, not code: deployments may replace any
// list via a YAML policy file without touching the planner.
package intent

import "strings"

// Policy is the set of vocabularies the planner classifies request text
// against, plus the content-sufficiency threshold.
type Policy struct {
	File       []string `yaml:"file"`
	Research   []string `yaml:"research"`
	Analysis   []string `yaml:"analysis"`
	Messaging  []string `yaml:"messaging"`
	Scheduling []string `yaml:"scheduling"`

	// Stopwords are articles and filler words ignored when counting residual
	// content tokens. Command words from the vocabularies above are always
	// ignored as well.
	Stopwords []string `yaml:"stopwords"`

	// MinContentTokens is the minimum number of residual tokens an
	// analysis-only request must carry to be considered analyzable.
	MinContentTokens int `yaml:"min_content_tokens"`
}

// DefaultPolicy returns the built-in vocabularies.
func DefaultPolicy() Policy {
	return Policy{
		File:       []string{"pdf", "document", "file", "upload", "attach"},
		Research:   []string{"research", "competitor", "market", "find"},
		Analysis:   []string{"analyze", "analysis", "insight", "summary", "summarize", "report"},
		Messaging:  []string{"email", "mail", "draft", "send", "action items"},
		Scheduling: []string{"schedule", "meeting", "calendar", "available", "time"},
		Stopwords: []string{
			"a", "an", "the", "this", "that", "these", "those",
			"i", "we", "you", "it", "my", "our", "your", "me",
			"is", "are", "was", "be", "do", "does", "did",
			"to", "of", "for", "in", "on", "with", "and", "or",
			"from", "at", "by", "as", "about", "into",
			"please", "can", "could", "would", "should",
			"make", "create", "give", "get", "show", "tell",
			"help", "need", "want", "some", "new",
		},
		MinContentTokens: 3,
	}
}

// Matches returns the first keyword from vocab found in text and whether any
// matched. Matching is case-insensitive substring search over the whole
// text, so multi-word entries ("action items") match as phrases.
func Matches(vocab []string, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range vocab {
		if kw != "" && strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// ResidualTokens returns the lowercased tokens of query that remain after
// stripping punctuation, stopwords, and every single-word entry from the
// command vocabularies. The count decides content sufficiency.
func (p *Policy) ResidualTokens(query string) []string {
	skip := make(map[string]struct{})
	for _, list := range [][]string{p.Stopwords, p.File, p.Research, p.Analysis, p.Messaging, p.Scheduling} {
		for _, w := range list {
			skip[w] = struct{}{}
		}
	}

	var out []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,:;!?\"'()[]")
		if tok == "" {
			continue
		}
		if _, ok := skip[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}
