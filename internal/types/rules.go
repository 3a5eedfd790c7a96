package types

import (
	"fmt"
	"regexp"
)

// MatcherKind selects how a Matcher expression is interpreted.
type MatcherKind string

const (
	MatchKeyword MatcherKind = "keyword" // whole-word match
	MatchPhrase  MatcherKind = "phrase"  // whole-word multi-word match
	MatchRegex   MatcherKind = "regex"   // raw regular expression
)

// Matcher is one textual trigger. Expressions are matched against the
// normalized request text.
type Matcher struct {
	Kind MatcherKind `yaml:"kind" json:"kind"`
	Expr string      `yaml:"expr" json:"expr"`

	re *regexp.Regexp
}

// Keyword returns a whole-word keyword matcher.
func Keyword(expr string) Matcher { return Matcher{Kind: MatchKeyword, Expr: expr} }

// Phrase returns a whole-word phrase matcher.
func Phrase(expr string) Matcher { return Matcher{Kind: MatchPhrase, Expr: expr} }

// Regex returns a regular expression matcher.
func Regex(expr string) Matcher { return Matcher{Kind: MatchRegex, Expr: expr} }

func (m Matcher) source() (string, error) {
	switch m.Kind {
	case MatchKeyword, MatchPhrase, "":
		if m.Expr == "" {
			return "", fmt.Errorf("empty %s matcher", m.Kind)
		}
		return `\b` + regexp.QuoteMeta(NormalizeText(m.Expr)) + `\b`, nil
	case MatchRegex:
		return m.Expr, nil
	default:
		return "", fmt.Errorf("unknown matcher kind %q", m.Kind)
	}
}

// Compile returns a copy of m with its expression compiled.
func (m Matcher) Compile() (Matcher, error) {
	src, err := m.source()
	if err != nil {
		return m, err
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return m, fmt.Errorf("compile %s matcher %q: %w", m.Kind, m.Expr, err)
	}
	m.re = re
	return m, nil
}

// Compiled reports whether Compile has run.
func (m Matcher) Compiled() bool { return m.re != nil }

// Match reports whether the normalized text triggers m. An uncompiled or
// invalid matcher never matches.
func (m Matcher) Match(text string) bool {
	if m.re != nil {
		return m.re.MatchString(text)
	}
	c, err := m.Compile()
	if err != nil {
		return false
	}
	return c.re.MatchString(text)
}

// String renders the matcher as kind:expr.
func (m Matcher) String() string {
	return string(m.Kind) + ":" + m.Expr
}

// PatternRule maps one matcher to one domain with a weight.
// Weight is the only field mutated after load; BaseWeight keeps the
// declared value so tuning can drift back toward it.
type PatternRule struct {
	ID         string   `yaml:"id" json:"id"`
	Domain     DomainID `yaml:"domain" json:"domain"`
	Pattern    Matcher  `yaml:"pattern" json:"pattern"`
	Weight     int      `yaml:"weight" json:"weight"`
	BaseWeight int      `yaml:"-" json:"base_weight"`

	// TunedWeight only exists on disk: an exported table keeps the declared
	// weight in Weight and the tuned one here. Compile folds it into Weight.
	TunedWeight int `yaml:"tuned_weight,omitempty" json:"-"`
}

// DisambiguationRule adjusts a domain pair when both scored and every When
// matcher fires.
type DisambiguationRule struct {
	Name      string    `yaml:"name" json:"name"`
	Favored   DomainID  `yaml:"favored" json:"favored"`
	Penalized DomainID  `yaml:"penalized" json:"penalized"`
	When      []Matcher `yaml:"when" json:"when"`
	Boost     int       `yaml:"boost" json:"boost"`
	Penalty   int       `yaml:"penalty" json:"penalty"`
}

// WordCombination applies a fixed delta to a domain when its phrase matches.
type WordCombination struct {
	Name   string   `yaml:"name" json:"name"`
	Phrase Matcher  `yaml:"phrase" json:"phrase"`
	Domain DomainID `yaml:"domain" json:"domain"`
	Delta  int      `yaml:"delta" json:"delta"`
}
