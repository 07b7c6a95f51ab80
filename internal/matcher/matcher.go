// Package matcher decides whether a claimed name appears on a fetched page.
package matcher

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"certverify/internal/models"
)

const DefaultThreshold = 0.70

const (
	scoreExact     = 1.0
	scoreAllTokens = 0.95
	partialBase    = 0.7
	partialSpan    = 0.2
	// names with no significant token must be nearly identical
	shortNameThreshold = 0.9
	minTokenLen        = 3
)

type Matcher struct {
	threshold float64
}

// New returns a matcher; a threshold outside (0, 1] selects DefaultThreshold.
func New(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

func (m *Matcher) Threshold() float64 { return m.threshold }

// Match runs the ladder: exact containment, all significant tokens, at least
// half the tokens, then edit similarity against the forward and reversed name.
// The first rung that applies decides.
func (m *Matcher) Match(name, page string) models.MatchOutcome {
	n := Normalize(name)
	p := Normalize(page)
	if n == "" || p == "" {
		return models.MatchOutcome{}
	}

	if strings.Contains(p, n) {
		return models.MatchOutcome{IsMatch: true, Similarity: scoreExact}
	}

	var tokens []string
	for _, tok := range strings.Fields(n) {
		if len(tok) >= minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		r := Ratio(n, p)
		return models.MatchOutcome{IsMatch: r >= shortNameThreshold, Similarity: r}
	}

	found := 0
	for _, tok := range tokens {
		if strings.Contains(p, tok) {
			found++
		}
	}
	if found == len(tokens) {
		return models.MatchOutcome{IsMatch: true, Similarity: scoreAllTokens}
	}
	if 2*found >= len(tokens) {
		score := partialBase + partialSpan*float64(found)/float64(len(tokens))
		return models.MatchOutcome{IsMatch: score >= m.threshold, Similarity: score}
	}

	best := Ratio(n, p)
	if r := Ratio(strings.Join(reversed(tokens), " "), p); r > best {
		best = r
	}
	return models.MatchOutcome{IsMatch: best >= m.threshold, Similarity: best}
}

var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases s, folds accents, turns whitespace runs into single
// spaces and drops everything outside [a-z0-9 ].
func Normalize(s string) string {
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// Ratio is the SequenceMatcher similarity of a and b, compared rune by rune.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
