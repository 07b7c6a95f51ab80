package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// The name is written before these phrases ("John Doe has completed ...").
// Longer phrases come first so "has successfully completed" is not cut at
// "successfully completed".
var precedingTriggers = []string{
	"has successfully completed",
	"for successfully completing",
	"successfully completed",
	"has completed",
}

// The name follows these phrases.
var followingTriggers = []string{
	"this is to certify that",
	"certifies that",
	"presented to",
	"awarded to",
}

var nameBlacklist = []string{
	"certificate", "completion", "course", "verify", "id:", "url:", "http", "www.",
	"udemy", "coursera", "edx", "udacity", "futurelearn", "linkedin", "ibm", "google",
	"certify", "certifies", "presented", "awarded", "completed", "completing",
}

const (
	fallbackMinLen = 4
	fallbackMaxLen = 50
)

var (
	dateRe         = regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`)
	trailingJunkRe = regexp.MustCompile(`[^\p{L}]+$`)
	leadingJunkRe  = regexp.MustCompile(`^[^\p{L}]+`)
	digitRe        = regexp.MustCompile(`\d`)
	connectorRe    = regexp.MustCompile(`(?i)\s+(?:on|dated|at)$`)
)

func (e *Extractor) findName(text string) string {
	lines := splitLines(text)
	if name := triggeredName(lines); name != "" {
		return name
	}
	return e.fallbackName(lines)
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func triggeredName(lines []string) string {
	for i, line := range lines {
		lower := asciiLower(line)
		for _, tr := range precedingTriggers {
			idx := strings.Index(lower, tr)
			if idx < 0 {
				continue
			}
			if name := cleanName(afterFollowing(line[:idx])); validName(name) {
				return name
			}
			if i > 0 {
				if name := cleanName(lines[i-1]); validName(name) {
					return name
				}
			}
		}
		for _, tr := range followingTriggers {
			idx := strings.Index(lower, tr)
			if idx < 0 {
				continue
			}
			rest := beforePreceding(line[idx+len(tr):])
			if len(strings.TrimSpace(rest)) > 3 {
				if name := cleanName(rest); validName(name) {
					return name
				}
			}
			if i+1 < len(lines) {
				if name := cleanName(lines[i+1]); validName(name) {
					return name
				}
			}
		}
	}
	return ""
}

// afterFollowing drops everything up to the last following trigger, so
// "certify that John Doe" yields "John Doe".
func afterFollowing(s string) string {
	lower := asciiLower(s)
	cut := -1
	for _, tr := range followingTriggers {
		if idx := strings.LastIndex(lower, tr); idx >= 0 && idx+len(tr) > cut {
			cut = idx + len(tr)
		}
	}
	if cut < 0 {
		return s
	}
	return s[cut:]
}

// beforePreceding keeps the text ahead of the first preceding trigger.
func beforePreceding(s string) string {
	lower := asciiLower(s)
	cut := len(s)
	for _, tr := range precedingTriggers {
		if idx := strings.Index(lower, tr); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return s[:cut]
}

func (e *Extractor) fallbackName(lines []string) string {
	blacklist := append([]string(nil), nameBlacklist...)
	for _, org := range e.knownOrgs() {
		blacklist = append(blacklist, strings.ToLower(org))
	}
outer:
	for _, line := range lines {
		n := len([]rune(line))
		if n < fallbackMinLen || n > fallbackMaxLen || digitRe.MatchString(line) {
			continue
		}
		lower := strings.ToLower(line)
		for _, w := range blacklist {
			if w != "" && strings.Contains(lower, w) {
				continue outer
			}
		}
		if name := cleanName(line); validName(name) {
			return name
		}
	}
	return ""
}

// cleanName strips a trailing date with its connector word, trims
// surrounding punctuation, collapses whitespace and title-cases the result.
func cleanName(s string) string {
	dated := dateRe.MatchString(s)
	s = dateRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = trailingJunkRe.ReplaceAllString(s, "")
	s = leadingJunkRe.ReplaceAllString(s, "")
	if dated {
		s = connectorRe.ReplaceAllString(s, "")
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// a Caser is stateful, so one per call
	return cases.Title(language.English).String(s)
}

var structuralWords = []string{"certificate", "completion", "course", "certify"}

func validName(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range structuralWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

// asciiLower lower-cases ASCII letters only, so byte offsets stay valid for
// the original string.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
