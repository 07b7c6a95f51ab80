package extractor

import "strings"

// Major platforms are checked first: a course certificate often names the
// partner brand too ("IBM" on a Coursera certificate) and the platform is the
// one that hosts verification.
var priorityPlatforms = []struct{ key, name string }{
	{"coursera", "Coursera"},
	{"udemy", "Udemy"},
	{"edx", "edX"},
	{"udacity", "Udacity"},
	{"futurelearn", "FutureLearn"},
}

func (e *Extractor) identifyIssuer(text string) string {
	lower := strings.ToLower(text)
	for _, p := range priorityPlatforms {
		if containsWord(lower, p.key) {
			return p.name
		}
	}
	for _, org := range e.knownOrgs() {
		if containsWord(lower, strings.ToLower(org)) {
			return org
		}
	}
	return ""
}

// containsWord reports whether word occurs in s with no letter or digit
// directly on either side.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
