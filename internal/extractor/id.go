package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// strong, platform-specific formats; checked before anything else
var strongIDRes = []*regexp.Regexp{
	regexp.MustCompile(`\b(UC-[A-Za-z0-9][A-Za-z0-9-]*)`),
}

var labeledIDRe = regexp.MustCompile(`(?i)\b(?:id|number|no\.?|code|credential)[:#\t ]+([a-z0-9]*[0-9][a-z0-9]*)`)

var tokenRe = regexp.MustCompile(`\b[A-Za-z0-9]{10,35}\b`)

const (
	labeledMin = 8
	labeledMax = 40
)

func findCertificateID(text string) string {
	for _, re := range strongIDRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(m[1], "-")
		}
	}

	for _, m := range labeledIDRe.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if len(id) >= labeledMin && len(id) <= labeledMax && !strings.EqualFold(id, "certificate") {
			return id
		}
	}

	for _, tok := range tokenRe.FindAllString(text, -1) {
		if hasLetterAndDigit(tok) {
			return tok
		}
	}
	return ""
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter && digit
}
