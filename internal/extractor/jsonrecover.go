package extractor

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// RecoverJSON finds a JSON object in a model response. It tries the whole
// response, then a fenced code block, then the widest {...} span. The zero
// Result is returned when nothing parses.
func RecoverJSON(s string) gjson.Result {
	s = strings.TrimSpace(s)
	if r, ok := object(s); ok {
		return r
	}
	if m := fencedRe.FindStringSubmatch(s); m != nil {
		if r, ok := object(m[1]); ok {
			return r
		}
	}
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		if r, ok := object(s[i : j+1]); ok {
			return r
		}
	}
	return gjson.Result{}
}

func object(s string) (gjson.Result, bool) {
	if !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(s)
	return r, r.IsObject()
}
