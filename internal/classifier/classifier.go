package classifier

import (
	"net/http"
	"regexp"
	"strings"

	"certverify/internal/models"
)

const (
	LabelContent = "content"
	LabelShell   = "script_shell"
	LabelBlocked = "blocked"
)

// ShellMaxBytes is the body size under which a page may be a script-rendered
// shell rather than real content.
const ShellMaxBytes = 500

type Classifier struct {
	shellMax int
}

func New() *Classifier { return &Classifier{shellMax: ShellMaxBytes} }

var shellRe = regexp.MustCompile(`(?i)javascript|noscript|loading|please\s+enable`)
var blockRe = regexp.MustCompile(`(?i)captcha|access\s+denied|attention\s+required|are\s+you\s+a\s+robot|unusual\s+traffic|request\s+blocked|cf-chl|bot\s+detection`)

// Classify labels a raw response body. Block markers only count on non-2xx
// responses since many legitimate pages embed captcha scripts.
func (c *Classifier) Classify(statusCode int, body string) models.PageClass {
	reason := map[string]string{}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		reason["status"] = http.StatusText(statusCode)
		return models.PageClass{Label: LabelBlocked, Reason: reason}
	}
	if statusCode >= 300 {
		if m := blockRe.FindString(body); m != "" {
			reason["marker"] = strings.ToLower(m)
			return models.PageClass{Label: LabelBlocked, Reason: reason}
		}
		return models.PageClass{Label: LabelContent, Reason: reason}
	}

	if len(body) < c.shellMax {
		if m := shellRe.FindString(body); m != "" {
			reason["marker"] = strings.ToLower(m)
			reason["size"] = "short body"
			return models.PageClass{Label: LabelShell, Reason: reason}
		}
	}
	return models.PageClass{Label: LabelContent, Reason: reason}
}

// IsShell reports whether body looks like a page that needs script execution
// before it shows anything.
func (c *Classifier) IsShell(body string) bool {
	return c.Classify(http.StatusOK, body).Label == LabelShell
}
