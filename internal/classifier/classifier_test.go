package classifier

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cl := New()

	shell := `<html><body><noscript>Please enable JavaScript</noscript><div id="root"></div></body></html>`
	if c := cl.Classify(200, shell); c.Label != LabelShell {
		t.Fatalf("want shell, got %s", c.Label)
	}
	if !cl.IsShell(shell) {
		t.Fatal("IsShell disagrees with Classify")
	}

	long := shell + strings.Repeat("<p>John Doe has completed the course.</p>", 40)
	if c := cl.Classify(200, long); c.Label != LabelContent {
		t.Fatalf("long page with markers should be content, got %s", c.Label)
	}

	if c := cl.Classify(403, ""); c.Label != LabelBlocked || c.Reason["status"] != "Forbidden" {
		t.Fatalf("want blocked 403, got %+v", c)
	}
	if c := cl.Classify(503, "<title>Attention Required! | Cloudflare</title>"); c.Label != LabelBlocked {
		t.Fatalf("want blocked 503 challenge, got %s", c.Label)
	}
	if c := cl.Classify(500, "internal error"); c.Label != LabelContent {
		t.Fatalf("plain 500 is not a block, got %s", c.Label)
	}
	if c := cl.Classify(200, "<html>captcha</html>"); c.Label == LabelBlocked {
		t.Fatal("2xx bodies must never be classified as blocked")
	}
}
