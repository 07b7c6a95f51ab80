package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/models"
)

type orgList []string

func (o orgList) Organizations() []string { return o }

const courseraText = `COURSERA
This is to certify that
John Doe
has successfully completed the course Machine Learning
Certificate ID: 1234567890
Verify at: https://coursera.org/verify/1234567890.`

func TestExtractCoursera(t *testing.T) {
	got := New(nil).Extract(courseraText)
	want := models.Claim{
		CandidateName: "John Doe",
		CertificateID: "1234567890",
		IssuerName:    "Coursera",
		IssuerURL:     "https://coursera.org/verify/1234567890",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("claim mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractUdemyRepair(t *testing.T) {
	text := "Udemy\nCertificate of Completion\nJane Smith\nCertificate no: UC-la2bOc3d\nCertificate url: ude.my/UC-la2bOc3d"
	got := New(nil).Extract(text)
	want := models.Claim{
		CandidateName: "Jane Smith",
		CertificateID: "UC-1a2b0c3d",
		IssuerName:    "Udemy",
		IssuerURL:     "https://ude.my/UC-1a2b0c3d",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("claim mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairersOnlyApplyToTheirIssuer(t *testing.T) {
	// same code without a Udemy attribution stays untouched
	got := New(nil).Extract("Certificate no: UC-la2bOc3d")
	assert.Equal(t, "UC-la2bOc3d", got.CertificateID)

	got = New(nil, WithRepairers()).Extract("Udemy\nUC-la2bOc3d\nude.my/UC-la2bOc3d")
	assert.Equal(t, "UC-la2bOc3d", got.CertificateID)
	assert.Equal(t, "https://ude.my/UC-la2bOc3d", got.IssuerURL)
}

func TestFindName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"inline preceding", "John Doe has successfully completed Python 101", "John Doe"},
		{"previous line", "Mar 5, 2024\nJane Q. Public\nhas completed the programme", "Jane Q. Public"},
		{"inline following", "Awarded to maria garcia", "Maria Garcia"},
		{"next line", "This certificate is presented to\nAhmed Khan\nfor outstanding work", "Ahmed Khan"},
		{"date stripped", "Ravi Kumar Jan 12, 2023 has completed", "Ravi Kumar"},
		{"single line statement", "This is to certify that John Doe has completed the course", "John Doe"},
		{"statement with preceding trigger first", "Certifies that Lee Chen has successfully completed Go 101", "Lee Chen"},
		{"date connector dropped", "Awarded to Jane Smith on March 3, 2023", "Jane Smith"},
		{"dated connector dropped", "Presented to Omar Ali dated Jan 5, 2024", "Omar Ali"},
		{"fallback line", "Certificate of Completion\nPriya Sharma\nPython 101", "Priya Sharma"},
		{"structural line skipped", "Certificate Of Completion\nhas completed", ""},
		{"nothing", "1234\n5678", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(nil).findName(tt.text))
		})
	}
}

func TestFallbackNameSkipsKnownOrganizations(t *testing.T) {
	e := New(orgList{"Great Learning"})
	assert.Equal(t, "Sam Lee", e.findName("Great Learning\nSam Lee"))
}

func TestFindCertificateID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"udemy code", "Certificate no: UC-abc123-def4-", "UC-abc123-def4"},
		{"labeled", "Credential ID: ab12cd34ef", "ab12cd34ef"},
		{"labeled too short", "ID: 12345", ""},
		{"label word ignored", "Certificate number certificate", ""},
		{"bare token keeps case", "Reference ABCD1234EFGH issued", "ABCD1234EFGH"},
		{"letters only token", "Congratulations everyone", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findCertificateID(tt.text))
		})
	}
}

func TestIdentifyIssuer(t *testing.T) {
	e := New(orgList{"Google", "IBM"})
	assert.Equal(t, "Coursera", e.identifyIssuer("IBM Data Science offered through Coursera"))
	assert.Equal(t, "Google", e.identifyIssuer("Issued by Google"))
	assert.Equal(t, "", e.identifyIssuer("I googled it"))
	assert.Equal(t, "edX", e.identifyIssuer("verify at edx.org"))
}

func TestFindURLTrimsPunctuation(t *testing.T) {
	e := New(nil)
	assert.Equal(t, "https://www.udemy.com/certificate/UC-1/", e.findURL("see (www.udemy.com/certificate/UC-1/)."))
	assert.Equal(t, "", e.findURL("no link here"))
}

func TestExtractFieldsIndependently(t *testing.T) {
	got := New(nil).Extract("https://example.org/cert")
	assert.Equal(t, models.Claim{IssuerURL: "https://example.org/cert"}, got)
	assert.Equal(t, models.Claim{}, New(nil).Extract(""))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", Snippet("  a\n\tb \r\n c "))
	long := Snippet(strings.Repeat("é", 400))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, []rune(long), snippetLen+3)
}

func TestValidate(t *testing.T) {
	valid, issues := Validate(models.Claim{CandidateName: "A B", IssuerName: "Coursera", CertificateID: "x"})
	assert.True(t, valid)
	assert.Equal(t, []string{"Missing issuer URL (may limit verification)"}, issues)

	valid, issues = Validate(models.Claim{CandidateName: "A B"})
	assert.False(t, valid)
	assert.Len(t, issues, 3)
}

func TestRecoverJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"direct", `{"candidate_name":"A"}`, "A"},
		{"fenced", "Here you go:\n```json\n{\"candidate_name\":\"B\"}\n```\nDone.", "B"},
		{"span", `Sure! {"candidate_name":"C"} hope that helps`, "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RecoverJSON(tt.in)
			require.True(t, r.Exists())
			assert.Equal(t, tt.want, r.Get("candidate_name").String())
		})
	}

	assert.False(t, RecoverJSON("no json at all").Exists())
	assert.False(t, RecoverJSON(`{"broken": `).Exists())
	assert.False(t, RecoverJSON(`["not", "an", "object"]`).Exists())
}

type fakeCompleter struct {
	resp   string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.resp, f.err
}

func TestLLMExtractorPostProcesses(t *testing.T) {
	llm := &fakeCompleter{resp: "```json\n" + `{
		"candidate_name": "  John   Doe ",
		"certificate_id": "12 34 56 78 90",
		"issuer_name": "issued by coursera",
		"issuer_url": "Visit https://www.coursera.org/verify/ABC/?utm=1#top",
		"cleaned_text": "ignored"
	}` + "\n```"}
	x := NewLLMExtractor(llm, New(nil), nil)

	got := x.ExtractClaim(context.Background(), "some ocr text")
	want := models.Claim{
		CandidateName: "John Doe",
		CertificateID: "1234567890",
		IssuerName:    "Coursera",
		IssuerURL:     "https://www.coursera.org/verify/ABC",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("claim mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, llm.prompt, "some ocr text")
}

func TestLLMExtractorRepairsIssuerURL(t *testing.T) {
	llm := &fakeCompleter{resp: `{"candidate_name": "Jane Smith", "certificate_id": "UC-la2bOc3d", "issuer_name": "Udemy", "issuer_url": "ude.my/UC-la2bOc3d"}`}
	got := NewLLMExtractor(llm, New(nil), nil).ExtractClaim(context.Background(), "Udemy certificate")
	assert.Equal(t, "https://ude.my/UC-1a2b0c3d", got.IssuerURL)
	assert.Equal(t, "UC-1a2b0c3d", got.CertificateID)
}

func TestLLMExtractorFillsGapsFromHeuristics(t *testing.T) {
	llm := &fakeCompleter{resp: `{"candidate_name": null, "certificate_id": "null", "issuer_name": "Coursera", "issuer_url": null}`}
	got := NewLLMExtractor(llm, New(nil), nil).ExtractClaim(context.Background(), courseraText)
	assert.Equal(t, "John Doe", got.CandidateName)
	assert.Equal(t, "1234567890", got.CertificateID)
	assert.Equal(t, "https://coursera.org/verify/1234567890", got.IssuerURL)
}

func TestLLMExtractorDegradesToHeuristics(t *testing.T) {
	want := New(nil).Extract(courseraText)
	for _, llm := range []*fakeCompleter{
		{err: errors.New("boom")},
		{resp: "I cannot help with that."},
	} {
		got := NewLLMExtractor(llm, New(nil), nil).ExtractClaim(context.Background(), courseraText)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeIssuerURL(t *testing.T) {
	assert.Equal(t, "https://udemy.com", normalizeIssuerURL("udemy.com/"))
	assert.Equal(t, "", normalizeIssuerURL("udemy"))
	assert.Equal(t, "http://x.org/a", normalizeIssuerURL("http://x.org/a?b=c"))
}

func TestCanonicalIssuer(t *testing.T) {
	assert.Equal(t, "IBM", canonicalIssuer("ibm"))
	assert.Equal(t, "LinkedIn Learning", canonicalIssuer("LINKEDIN LEARNING"))
	assert.Equal(t, "Acme Academy", canonicalIssuer("acme academy"))
}
