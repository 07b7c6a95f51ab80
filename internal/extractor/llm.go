package extractor

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"certverify/internal/models"
	"certverify/pkg/logger"
)

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClaimExtractor is implemented by both the heuristic and the LLM-assisted
// extractors.
type ClaimExtractor interface {
	ExtractClaim(ctx context.Context, text string) models.Claim
}

// LLMExtractor asks a language model to structure the OCR text and fills
// whatever the model leaves out from the heuristic extractor.
type LLMExtractor struct {
	llm      Completer
	fallback *Extractor
	log      *logger.Logger
}

func NewLLMExtractor(llm Completer, fallback *Extractor, l *logger.Logger) *LLMExtractor {
	return &LLMExtractor{llm: llm, fallback: fallback, log: logger.OrNop(l)}
}

func (x *LLMExtractor) ExtractClaim(ctx context.Context, text string) models.Claim {
	base := x.fallback.Extract(text)
	if strings.TrimSpace(text) == "" {
		return base
	}

	resp, err := x.llm.Complete(ctx, buildPrompt(text))
	if err != nil {
		x.log.Warnf("llm extraction failed, using heuristics: %v", err)
		return base
	}
	obj := RecoverJSON(resp)
	if !obj.Exists() {
		x.log.Warnf("llm response contained no json object")
		return base
	}

	c := postProcess(models.Claim{
		CandidateName: field(obj, "candidate_name"),
		CertificateID: field(obj, "certificate_id"),
		IssuerName:    field(obj, "issuer_name"),
		IssuerURL:     field(obj, "issuer_url"),
	})
	if c.CandidateName == "" {
		c.CandidateName = base.CandidateName
	}
	if c.CertificateID == "" {
		c.CertificateID = base.CertificateID
	}
	if c.IssuerName == "" {
		c.IssuerName = base.IssuerName
	}
	if c.IssuerURL == "" {
		c.IssuerURL = base.IssuerURL
	} else {
		c.IssuerURL = x.fallback.repairURL(c.IssuerURL)
	}
	c.CertificateID = x.fallback.repairID(c.IssuerName, c.CertificateID)
	return c
}

// field reads a string member, treating null and the literal "null" as absent.
func field(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	s := strings.TrimSpace(v.String())
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

var (
	issuerNoiseRe = regexp.MustCompile(`(?i)\b(?:issued by|provided by|powered by|via|through|in partnership with|certificate from|certification by|in collaboration with|presented by)\b`)
	firstURLRe    = regexp.MustCompile(`https?://\S+`)
)

func postProcess(c models.Claim) models.Claim {
	c.CandidateName = strings.Join(strings.Fields(c.CandidateName), " ")
	c.CertificateID = strings.ReplaceAll(c.CertificateID, " ", "")

	if c.IssuerName != "" {
		issuer := strings.Join(strings.Fields(issuerNoiseRe.ReplaceAllString(c.IssuerName, " ")), " ")
		c.IssuerName = canonicalIssuer(issuer)
	}
	c.IssuerURL = normalizeIssuerURL(c.IssuerURL)
	return c
}

// canonicalIssuer restores the usual spelling of well-known issuers and
// title-cases anything else.
func canonicalIssuer(issuer string) string {
	if issuer == "" {
		return ""
	}
	for _, known := range promptIssuers {
		if strings.EqualFold(known, issuer) {
			return known
		}
	}
	return cases.Title(language.English).String(strings.ToLower(issuer))
}

func normalizeIssuerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if m := firstURLRe.FindString(raw); m != "" {
		raw = m
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if !strings.Contains(raw, ".") {
			return ""
		}
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimRight(u.String(), "/")
}

var promptIssuers = []string{
	"Coursera", "edX", "Udemy", "LinkedIn Learning", "FutureLearn", "Udacity", "Alison",
	"Great Learning", "Simplilearn", "Pluralsight", "Skillshare", "Codecademy", "freeCodeCamp",
	"NPTEL", "Khan Academy", "upGrad", "Google", "Microsoft", "IBM", "AWS", "Meta", "Oracle",
	"Cisco", "HubSpot Academy", "Salesforce Trailhead", "DeepLearning.AI", "Red Hat",
	"Linux Foundation", "CompTIA",
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`You are a certificate data extraction agent. Extract structured information from the OCR text of a certificate.

OCR TEXT:
---
%s
---

Fields:
1. candidate_name: full name of the certificate recipient.
2. certificate_id: unique identifier, serial number or credential code (e.g. "UC-12345", "ABC123XYZ").
3. issuer_name: only the platform or organization name, for example one of: %s.
   Ignore phrases such as "issued by", "via", "powered by", "in partnership with".
4. issuer_url: the official verification or website URL if one is visible.

Only extract what is clearly visible. Use null for anything that cannot be determined.
Return only a JSON object with exactly these keys, without markdown:
{"candidate_name": "...", "certificate_id": "...", "issuer_name": "...", "issuer_url": "..."}
`, text, strings.Join(promptIssuers, ", "))
}
