// Package extractor turns noisy OCR text into a structured claim.
//
// Every field is found independently; a field that cannot be read is left
// empty and never prevents the others from being extracted.
package extractor

import (
	"context"
	"regexp"
	"strings"

	"certverify/internal/models"
)

// OrgSource lists known organization names in priority order.
type OrgSource interface {
	Organizations() []string
}

type Extractor struct {
	orgs      OrgSource
	repairers []Repairer
}

type Option func(*Extractor)

// WithRepairers replaces the built-in repair strategies.
func WithRepairers(r ...Repairer) Option {
	return func(e *Extractor) { e.repairers = r }
}

// New builds an extractor. orgs may be nil, in which case only the built-in
// platforms are recognised.
func New(orgs OrgSource, opts ...Option) *Extractor {
	e := &Extractor{
		orgs:      orgs,
		repairers: DefaultRepairers(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Extractor) Extract(text string) models.Claim {
	c := models.Claim{
		CandidateName: e.findName(text),
		CertificateID: findCertificateID(text),
		IssuerName:    e.identifyIssuer(text),
		IssuerURL:     e.findURL(text),
	}
	c.CertificateID = e.repairID(c.IssuerName, c.CertificateID)
	return c
}

// ExtractClaim satisfies the same interface as LLMExtractor.
func (e *Extractor) ExtractClaim(_ context.Context, text string) models.Claim {
	return e.Extract(text)
}

func (e *Extractor) knownOrgs() []string {
	if e.orgs == nil {
		return nil
	}
	return e.orgs.Organizations()
}

var spaceRe = regexp.MustCompile(`\s+`)

const snippetLen = 300

// Snippet returns the start of the OCR text on one line, for diagnostics.
func Snippet(text string) string {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if r := []rune(s); len(r) > snippetLen {
		return string(r[:snippetLen]) + "..."
	}
	return s
}

// Validate lists what is missing from c. A claim with at most one issue is
// still worth verifying.
func Validate(c models.Claim) (valid bool, issues []string) {
	if c.CandidateName == "" {
		issues = append(issues, "Missing candidate name")
	}
	if c.IssuerName == "" {
		issues = append(issues, "Missing issuer name")
	}
	if c.CertificateID == "" {
		issues = append(issues, "Missing certificate ID (may limit verification)")
	}
	if c.IssuerURL == "" {
		issues = append(issues, "Missing issuer URL (may limit verification)")
	}
	return len(issues) <= 1, issues
}
