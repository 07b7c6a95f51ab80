// Package analysis runs a certificate upload end to end: forensics and OCR,
// claim extraction, verification and the final verdict.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"certverify/internal/extractor"
	"certverify/internal/forensics"
	"certverify/internal/models"
	"certverify/internal/ocr"
	"certverify/pkg/logger"
)

var ErrUnsupportedMedia = errors.New("file must be an image")

const (
	forensicsSkipped = "SKIPPED"
	forensicsError   = "ERROR"
)

type Verifier interface {
	Verify(ctx context.Context, c models.Claim) models.Verdict
}

type Pipeline struct {
	ocr       ocr.Engine
	forensics forensics.Analyzer
	extractor extractor.ClaimExtractor
	verifier  Verifier
	log       *logger.Logger
}

func New(o ocr.Engine, f forensics.Analyzer, x extractor.ClaimExtractor, v Verifier, l *logger.Logger) *Pipeline {
	return &Pipeline{ocr: o, forensics: f, extractor: x, verifier: v, log: logger.OrNop(l)}
}

type ocrResult struct {
	text string
	err  error
}

// Analyze fails only for uploads that are not images. Collaborator failures
// degrade the result instead.
func (p *Pipeline) Analyze(ctx context.Context, filename, contentType string, image []byte) (models.AnalysisResult, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return models.AnalysisResult{}, fmt.Errorf("%w, got %q", ErrUnsupportedMedia, contentType)
	}

	forensicsCh := make(chan models.ForensicsResult, 1)
	go func() {
		res, err := p.forensics.Analyze(ctx, image)
		if err != nil {
			p.log.Errorf("forensics failed for %s: %v", filename, err)
			res = models.ForensicsResult{Status: forensicsError, Details: []string{err.Error()}}
		}
		forensicsCh <- res
	}()
	ocrCh := make(chan ocrResult, 1)
	go func() {
		text, err := p.ocr.Recognize(ctx, image)
		ocrCh <- ocrResult{text: text, err: err}
	}()

	fr := <-forensicsCh
	ocrRes := <-ocrCh

	res := p.analyzeText(ctx, ocrRes.text)
	res.Filename = filename
	res.Forensics = fr
	if ocrRes.err != nil {
		p.log.Warnf("ocr failed for %s: %v", filename, ocrRes.err)
		res.Extraction.Issues = append(res.Extraction.Issues, "OCR failed: "+ocrRes.err.Error())
	}
	if strings.TrimSpace(ocrRes.text) == "" {
		res.Extraction.RawTextSnippet = "OCR returned no text"
	}
	res.FinalVerdict = Compose(fr, res.Verification)
	return res, nil
}

// AnalyzeText starts from text that was already recognized. Forensics is
// skipped.
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) models.AnalysisResult {
	res := p.analyzeText(ctx, text)
	res.FinalVerdict = Compose(res.Forensics, res.Verification)
	return res
}

// AnalyzeClaim verifies a claim that was extracted elsewhere.
func (p *Pipeline) AnalyzeClaim(ctx context.Context, c models.Claim) models.AnalysisResult {
	_, issues := extractor.Validate(c)
	res := models.AnalysisResult{
		Forensics:    models.ForensicsResult{Status: forensicsSkipped},
		Extraction:   models.Extraction{Claim: c, Issues: issues},
		Verification: p.verifier.Verify(ctx, c),
	}
	res.FinalVerdict = Compose(res.Forensics, res.Verification)
	return res
}

func (p *Pipeline) analyzeText(ctx context.Context, text string) models.AnalysisResult {
	c := p.extractor.ExtractClaim(ctx, text)
	_, issues := extractor.Validate(c)
	p.log.Infof("extracted claim: name=%q issuer=%q id=%q url=%q", c.CandidateName, c.IssuerName, c.CertificateID, c.IssuerURL)
	return models.AnalysisResult{
		Forensics: models.ForensicsResult{Status: forensicsSkipped},
		Extraction: models.Extraction{
			Claim:          c,
			RawTextSnippet: extractor.Snippet(text),
			Issues:         issues,
		},
		Verification: p.verifier.Verify(ctx, c),
	}
}

// Compose derives the final verdict. A high-risk forensics result overrides
// a successful verification.
func Compose(f models.ForensicsResult, v models.Verdict) string {
	switch {
	case f.IsHighRisk:
		return models.FinalFlagged
	case v.IsVerified:
		return models.FinalVerified
	default:
		return models.FinalUnverified
	}
}
