// Package verifier decides whether a claimed certificate can be confirmed on
// a trusted issuer site.
package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"certverify/internal/matcher"
	"certverify/internal/models"
	"certverify/internal/urlgen"
	"certverify/pkg/logger"
)

// TrustStore is the subset of truststore.Store the orchestrator needs.
type TrustStore interface {
	urlgen.BaseURLs
	IsTrustedDomain(rawURL string) bool
	AddTrustedDomain(domain string) error
	AddOrganization(name, verificationURL string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
	ClearCache()
}

// Recorder receives one call per finished verification.
type Recorder interface {
	VerificationDone(outcome models.Outcome)
}

type Config struct {
	// Threshold is the minimum name similarity accepted as a match.
	Threshold float64
	// ProbeInterval is the pause between two successive probes.
	ProbeInterval time.Duration
	// SoftPassOnBlock accepts a trusted URL that refused automated access.
	SoftPassOnBlock bool
}

func DefaultConfig() Config {
	return Config{
		Threshold:       matcher.DefaultThreshold,
		ProbeInterval:   500 * time.Millisecond,
		SoftPassOnBlock: true,
	}
}

type Options struct {
	// Generator overrides the URL generator built from the store.
	Generator *urlgen.Generator
	Recorder  Recorder
	Log       *logger.Logger
}

type Orchestrator struct {
	store   TrustStore
	fetcher Fetcher
	gen     *urlgen.Generator
	match   *matcher.Matcher
	cfg     Config
	rec     Recorder
	log     *logger.Logger
}

func New(store TrustStore, fetcher Fetcher, cfg Config, opts Options) *Orchestrator {
	gen := opts.Generator
	if gen == nil {
		gen = urlgen.New(store)
	}
	return &Orchestrator{
		store:   store,
		fetcher: fetcher,
		gen:     gen,
		match:   matcher.New(cfg.Threshold),
		cfg:     cfg,
		rec:     opts.Recorder,
		log:     logger.OrNop(opts.Log),
	}
}

// Verify always returns a verdict; nothing about the claim or the target
// sites is reported as an error.
func (o *Orchestrator) Verify(ctx context.Context, c models.Claim) models.Verdict {
	v := o.verify(ctx, c)
	if o.rec != nil {
		o.rec.VerificationDone(v.Outcome)
	}
	o.log.Infof("verification finished: outcome=%s tried=%d similarity=%.2f", v.Outcome, v.URLsTried, v.Similarity)
	return v
}

type probeState struct {
	tried      int
	notFound   int
	blockedURL string
	blockCode  int
	best       float64
	bestURL    string
}

func (o *Orchestrator) verify(ctx context.Context, c models.Claim) models.Verdict {
	if c.CandidateName == "" {
		return models.Verdict{
			Outcome: models.OutcomeRejectedNoName,
			Message: "No candidate name provided for verification.",
		}
	}

	urls := o.gen.Candidates(c)
	if len(urls) == 0 {
		return models.Verdict{
			Outcome: models.OutcomeRejectedNoURLs,
			Message: fmt.Sprintf("No verification URL available for organization '%s'.", c.IssuerName),
		}
	}
	if !lo.ContainsBy(urls, o.store.IsTrustedDomain) {
		return models.Verdict{
			Outcome: models.OutcomeRejectedUntrusted,
			Message: "None of the verification URLs are from trusted domains.",
		}
	}
	o.log.Infof("verifying %q against %d candidate URL(s)", c.CandidateName, len(urls))

	limit := rate.Inf
	if o.cfg.ProbeInterval > 0 {
		limit = rate.Every(o.cfg.ProbeInterval)
	}
	pace := rate.NewLimiter(limit, 1)

	var st probeState
	for _, u := range urls {
		if !o.store.IsTrustedDomain(u) {
			o.log.Warnf("skipping untrusted candidate: %s", u)
			continue
		}
		if err := pace.Wait(ctx); err != nil {
			return o.cancelled(st, len(urls), err)
		}
		st.tried++
		o.log.Infof("trying URL: %s", u)

		res := o.fetcher.Fetch(ctx, u)
		switch res.Status {
		case models.FetchNotFound:
			st.notFound++
		case models.FetchBlocked:
			if st.blockedURL == "" {
				st.blockedURL, st.blockCode = u, res.StatusCode
			}
		}
		if !res.HasContent() {
			if ctx.Err() != nil {
				return o.cancelled(st, len(urls), ctx.Err())
			}
			continue
		}

		m := o.match.Match(c.CandidateName, res.Content)
		if m.IsMatch {
			return models.Verdict{
				IsVerified:    true,
				TrustedDomain: true,
				Outcome:       models.OutcomeVerified,
				Message:       fmt.Sprintf("Verified successfully at %s. Name match confidence: %s", u, percent(m.Similarity)),
				Similarity:    m.Similarity,
				URL:           u,
				URLsTried:     st.tried,
			}
		}
		if m.Similarity > st.best {
			st.best, st.bestURL = m.Similarity, u
		}
	}
	return o.conclude(c, st)
}

func (o *Orchestrator) conclude(c models.Claim, st probeState) models.Verdict {
	v := models.Verdict{TrustedDomain: true, URLsTried: st.tried}
	switch {
	case st.best > 0:
		v.Outcome = models.OutcomeMismatch
		v.Similarity, v.URL = st.best, st.bestURL
		v.Message = fmt.Sprintf("Name mismatch. Best similarity: %s. Expected: '%s'. Checked %d URL(s).",
			percent(st.best), c.CandidateName, st.tried)
	case st.blockedURL != "" && o.cfg.SoftPassOnBlock:
		v.IsVerified = true
		v.Outcome = models.OutcomeSoftPass
		v.URL = st.blockedURL
		v.Message = fmt.Sprintf("Verified (trusted source, access blocked): %s refused automated access (HTTP %d); name could not be confirmed.",
			st.blockedURL, st.blockCode)
	case st.tried > 0 && st.notFound == st.tried:
		v.Outcome = models.OutcomeNotFound
		v.Message = fmt.Sprintf("Invalid certificate ID (404 Not Found) at %d verification URL(s).", st.tried)
	default:
		v.Outcome = models.OutcomeExhausted
		v.Message = fmt.Sprintf("Failed to fetch content from any of the %d verification URL(s).", st.tried)
	}
	return v
}

func (o *Orchestrator) cancelled(st probeState, total int, err error) models.Verdict {
	return models.Verdict{
		TrustedDomain: true,
		Outcome:       models.OutcomeExhausted,
		Message:       fmt.Sprintf("Verification cancelled after %d of %d URL(s): %v", st.tried, total, err),
		Similarity:    st.best,
		URL:           st.bestURL,
		URLsTried:     st.tried,
	}
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// AddTrustedDomain registers a manual trust override.
func (o *Orchestrator) AddTrustedDomain(domain string) error {
	return o.store.AddTrustedDomain(domain)
}

// AddOrganization maps an organization to its verification URL and trusts
// that URL's domain.
func (o *Orchestrator) AddOrganization(name, verificationURL string) error {
	return o.store.AddOrganization(name, verificationURL)
}

func (o *Orchestrator) ClearCache() {
	o.fetcher.ClearCache()
}
