// Package app assembles the verification engine from configuration. The
// server and the CLI build the same graph.
package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"certverify/internal/analysis"
	"certverify/internal/config"
	"certverify/internal/crawler"
	"certverify/internal/extractor"
	"certverify/internal/forensics"
	"certverify/internal/llm"
	"certverify/internal/metrics"
	"certverify/internal/ocr"
	"certverify/internal/truststore"
	"certverify/internal/verifier"
	"certverify/pkg/logger"
)

const dialTimeout = 5 * time.Second

type App struct {
	Store    *truststore.Store
	Fetcher  *crawler.Fetcher
	Verifier *verifier.Orchestrator
	Pipeline *analysis.Pipeline
	Metrics  *metrics.Metrics

	overrides *truststore.OverrideDB
}

type Options struct {
	// Registerer receives the metrics collectors; nil disables metrics.
	Registerer prometheus.Registerer
	// OCR overrides the Tesseract engine.
	OCR ocr.Engine
}

func New(cfg config.Config, l *logger.Logger, opts Options) (*App, error) {
	l = logger.OrNop(l)
	a := &App{}

	a.Store = truststore.Load(cfg.TrustCSVPath, truststore.Preset(strings.ToLower(cfg.TrustPreset)), l.With("component", "truststore"))
	if cfg.TrustOverridesDB != "" {
		db, err := truststore.OpenOverrides(cfg.TrustOverridesDB)
		if err != nil {
			return nil, err
		}
		n, err := db.Replay(a.Store)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		l.Infof("replayed %d trust overrides from %s", n, cfg.TrustOverridesDB)
		a.Store.SetPersister(db)
		a.overrides = db
	}

	var rec interface {
		crawler.Recorder
		verifier.Recorder
	}
	if opts.Registerer != nil {
		a.Metrics = metrics.New(opts.Registerer)
		rec = a.Metrics
	}

	static := crawler.NewHTTPClient(cfg.FetchTimeout, dialTimeout, cfg.MaxBodyBytes)
	static.SetRedirectGuard(func(u *url.URL) bool { return a.Store.IsTrustedDomain(u.String()) })

	fopts := crawler.Options{RenderAlways: cfg.RenderAlways, Log: l.With("component", "fetcher")}
	if cfg.RenderEnabled {
		fopts.Renderer = crawler.NewChromeRenderer(cfg.RenderTimeout, cfg.RenderSettle).WithExecPath(cfg.ChromePath)
	}
	vopts := verifier.Options{Log: l.With("component", "verifier")}
	if rec != nil {
		fopts.Recorder = rec
		vopts.Recorder = rec
	}
	a.Fetcher = crawler.NewFetcher(static, fopts)

	a.Verifier = verifier.New(a.Store, a.Fetcher, verifier.Config{
		Threshold:       cfg.MatchThreshold,
		ProbeInterval:   cfg.ProbeInterval,
		SoftPassOnBlock: cfg.SoftPassOnBlock,
	}, vopts)

	heuristic := extractor.New(a.Store)
	var claims extractor.ClaimExtractor = heuristic
	if cfg.LLMAPIKey != "" {
		client := llm.NewClient(llm.Config{
			BaseURL:    cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModel,
			MaxRetries: 3,
		}, l.With("component", "llm"))
		claims = extractor.NewLLMExtractor(client, heuristic, l.With("component", "extractor"))
	}

	engine := opts.OCR
	if engine == nil {
		engine = ocr.NewTesseractEngine(cfg.OCRLanguages, l.With("component", "ocr"))
	}
	a.Pipeline = analysis.New(engine, forensics.NewBasic(), claims, a.Verifier, l.With("component", "analysis"))
	return a, nil
}

func (a *App) Close() error {
	if a.overrides != nil {
		return a.overrides.Close()
	}
	return nil
}
