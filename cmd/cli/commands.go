package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"certverify/internal/app"
	"certverify/internal/config"
	"certverify/internal/ioformats"
	"certverify/internal/models"
	"certverify/pkg/logger"
)

// commonFlags override the environment configuration when set.
type commonFlags struct {
	trustCSV      string
	output        string
	render        bool
	probeInterval time.Duration
	threshold     float64
	softPass      bool
	verbose       bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	def := config.Default()
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.trustCSV, "trust-csv", def.TrustCSVPath, "trust table CSV (env TRUST_CSV_PATH)")
	pf.StringVarP(&f.output, "output", "o", "", "output NDJSON file (default stdout)")
	pf.BoolVar(&f.render, "render", def.RenderEnabled, "allow the headless browser fallback (env RENDER_ENABLED)")
	pf.DurationVar(&f.probeInterval, "probe-interval", def.ProbeInterval, "pause between probes (env PROBE_INTERVAL)")
	pf.Float64Var(&f.threshold, "threshold", def.MatchThreshold, "name match threshold (env MATCH_THRESHOLD)")
	pf.BoolVar(&f.softPass, "soft-pass-on-block", def.SoftPassOnBlock, "accept trusted sites that block automated access (env SOFT_PASS_ON_BLOCK)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log progress to stderr")
}

// build loads the environment and applies the flags the user set explicitly.
func (f *commonFlags) build(cmd *cobra.Command) (*app.App, func(), error) {
	cfg, cfgErr := config.Load()
	pf := cmd.Flags()
	if pf.Changed("trust-csv") {
		cfg.TrustCSVPath = f.trustCSV
	}
	if pf.Changed("render") {
		cfg.RenderEnabled = f.render
	}
	if pf.Changed("probe-interval") {
		cfg.ProbeInterval = f.probeInterval
	}
	if pf.Changed("threshold") {
		cfg.MatchThreshold = f.threshold
	}
	if pf.Changed("soft-pass-on-block") {
		cfg.SoftPassOnBlock = f.softPass
	}

	l := logger.Nop()
	if f.verbose {
		l = logger.NewWithOptions("development", cfg.LogLevel)
		if cfgErr != nil {
			l.Warnf("config: %v", cfgErr)
		}
	}
	a, err := app.New(cfg, l, app.Options{})
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Close(); l.Sync() }, nil
}

func (f *commonFlags) writer() (io.Writer, func(), error) {
	if f.output == "" {
		return os.Stdout, func() {}, nil
	}
	out, err := os.Create(f.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return out, func() { _ = out.Close() }, nil
}

func (f *commonFlags) emit(results []models.AnalysisResult) error {
	w, done, err := f.writer()
	if err != nil {
		return err
	}
	defer done()
	return ioformats.WriteNDJSON(w, results)
}

func newTextCmd(flags *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "text <file>",
		Short: "Verify a certificate from OCR text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			a, closeFn, err := flags.build(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			res := a.Pipeline.AnalyzeText(cmd.Context(), string(text))
			res.Filename = filepath.Base(args[0])
			return flags.emit([]models.AnalysisResult{res})
		},
	}
}

func newImageCmd(flags *commonFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "image <file>",
		Short: "Run forensics, OCR, extraction and verification on a certificate image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			a, closeFn, err := flags.build(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := a.Pipeline.Analyze(cmd.Context(), filepath.Base(args[0]), contentType(args[0], data), data)
			if err != nil {
				return err
			}
			return flags.emit([]models.AnalysisResult{res})
		},
	}
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func newBatchCmd(flags *commonFlags) *cobra.Command {
	var (
		input       string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Verify claims from an NDJSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("missing --input")
			}
			claims, err := ioformats.ReadClaims(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			a, closeFn, err := flags.build(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return flags.emit(verifyAll(cmd.Context(), a, claims, concurrency))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "NDJSON file with one claim per line")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "claims verified in parallel")
	return cmd
}

// verifyAll keeps the input order. Probes within one claim stay sequential.
func verifyAll(ctx context.Context, a *app.App, claims []models.Claim, concurrency int) []models.AnalysisResult {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]models.AnalysisResult, len(claims))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, c := range claims {
		i, c := i, c
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func() {
			defer func() { <-sem; wg.Done() }()
			results[i] = a.Pipeline.AnalyzeClaim(ctx, c)
		}()
	}
	wg.Wait()
	return results
}
