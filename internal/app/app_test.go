package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/config"
	"certverify/internal/models"
	"certverify/internal/ocr"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	csv := filepath.Join(dir, "onlinelist.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Organization Name,Verification URL\nGreat Learning,https://olympus.mygreatlearning.com/courses\n"), 0o644))

	cfg := config.Default()
	cfg.TrustCSVPath = csv
	cfg.TrustOverridesDB = filepath.Join(dir, "overrides.db")
	cfg.RenderEnabled = false
	cfg.ProbeInterval = 0
	return cfg
}

func TestNewWiresStoreAndOverrides(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, nil, Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.True(t, a.Store.IsTrustedDomain("https://olympus.mygreatlearning.com/x"))
	assert.True(t, a.Store.IsTrustedDomain("https://coursera.org/verify/1"))
	assert.NotNil(t, a.Metrics)

	require.NoError(t, a.Verifier.AddTrustedDomain("acme.example"))
	require.NoError(t, a.Close())

	again, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	defer again.Close()
	assert.True(t, again.Store.IsTrustedDomain("https://learn.acme.example/c/1"))
	assert.Nil(t, again.Metrics)
}

func TestPipelineRejectsClaimWithoutName(t *testing.T) {
	cfg := testConfig(t)
	cfg.TrustOverridesDB = ""
	a, err := New(cfg, nil, Options{OCR: ocr.EngineFunc(func(context.Context, []byte) (string, error) {
		return "Coursera\nCertificate ID: 1234567890", nil
	})})
	require.NoError(t, err)

	res, err := a.Pipeline.Analyze(context.Background(), "c.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRejectedNoName, res.Verification.Outcome)
	assert.Equal(t, models.FinalUnverified, res.FinalVerdict)
	assert.Equal(t, 0, a.Fetcher.CacheLen())
}
