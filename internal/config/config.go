package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	LogLevel string

	ListenAddr string
	AdminToken string

	TrustCSVPath     string
	TrustPreset      string
	TrustOverridesDB string

	FetchTimeout  time.Duration
	MaxBodyBytes  int64
	RenderEnabled bool
	RenderAlways  bool
	RenderTimeout time.Duration
	RenderSettle  time.Duration
	ChromePath    string

	ProbeInterval   time.Duration
	MatchThreshold  float64
	SoftPassOnBlock bool

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	OCRLanguages []string
}

func Default() Config {
	return Config{
		Env:             "production",
		LogLevel:        "info",
		ListenAddr:      ":8080",
		TrustCSVPath:    "data/onlinelist.csv",
		TrustPreset:     "seed",
		FetchTimeout:    15 * time.Second,
		MaxBodyBytes:    5 * 1024 * 1024,
		RenderEnabled:   true,
		RenderTimeout:   20 * time.Second,
		RenderSettle:    2 * time.Second,
		ProbeInterval:   500 * time.Millisecond,
		MatchThreshold:  0.70,
		SoftPassOnBlock: true,
		LLMBaseURL:      "https://api.mistral.ai/v1",
		LLMModel:        "mistral-large-latest",
		OCRLanguages:    []string{"eng"},
	}
}

// Load reads the environment on top of Default. Malformed values keep their
// default; they and a missing LLM key are reported in the returned error,
// which callers may treat as a warning.
func Load() (Config, error) {
	cfg := Default()
	var errs []error
	p := parser{errs: &errs}

	cfg.Env = getenv("CERTVERIFY_ENV", cfg.Env)
	cfg.LogLevel = getenv("CERTVERIFY_LOG_LEVEL", cfg.LogLevel)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	cfg.TrustCSVPath = getenv("TRUST_CSV_PATH", cfg.TrustCSVPath)
	cfg.TrustPreset = getenv("TRUST_PRESET", cfg.TrustPreset)
	cfg.TrustOverridesDB = os.Getenv("TRUST_OVERRIDES_DB")

	cfg.FetchTimeout = p.duration("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.MaxBodyBytes = p.int64("MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.RenderEnabled = p.bool("RENDER_ENABLED", cfg.RenderEnabled)
	cfg.RenderAlways = p.bool("RENDER_ALWAYS", cfg.RenderAlways)
	cfg.RenderTimeout = p.duration("RENDER_TIMEOUT", cfg.RenderTimeout)
	cfg.RenderSettle = p.duration("RENDER_SETTLE", cfg.RenderSettle)
	cfg.ChromePath = os.Getenv("CHROME_PATH")

	cfg.ProbeInterval = p.duration("PROBE_INTERVAL", cfg.ProbeInterval)
	cfg.MatchThreshold = p.float("MATCH_THRESHOLD", cfg.MatchThreshold)
	cfg.SoftPassOnBlock = p.bool("SOFT_PASS_ON_BLOCK", cfg.SoftPassOnBlock)

	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.LLMBaseURL = getenv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMModel = getenv("LLM_MODEL", cfg.LLMModel)

	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		cfg.OCRLanguages = splitList(v)
	}

	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD %v out of range (0,1]", cfg.MatchThreshold))
		cfg.MatchThreshold = Default().MatchThreshold
	}
	if cfg.LLMAPIKey == "" {
		errs = append(errs, errors.New("LLM_API_KEY not set, using heuristic extraction only"))
	}
	return cfg, errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
}

type parser struct {
	errs *[]error
}

func (p parser) fail(key, v string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p parser) int64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}
