package crawler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"certverify/internal/classifier"
	"certverify/internal/models"
	"certverify/internal/parser"
	"certverify/pkg/logger"
)

const (
	StrategyStatic = "static"
	StrategyRender = "render"
	StrategyCache  = "cache"
)

// Renderer executes a page's scripts and returns the rendered body text.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Recorder receives fetch instrumentation. Implementations must be safe for
// concurrent use.
type Recorder interface {
	FetchDone(strategy string, status models.FetchStatus, d time.Duration)
	CacheHit()
}

type Options struct {
	// Renderer is the fallback strategy; nil disables it.
	Renderer Renderer
	// RenderAlways renders every page instead of only script shells.
	RenderAlways bool
	Recorder     Recorder
	Log          *logger.Logger
}

// Fetcher retrieves page text for a URL and caches successful results for
// its lifetime.
type Fetcher struct {
	static       *HTTPClient
	renderer     Renderer
	renderAlways bool
	parser       *parser.Parser
	classifier   *classifier.Classifier
	cache        *gocache.Cache
	rec          Recorder
	log          *logger.Logger
}

func NewFetcher(static *HTTPClient, opts Options) *Fetcher {
	return &Fetcher{
		static:       static,
		renderer:     opts.Renderer,
		renderAlways: opts.RenderAlways,
		parser:       parser.New(),
		classifier:   classifier.New(),
		cache:        gocache.New(gocache.NoExpiration, 0),
		rec:          opts.Recorder,
		log:          logger.OrNop(opts.Log),
	}
}

// Fetch never returns an error: failures are reported through the result
// status and a result without content.
func (f *Fetcher) Fetch(ctx context.Context, url string) models.FetchResult {
	if v, ok := f.cache.Get(url); ok {
		f.log.Debugf("using cached content for: %s", url)
		if f.rec != nil {
			f.rec.CacheHit()
		}
		res := v.(models.FetchResult)
		res.Cached = true
		return res
	}

	res, shell := f.fetchStatic(ctx, url)

	if f.renderer != nil && res.Status != models.FetchNotFound && (f.renderAlways || shell) {
		if shell {
			f.log.Infof("detected script-rendered page, rendering: %s", url)
		}
		if rendered, ok := f.render(ctx, url); ok && len(rendered.Content) > len(res.Content) {
			res = rendered
		}
	}

	if res.HasContent() {
		f.cache.Set(url, res, gocache.NoExpiration)
	}
	return res
}

func (f *Fetcher) fetchStatic(ctx context.Context, url string) (res models.FetchResult, shell bool) {
	res = models.FetchResult{URL: url, Strategy: StrategyStatic, Status: models.FetchFailed}
	start := time.Now()
	defer func() {
		res.FetchMs = time.Since(start).Milliseconds()
		f.record(StrategyStatic, res.Status, time.Since(start))
	}()

	resp, err := f.static.Fetch(ctx, url)
	if err != nil {
		res.Err = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			f.log.Warnf("timeout fetching url: %s", url)
		} else {
			f.log.Warnf("request error for url %s: %v", url, err)
		}
		return res, false
	}
	res.StatusCode = resp.StatusCode
	res.FinalURL = resp.FinalURL

	class := f.classifier.Classify(resp.StatusCode, string(resp.Body))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		page, err := f.parser.Extract(bytes.NewReader(resp.Body), resp.ContentType)
		if err != nil {
			res.Err = err.Error()
			f.log.Warnf("parse error for url %s: %v", url, err)
			return res, false
		}
		res.Status = models.FetchOK
		res.Content = page.Content.Text
		return res, class.Label == classifier.LabelShell
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		res.Status = models.FetchNotFound
		f.log.Warnf("http %d (not found) for url: %s", resp.StatusCode, url)
	case class.Label == classifier.LabelBlocked:
		res.Status = models.FetchBlocked
		f.log.Warnf("http %d (blocked) for url: %s", resp.StatusCode, url)
	default:
		f.log.Warnf("http %d for url: %s", resp.StatusCode, url)
	}
	return res, false
}

func (f *Fetcher) render(ctx context.Context, url string) (models.FetchResult, bool) {
	start := time.Now()
	text, err := f.renderer.Render(ctx, url)
	res := models.FetchResult{
		URL:      url,
		FinalURL: url,
		Strategy: StrategyRender,
		Status:   models.FetchOK,
		Content:  text,
		FetchMs:  time.Since(start).Milliseconds(),
	}
	if err != nil || text == "" {
		res.Status = models.FetchFailed
		if err != nil {
			res.Err = err.Error()
			f.log.Warnf("render error for url %s: %v", url, err)
		}
	}
	f.record(StrategyRender, res.Status, time.Since(start))
	return res, res.Status == models.FetchOK
}

func (f *Fetcher) record(strategy string, status models.FetchStatus, d time.Duration) {
	if f.rec != nil {
		f.rec.FetchDone(strategy, status, d)
	}
}

// ClearCache drops every cached page.
func (f *Fetcher) ClearCache() {
	f.cache.Flush()
	f.log.Infof("cache cleared")
}

func (f *Fetcher) CacheLen() int { return f.cache.ItemCount() }
