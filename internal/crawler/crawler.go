package crawler

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BrowserUserAgent is presented on every request; many issuer sites reject
// obvious bots outright.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CacheBustParam is appended to every static request.
const CacheBustParam = "_t"

var ErrRedirectRefused = errors.New("redirect refused")

type HTTPClient struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
	now       func() time.Time
	allow     func(*url.URL) bool
}

type Response struct {
	StatusCode  int
	FinalURL    string
	ContentType string
	Body        []byte
	Elapsed     time.Duration
}

func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	h := &HTTPClient{
		sizeCap:   sizeCap,
		userAgent: BrowserUserAgent,
		now:       time.Now,
	}
	h.client = &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: h.checkRedirect,
	}
	return h
}

// SetRedirectGuard restricts which hosts a redirect may lead to. Requests to
// hosts rejected by allow fail with ErrRedirectRefused.
func (h *HTTPClient) SetRedirectGuard(allow func(*url.URL) bool) {
	h.allow = allow
}

func (h *HTTPClient) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if h.allow != nil && !h.allow(req.URL) {
		return fmt.Errorf("%w: %s", ErrRedirectRefused, req.URL.Host)
	}
	return nil
}

// Fetch issues a GET with browser-like headers. Non-2xx responses are returned
// rather than treated as errors so callers can tell them apart; err is only set
// for transport failures.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	start := h.now()
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatInt(h.now().Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	// enforce a size cap
	data, err := io.ReadAll(io.LimitReader(body, h.sizeCap))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
		Elapsed:     h.now().Sub(start),
	}, nil
}
