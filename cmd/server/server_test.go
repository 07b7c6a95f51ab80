package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certverify/internal/analysis"
	"certverify/internal/models"
	"certverify/pkg/logger"
)

type fakeAnalyzer struct {
	lastText  string
	lastClaim models.Claim
	lastType  string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, filename, contentType string, _ []byte) (models.AnalysisResult, error) {
	f.lastType = contentType
	if !strings.HasPrefix(contentType, "image/") {
		return models.AnalysisResult{}, fmt.Errorf("%w, got %q", analysis.ErrUnsupportedMedia, contentType)
	}
	return models.AnalysisResult{Filename: filename, FinalVerdict: models.FinalVerified}, nil
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) models.AnalysisResult {
	f.lastText = text
	return models.AnalysisResult{FinalVerdict: models.FinalUnverified}
}

func (f *fakeAnalyzer) AnalyzeClaim(_ context.Context, c models.Claim) models.AnalysisResult {
	f.lastClaim = c
	return models.AnalysisResult{FinalVerdict: models.FinalUnverified}
}

type fakeAdmin struct {
	domains []string
	orgs    map[string]string
	cleared bool
}

func (f *fakeAdmin) AddTrustedDomain(d string) error {
	if strings.Contains(d, " ") {
		return fmt.Errorf("invalid domain")
	}
	f.domains = append(f.domains, d)
	return nil
}

func (f *fakeAdmin) AddOrganization(name, u string) error {
	if f.orgs == nil {
		f.orgs = map[string]string{}
	}
	f.orgs[name] = u
	return nil
}

func (f *fakeAdmin) ClearCache() { f.cleared = true }

type fakeStats struct{}

func (fakeStats) Stats() (int, int) { return 3, 12 }

func newTestServer(token string) (*server, *fakeAnalyzer, *fakeAdmin) {
	a, adm := &fakeAnalyzer{}, &fakeAdmin{}
	return &server{analyzer: a, admin: adm, stats: fakeStats{}, adminToken: token, log: logger.Nop()}, a, adm
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer("")
	rec := do(t, s.routes(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","organizations":3,"trustedDomains":12}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func multipartUpload(t *testing.T, contentType string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="cert.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("fake image"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/verify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVerifyUpload(t *testing.T) {
	s, a, _ := newTestServer("")
	req := multipartUpload(t, "image/png")
	req.Header.Set("X-Request-ID", "req-1")

	rec := do(t, s.routes(), req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, "cert.png", res.Filename)
	assert.Equal(t, "image/png", a.lastType)

	rec = do(t, s.routes(), multipartUpload(t, "application/pdf"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = do(t, s.routes(), httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyTextAndClaim(t *testing.T) {
	s, a, _ := newTestServer("")
	rec := do(t, s.routes(), httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(`{"text":"John Doe has completed"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "John Doe has completed", a.lastText)

	rec = do(t, s.routes(), httptest.NewRequest(http.MethodPost, "/verify/text", strings.NewReader(`{"text":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.routes(), httptest.NewRequest(http.MethodPost, "/verify/claim",
		strings.NewReader(`{"candidateName":"John Doe","issuerUrl":"https://coursera.org/verify/1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Claim{CandidateName: "John Doe", IssuerURL: "https://coursera.org/verify/1"}, a.lastClaim)
}

func TestAdminRoutes(t *testing.T) {
	s, _, adm := newTestServer("secret")
	h := s.routes()

	req := httptest.NewRequest(http.MethodPost, "/admin/trust/domains", strings.NewReader(`{"domain":"acme.example"}`))
	assert.Equal(t, http.StatusUnauthorized, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/trust/domains", strings.NewReader(`{"domain":"acme.example"}`))
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusCreated, do(t, h, req).Code)
	assert.Equal(t, []string{"acme.example"}, adm.domains)

	req = httptest.NewRequest(http.MethodPost, "/admin/trust/domains", strings.NewReader(`{"domain":"bad domain"}`))
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/trust/organizations",
		strings.NewReader(`{"organizationName":"Acme","verificationUrl":"https://acme.example/verify"}`))
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusCreated, do(t, h, req).Code)
	assert.Equal(t, "https://acme.example/verify", adm.orgs["Acme"])

	req = httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusNoContent, do(t, h, req).Code)
	assert.True(t, adm.cleared)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	s, _, adm := newTestServer("")
	req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, http.StatusNotFound, do(t, s.routes(), req).Code)
	assert.False(t, adm.cleared)
}
