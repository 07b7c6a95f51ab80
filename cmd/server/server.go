package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"certverify/internal/analysis"
	"certverify/internal/models"
	"certverify/pkg/logger"
)

const (
	maxUpload     = 32 << 20
	verifyTimeout = 90 * time.Second
)

type analyzer interface {
	Analyze(ctx context.Context, filename, contentType string, image []byte) (models.AnalysisResult, error)
	AnalyzeText(ctx context.Context, text string) models.AnalysisResult
	AnalyzeClaim(ctx context.Context, c models.Claim) models.AnalysisResult
}

type trustAdmin interface {
	AddTrustedDomain(domain string) error
	AddOrganization(name, verificationURL string) error
	ClearCache()
}

type trustStats interface {
	Stats() (organizations, domains int)
}

type server struct {
	analyzer   analyzer
	admin      trustAdmin
	stats      trustStats
	metrics    http.Handler
	adminToken string
	log        *logger.Logger
}

type ctxKey struct{}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(logRequest(s.log))

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Post("/verify", s.verifyUpload)
	r.Post("/verify/text", s.verifyText)
	r.Post("/verify/claim", s.verifyClaim)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/trust/domains", s.addDomain)
		r.Post("/trust/organizations", s.addOrganization)
		r.Delete("/cache", s.clearCache)
	})
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	orgs, domains := s.stats.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"organizations":  orgs,
		"trustedDomains": domains,
	})
}

func (s *server) verifyUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "multipart parse error")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part 'file' required")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), verifyTimeout)
	defer cancel()
	res, err := s.analyzer.Analyze(ctx, hdr.Filename, hdr.Header.Get("Content-Type"), data)
	if errors.Is(err, analysis.ErrUnsupportedMedia) {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if err != nil {
		s.log.Errorf("analyze %s: %v", hdr.Filename, err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	res.RequestID = requestIDFrom(r.Context())
	writeJSON(w, http.StatusOK, res)
}

type textReq struct {
	Text string `json:"text"`
}

func (s *server) verifyText(w http.ResponseWriter, r *http.Request) {
	var req textReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), verifyTimeout)
	defer cancel()
	res := s.analyzer.AnalyzeText(ctx, req.Text)
	res.RequestID = requestIDFrom(r.Context())
	writeJSON(w, http.StatusOK, res)
}

func (s *server) verifyClaim(w http.ResponseWriter, r *http.Request) {
	var c models.Claim
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), verifyTimeout)
	defer cancel()
	res := s.analyzer.AnalyzeClaim(ctx, c)
	res.RequestID = requestIDFrom(r.Context())
	writeJSON(w, http.StatusOK, res)
}

type domainReq struct {
	Domain string `json:"domain"`
}

func (s *server) addDomain(w http.ResponseWriter, r *http.Request) {
	var req domainReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.admin.AddTrustedDomain(req.Domain); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *server) addOrganization(w http.ResponseWriter, r *http.Request) {
	var req models.TrustEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrganizationName == "" || req.VerificationURL == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.admin.AddOrganization(req.OrganizationName, req.VerificationURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.admin.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin hides the admin routes entirely when no token is configured.
func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func logRequest(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Infof("%s %s %d %s id=%s", r.Method, r.URL.Path, ww.Status(), time.Since(start), requestIDFrom(r.Context()))
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
