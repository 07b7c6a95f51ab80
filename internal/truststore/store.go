// Package truststore indexes the organizations that issue certificates and the
// domains their verification pages live on.
package truststore

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"certverify/internal/ioformats"
	"certverify/internal/models"
	"certverify/pkg/logger"
)

var ErrInvalidURL = errors.New("invalid url")

// Preset selects the built-in domains merged into every store.
type Preset string

const (
	PresetSeed Preset = "seed"
	PresetNone Preset = "none"
)

// SeedDomains are trusted even when the trust table cannot be read.
var SeedDomains = []string{
	"udemy.com", "coursera.org", "edx.org", "linkedin.com",
	"credential.net", "credly.com", "youracclaim.com",
	"accredible.com", "certmetrics.com", "ude.my",
}

// Persister records manual trust additions so they survive a restart.
type Persister interface {
	PutDomain(domain string) error
	PutOrganization(name, verificationURL string) error
}

// Store is safe for concurrent use. Reads take a shared lock.
type Store struct {
	mu      sync.RWMutex
	domains map[string]struct{}
	orgs    map[string]string
	names   []string
	persist Persister
	log     *logger.Logger
}

func New(l *logger.Logger) *Store {
	return &Store{
		domains: map[string]struct{}{},
		orgs:    map[string]string{},
		log:     logger.OrNop(l),
	}
}

// Load builds a store from the trust table at path. A missing or unreadable
// table is logged and the store degrades to the preset domains.
func Load(path string, preset Preset, l *logger.Logger) *Store {
	s := New(l)
	if path != "" {
		entries, err := ioformats.ReadTrustTable(path)
		if err != nil {
			s.log.Errorf("trust table %s unavailable, using built-in domains: %v", path, err)
		} else {
			s.LoadEntries(entries)
		}
	}
	if preset != PresetNone {
		for _, d := range SeedDomains {
			s.domains[d] = struct{}{}
		}
	}
	orgs, domains := s.Stats()
	s.log.Infof("trust store ready: %d organizations, %d domains", orgs, domains)
	return s
}

// LoadEntries registers every entry with a usable URL.
func (s *Store) LoadEntries(entries []models.TrustEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if err := s.addLocked(e.OrganizationName, e.VerificationURL); err != nil {
			s.log.Warnf("skipping trust entry %q: %v", e.VerificationURL, err)
		}
	}
}

func (s *Store) addLocked(name, rawURL string) error {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	host, err := hostOf(u)
	if err != nil {
		return err
	}
	s.domains[RegistrableDomain(host)] = struct{}{}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	key := strings.ToLower(name)
	if _, ok := s.orgs[key]; !ok {
		s.names = append(s.names, name)
	}
	s.orgs[key] = u
	return nil
}

// IsTrustedDomain reports whether the host of rawURL is a trusted domain or a
// subdomain of one. Matching is done on parsed host labels only.
func (s *Store) IsTrustedDomain(rawURL string) bool {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	host, err := hostOf(u)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchLocked(host)
}

func (s *Store) matchLocked(host string) bool {
	for h := host; h != ""; {
		if _, ok := s.domains[h]; ok {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return false
}

// LookupBaseURL returns the normalized verification URL registered for an
// organization. The lookup ignores case.
func (s *Store) LookupBaseURL(organization string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(organization))
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.orgs[key]
	return u, ok
}

// AddTrustedDomain accepts a bare domain or a URL.
func (s *Store) AddTrustedDomain(domain string) error {
	d := strings.TrimSpace(domain)
	if strings.Contains(d, "://") {
		host, err := hostOf(d)
		if err != nil {
			return err
		}
		d = host
	}
	d = strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(d, ".")), "www.")
	if d == "" || strings.ContainsAny(d, "/ ?#") {
		return fmt.Errorf("%w: domain %q", ErrInvalidURL, domain)
	}
	s.mu.Lock()
	s.domains[d] = struct{}{}
	p := s.persist
	s.mu.Unlock()
	s.log.Infof("added trusted domain: %s", d)
	if p != nil {
		return p.PutDomain(d)
	}
	return nil
}

func (s *Store) AddOrganization(name, verificationURL string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("organization name is required")
	}
	s.mu.Lock()
	err := s.addLocked(name, verificationURL)
	p := s.persist
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.log.Infof("added organization: %s -> %s", name, verificationURL)
	if p != nil {
		return p.PutOrganization(name, verificationURL)
	}
	return nil
}

// SetPersister makes later Add calls durable.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	s.persist = p
	s.mu.Unlock()
}

// Organizations returns display names in the order they were registered.
func (s *Store) Organizations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

func (s *Store) Domains() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *Store) Stats() (organizations, domains int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), len(s.domains)
}

// NormalizeURL trims raw and adds https:// when no scheme is present.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		u = "https://" + u
	}
	return u, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, rawURL)
	}
	return strings.TrimPrefix(host, "www."), nil
}

// RegistrableDomain reduces host to its registrable domain (eTLD+1). IP
// addresses and hosts without a public suffix are returned unchanged.
func RegistrableDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}
