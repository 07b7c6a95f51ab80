//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"certverify/internal/crawler"
	"certverify/internal/models"
	"certverify/internal/truststore"
	"certverify/internal/verifier"
)

func TestLiveFetchOfTrustedIssuer(t *testing.T) {
	// public Coursera page (subject to change / blocking)
	url := "https://www.coursera.org/about"

	fetcher := crawler.NewFetcher(crawler.NewHTTPClient(25*time.Second, 5*time.Second, 5*1024*1024), crawler.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res := fetcher.Fetch(ctx, url)
	switch res.Status {
	case models.FetchOK:
		if res.Content == "" {
			t.Errorf("expected page text for %s", url)
		}
	case models.FetchBlocked:
		t.Skipf("skipping: %s blocked automated access (HTTP %d)", url, res.StatusCode)
	default:
		t.Skipf("skipping: fetch failed due to network: %s %s", res.Status, res.Err)
	}
}

func TestLiveUnknownCertificateIsNotVerified(t *testing.T) {
	store := truststore.Load("", truststore.PresetSeed, nil)
	fetcher := crawler.NewFetcher(crawler.NewHTTPClient(25*time.Second, 5*time.Second, 5*1024*1024), crawler.Options{})
	o := verifier.New(store, fetcher, verifier.DefaultConfig(), verifier.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	v := o.Verify(ctx, models.Claim{
		CandidateName: "Zzyzx Qwerty Nonexistent",
		CertificateID: "NOTAREALID000000",
		IssuerName:    "Coursera",
		IssuerURL:     "https://www.coursera.org/verify/NOTAREALID000000",
	})
	if !v.TrustedDomain {
		t.Fatalf("coursera.org must be trusted: %+v", v)
	}
	if v.Outcome == models.OutcomeSoftPass {
		t.Skipf("skipping: issuer blocked automated access: %s", v.Message)
	}
	if v.IsVerified {
		t.Errorf("made-up certificate verified: %s", v.Message)
	}
}
