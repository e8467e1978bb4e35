package store

import "testing"

func TestDomainCacheRoundTrip(t *testing.T) {
	s := testStore(t)

	entry := DomainCacheEntry{
		Domain: "suspect.tld", Reputation: "malicious", CountryCode: "XX",
		CountryName: "Nowhere", RiskScore: 0.9, Registrar: "shadowreg",
	}
	if err := s.PutDomainCache(entry); err != nil {
		t.Fatalf("PutDomainCache() error: %v", err)
	}

	got, err := s.GetDomainCache("suspect.tld")
	if err != nil {
		t.Fatalf("GetDomainCache() error: %v", err)
	}
	if got == nil || got.Reputation != "malicious" || got.RiskScore != 0.9 {
		t.Errorf("GetDomainCache() = %+v, want reputation=malicious risk=0.9", got)
	}
}

func TestDomainCacheMissing(t *testing.T) {
	s := testStore(t)

	got, err := s.GetDomainCache("unseen.tld")
	if err != nil {
		t.Fatalf("GetDomainCache() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetDomainCache() = %+v, want nil", got)
	}
}

func TestGeoCacheRoundTrip(t *testing.T) {
	s := testStore(t)

	entry := GeoCacheEntry{IP: "203.0.113.5", CountryCode: "RU", CountryName: "Russia", RiskScore: 0.6}
	if err := s.PutGeoCache(entry); err != nil {
		t.Fatalf("PutGeoCache() error: %v", err)
	}

	got, err := s.GetGeoCache("203.0.113.5")
	if err != nil {
		t.Fatalf("GetGeoCache() error: %v", err)
	}
	if got == nil || got.CountryCode != "RU" {
		t.Errorf("GetGeoCache() = %+v, want country_code=RU", got)
	}
}

func TestPutDomainCacheUpsert(t *testing.T) {
	s := testStore(t)

	if err := s.PutDomainCache(DomainCacheEntry{Domain: "d.com", Reputation: "unknown"}); err != nil {
		t.Fatalf("PutDomainCache(1) error: %v", err)
	}
	if err := s.PutDomainCache(DomainCacheEntry{Domain: "d.com", Reputation: "trusted"}); err != nil {
		t.Fatalf("PutDomainCache(2) error: %v", err)
	}

	got, err := s.GetDomainCache("d.com")
	if err != nil {
		t.Fatalf("GetDomainCache() error: %v", err)
	}
	if got.Reputation != "trusted" {
		t.Errorf("GetDomainCache().Reputation = %q, want trusted after upsert", got.Reputation)
	}
}
