package cache

import (
	"testing"
	"time"

	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/store"
)

// fakeBacking is an in-memory stand-in for internal/store.Store's cache
// tables, used so these tests exercise Cache's passthrough and
// write-through logic without a running SQLite or Redis instance.
type fakeBacking struct {
	geo    map[string]store.GeoCacheEntry
	domain map[string]store.DomainCacheEntry
	gets   int
	puts   int
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{geo: map[string]store.GeoCacheEntry{}, domain: map[string]store.DomainCacheEntry{}}
}

func (f *fakeBacking) GetGeoCache(ip string) (*store.GeoCacheEntry, error) {
	f.gets++
	if e, ok := f.geo[ip]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *fakeBacking) PutGeoCache(e store.GeoCacheEntry) error {
	f.puts++
	f.geo[e.IP] = e
	return nil
}

func (f *fakeBacking) GetDomainCache(domain string) (*store.DomainCacheEntry, error) {
	f.gets++
	if e, ok := f.domain[domain]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *fakeBacking) PutDomainCache(e store.DomainCacheEntry) error {
	f.puts++
	f.domain[e.Domain] = e
	return nil
}

// With no Redis client, Cache is a direct passthrough to the backing store.
func TestWithNoRedisClientReadsAndWritesPassThrough(t *testing.T) {
	backing := newFakeBacking()
	c := New(nil, backing, time.Hour, nil)

	if err := c.PutGeoCache(classifier.GeoCacheEntry{IP: "1.2.3.4", CountryCode: "RU", RiskScore: 0.8}); err != nil {
		t.Fatalf("PutGeoCache() error: %v", err)
	}
	got, err := c.GetGeoCache("1.2.3.4")
	if err != nil {
		t.Fatalf("GetGeoCache() error: %v", err)
	}
	if got == nil || got.CountryCode != "RU" {
		t.Errorf("GetGeoCache() = %+v, want country RU", got)
	}
	if backing.puts != 1 || backing.gets != 1 {
		t.Errorf("backing puts/gets = %d/%d, want 1/1", backing.puts, backing.gets)
	}
}

func TestGetGeoCacheMissReturnsNilWithoutError(t *testing.T) {
	c := New(nil, newFakeBacking(), time.Hour, nil)
	got, err := c.GetGeoCache("9.9.9.9")
	if err != nil {
		t.Fatalf("GetGeoCache() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetGeoCache() = %+v, want nil on miss", got)
	}
}

func TestDomainCacheRoundTripsThroughBacking(t *testing.T) {
	backing := newFakeBacking()
	c := New(nil, backing, time.Hour, nil)

	if err := c.PutDomainCache(classifier.DomainCacheEntry{Domain: "example.top", CountryCode: "CN", RiskScore: 0.95}); err != nil {
		t.Fatalf("PutDomainCache() error: %v", err)
	}
	got, err := c.GetDomainCache("example.top")
	if err != nil {
		t.Fatalf("GetDomainCache() error: %v", err)
	}
	if got == nil || got.RiskScore != 0.95 {
		t.Errorf("GetDomainCache() = %+v, want risk 0.95", got)
	}
}

func TestNewDefaultsZeroTTLToOneHour(t *testing.T) {
	c := New(nil, newFakeBacking(), 0, nil)
	if c.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h default", c.ttl)
	}
}
