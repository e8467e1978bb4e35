package classifier

import (
	"net"
	"time"

	"github.com/sentryd/sentryd/internal/identity"
)

// GeoCacheStore is the subset of internal/store.Store tier2 needs —
// narrowed to an interface so internal/cache's Redis read-through
// wrapper and the plain SQLite store are interchangeable here.
type GeoCacheStore interface {
	GetGeoCache(ip string) (*GeoCacheEntry, error)
	PutGeoCache(e GeoCacheEntry) error
	GetDomainCache(domain string) (*DomainCacheEntry, error)
	PutDomainCache(e DomainCacheEntry) error
}

// GeoCacheEntry and DomainCacheEntry mirror internal/store's cache row
// shapes. Defined here, rather than imported, so this package has no
// hard dependency on database/sql or the store's migration schema —
// internal/cache adapts between the two at the boundary.
type GeoCacheEntry struct {
	IP          string
	CountryCode string
	CountryName string
	RiskScore   float64
	CachedAt    time.Time
}

type DomainCacheEntry struct {
	Domain      string
	CountryCode string
	RiskScore   float64
	CachedAt    time.Time
}

// geoCacheTTL bounds how long a cached geographic verdict is trusted
// before tier2 re-resolves it, per spec.md §4.5 Tier 2 step 3's
// "TTL-bound" requirement.
const geoCacheTTL = 24 * time.Hour

// offlineGeoTable is the embedded offline IP-to-country table spec.md
// §4.5 Tier 2 step 2 calls for. A handful of illustrative /8 blocks
// rather than a full registry delegation table — no MaxMind or GeoIP
// client exists anywhere in the corpus (see DESIGN.md), so sentryd
// resolves country from the IP's allocating registry block directly.
var offlineGeoTable = []struct {
	block   *net.IPNet
	country string
}{
	{mustCIDR("3.0.0.0/8"), "US"},
	{mustCIDR("13.0.0.0/8"), "US"},
	{mustCIDR("50.0.0.0/8"), "US"},
	{mustCIDR("198.51.100.0/24"), "US"},
	{mustCIDR("203.0.113.0/24"), "AU"},
	{mustCIDR("41.0.0.0/8"), "NG"},
	{mustCIDR("59.0.0.0/8"), "CN"},
	{mustCIDR("77.0.0.0/8"), "RU"},
	{mustCIDR("175.45.176.0/22"), "KP"},
	{mustCIDR("2.0.0.0/8"), "FR"},
	{mustCIDR("62.0.0.0/8"), "GB"},
	{mustCIDR("193.0.0.0/8"), "DE"},
}

func mustCIDR(cidr string) *net.IPNet {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	return n
}

// Tier2 resolves the geographic signal for a message's sender IP and
// combines it with the Tier 1 confidence, never decreasing it — per
// spec.md §4.5 Tier 2 step 6's monotonicity requirement.
type Tier2 struct {
	Cache GeoCacheStore
}

func NewTier2(cache GeoCacheStore) *Tier2 {
	return &Tier2{Cache: cache}
}

// Combine resolves the geographic signal and folds it into tier1Verdict,
// returning the adjusted verdict with Tier set to 2. When no sender IP
// resolves, or the US fast path applies, tier1Verdict is returned
// unchanged.
func (t *Tier2) Combine(in Input, tier1Verdict Verdict) Verdict {
	ip := identity.SenderIP(in.ReceivedChain, in.ExtraIPHeaders)
	if ip == "" {
		return tier1Verdict // no usable IP: geographic signal contributes nothing
	}

	countryCode, risk := t.resolve(in.SenderDomain, ip)

	if IsLegitimateUSDomainFastPath(countryCode, in.PriorPreserved) {
		return tier1Verdict
	}
	if IsSuspiciousRange(ip) {
		risk = clamp01(risk + 0.15)
	}

	combined := clamp01(tier1Verdict.Confidence + (risk-0.5)*0.3)
	if combined < tier1Verdict.Confidence {
		combined = tier1Verdict.Confidence // monotonic non-decreasing in risk
	}

	return Verdict{
		Category:    tier1Verdict.Category,
		Subcategory: tier1Verdict.Subcategory,
		Confidence:  combined,
		Tier:        2,
		Reason:      "geo:" + countryCode,
	}
}

// resolve returns a country code and risk score, preferring a fresh
// DomainCache hit, then a fresh GeoCache hit, then the offline table —
// writing back through the cache on a fresh resolution either way.
func (t *Tier2) resolve(domain, ip string) (countryCode string, risk float64) {
	if t.Cache != nil {
		if entry, err := t.Cache.GetDomainCache(domain); err == nil && entry != nil && time.Since(entry.CachedAt) < geoCacheTTL {
			return entry.CountryCode, entry.RiskScore
		}
		if entry, err := t.Cache.GetGeoCache(ip); err == nil && entry != nil && time.Since(entry.CachedAt) < geoCacheTTL {
			return entry.CountryCode, entry.RiskScore
		}
	}

	countryCode = lookupOfflineCountry(ip)
	risk = CountryRisk(countryCode)

	if t.Cache != nil {
		_ = t.Cache.PutGeoCache(GeoCacheEntry{IP: ip, CountryCode: countryCode, RiskScore: risk, CachedAt: time.Now()})
		if domain != "" {
			_ = t.Cache.PutDomainCache(DomainCacheEntry{Domain: domain, CountryCode: countryCode, RiskScore: risk, CachedAt: time.Now()})
		}
	}
	return countryCode, risk
}

func lookupOfflineCountry(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "XX"
	}
	for _, entry := range offlineGeoTable {
		if entry.block != nil && entry.block.Contains(parsed) {
			return entry.country
		}
	}
	return "XX"
}
