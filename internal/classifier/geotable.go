package classifier

import "net"

// countryRisk is the non-exhaustive, tunable country risk table spec.md
// §4.5 Tier 2 step 4 describes: very-high risk countries score ≥0.85,
// medium-high ones score ≥0.70 and require additional corroborating
// factors before they move the needle.
var countryRisk = map[string]float64{
	"RU": 0.90, "CN": 0.88, "NG": 0.87, "KP": 0.95,
	"RO": 0.72, "UA": 0.71, "BD": 0.70,
	"US": 0.10, "CA": 0.12, "GB": 0.15, "DE": 0.15, "AU": 0.15, "FR": 0.15,
}

// CountryRisk returns the configured risk score for a two-letter
// country code, or a neutral 0.5 for anything not in the table.
func CountryRisk(countryCode string) float64 {
	if r, ok := countryRisk[countryCode]; ok {
		return r
	}
	return 0.5
}

// IsLegitimateUSDomainFastPath reports whether a domain qualifies for
// the US fast path of spec.md §4.5 Tier 2 step 4: a sender resolved to
// "US" with at least one prior PRESERVED message from its domain never
// gets its confidence adjusted by the geographic signal. The domain
// name itself (.gov/.edu/.mil or otherwise) is not consulted.
func IsLegitimateUSDomainFastPath(countryCode string, priorPreserved int) bool {
	return countryCode == "US" && priorPreserved > 0
}

// suspiciousRanges is the known botnet / Tor exit / VPN-spam CIDR
// table from spec.md §4.5 Tier 2 step 5. A short illustrative set —
// production deployments would refresh this from an external feed,
// which is out of scope for sentryd's offline tier2 pass.
var suspiciousRanges = mustParseCIDRs([]string{
	"185.220.100.0/22", // known Tor exit range
	"45.155.204.0/24",  // documented VPN-spam range
	"194.165.16.0/24",  // documented botnet C2 range
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsSuspiciousRange reports whether ip falls in a known-bad range.
func IsSuspiciousRange(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range suspiciousRanges {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
