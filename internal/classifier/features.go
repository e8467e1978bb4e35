package classifier

import (
	"math"
	"strings"
)

// FeatureCount is the width of the feature vector the tier1 ensemble
// votes over (spec.md §4.5: "67-dimensional feature vector"), grouped
// into six axes. Each axis gets 10-12 slots; unused slots in a given
// message are left at zero rather than omitted, so NaiveBayesModel and
// RandomForestModel can both be trained against a fixed-width vector.
const FeatureCount = 67

// Feature axis boundaries. Kept as named offsets rather than a struct
// so untrained axes stay cheap to iterate in the ensemble's hot path.
const (
	axisDomainStart         = 0  // 0..10
	axisContentStart        = 11 // 11..21
	axisAuthenticationStart = 22 // 22..32
	axisStructuralStart     = 33 // 33..43
	axisProviderStart       = 44 // 44..54
	axisBehavioralStart     = 55 // 55..66
)

// ExtractFeatures builds the fixed-width feature vector for in. Every
// slot is a float in [0,1] so the ensemble's weighted vote and the
// random forest's threshold splits share one scale.
func ExtractFeatures(in Input) [FeatureCount]float64 {
	var f [FeatureCount]float64

	domain := strings.ToLower(in.SenderDomain)
	subject := in.Subject

	// Domain axis.
	f[axisDomainStart+0] = clamp01(float64(len(domain)) / 40)
	f[axisDomainStart+1] = boolFeature(hasBlacklistedTLD(domain))
	f[axisDomainStart+2] = clamp01(shannonEntropy(secondLevelLabel(domain)) / 4.5)
	f[axisDomainStart+3] = clamp01(digitRatio(domain))
	f[axisDomainStart+4] = clamp01(float64(strings.Count(domain, "-")) / 3)
	f[axisDomainStart+5] = boolFeature(strings.Count(domain, ".") >= 3)

	// Content axis (subject only — no body is ever fetched).
	f[axisContentStart+0] = clamp01(float64(len(subject)) / 120)
	f[axisContentStart+1] = clamp01(shannonEntropy(subject) / 4.5)
	f[axisContentStart+2] = boolFeature(containsAdultKeyword(subject))
	f[axisContentStart+3] = boolFeature(containsAbuseKeyword(subject))
	f[axisContentStart+4] = clamp01(float64(strings.Count(subject, "!")) / 3)
	f[axisContentStart+5] = boolFeature(strings.ToUpper(subject) == subject && len(subject) > 8)
	f[axisContentStart+6] = clamp01(float64(countWarningGlyphs(subject)) / 3)

	// Authentication axis.
	f[axisAuthenticationStart+0] = boolFeature(in.AuthPass)
	f[axisAuthenticationStart+1] = boolFeature(in.HasDeleteFlag)

	// Structural axis: derived from the Received chain shape.
	f[axisStructuralStart+0] = clamp01(float64(len(in.ReceivedChain)) / 8)
	f[axisStructuralStart+1] = boolFeature(len(in.ExtraIPHeaders) > 0)

	// Provider axis: sender-local-part shape, a cheap proxy for
	// auto-generated or randomized mailbox names without fetching
	// anything beyond the envelope already in hand.
	local := localPart(in.Sender)
	f[axisProviderStart+0] = clamp01(digitRatio(local))
	f[axisProviderStart+1] = clamp01(float64(len(local)) / 30)

	// Behavioral axis: prior relationship with the sending domain.
	f[axisBehavioralStart+0] = clamp01(float64(in.PriorPreserved) / 10)
	f[axisBehavioralStart+1] = boolFeature(matchesDigestPattern(subject))

	return f
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(s))
}

func localPart(address string) string {
	if i := strings.IndexByte(address, '@'); i >= 0 {
		return address[:i]
	}
	return address
}

func countWarningGlyphs(s string) int {
	glyphs := []string{"⚠", "🚨", "❗", "‼"}
	n := 0
	for _, g := range glyphs {
		n += strings.Count(s, g)
	}
	return n
}

// shannonEntropy computes the Shannon entropy, in bits, of s's byte
// distribution — used both for the subject's content-sophistication
// score and the domain's gibberish test.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[byte]int, len(s))
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
