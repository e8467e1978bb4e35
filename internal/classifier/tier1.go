package classifier

import "strings"

// Tier1 runs the instant classification pass of spec.md §4.5: a
// sequence of short-circuiting rule checks (adult keywords, TLD
// blacklist, gibberish domains, warranty/insurance spam phrasing),
// then the ensemble vote, then the vendor-relationship heuristic —
// first match wins, unless the match's confidence is below
// confidenceConsultTier2.
type Tier1 struct {
	Ensemble *Ensemble
}

// NewTier1 builds a Tier1 pass with a freshly-seeded ensemble. Callers
// that have a live trained model (via internal/registry) should
// replace t.Ensemble after construction.
func NewTier1() *Tier1 {
	return &Tier1{
		Ensemble: &Ensemble{
			NaiveBayes:   &NaiveBayesModel{},
			RandomForest: &RandomForestModel{},
			Keyword:      DefaultKeywordProcessor(),
		},
	}
}

// Classify runs the Tier 1 sub-steps in order. obvious reports whether
// the verdict is one of the short-circuit categories that skip Tier 2
// entirely when confidence clears confidenceConsultTier2.
func (t *Tier1) Classify(in Input) (verdict Verdict, obvious bool) {
	if in.AuthPass && !in.HasDeleteFlag {
		return Verdict{Category: CategoryLegitimate, Confidence: 1.0, Tier: 1, Reason: "auth-pass"}, true
	}

	if containsAdultKeyword(in.Subject) {
		return Verdict{Category: CategoryDangerous, Subcategory: "adult content", Confidence: 0.97, Tier: 1, Reason: "adult-keyword"}, true
	}

	if hasBlacklistedTLD(strings.ToLower(in.SenderDomain)) {
		subcategory := "blacklisted TLD"
		if isPrizeFraud(in.Subject) {
			subcategory = "Prize fraud"
		}
		return Verdict{Category: CategoryScams, Subcategory: subcategory, Confidence: 0.95, Tier: 1, Reason: "tld-blacklist"}, true
	}

	if IsGibberishDomain(in.SenderDomain) {
		return Verdict{Category: CategoryCommercialSpam, Subcategory: "gibberish domain", Confidence: 0.90, Tier: 1, Reason: "gibberish-domain"}, true
	}

	if isAutoWarrantySpam(in.Subject) {
		return Verdict{Category: CategoryCommercialSpam, Subcategory: "Auto warranty & insurance", Confidence: 0.95, Tier: 1, Reason: "warranty-keyword"}, true
	}

	features := ExtractFeatures(in)
	spamScore := t.Ensemble.Vote(features, in.Subject)

	if in.PriorPreserved >= 3 && matchesDigestPattern(in.Subject) {
		return Verdict{Category: CategoryTransactional, Subcategory: "digest", Confidence: 0.85, Tier: 1, Reason: "vendor-history"}, false
	}

	if spamScore >= confidenceConsultTier2 {
		return Verdict{Category: CategoryCommercialSpam, Confidence: spamScore, Tier: 1, Reason: "ensemble"}, false
	}

	return Verdict{Category: CategoryLegitimate, Confidence: 1 - spamScore, Tier: 1, Reason: "ensemble"}, false
}
