// Package classifier implements sentryd's three-tier spam
// classification pipeline: an instant rule-and-ensemble pass (tier1),
// a geographic signal pass invoked only on low confidence (tier2),
// and a strategic multi-dimension scorer invoked only when both prior
// tiers remain unsure (tier3). Each tier returns the same contract so
// the processing controller never needs to know which one produced a
// verdict.
package classifier

// Verdict is the result of classifying one message: a category, an
// optional subcategory, a confidence in [0,1], the tier that produced
// it, and a short machine-readable reason for the decision.
type Verdict struct {
	Category    string
	Subcategory string
	Confidence  float64
	Tier        int
	Reason      string
	Fallback    bool // set when tier3 hit its timeout and fell back to the tier1 verdict
}

// Category is the closed set of top-level verdict categories spec.md
// §4.5 and its worked examples name.
const (
	CategoryLegitimate  = "Legitimate"
	CategoryTransactional = "Transactional"
	CategoryCommercialSpam = "Commercial Spam"
	CategoryScams       = "Scams"
	CategoryDangerous   = "Dangerous"
	CategoryMarketing   = "Legitimate Marketing / Newsletter"
)

// confidenceConsultTier2 is the threshold below which tier1 hands off
// to tier2 instead of returning immediately (spec.md §4.5 Tier 1 step).
const confidenceConsultTier2 = 0.7

// Input is everything the classifier needs about a message. It never
// carries a body — sentryd classifies on sender, subject, and header
// metadata alone.
type Input struct {
	MessageID      string
	Sender         string
	SenderDomain   string
	Subject        string
	ReceivedChain  []string
	ExtraIPHeaders map[string]string
	AuthPass       bool // SPF/DKIM/DMARC aligned pass for a domain the account configuration trusts
	HasDeleteFlag  bool
	PriorPreserved int // count of prior PRESERVED messages from SenderDomain
}
