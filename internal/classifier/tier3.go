package classifier

import (
	"context"
	"strings"
	"time"
)

// tier3Budget is the hard 5s timeout spec.md §4.5 Tier 3 requires.
const tier3Budget = 5 * time.Second

// DimensionWeights are the weights applied across Tier 3's five
// scoring dimensions. Sums to 1.0 in the default set. They are not
// loaded from any model version, and neither the registry nor a
// retrain cycle changes them.
type DimensionWeights struct {
	Authentication      float64
	BusinessLegitimacy  float64
	ContentSophistication float64
	Geographic          float64
	Network             float64
}

// DefaultDimensionWeights is the weight set NewTier3 installs.
func DefaultDimensionWeights() DimensionWeights {
	return DimensionWeights{
		Authentication:        0.25,
		BusinessLegitimacy:    0.20,
		ContentSophistication: 0.20,
		Geographic:            0.20,
		Network:               0.15,
	}
}

// Tier3 is the strategic classifier: a five-dimension weighted scorer
// invoked only when Tiers 1 and 2 remain unsure. Always terminates —
// Score enforces the budget itself rather than trusting the caller's
// context to carry a deadline.
type Tier3 struct {
	Weights DimensionWeights
}

func NewTier3() *Tier3 {
	return &Tier3{Weights: DefaultDimensionWeights()}
}

// Score runs the five-dimension scorer under a hard timeout, falling
// back to fallbackVerdict (the Tier 1 verdict) if the budget is
// exceeded or ctx is already done — spec.md §4.5 Tier 3's "must always
// terminate" requirement, with Fallback set on the row per the
// state-machine note.
func (t *Tier3) Score(ctx context.Context, in Input, geoRisk float64, fallbackVerdict Verdict) Verdict {
	ctx, cancel := context.WithTimeout(ctx, tier3Budget)
	defer cancel()

	fallback := fallbackVerdict
	fallback.Fallback = true
	fallback.Reason = "tier3-timeout:" + fallback.Reason
	if ctx.Err() != nil {
		return fallback
	}

	result := make(chan Verdict, 1)
	go func() {
		result <- t.score(in, geoRisk)
	}()

	select {
	case v := <-result:
		return v
	case <-ctx.Done():
		return fallback
	}
}

func (t *Tier3) score(in Input, geoRisk float64) Verdict {
	auth := authenticationScore(in)
	business := businessLegitimacyScore(in)
	content := contentSophisticationScore(in)
	network := networkScore(in)

	w := t.Weights
	combined := w.Authentication*auth +
		w.BusinessLegitimacy*business +
		w.ContentSophistication*content +
		w.Geographic*geoRisk +
		w.Network*network

	combined = clamp01(combined)

	if combined >= confidenceConsultTier2 {
		return Verdict{
			Category:   CategoryCommercialSpam,
			Confidence: combined,
			Tier:       3,
			Reason:     "strategic-score",
		}
	}

	// A low combined score that also matches a known digest/newsletter
	// subject shape lands in the curated Marketing category rather
	// than the generic Legitimate bucket — spec.md §8 scenario 1.
	if matchesDigestPattern(in.Subject) {
		return Verdict{
			Category:    CategoryMarketing,
			Subcategory: "newsletter",
			Confidence:  1 - combined,
			Tier:        3,
			Reason:      "strategic-score",
		}
	}

	return Verdict{
		Category:   CategoryLegitimate,
		Confidence: combined,
		Tier:       3,
		Reason:     "strategic-score",
	}
}

func authenticationScore(in Input) float64 {
	if in.AuthPass {
		return 0.05
	}
	return 0.65
}

func businessLegitimacyScore(in Input) float64 {
	local := strings.ToLower(localPart(in.Sender))
	if strings.Contains(local, "noreply") || strings.Contains(local, "no-reply") {
		return 0.3
	}
	if in.PriorPreserved > 0 {
		return 0.15
	}
	return 0.5
}

func contentSophisticationScore(in Input) float64 {
	entropy := shannonEntropy(in.Subject)
	glyphs := countWarningGlyphs(in.Subject)
	score := clamp01(entropy/5.0) * 0.7
	if glyphs > 0 {
		score = clamp01(score + 0.3)
	}
	return score
}

func networkScore(in Input) float64 {
	if len(in.ReceivedChain) == 0 {
		return 0.5 // no Received chain to assess: neutral
	}
	return 0.4
}
