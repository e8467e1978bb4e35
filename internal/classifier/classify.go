package classifier

import "context"

// Pipeline wires the three tiers and the taxonomy router into the
// single entry point internal/controller calls per message.
type Pipeline struct {
	Tier1  *Tier1
	Tier2  *Tier2
	Tier3  *Tier3
	Router *Router
	Tagger *SubcategoryTagger
}

// NewPipeline builds a pipeline with a fresh Tier1 ensemble and the
// given cache, rollout percentage, and compiled subcategory patterns.
func NewPipeline(cache GeoCacheStore, taxonomyV2RolloutPct int, patterns []Pattern) *Pipeline {
	return &Pipeline{
		Tier1:  NewTier1(),
		Tier2:  NewTier2(cache),
		Tier3:  NewTier3(),
		Router: NewRouter(taxonomyV2RolloutPct),
		Tagger: NewSubcategoryTagger(patterns),
	}
}

// Classify runs in as far as Tier 1 confidence requires: Tier 1 alone
// on an obvious, high-confidence verdict; Tier 1 + Tier 2 when
// confidence remains below threshold; Tier 1 + Tier 2 + Tier 3 when it
// still isn't obvious and remains below threshold after the
// geographic signal. A shadow taxonomy_v2 verdict is computed
// alongside (never affecting the returned verdict) whenever the
// router selects this message_id for the rollout.
func (p *Pipeline) Classify(ctx context.Context, in Input) (verdict Verdict, shadowCategory string, shadowAgrees bool) {
	v1, obvious := p.Tier1.Classify(in)

	verdict = v1
	if !obvious && v1.Confidence < confidenceConsultTier2 {
		v2 := p.Tier2.Combine(in, v1)
		verdict = v2

		if verdict.Confidence < confidenceConsultTier2 {
			geoRisk := CountryRisk(CountryFromReason(verdict.Reason))
			verdict = p.Tier3.Score(ctx, in, geoRisk, v1)
		}
	}

	if verdict.Subcategory == "" && p.Tagger != nil {
		verdict.Subcategory = p.Tagger.Tag(verdict.Category, in.Subject, verdict.Confidence)
	}

	if p.Router != nil && p.Router.ShadowEligible(in.MessageID) {
		shadowCategory, shadowAgrees = p.Router.ShadowClassify(verdict)
	}

	return verdict, shadowCategory, shadowAgrees
}

// CountryFromReason pulls the country code tier2 embedded in its
// verdict's Reason field ("geo:US") back out — used by tier3's
// geographic dimension internally, and by internal/controller to
// populate a ProcessedMessage row's geographic record without a
// second IP resolution.
func CountryFromReason(reason string) string {
	const prefix = "geo:"
	if len(reason) > len(prefix) && reason[:len(prefix)] == prefix {
		return reason[len(prefix):]
	}
	return ""
}
