package classifier

import "strings"

// Ensemble weights from spec.md §4.5 Tier 1 step 5.
const (
	weightNaiveBayes      = 0.30
	weightRandomForest    = 0.40
	weightKeywordProcessor = 0.30
)

// NaiveBayesModel holds per-feature spam/ham likelihood sums, trained
// incrementally from user_feedback. A fresh model (all zero counts)
// returns a neutral 0.5 for every input until internal/registry has
// folded in at least one round of feedback.
type NaiveBayesModel struct {
	SpamCount  float64
	HamCount   float64
	SpamFeatureSum [FeatureCount]float64
	HamFeatureSum  [FeatureCount]float64
}

// Score returns P(spam | features) under a Gaussian-naive-Bayes
// approximation: each feature's spam/ham mean acts as a simple
// likelihood proxy rather than a full per-feature variance model,
// which keeps training a single pass over accumulated sums.
func (m *NaiveBayesModel) Score(features [FeatureCount]float64) float64 {
	if m.SpamCount == 0 || m.HamCount == 0 {
		return 0.5
	}
	spamPrior := m.SpamCount / (m.SpamCount + m.HamCount)
	var spamLikelihood, hamLikelihood float64
	for i, v := range features {
		spamMean := m.SpamFeatureSum[i] / m.SpamCount
		hamMean := m.HamFeatureSum[i] / m.HamCount
		spamLikelihood += 1 - absDiff(v, spamMean)
		hamLikelihood += 1 - absDiff(v, hamMean)
	}
	spamScore := spamPrior * spamLikelihood
	hamScore := (1 - spamPrior) * hamLikelihood
	if spamScore+hamScore == 0 {
		return 0.5
	}
	return spamScore / (spamScore + hamScore)
}

// Observe folds one labeled feature vector into the running sums.
func (m *NaiveBayesModel) Observe(features [FeatureCount]float64, isSpam bool) {
	if isSpam {
		m.SpamCount++
		for i, v := range features {
			m.SpamFeatureSum[i] += v
		}
		return
	}
	m.HamCount++
	for i, v := range features {
		m.HamFeatureSum[i] += v
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Stump is a single shallow decision-tree split: feature[Index] > Threshold.
type Stump struct {
	Index     int
	Threshold float64
	Weight    float64 // vote magnitude this stump contributes toward "spam"
}

// RandomForestModel is a forest of independent decision stumps, each
// voting a small weight toward the spam verdict when its split fires.
// A shallow-stump forest trained from feedback rather than a single
// deep tree, matching spec.md's "Random Forest of shallow decision
// stumps".
type RandomForestModel struct {
	Stumps []Stump
}

// Score returns the fraction of total stump weight that fires spam-ward.
func (m *RandomForestModel) Score(features [FeatureCount]float64) float64 {
	if len(m.Stumps) == 0 {
		return 0.5
	}
	var fired, total float64
	for _, s := range m.Stumps {
		if s.Index < 0 || s.Index >= FeatureCount {
			continue
		}
		total += s.Weight
		if features[s.Index] > s.Threshold {
			fired += s.Weight
		}
	}
	if total == 0 {
		return 0.5
	}
	return fired / total
}

// KeywordProcessor is a weighted keyword matcher over the subject
// line — the third ensemble member, grounded directly in spec.md's
// existing adult/abuse keyword lists but scored continuously rather
// than as a hard pre-filter.
type KeywordProcessor struct {
	Weights map[string]float64
}

// DefaultKeywordProcessor seeds weights from the same keyword lists
// the Tier 1 pre-filter uses, so the ensemble agrees with the
// pre-filter on the clearest cases by construction.
func DefaultKeywordProcessor() *KeywordProcessor {
	weights := make(map[string]float64, len(adultKeywords)+len(abuseKeywords))
	for _, kw := range adultKeywords {
		weights[kw] = 0.95
	}
	for _, kw := range abuseKeywords {
		weights[kw] = 0.80
	}
	return &KeywordProcessor{Weights: weights}
}

// Score returns the highest weight among keywords present in subject,
// or 0.1 (a mild non-spam prior) when none match.
func (k *KeywordProcessor) Score(subject string) float64 {
	lower := strings.ToLower(subject)
	best := 0.1
	for kw, weight := range k.Weights {
		if strings.Contains(lower, kw) && weight > best {
			best = weight
		}
	}
	return best
}

// Ensemble combines the three sub-classifiers with the spec's fixed
// weights and an agreement multiplier that tightens confidence when
// all three concur, per spec.md §4.5 Tier 1 step 5.
type Ensemble struct {
	NaiveBayes *NaiveBayesModel
	RandomForest *RandomForestModel
	Keyword    *KeywordProcessor
}

// Vote returns the weighted spam-probability score in [0,1].
func (e *Ensemble) Vote(features [FeatureCount]float64, subject string) float64 {
	nb := e.NaiveBayes.Score(features)
	rf := e.RandomForest.Score(features)
	kw := e.Keyword.Score(subject)

	base := weightNaiveBayes*nb + weightRandomForest*rf + weightKeywordProcessor*kw

	agreement := agreementMultiplier(nb, rf, kw)
	confidence := 0.5 + (base-0.5)*agreement
	return clamp01(confidence)
}

// agreementMultiplier returns 1.25 or 1.0: all three sub-classifiers
// landing on the same side of 0.5 tightens (increases) the final
// confidence's distance from the neutral 0.5 point by 1.25;
// disagreement leaves it unscaled at 1.0.
func agreementMultiplier(nb, rf, kw float64) float64 {
	spamSide := func(v float64) bool { return v > 0.5 }
	if spamSide(nb) == spamSide(rf) && spamSide(rf) == spamSide(kw) {
		return 1.25
	}
	return 1.0
}
