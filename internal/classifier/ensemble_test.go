package classifier

import "testing"

func TestNaiveBayesUntrainedIsNeutral(t *testing.T) {
	m := &NaiveBayesModel{}
	var features [FeatureCount]float64
	if got := m.Score(features); got != 0.5 {
		t.Errorf("Score() = %v, want 0.5 for an untrained model", got)
	}
}

func TestNaiveBayesObserveShiftsScoreTowardTrainedLabel(t *testing.T) {
	m := &NaiveBayesModel{}
	var spamFeatures, hamFeatures [FeatureCount]float64
	for i := range spamFeatures {
		spamFeatures[i] = 0.9
		hamFeatures[i] = 0.1
	}
	m.Observe(spamFeatures, true)
	m.Observe(hamFeatures, false)

	spamScore := m.Score(spamFeatures)
	hamScore := m.Score(hamFeatures)
	if spamScore <= hamScore {
		t.Errorf("Score(spamFeatures) = %v, Score(hamFeatures) = %v; want the spam-shaped vector to score higher", spamScore, hamScore)
	}
}

func TestRandomForestEmptyIsNeutral(t *testing.T) {
	m := &RandomForestModel{}
	var features [FeatureCount]float64
	if got := m.Score(features); got != 0.5 {
		t.Errorf("Score() = %v, want 0.5 with no stumps", got)
	}
}

func TestRandomForestFiredStumpsWeightScore(t *testing.T) {
	m := &RandomForestModel{Stumps: []Stump{
		{Index: 0, Threshold: 0.5, Weight: 1},
		{Index: 1, Threshold: 0.5, Weight: 1},
	}}
	var features [FeatureCount]float64
	features[0] = 0.9 // fires
	features[1] = 0.1 // does not fire
	if got := m.Score(features); got != 0.5 {
		t.Errorf("Score() = %v, want 0.5 with exactly one of two equally-weighted stumps firing", got)
	}
}

func TestRandomForestIgnoresOutOfRangeStumps(t *testing.T) {
	m := &RandomForestModel{Stumps: []Stump{{Index: FeatureCount + 5, Threshold: 0, Weight: 1}}}
	var features [FeatureCount]float64
	if got := m.Score(features); got != 0.5 {
		t.Errorf("Score() = %v, want the neutral default when every stump's index is out of range", got)
	}
}

func TestKeywordProcessorScoresKnownKeywordHigh(t *testing.T) {
	k := DefaultKeywordProcessor()
	if got := k.Score("Hot singles waiting now"); got < 0.9 {
		t.Errorf("Score() = %v, want >= 0.9 for an adult keyword match", got)
	}
}

func TestKeywordProcessorScoresCleanSubjectLow(t *testing.T) {
	k := DefaultKeywordProcessor()
	if got := k.Score("Team meeting notes"); got != 0.1 {
		t.Errorf("Score() = %v, want the 0.1 non-spam prior for a clean subject", got)
	}
}

func TestEnsembleVoteLeansSpamWhenForestAndKeywordDo(t *testing.T) {
	e := &Ensemble{
		NaiveBayes:   &NaiveBayesModel{},
		RandomForest: &RandomForestModel{Stumps: []Stump{{Index: 0, Threshold: 0, Weight: 1}}},
		Keyword:      DefaultKeywordProcessor(),
	}
	var features [FeatureCount]float64
	features[0] = 1.0
	got := e.Vote(features, "claim your prize now")
	if got <= 0.5 {
		t.Errorf("Vote() = %v, want > 0.5 when random forest and keyword both lean spam", got)
	}
}

func TestAgreementMultiplierRequiresAllThreeToConcur(t *testing.T) {
	if m := agreementMultiplier(0.9, 0.9, 0.1); m != 1.0 {
		t.Errorf("agreementMultiplier() = %v, want 1.0 when one classifier dissents", m)
	}
	if m := agreementMultiplier(0.9, 0.9, 0.9); m != 1.25 {
		t.Errorf("agreementMultiplier() = %v, want 1.25 when all three agree", m)
	}
}
