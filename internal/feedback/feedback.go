// Package feedback is the thin control-surface-facing layer over
// internal/registry: accepting operator corrections and running
// retrain cycles, while leaving the actual promote decision to an
// explicit caller rather than auto-promoting (spec.md §4.7, §6).
package feedback

import (
	"fmt"
	"log/slog"

	"github.com/sentryd/sentryd/internal/registry"
	"github.com/sentryd/sentryd/internal/store"
)

// Service implements the feedback-related operations of spec.md §6's
// control surface: submit_feedback, trigger_retrain, promote_model.
type Service struct {
	store    *store.Store
	registry *registry.Registry
	logger   *slog.Logger
}

// New builds a Service over an already-opened store and registry.
func New(s *store.Store, reg *registry.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, registry: reg, logger: logger}
}

// Submit records an operator correction against a processed message
// (spec.md §6 submit_feedback).
func (svc *Service) Submit(processedMessageID int64, originalCategory, correctedCategory string, confidenceRating float64, comment string) (int64, error) {
	return svc.store.SubmitFeedback(store.Feedback{
		ProcessedMessageID: processedMessageID,
		OriginalCategory:   originalCategory,
		CorrectedCategory:  correctedCategory,
		ConfidenceRating:   confidenceRating,
		Comment:            comment,
	})
}

// RetrainResult reports one retrain cycle's outcome: the model
// versions produced (nil when there was no pending feedback), and
// whether each cleared the promotion bar of spec.md §4.7 — equaling or
// exceeding the offline accuracy of the model it would replace. Neither
// version is made live by this call.
type RetrainResult struct {
	NaiveBayes             *store.ModelVersion
	RandomForest           *store.ModelVersion
	NaiveBayesPromotable   bool
	RandomForestPromotable bool
}

// Retrain runs one retrain cycle over every pending feedback row
// (spec.md §6 trigger_retrain). Promotion is a separate, explicit step
// — this only reports whether the freshly trained versions are eligible.
func (svc *Service) Retrain() (*RetrainResult, error) {
	priorNB, err := svc.store.GetLiveModel(store.ModelNaiveBayes)
	if err != nil {
		return nil, fmt.Errorf("load prior live naive bayes: %w", err)
	}
	priorRF, err := svc.store.GetLiveModel(store.ModelRandomForest)
	if err != nil {
		return nil, fmt.Errorf("load prior live random forest: %w", err)
	}

	nb, rf, err := svc.registry.Retrain()
	if err != nil {
		return nil, fmt.Errorf("retrain: %w", err)
	}
	if nb == nil {
		svc.logger.Info("retrain cycle skipped, no pending feedback")
		return &RetrainResult{}, nil
	}

	result := &RetrainResult{
		NaiveBayes:             nb,
		RandomForest:           rf,
		NaiveBayesPromotable:   priorNB == nil || nb.OfflineAccuracy >= priorNB.OfflineAccuracy,
		RandomForestPromotable: priorRF == nil || rf.OfflineAccuracy >= priorRF.OfflineAccuracy,
	}
	svc.logger.Info("retrain cycle complete",
		"training_set_size", nb.TrainingSetSize, "offline_accuracy", nb.OfflineAccuracy,
		"naive_bayes_promotable", result.NaiveBayesPromotable, "random_forest_promotable", result.RandomForestPromotable)
	return result, nil
}

// Promote makes a specific model version live (spec.md §6 promote_model).
func (svc *Service) Promote(modelUUID string) error {
	return svc.registry.Promote(modelUUID)
}
