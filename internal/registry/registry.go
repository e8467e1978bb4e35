// Package registry owns sentryd's trainable models: loading whichever
// NaiveBayes/RandomForest pair is currently live at startup, retraining
// from accumulated user feedback, and promoting a new version with a
// copy-on-write swap so no in-flight classification ever observes a
// half-loaded model (spec.md §4.7, §5's "Model promotion uses
// copy-on-write of the in-memory model reference to avoid stopping the
// world").
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sentryd/sentryd/internal/apperr"
	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/store"
)

// LiveModelSet is the pair of trainable models the tier1 ensemble
// scores with. Swapped as a unit on promotion so a reader never pairs
// a NaiveBayes model from one retrain cycle with a RandomForest from
// another.
type LiveModelSet struct {
	NaiveBayes   *classifier.NaiveBayesModel
	RandomForest *classifier.RandomForestModel
}

// Registry holds the process's current live model set behind an
// atomic.Pointer and drives retrain/promote cycles against the store.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
	live   atomic.Pointer[LiveModelSet]
}

// New builds a Registry and loads whatever model versions are
// currently marked live, falling back to a fresh, untrained model set
// if nothing has ever been promoted.
func New(s *store.Store, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{store: s, logger: logger}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Live returns the currently active model set. Safe to call
// concurrently with Promote.
func (r *Registry) Live() *LiveModelSet {
	return r.live.Load()
}

func (r *Registry) reload() error {
	set := &LiveModelSet{NaiveBayes: &classifier.NaiveBayesModel{}, RandomForest: &classifier.RandomForestModel{}}

	nbVersion, err := r.store.GetLiveModel(store.ModelNaiveBayes)
	if err != nil {
		return apperr.New(apperr.KindClassifier, "load live naive bayes version", err)
	}
	if nbVersion != nil {
		if err := json.Unmarshal(nbVersion.Artifact, set.NaiveBayes); err != nil {
			return apperr.New(apperr.KindClassifier, fmt.Sprintf("decode naive bayes artifact %s", nbVersion.UUID), err)
		}
	}

	rfVersion, err := r.store.GetLiveModel(store.ModelRandomForest)
	if err != nil {
		return apperr.New(apperr.KindClassifier, "load live random forest version", err)
	}
	if rfVersion != nil {
		if err := json.Unmarshal(rfVersion.Artifact, set.RandomForest); err != nil {
			return apperr.New(apperr.KindClassifier, fmt.Sprintf("decode random forest artifact %s", rfVersion.UUID), err)
		}
	}

	r.live.Store(set)
	return nil
}

// Promote marks a model version live in the store and then reloads the
// in-process live set from storage — the store commit happens first,
// so a reader never observes a live flag the process hasn't loaded yet
// (spec.md §5).
func (r *Registry) Promote(modelUUID string) error {
	if err := r.store.PromoteModel(modelUUID); err != nil {
		return fmt.Errorf("promote model %s: %w", modelUUID, err)
	}
	return r.reload()
}
