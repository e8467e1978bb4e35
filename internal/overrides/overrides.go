// Package overrides is the flag engine sitting in front of
// internal/store's override_flags table: the one place the processing
// controller consults before acting on a classifier verdict.
package overrides

import (
	"fmt"

	"github.com/sentryd/sentryd/internal/store"
)

// Engine resolves and mutates per-message override flags.
type Engine struct {
	store *store.Store
}

// New builds an Engine over an opened store.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Set applies a flag to a message, upserting on (message_id, flag_type)
// so a second call with the same flag type updates its reason rather
// than stacking a duplicate row.
func (e *Engine) Set(messageID string, flagType store.FlagType, reason string, accountID int64) error {
	switch flagType {
	case store.FlagProtect, store.FlagDelete, store.FlagResearch:
	default:
		return fmt.Errorf("overrides: unknown flag type %q", flagType)
	}
	_, err := e.store.SetFlag(messageID, flagType, reason, accountID)
	return err
}

// Clear removes one flag type from a message. Clearing an absent flag
// is a no-op, not an error.
func (e *Engine) Clear(messageID string, flagType store.FlagType) error {
	return e.store.ClearFlag(messageID, flagType)
}

// HasDeleteFlag reports whether a DELETE flag is active for messageID,
// independent of precedence — Tier 1's auth-pass whitelist bypass
// (spec.md §4.5 step 1) must not fire when one is present, even if a
// higher-precedence PROTECT flag would otherwise win Resolve.
func (e *Engine) HasDeleteFlag(messageID string) (bool, error) {
	flags, err := e.store.GetFlags(messageID)
	if err != nil {
		return false, err
	}
	for _, f := range flags {
		if f.FlagType == store.FlagDelete {
			return true, nil
		}
	}
	return false, nil
}

// Resolve applies the VETO_DELETE (PROTECT) > FORCE_DELETE (DELETE) >
// ADVISORY_RESEARCH (RESEARCH) > NONE precedence across every flag
// active for messageID and returns the action the controller should
// take along with whether an override fired at all. classified is the
// action the classifier proposed before any override is considered.
func (e *Engine) Resolve(messageID string, classified store.Action) (store.Action, bool, error) {
	winner, err := e.store.Evaluate(messageID)
	if err != nil {
		return classified, false, err
	}
	action, overridden := store.ResolveAction(winner, classified)
	return action, overridden, nil
}
