// Package credentials tracks app-password rotation for IMAP accounts.
// It never stores a credential in the clear: only a bcrypt hash is
// persisted, and rotation is detected by comparing a freshly resolved
// credential against that hash rather than by string equality.
package credentials

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sentryd/sentryd/internal/store"
)

// Tracker observes resolved IMAP credentials per account and records a
// rotation event the first time a given account's credential no
// longer matches the hash on file.
type Tracker struct {
	store *store.Store
}

// NewTracker builds a Tracker over an already-opened store.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// Observe checks secret (the credential handle already resolved
// against ${ENV_VAR} expansion by internal/config) against accountID's
// last recorded hash, recording a new rotation entry and returning
// true if it differs. An empty secret is a no-op: some accounts are
// configured with externally-managed OAuth tokens with no rotatable
// app password to track.
func (t *Tracker) Observe(accountID int64, secret string) (bool, error) {
	if secret == "" {
		return false, nil
	}

	prev, err := t.store.LatestCredentialHash(accountID)
	if err != nil {
		return false, fmt.Errorf("load credential history: %w", err)
	}
	if prev != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(prev), []byte(secret)); err == nil {
			return false, nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash credential: %w", err)
	}
	if err := t.store.RecordCredentialRotation(accountID, string(hash)); err != nil {
		return false, err
	}
	return prev != "", nil
}
