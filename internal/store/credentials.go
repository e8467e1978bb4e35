package store

import (
	"database/sql"
	"fmt"
)

// LatestCredentialHash returns the most recently recorded credential
// hash for accountID, or "" if none has ever been recorded.
func (s *Store) LatestCredentialHash(accountID int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`
		SELECT credential_hash FROM credential_rotations
		WHERE account_id = ? ORDER BY id DESC LIMIT 1
	`, accountID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest credential hash: %w", err)
	}
	return hash, nil
}

// RecordCredentialRotation appends a new entry to the credential
// rotation ledger for accountID.
func (s *Store) RecordCredentialRotation(accountID int64, hash string) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO credential_rotations (account_id, credential_hash) VALUES (?, ?)`, accountID, hash)
		if err != nil {
			return fmt.Errorf("record credential rotation: %w", err)
		}
		return nil
	})
}
