package store

import (
	"database/sql"
	"fmt"
)

// flagPrecedence orders flag types from highest to lowest priority,
// per spec.md §4.4: VETO_DELETE (PROTECT) > FORCE_DELETE (DELETE) >
// ADVISORY_RESEARCH (RESEARCH) > NONE.
var flagPrecedence = map[FlagType]int{
	FlagProtect:  3,
	FlagDelete:   2,
	FlagResearch: 1,
}

// SetFlag upserts the flag of flagType for a message_id. A message_id
// may carry at most one row per flag_type — (message_id, flag_type) is
// the unique key (spec.md §3) — but distinct flag types may coexist
// for the same message; Evaluate resolves the set by precedence.
func (s *Store) SetFlag(messageID string, flagType FlagType, reason string, accountID int64) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO override_flags (message_id, flag_type, reason, account_id, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT(message_id, flag_type) DO UPDATE SET
				reason = excluded.reason, account_id = excluded.account_id, updated_at = excluded.updated_at
		`, messageID, string(flagType), reason, accountID)
		if err != nil {
			return fmt.Errorf("set flag: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil || id == 0 {
			return tx.QueryRow(`SELECT id FROM override_flags WHERE message_id = ? AND flag_type = ?`, messageID, string(flagType)).Scan(&id)
		}
		return nil
	})
	return id, err
}

// ClearFlag removes the flag of flagType for a message_id. Clearing a
// flag that doesn't exist is not an error (spec.md §4.4 treats it as
// already-cleared).
func (s *Store) ClearFlag(messageID string, flagType FlagType) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM override_flags WHERE message_id = ? AND flag_type = ?`, messageID, string(flagType))
		if err != nil {
			return fmt.Errorf("clear flag: %w", err)
		}
		return nil
	})
}

// GetFlags returns every flag active for a message_id. Empty, not an
// error, when nothing is set.
func (s *Store) GetFlags(messageID string) ([]*OverrideFlag, error) {
	rows, err := s.db.Query(`
		SELECT id, message_id, flag_type, reason, account_id, created_at, updated_at
		FROM override_flags WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, fmt.Errorf("get flags: %w", err)
	}
	defer rows.Close()

	var out []*OverrideFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, flag)
	}
	return out, rows.Err()
}

// ListFlags returns every active flag for an account, ordered by
// recency, for use by batch-level flag evaluation.
func (s *Store) ListFlags(accountID int64) ([]*OverrideFlag, error) {
	rows, err := s.db.Query(`
		SELECT id, message_id, flag_type, reason, account_id, created_at, updated_at
		FROM override_flags WHERE account_id = ? ORDER BY updated_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	var out []*OverrideFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, flag)
	}
	return out, rows.Err()
}

// Evaluate resolves the full set of flags active for a message_id down
// to one verdict, applying the VETO_DELETE > FORCE_DELETE >
// ADVISORY_RESEARCH > NONE precedence spec.md §4.4 requires. Returns
// the winning flag, or nil if no flag is set.
func (s *Store) Evaluate(messageID string) (*OverrideFlag, error) {
	flags, err := s.GetFlags(messageID)
	if err != nil {
		return nil, err
	}
	return highestPrecedence(flags), nil
}

func highestPrecedence(flags []*OverrideFlag) *OverrideFlag {
	var winner *OverrideFlag
	for _, f := range flags {
		if winner == nil || flagPrecedence[f.FlagType] > flagPrecedence[winner.FlagType] {
			winner = f
		}
	}
	return winner
}

// ResolveAction applies the winning override flag to the classifier's
// proposed action. A nil flag resolves to (classified, false) — no
// override was in effect.
func ResolveAction(flag *OverrideFlag, classified Action) (Action, bool) {
	if flag == nil {
		return classified, false
	}
	switch flag.FlagType {
	case FlagProtect:
		return ActionPreserved, true
	case FlagDelete:
		return ActionDeleted, true
	case FlagResearch:
		// Advisory only: reported as an override, but the classifier's
		// action is returned unchanged.
		return classified, true
	default:
		return classified, false
	}
}

func scanFlag(row rowScanner) (*OverrideFlag, error) {
	var f OverrideFlag
	var flagType, createdAt, updatedAt string
	if err := row.Scan(&f.ID, &f.MessageID, &flagType, &f.Reason, &f.AccountID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.FlagType = FlagType(flagType)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}
