package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// OpenSession creates a new session row in the given mode for an
// account. Returns the session ID.
func (s *Store) OpenSession(accountID int64, mode SessionMode) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO sessions (account_id, mode) VALUES (?, ?)`, accountID, string(mode))
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// incrementCounters atomically bumps a session's counters. Called in
// the same transaction as the ProcessedMessage row write it
// corresponds to (see UpsertProcessedMessage).
func incrementCounters(tx *sql.Tx, sessionID int64, action Action, category string, isError bool) error {
	column := ""
	switch {
	case isError:
		column = "errored"
	case action == ActionDeleted:
		column = "deleted"
	case action == ActionPreserved:
		column = "preserved"
	case action == ActionSkipped:
		column = "skipped"
	default:
		return fmt.Errorf("unknown action for counters: %q", action)
	}

	if _, err := tx.Exec(fmt.Sprintf(`UPDATE sessions SET examined = examined + 1, %s = %s + 1 WHERE id = ?`, column, column), sessionID); err != nil {
		return fmt.Errorf("increment session counters: %w", err)
	}

	if category == "" {
		return nil
	}

	var categoriesJSON string
	if err := tx.QueryRow(`SELECT categories_json FROM sessions WHERE id = ?`, sessionID).Scan(&categoriesJSON); err != nil {
		return fmt.Errorf("read categories: %w", err)
	}
	categories := map[string]int{}
	if categoriesJSON != "" {
		_ = json.Unmarshal([]byte(categoriesJSON), &categories)
	}
	categories[category]++
	updated, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET categories_json = ? WHERE id = ?`, string(updated), sessionID); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}

// CloseSession marks a session's end timestamp. Sessions are
// append-only after close (spec.md §3).
func (s *Store) CloseSession(sessionID int64) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE sessions SET ended_at = datetime('now') WHERE id = ? AND ended_at IS NULL`, sessionID)
		return err
	})
}

// GetSession loads a session by ID.
func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, account_id, mode, started_at, ended_at, examined, deleted, preserved, skipped, errored, categories_json
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns the most recent sessions for an account, newest
// first, limited to limit rows (0 means no limit).
func (s *Store) ListSessions(accountID int64, limit int) ([]*Session, error) {
	query := `SELECT id, account_id, mode, started_at, ended_at, examined, deleted, preserved, skipped, errored, categories_json
		FROM sessions WHERE account_id = ? ORDER BY id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	return scanSessionRows(row)
}

func scanSessionRows(row rowScanner) (*Session, error) {
	var sess Session
	var mode, startedAt, categoriesJSON string
	var endedAt sql.NullString
	if err := row.Scan(&sess.ID, &sess.AccountID, &mode, &startedAt, &endedAt,
		&sess.Examined, &sess.Deleted, &sess.Preserved, &sess.Skipped, &sess.Errored, &categoriesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Mode = SessionMode(mode)
	sess.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		sess.EndedAt = parseTimePtr(&endedAt.String)
	}
	sess.Categories = map[string]int{}
	if categoriesJSON != "" {
		_ = json.Unmarshal([]byte(categoriesJSON), &sess.Categories)
	}
	return &sess, nil
}
