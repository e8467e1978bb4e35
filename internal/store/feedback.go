package store

import (
	"database/sql"
	"fmt"
)

// SubmitFeedback records a correction against a processed message.
// Feedback accumulates until a retrain cycle marks it incorporated
// (spec.md §5).
func (s *Store) SubmitFeedback(f Feedback) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO user_feedback (processed_message_id, original_category, corrected_category, confidence_rating, comment)
			VALUES (?, ?, ?, ?, ?)
		`, f.ProcessedMessageID, f.OriginalCategory, f.CorrectedCategory, f.ConfidenceRating, f.Comment)
		if err != nil {
			return fmt.Errorf("submit feedback: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// PendingFeedback returns every feedback row not yet incorporated into
// a trained model, oldest first.
func (s *Store) PendingFeedback() ([]*Feedback, error) {
	rows, err := s.db.Query(`
		SELECT id, processed_message_id, original_category, corrected_category, confidence_rating, comment, incorporated, created_at
		FROM user_feedback WHERE incorporated = 0 ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("pending feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// MarkFeedbackIncorporated flags a batch of feedback rows as consumed
// by a completed retrain cycle. Called in the same transaction as the
// resulting ModelVersion insert by the registry package.
func MarkFeedbackIncorporated(tx *sql.Tx, ids []int64) error {
	stmt, err := tx.Prepare(`UPDATE user_feedback SET incorporated = 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare incorporate feedback: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("incorporate feedback %d: %w", id, err)
		}
	}
	return nil
}

// WithWriteTx exposes the store's single-writer transaction helper to
// callers, such as the registry package, that need to combine a
// feedback-incorporation update with a model promotion in one commit.
func (s *Store) WithWriteTx(fn func(tx *sql.Tx) error) error {
	return s.withWriteTx(fn)
}

func scanFeedback(row rowScanner) (*Feedback, error) {
	var fb Feedback
	var createdAt string
	var incorporated int
	if err := row.Scan(&fb.ID, &fb.ProcessedMessageID, &fb.OriginalCategory, &fb.CorrectedCategory,
		&fb.ConfidenceRating, &fb.Comment, &incorporated, &createdAt); err != nil {
		return nil, err
	}
	fb.Incorporated = incorporated != 0
	fb.CreatedAt = parseTime(createdAt)
	return &fb, nil
}
