package store

import (
	"database/sql"
	"fmt"
)

// FindByMessageID returns the existing ProcessedMessage row for a
// message_id that is in a terminal-or-active state (processed,
// flagged, or error), or nil if no such row exists. This is the
// lookup the idempotency rules in spec.md §4.3 step 3 are built on.
func (s *Store) FindByMessageID(messageID string) (*ProcessedMessage, error) {
	row := s.db.QueryRow(`
		SELECT id, message_id, session_id, uid, folder, sender, sender_domain, subject,
		       action, reason, category, subcategory, confidence, tier_used,
		       geo_ip, geo_country_code, geo_country_name, geo_risk_score, geo_method,
		       processing_status, retry_count, started_at, completed_at, raw_data, fallback
		FROM processed_messages
		WHERE message_id = ? AND processing_status IN ('processed', 'flagged', 'error')
		ORDER BY id DESC LIMIT 1
	`, messageID)
	msg, err := scanProcessedMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return msg, err
}

// GetProcessedMessage looks up a processed_messages row by its row ID
// — the lookup internal/registry needs to recover a message's original
// sender/subject/domain when recomputing features for a retrain cycle,
// since user_feedback only carries a processed_message_id pointer.
func (s *Store) GetProcessedMessage(id int64) (*ProcessedMessage, error) {
	row := s.db.QueryRow(`
		SELECT id, message_id, session_id, uid, folder, sender, sender_domain, subject,
		       action, reason, category, subcategory, confidence, tier_used,
		       geo_ip, geo_country_code, geo_country_name, geo_risk_score, geo_method,
		       processing_status, retry_count, started_at, completed_at, raw_data, fallback
		FROM processed_messages WHERE id = ?
	`, id)
	msg, err := scanProcessedMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("processed message %d not found", id)
	}
	return msg, err
}

// UpsertProcessedMessageInput is the data needed to commit one
// message's full processing result.
type UpsertProcessedMessageInput struct {
	MessageID        string
	SessionID        int64
	UID              uint32
	Folder           string
	Sender           string
	SenderDomain     string
	Subject          string
	Action           Action
	Reason           string
	Category         string
	Subcategory      string
	Confidence       float64
	TierUsed         int
	Geo              GeoRecord
	ProcessingStatus ProcessingStatus
	RetryCount       int
	RawData          []byte
	Fallback         bool
	// IsError marks whether this write should count toward the
	// session's errored counter instead of its action-derived counter.
	IsError bool
}

// UpsertProcessedMessage writes a new processed_messages row, bumps
// the owning session's counters, mirrors the row into the backup
// table, and records a performance metric — all in a single
// transaction, exactly as spec.md §4.6 requires.
func (s *Store) UpsertProcessedMessage(in UpsertProcessedMessageInput) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO processed_messages (
				message_id, session_id, uid, folder, sender, sender_domain, subject,
				action, reason, category, subcategory, confidence, tier_used,
				geo_ip, geo_country_code, geo_country_name, geo_risk_score, geo_method,
				processing_status, retry_count, raw_data, fallback, completed_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,
				CASE WHEN ? IN ('processed','error') THEN datetime('now') ELSE NULL END)
		`,
			in.MessageID, in.SessionID, in.UID, in.Folder, in.Sender, in.SenderDomain, in.Subject,
			string(in.Action), in.Reason, in.Category, in.Subcategory, in.Confidence, in.TierUsed,
			in.Geo.IP, in.Geo.CountryCode, in.Geo.CountryName, in.Geo.RiskScore, in.Geo.Method,
			string(in.ProcessingStatus), in.RetryCount, in.RawData, boolToInt(in.Fallback), string(in.ProcessingStatus),
		)
		if err != nil {
			return fmt.Errorf("insert processed message: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("processed message id: %w", err)
		}

		if err := incrementCounters(tx, in.SessionID, in.Action, in.Category, in.IsError); err != nil {
			return err
		}

		if err := mirrorToBackup(tx, id, in); err != nil {
			return err
		}

		if _, err := tx.Exec(`INSERT INTO performance_metrics (name, value) VALUES ('message_processed', 1)`); err != nil {
			return fmt.Errorf("record metric: %w", err)
		}

		if in.SenderDomain != "" {
			if _, err := tx.Exec(`
				INSERT INTO domain_cache (domain, last_analysed_at) VALUES (?, datetime('now'))
				ON CONFLICT(domain) DO UPDATE SET last_analysed_at = excluded.last_analysed_at
			`, in.SenderDomain); err != nil {
				return fmt.Errorf("refresh domain cache: %w", err)
			}
		}

		return nil
	})
	return id, err
}

func mirrorToBackup(tx *sql.Tx, id int64, in UpsertProcessedMessageInput) error {
	_, err := tx.Exec(`
		INSERT INTO processed_messages_backup (
			id, message_id, session_id, uid, folder, sender, sender_domain, subject,
			action, reason, category, subcategory, confidence, tier_used,
			processing_status, retry_count, completed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,
			CASE WHEN ? IN ('processed','error') THEN datetime('now') ELSE NULL END)
		ON CONFLICT(id) DO UPDATE SET
			message_id = excluded.message_id, action = excluded.action,
			processing_status = excluded.processing_status, retry_count = excluded.retry_count,
			completed_at = excluded.completed_at
	`,
		id, in.MessageID, in.SessionID, in.UID, in.Folder, in.Sender, in.SenderDomain, in.Subject,
		string(in.Action), in.Reason, in.Category, in.Subcategory, in.Confidence, in.TierUsed,
		string(in.ProcessingStatus), in.RetryCount, string(in.ProcessingStatus),
	)
	return err
}

// TransitionStatus moves a row to a new processing status, e.g.
// flagged -> preview on an explicit operator "unflag" (spec.md §3).
func (s *Store) TransitionStatus(id int64, status ProcessingStatus) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE processed_messages SET processing_status = ? WHERE id = ?`, string(status), id)
		if err != nil {
			return fmt.Errorf("transition status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("processed message %d not found", id)
		}
		if _, err := tx.Exec(`UPDATE processed_messages_backup SET processing_status = ? WHERE id = ?`, string(status), id); err != nil {
			return fmt.Errorf("transition backup status: %w", err)
		}
		return nil
	})
}

// ListSessionMessages returns processed_messages rows for a session,
// newest first, paginated by offset/limit.
func (s *Store) ListSessionMessages(sessionID int64, offset, limit int) ([]*ProcessedMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, message_id, session_id, uid, folder, sender, sender_domain, subject,
		       action, reason, category, subcategory, confidence, tier_used,
		       geo_ip, geo_country_code, geo_country_name, geo_risk_score, geo_method,
		       processing_status, retry_count, started_at, completed_at, raw_data, fallback
		FROM processed_messages WHERE session_id = ? ORDER BY id DESC LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list session messages: %w", err)
	}
	defer rows.Close()

	var out []*ProcessedMessage
	for rows.Next() {
		msg, err := scanProcessedMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanProcessedMessage(row rowScanner) (*ProcessedMessage, error) {
	var msg ProcessedMessage
	var action, status, startedAt string
	var completedAt sql.NullString
	var fallback int
	if err := row.Scan(
		&msg.ID, &msg.MessageID, &msg.SessionID, &msg.UID, &msg.Folder, &msg.Sender, &msg.SenderDomain, &msg.Subject,
		&action, &msg.Reason, &msg.Category, &msg.Subcategory, &msg.Confidence, &msg.TierUsed,
		&msg.Geo.IP, &msg.Geo.CountryCode, &msg.Geo.CountryName, &msg.Geo.RiskScore, &msg.Geo.Method,
		&status, &msg.RetryCount, &startedAt, &completedAt, &msg.RawData, &fallback,
	); err != nil {
		return nil, err
	}
	msg.Action = Action(action)
	msg.ProcessingStatus = ProcessingStatus(status)
	msg.StartedAt = parseTime(startedAt)
	if completedAt.Valid {
		msg.CompletedAt = parseTimePtr(&completedAt.String)
	}
	msg.Fallback = fallback != 0
	return &msg, nil
}

// CountPreserved returns the number of rows with action = PRESERVED
// recorded for senderDomain across every session and folder — the
// vendor-relationship history Tier 1's step 6 heuristic consults
// (spec.md §4.5).
func (s *Store) CountPreserved(senderDomain string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM processed_messages
		WHERE sender_domain = ? AND action = ?
	`, senderDomain, string(ActionPreserved)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count preserved for domain %q: %w", senderDomain, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
