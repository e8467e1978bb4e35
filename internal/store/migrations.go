package store

import (
	"database/sql"
	"fmt"
)

// migration is one versioned, idempotent schema step. Migrations never
// run twice: schema_migrations records which versions have applied.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) migrationApplied(version int) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		apply:   migration1InitialSchema,
	},
	{
		version: 2,
		name:    "backup_table",
		apply:   migration2BackupTable,
	},
	{
		version: 3,
		name:    "processing_status_column",
		apply:   migration3ProcessingStatusColumn,
	},
	{
		version: 4,
		name:    "credential_rotations_table",
		apply:   migration4CredentialRotationsTable,
	},
}

func migration1InitialSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			provider   TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id     INTEGER NOT NULL REFERENCES accounts(id),
			mode           TEXT NOT NULL,
			started_at     TEXT NOT NULL DEFAULT (datetime('now')),
			ended_at       TEXT,
			examined       INTEGER NOT NULL DEFAULT 0,
			deleted        INTEGER NOT NULL DEFAULT 0,
			preserved      INTEGER NOT NULL DEFAULT 0,
			skipped        INTEGER NOT NULL DEFAULT 0,
			errored        INTEGER NOT NULL DEFAULT 0,
			categories_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id)`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id      TEXT NOT NULL,
			session_id      INTEGER NOT NULL REFERENCES sessions(id),
			uid             INTEGER NOT NULL,
			folder          TEXT NOT NULL,
			sender          TEXT NOT NULL,
			sender_domain   TEXT NOT NULL,
			subject         TEXT NOT NULL,
			action          TEXT NOT NULL,
			reason          TEXT NOT NULL,
			category        TEXT NOT NULL,
			subcategory     TEXT NOT NULL DEFAULT '',
			confidence      REAL NOT NULL,
			tier_used       INTEGER NOT NULL,
			geo_ip          TEXT NOT NULL DEFAULT '',
			geo_country_code TEXT NOT NULL DEFAULT '',
			geo_country_name TEXT NOT NULL DEFAULT '',
			geo_risk_score  REAL NOT NULL DEFAULT 0,
			geo_method      TEXT NOT NULL DEFAULT '',
			retry_count     INTEGER NOT NULL DEFAULT 0,
			started_at      TEXT NOT NULL DEFAULT (datetime('now')),
			completed_at    TEXT,
			raw_data        BLOB,
			fallback        INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_messages_session ON processed_messages(session_id)`,
		`CREATE TABLE IF NOT EXISTS override_flags (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			flag_type  TEXT NOT NULL,
			reason     TEXT NOT NULL,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			CHECK (flag_type IN ('PROTECT', 'DELETE', 'RESEARCH')),
			UNIQUE(message_id, flag_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_override_flags_message ON override_flags(message_id)`,
		`CREATE TABLE IF NOT EXISTS domain_cache (
			domain           TEXT PRIMARY KEY,
			reputation       TEXT NOT NULL DEFAULT 'unknown',
			country_code     TEXT NOT NULL DEFAULT '',
			country_name     TEXT NOT NULL DEFAULT '',
			risk_score       REAL NOT NULL DEFAULT 0,
			registrar        TEXT NOT NULL DEFAULT '',
			last_analysed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS geo_cache (
			ip               TEXT PRIMARY KEY,
			country_code     TEXT NOT NULL,
			country_name     TEXT NOT NULL,
			risk_score       REAL NOT NULL DEFAULT 0,
			last_analysed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS user_feedback (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			processed_message_id  INTEGER NOT NULL REFERENCES processed_messages(id),
			original_category     TEXT NOT NULL,
			corrected_category    TEXT NOT NULL,
			confidence_rating     REAL NOT NULL DEFAULT 0,
			comment               TEXT NOT NULL DEFAULT '',
			incorporated          INTEGER NOT NULL DEFAULT 0,
			created_at            TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS model_versions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid              TEXT NOT NULL UNIQUE,
			kind              TEXT NOT NULL,
			artifact          BLOB NOT NULL,
			training_set_size INTEGER NOT NULL DEFAULT 0,
			offline_accuracy  REAL NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL DEFAULT (datetime('now')),
			live              INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS performance_metrics (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			value      REAL NOT NULL,
			recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS subcategory_patterns (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			category    TEXT NOT NULL,
			subcategory TEXT NOT NULL,
			pattern     TEXT NOT NULL,
			weight      REAL NOT NULL DEFAULT 1.0,
			kind        TEXT NOT NULL DEFAULT 'regex'
		)`,
		`CREATE TABLE IF NOT EXISTS scheduler_lock (
			name       TEXT PRIMARY KEY,
			locked_at  TEXT NOT NULL,
			owner      TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// migration2BackupTable creates the disaster-recovery mirror of
// processed_messages (spec.md §4.6/§6). Synced in the same transaction
// as the primary row write (see messages.go).
func migration2BackupTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS processed_messages_backup (
		id              INTEGER PRIMARY KEY,
		message_id      TEXT NOT NULL,
		session_id      INTEGER NOT NULL,
		uid             INTEGER NOT NULL,
		folder          TEXT NOT NULL,
		sender          TEXT NOT NULL,
		sender_domain   TEXT NOT NULL,
		subject         TEXT NOT NULL,
		action          TEXT NOT NULL,
		reason          TEXT NOT NULL,
		category        TEXT NOT NULL,
		subcategory     TEXT NOT NULL DEFAULT '',
		confidence      REAL NOT NULL,
		tier_used       INTEGER NOT NULL,
		processing_status TEXT NOT NULL DEFAULT 'preview',
		retry_count     INTEGER NOT NULL DEFAULT 0,
		completed_at    TEXT,
		mirrored_at     TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

// migration3ProcessingStatusColumn is the canonical example from
// spec.md §4.6: add the processing_status column with default
// 'preview', backfill 'processed' for rows whose session ran in
// 'process' mode, index it, then deduplicate rows sharing a
// message_id, keeping the 'processed' one.
func migration3ProcessingStatusColumn(tx *sql.Tx) error {
	if _, err := tx.Exec(`ALTER TABLE processed_messages ADD COLUMN processing_status TEXT NOT NULL DEFAULT 'preview'`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE processed_messages
		SET processing_status = 'processed'
		WHERE id IN (
			SELECT pm.id FROM processed_messages pm
			JOIN sessions s ON s.id = pm.session_id
			WHERE s.mode = 'process'
		)
	`); err != nil {
		return err
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_processed_messages_msgid_status
		ON processed_messages(message_id, processing_status)`); err != nil {
		return err
	}

	// Deduplicate: for every message_id with more than one row, whatever
	// its status, keep the 'processed' row (or the most recent one if
	// none is processed) and drop the rest.
	_, err := tx.Exec(`
		DELETE FROM processed_messages
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, message_id,
				       ROW_NUMBER() OVER (
				           PARTITION BY message_id
				           ORDER BY (processing_status = 'processed') DESC, id DESC
				       ) AS rn
				FROM processed_messages
			)
			WHERE rn = 1
		)
	`)
	return err
}

// migration4CredentialRotationsTable adds the append-only ledger
// internal/credentials writes to whenever an account's resolved IMAP
// credential handle changes between runs.
func migration4CredentialRotationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS credential_rotations (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id    INTEGER NOT NULL REFERENCES accounts(id),
		credential_hash TEXT NOT NULL,
		rotated_at    TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}
