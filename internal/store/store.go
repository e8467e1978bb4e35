// Package store is sentryd's persistence layer: a single embedded
// SQLite database holding accounts, sessions, processed messages,
// override flags, domain/geo caches, feedback, model versions,
// performance metrics, and subcategory patterns (spec.md §4.6, §6).
//
// All writes for one message (row upsert + session counter bump +
// domain cache refresh + performance metric) commit in a single
// transaction. A process-wide mutex serializes writers; readers use
// SQLite's own snapshot isolation and never block on it.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection with the single-writer discipline
// spec.md §5 requires: writers serialize through writeMu, readers hit
// the database directly.
type Store struct {
	db *sql.DB

	writeMu sync.Mutex
}

// Open creates or opens the SQLite database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite only supports one writer at a time regardless of pool
	// size; a single connection keeps that explicit rather than
	// fighting the driver's internal locking under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteTx runs fn inside a transaction while holding writeMu,
// committing on success and rolling back on error or panic. This is
// the building block every multi-table write (message upsert + session
// counters + cache refresh + metric) goes through, satisfying spec.md
// §4.6's single-transaction-per-message-write contract.
func (s *Store) withWriteTx(fn func(tx *sql.Tx) error) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// DB exposes the raw *sql.DB for read-only reporting queries that do
// not need the write-transaction helper above.
func (s *Store) DB() *sql.DB {
	return s.db
}
