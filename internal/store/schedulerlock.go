package store

import (
	"database/sql"
	"fmt"
)

// AcquireSchedulerLock attempts to take the named run-once guard for
// owner. Returns false if another owner already holds it; the
// scheduler uses this to stop two processes from running the same
// batch job concurrently (spec.md §7).
func (s *Store) AcquireSchedulerLock(name, owner string) (bool, error) {
	var acquired bool
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO scheduler_lock (name, locked_at, owner) VALUES (?, datetime('now'), ?)
			ON CONFLICT(name) DO NOTHING
		`, name, owner)
		if err != nil {
			return fmt.Errorf("acquire scheduler lock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		acquired = n > 0
		return nil
	})
	return acquired, err
}

// ReleaseSchedulerLock drops a held lock. Called from the job's defer
// so a panic in the job body doesn't wedge future runs.
func (s *Store) ReleaseSchedulerLock(name, owner string) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM scheduler_lock WHERE name = ? AND owner = ?`, name, owner)
		if err != nil {
			return fmt.Errorf("release scheduler lock: %w", err)
		}
		return nil
	})
}
