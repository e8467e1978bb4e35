package store

import (
	"database/sql"
	"fmt"
)

// UpsertAccount inserts an account or returns the existing row's ID if
// the email already exists. Accounts are never deleted while
// referenced by sessions (spec.md §3); this package exposes no
// DeleteAccount.
func (s *Store) UpsertAccount(email, name, provider string) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO accounts (email, name, provider) VALUES (?, ?, ?)
			ON CONFLICT(email) DO UPDATE SET name = excluded.name, provider = excluded.provider
		`, email, name, provider)
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil || id == 0 {
			// ON CONFLICT DO UPDATE doesn't report a useful
			// LastInsertId on sqlite; look the row up explicitly.
			return tx.QueryRow(`SELECT id FROM accounts WHERE email = ?`, email).Scan(&id)
		}
		return nil
	})
	return id, err
}

// GetAccountByName looks up an account by its configured short name.
func (s *Store) GetAccountByName(name string) (*Account, error) {
	row := s.db.QueryRow(`SELECT id, email, name, provider, created_at FROM accounts WHERE name = ?`, name)
	return scanAccount(row)
}

// GetAccount looks up an account by ID.
func (s *Store) GetAccount(id int64) (*Account, error) {
	row := s.db.QueryRow(`SELECT id, email, name, provider, created_at FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var createdAt string
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Provider, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account not found")
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
