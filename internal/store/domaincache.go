package store

import (
	"database/sql"
	"fmt"
)

// GetDomainCache returns the cached reputation record for a domain, or
// nil if it has never been analysed.
func (s *Store) GetDomainCache(domain string) (*DomainCacheEntry, error) {
	row := s.db.QueryRow(`
		SELECT domain, reputation, country_code, country_name, risk_score, registrar, last_analysed_at
		FROM domain_cache WHERE domain = ?`, domain)
	entry, err := scanDomainCache(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// PutDomainCache writes or replaces a domain's cached reputation.
// Tier2 (spec.md §4.3) consults this before falling back to its
// offline IP-to-country table.
func (s *Store) PutDomainCache(e DomainCacheEntry) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO domain_cache (domain, reputation, country_code, country_name, risk_score, registrar, last_analysed_at)
			VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(domain) DO UPDATE SET
				reputation = excluded.reputation, country_code = excluded.country_code,
				country_name = excluded.country_name, risk_score = excluded.risk_score,
				registrar = excluded.registrar, last_analysed_at = excluded.last_analysed_at
		`, e.Domain, e.Reputation, e.CountryCode, e.CountryName, e.RiskScore, e.Registrar)
		if err != nil {
			return fmt.Errorf("put domain cache: %w", err)
		}
		return nil
	})
}

func scanDomainCache(row rowScanner) (*DomainCacheEntry, error) {
	var e DomainCacheEntry
	var lastAnalysed string
	if err := row.Scan(&e.Domain, &e.Reputation, &e.CountryCode, &e.CountryName, &e.RiskScore, &e.Registrar, &lastAnalysed); err != nil {
		return nil, err
	}
	e.LastAnalysedAt = parseTime(lastAnalysed)
	return &e, nil
}
