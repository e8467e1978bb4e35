package store

import (
	"database/sql"
	"fmt"
)

// GetGeoCache returns the cached geographic verdict for an IP, or nil
// if it has never been resolved.
func (s *Store) GetGeoCache(ip string) (*GeoCacheEntry, error) {
	row := s.db.QueryRow(`
		SELECT ip, country_code, country_name, risk_score, last_analysed_at
		FROM geo_cache WHERE ip = ?`, ip)
	entry, err := scanGeoCache(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// PutGeoCache writes or replaces a cached IP geolocation verdict.
func (s *Store) PutGeoCache(e GeoCacheEntry) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO geo_cache (ip, country_code, country_name, risk_score, last_analysed_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT(ip) DO UPDATE SET
				country_code = excluded.country_code, country_name = excluded.country_name,
				risk_score = excluded.risk_score, last_analysed_at = excluded.last_analysed_at
		`, e.IP, e.CountryCode, e.CountryName, e.RiskScore)
		if err != nil {
			return fmt.Errorf("put geo cache: %w", err)
		}
		return nil
	})
}

func scanGeoCache(row rowScanner) (*GeoCacheEntry, error) {
	var e GeoCacheEntry
	var lastAnalysed string
	if err := row.Scan(&e.IP, &e.CountryCode, &e.CountryName, &e.RiskScore, &lastAnalysed); err != nil {
		return nil, err
	}
	e.LastAnalysedAt = parseTime(lastAnalysed)
	return &e, nil
}
