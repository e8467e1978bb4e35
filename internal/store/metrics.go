package store

import (
	"database/sql"
	"fmt"
)

// RecordMetric appends a named performance sample, such as the
// scheduler's per-account sweep duration.
func (s *Store) RecordMetric(name string, value float64) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO performance_metrics (name, value) VALUES (?, ?)`, name, value)
		if err != nil {
			return fmt.Errorf("record metric %s: %w", name, err)
		}
		return nil
	})
}

// MetricSample is one recorded performance_metrics row.
type MetricSample struct {
	Name       string
	Value      float64
	RecordedAt string
}

// AverageMetric returns the mean value recorded for name, or 0 if no
// samples exist.
func (s *Store) AverageMetric(name string) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRow(`SELECT AVG(value) FROM performance_metrics WHERE name = ?`, name).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average metric %s: %w", name, err)
	}
	return avg.Float64, nil
}

// RecentMetrics returns the most recent n samples for name, newest
// first.
func (s *Store) RecentMetrics(name string, n int) ([]MetricSample, error) {
	rows, err := s.db.Query(`
		SELECT name, value, recorded_at FROM performance_metrics
		WHERE name = ? ORDER BY id DESC LIMIT ?`, name, n)
	if err != nil {
		return nil, fmt.Errorf("recent metrics %s: %w", name, err)
	}
	defer rows.Close()

	var out []MetricSample
	for rows.Next() {
		var m MetricSample
		if err := rows.Scan(&m.Name, &m.Value, &m.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
