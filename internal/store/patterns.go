package store

import (
	"database/sql"
	"fmt"
)

// ListSubcategoryPatterns returns every subcategory tagging rule for a
// category, highest weight first.
func (s *Store) ListSubcategoryPatterns(category string) ([]*SubcategoryPattern, error) {
	rows, err := s.db.Query(`
		SELECT id, category, subcategory, pattern, weight, kind
		FROM subcategory_patterns WHERE category = ? ORDER BY weight DESC`, category)
	if err != nil {
		return nil, fmt.Errorf("list subcategory patterns: %w", err)
	}
	defer rows.Close()

	var out []*SubcategoryPattern
	for rows.Next() {
		p, err := scanSubcategoryPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAllSubcategoryPatterns returns every pattern across all
// categories, for bulk-loading into the taxonomy tagger at startup.
func (s *Store) ListAllSubcategoryPatterns() ([]*SubcategoryPattern, error) {
	rows, err := s.db.Query(`SELECT id, category, subcategory, pattern, weight, kind FROM subcategory_patterns ORDER BY category, weight DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all subcategory patterns: %w", err)
	}
	defer rows.Close()

	var out []*SubcategoryPattern
	for rows.Next() {
		p, err := scanSubcategoryPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertSubcategoryPattern adds one tagging rule.
func (s *Store) InsertSubcategoryPattern(p SubcategoryPattern) (int64, error) {
	var id int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO subcategory_patterns (category, subcategory, pattern, weight, kind)
			VALUES (?, ?, ?, ?, ?)
		`, p.Category, p.Subcategory, p.Pattern, p.Weight, p.Kind)
		if err != nil {
			return fmt.Errorf("insert subcategory pattern: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// DeleteSubcategoryPattern removes one tagging rule by ID.
func (s *Store) DeleteSubcategoryPattern(id int64) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM subcategory_patterns WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete subcategory pattern: %w", err)
		}
		return nil
	})
}

func scanSubcategoryPattern(row rowScanner) (*SubcategoryPattern, error) {
	var p SubcategoryPattern
	if err := row.Scan(&p.ID, &p.Category, &p.Subcategory, &p.Pattern, &p.Weight, &p.Kind); err != nil {
		return nil, err
	}
	return &p, nil
}
