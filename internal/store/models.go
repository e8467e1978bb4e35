package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// InsertModelVersion records a newly trained model artifact. It is not
// live until PromoteModel is called on its UUID.
func (s *Store) InsertModelVersion(kind ModelKind, artifact []byte, trainingSetSize int, offlineAccuracy float64) (*ModelVersion, error) {
	id := uuid.NewString()
	var rowID int64
	err := s.withWriteTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO model_versions (uuid, kind, artifact, training_set_size, offline_accuracy)
			VALUES (?, ?, ?, ?, ?)
		`, id, string(kind), artifact, trainingSetSize, offlineAccuracy)
		if err != nil {
			return fmt.Errorf("insert model version: %w", err)
		}
		rowID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetModelVersion(rowID)
}

// InsertModelVersionTx is InsertModelVersion's transaction-scoped twin,
// for callers (internal/registry's retrain cycle) that need the new
// model version row and the feedback rows it was trained from to
// commit together — per spec.md §4.6's "all writes for one [logical
// unit] commit in a single transaction" contract, generalized here from
// per-message to per-retrain-cycle.
func InsertModelVersionTx(tx *sql.Tx, kind ModelKind, artifact []byte, trainingSetSize int, offlineAccuracy float64) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(`
		INSERT INTO model_versions (uuid, kind, artifact, training_set_size, offline_accuracy)
		VALUES (?, ?, ?, ?, ?)
	`, id, string(kind), artifact, trainingSetSize, offlineAccuracy)
	if err != nil {
		return "", fmt.Errorf("insert model version: %w", err)
	}
	return id, nil
}

// PromoteModel atomically marks one model version live for its kind
// and demotes every other version of that kind. The registry package's
// in-memory atomic.Pointer swap follows this commit, never precedes
// it, so a reader never observes a live flag the process hasn't loaded
// yet.
func (s *Store) PromoteModel(modelUUID string) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		var kind string
		if err := tx.QueryRow(`SELECT kind FROM model_versions WHERE uuid = ?`, modelUUID).Scan(&kind); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("model version %s not found", modelUUID)
			}
			return fmt.Errorf("lookup model kind: %w", err)
		}
		if _, err := tx.Exec(`UPDATE model_versions SET live = 0 WHERE kind = ?`, kind); err != nil {
			return fmt.Errorf("demote models: %w", err)
		}
		if _, err := tx.Exec(`UPDATE model_versions SET live = 1 WHERE uuid = ?`, modelUUID); err != nil {
			return fmt.Errorf("promote model: %w", err)
		}
		return nil
	})
}

// GetLiveModel returns the currently live model version for a kind, or
// nil if none has been promoted yet.
func (s *Store) GetLiveModel(kind ModelKind) (*ModelVersion, error) {
	row := s.db.QueryRow(`
		SELECT id, uuid, kind, artifact, training_set_size, offline_accuracy, created_at, live
		FROM model_versions WHERE kind = ? AND live = 1`, string(kind))
	mv, err := scanModelVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return mv, err
}

// GetModelVersion looks up a model version by its row ID.
func (s *Store) GetModelVersion(id int64) (*ModelVersion, error) {
	row := s.db.QueryRow(`
		SELECT id, uuid, kind, artifact, training_set_size, offline_accuracy, created_at, live
		FROM model_versions WHERE id = ?`, id)
	return scanModelVersion(row)
}

// ListModelVersions returns every version recorded for a kind, newest
// first.
func (s *Store) ListModelVersions(kind ModelKind) ([]*ModelVersion, error) {
	rows, err := s.db.Query(`
		SELECT id, uuid, kind, artifact, training_set_size, offline_accuracy, created_at, live
		FROM model_versions WHERE kind = ? ORDER BY id DESC`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	var out []*ModelVersion
	for rows.Next() {
		mv, err := scanModelVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func scanModelVersion(row rowScanner) (*ModelVersion, error) {
	var mv ModelVersion
	var kind, createdAt string
	var live int
	if err := row.Scan(&mv.ID, &mv.UUID, &kind, &mv.Artifact, &mv.TrainingSetSize, &mv.OfflineAccuracy, &createdAt, &live); err != nil {
		return nil, err
	}
	mv.Kind = ModelKind(kind)
	mv.CreatedAt = parseTime(createdAt)
	mv.Live = live != 0
	return &mv, nil
}
