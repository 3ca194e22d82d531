package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// CreateOutputFiles inserts one StatusRunning row per file. The
// (job_id, uri) unique constraint turns a re-registered URI within the
// same job into a unique-violation the caller maps to a Conflict error,
// rather than letting two datums silently race to write the same object.
func (s *Store) CreateOutputFiles(ctx context.Context, tx store.DBTransaction, files []models.OutputFile) error {
	if len(files) == 0 {
		return nil
	}
	query := `
		INSERT INTO output_files (id, job_id, datum_id, uri, pod_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	executor := s.executor(tx)
	for _, f := range files {
		if _, err := executor.ExecContext(ctx, query,
			f.ID, f.JobID, f.DatumID, f.URI, f.PodName, f.Status, f.CreatedAt, f.UpdatedAt,
		); err != nil {
			return wrapUniqueViolation(err)
		}
	}
	return nil
}

// SetOutputFilesStatus transitions the named URIs for datumID to status,
// Step C of the output protocol.
func (s *Store) SetOutputFilesStatus(ctx context.Context, tx store.DBTransaction, datumID uuid.UUID, uris []string, status models.Status) error {
	if len(uris) == 0 {
		return nil
	}
	_, err := s.executor(tx).ExecContext(ctx, `
		UPDATE output_files SET status = $1, updated_at = NOW()
		WHERE datum_id = $2 AND uri = ANY($3)
	`, status, datumID, pq.Array(uris))
	return err
}

func (s *Store) ListOutputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.OutputFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, datum_id, uri, pod_name, status, created_at, updated_at
		FROM output_files WHERE datum_id = $1
	`, datumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.OutputFile
	for rows.Next() {
		var f models.OutputFile
		if err := rows.Scan(&f.ID, &f.JobID, &f.DatumID, &f.URI, &f.PodName, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteOutputFilesByDatum removes every OutputFile row for datumID. Used
// when a zombie or errored datum is reset for a rerun, since the next
// attempt will re-register its own output files from scratch.
func (s *Store) DeleteOutputFilesByDatum(ctx context.Context, tx store.DBTransaction, datumID uuid.UUID) error {
	_, err := s.executor(tx).ExecContext(ctx, `DELETE FROM output_files WHERE datum_id = $1`, datumID)
	return err
}
