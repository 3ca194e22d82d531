package postgres

import (
	"context"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// CreateInputFiles batch-inserts the input files belonging to a single
// Datum. Called once per datum inside the job-admission transaction.
func (s *Store) CreateInputFiles(ctx context.Context, tx store.DBTransaction, files []models.InputFile) error {
	if len(files) == 0 {
		return nil
	}
	query := `INSERT INTO input_files (id, job_id, datum_id, uri, local_path, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	executor := s.executor(tx)
	for _, f := range files {
		if _, err := executor.ExecContext(ctx, query, f.ID, f.JobID, f.DatumID, f.URI, f.LocalPath, f.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListInputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.InputFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, datum_id, uri, local_path, created_at
		FROM input_files WHERE datum_id = $1
	`, datumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.InputFile
	for rows.Next() {
		var f models.InputFile
		if err := rows.Scan(&f.ID, &f.JobID, &f.DatumID, &f.URI, &f.LocalPath, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
