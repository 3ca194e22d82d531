package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// CreateJob inserts a new job row. Must be called inside the same
// transaction that inserts the job's Datums and InputFiles.
func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, name, pipeline_spec, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.executor(tx).ExecContext(ctx, query,
		job.ID, job.Name, job.PipelineSpec, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	return wrapUniqueViolation(err)
}

func scanJob(row interface {
	Scan(dest ...any) error
}) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.Name, &j.PipelineSpec, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs WHERE id = $1
	`, id)
	return scanJob(row)
}

func (s *Store) GetJobByName(ctx context.Context, name string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs WHERE name = $1
	`, name)
	return scanJob(row)
}

func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.PipelineSpec, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// LockJobForUpdate locks the Job row within tx. Callers that will mutate
// status must call this first, in the same transaction as the write.
func (s *Store) LockJobForUpdate(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*models.Job, error) {
	row := s.executor(tx).QueryRowContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs WHERE id = $1 FOR UPDATE
	`, id)
	return scanJob(row)
}

func (s *Store) UpdateJobStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status models.Status) error {
	_, err := s.executor(tx).ExecContext(ctx, `
		UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	return err
}

func (s *Store) CountNonTerminalDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	var count int64
	err := s.executor(tx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM datums
		WHERE job_id = $1 AND status IN ($2, $3)
	`, jobID, models.StatusReady, models.StatusRunning).Scan(&count)
	return count, err
}

func (s *Store) CountDoneDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	var count int64
	err := s.executor(tx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM datums WHERE job_id = $1 AND status = $2
	`, jobID, models.StatusDone).Scan(&count)
	return count, err
}

func (s *Store) CountTotalDatums(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (int64, error) {
	var count int64
	err := s.executor(tx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM datums WHERE job_id = $1
	`, jobID).Scan(&count)
	return count, err
}

func (s *Store) DatumStatusCounts(ctx context.Context, jobID uuid.UUID) ([]models.DatumStatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM datums WHERE job_id = $1 GROUP BY status
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.DatumStatusCount
	for rows.Next() {
		var c models.DatumStatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *Store) ListDatumsByStatus(ctx context.Context, jobID uuid.UUID, status models.Status) ([]models.Datum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, status, pod_name, node_name, attempted_run_count,
		       maximum_allowed_run_count, output, error_message, backtrace,
		       created_at, updated_at
		FROM datums WHERE job_id = $1 AND status = $2
	`, jobID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDatums(rows)
}

func (s *Store) RunningJobsOlderThan(ctx context.Context, cutoff time.Time) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs WHERE status = $1 AND created_at < $2
	`, models.StatusRunning, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.PipelineSpec, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) ListRunningJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pipeline_spec, status, created_at, updated_at
		FROM jobs WHERE status = $1
	`, models.StatusRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Name, &j.PipelineSpec, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
