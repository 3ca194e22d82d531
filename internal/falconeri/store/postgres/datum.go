package postgres

import (
	"database/sql"
	"context"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

func (s *Store) CreateDatum(ctx context.Context, tx store.DBTransaction, datum *models.Datum) error {
	query := `
		INSERT INTO datums (id, job_id, status, pod_name, node_name,
		                     attempted_run_count, maximum_allowed_run_count,
		                     output, error_message, backtrace, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.executor(tx).ExecContext(ctx, query,
		datum.ID, datum.JobID, datum.Status, datum.PodName, datum.NodeName,
		datum.AttemptedRunCount, datum.MaximumAllowedRunCount,
		datum.Output, datum.ErrorMessage, datum.Backtrace,
		datum.CreatedAt, datum.UpdatedAt,
	)
	return err
}

func scanDatumRow(row interface{ Scan(dest ...any) error }) (*models.Datum, error) {
	var d models.Datum
	err := row.Scan(
		&d.ID, &d.JobID, &d.Status, &d.PodName, &d.NodeName,
		&d.AttemptedRunCount, &d.MaximumAllowedRunCount,
		&d.Output, &d.ErrorMessage, &d.Backtrace,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDatums(rows *sql.Rows) ([]models.Datum, error) {
	var datums []models.Datum
	for rows.Next() {
		d, err := scanDatumRow(rows)
		if err != nil {
			return nil, err
		}
		datums = append(datums, *d)
	}
	return datums, rows.Err()
}

const datumColumns = `id, job_id, status, pod_name, node_name,
		       attempted_run_count, maximum_allowed_run_count,
		       output, error_message, backtrace, created_at, updated_at`

func (s *Store) GetDatumByID(ctx context.Context, id uuid.UUID) (*models.Datum, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+datumColumns+` FROM datums WHERE id = $1`, id)
	return scanDatumRow(row)
}

// LockDatumForUpdate locks the row so ownership and status can be
// checked and mutated atomically within tx.
func (s *Store) LockDatumForUpdate(ctx context.Context, tx store.DBTransaction, id uuid.UUID) (*models.Datum, error) {
	row := s.executor(tx).QueryRowContext(ctx, `SELECT `+datumColumns+` FROM datums WHERE id = $1 FOR UPDATE`, id)
	return scanDatumRow(row)
}

// ReserveNextDatum claims the lowest-id Ready datum for jobID using
// SELECT ... FOR UPDATE SKIP LOCKED, so concurrent workers racing for work
// never block on each other and never double-claim the same row. Ties are
// broken deterministically by datum id rather than created_at, since
// datums admitted together share the same timestamp. Returns nil, nil if
// no Ready datum is currently unlocked.
func (s *Store) ReserveNextDatum(ctx context.Context, tx store.DBTransaction, jobID uuid.UUID) (*models.Datum, error) {
	row := s.executor(tx).QueryRowContext(ctx, `
		SELECT `+datumColumns+`
		FROM datums
		WHERE job_id = $1 AND status = $2
		ORDER BY id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, jobID, models.StatusReady)
	d, err := scanDatumRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// UpdateDatum persists every mutable field. Must run against a row already
// locked with LockDatumForUpdate or ReserveNextDatum in the same tx.
func (s *Store) UpdateDatum(ctx context.Context, tx store.DBTransaction, datum *models.Datum) error {
	_, err := s.executor(tx).ExecContext(ctx, `
		UPDATE datums
		SET status = $1, pod_name = $2, node_name = $3,
		    attempted_run_count = $4, output = $5, error_message = $6,
		    backtrace = $7, updated_at = NOW()
		WHERE id = $8
	`,
		datum.Status, datum.PodName, datum.NodeName,
		datum.AttemptedRunCount, datum.Output, datum.ErrorMessage,
		datum.Backtrace, datum.ID,
	)
	return err
}

// RunningDatumsWithPodNotIn lists Running datums belonging to jobID whose
// pod_name is not among livePodNames, i.e. datums whose worker has
// vanished without reporting completion.
func (s *Store) RunningDatumsWithPodNotIn(ctx context.Context, jobID uuid.UUID, livePodNames []string) ([]models.Datum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+datumColumns+`
		FROM datums
		WHERE job_id = $1 AND status = $2 AND (pod_name IS NULL OR NOT (pod_name = ANY($3)))
	`, jobID, models.StatusRunning, pqArray(livePodNames))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDatums(rows)
}

// RerunableDatums lists Error datums belonging to jobID that still have
// attempts remaining.
func (s *Store) RerunableDatums(ctx context.Context, jobID uuid.UUID) ([]models.Datum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+datumColumns+`
		FROM datums
		WHERE job_id = $1 AND status = $2 AND attempted_run_count < maximum_allowed_run_count
	`, jobID, models.StatusError)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDatums(rows)
}
