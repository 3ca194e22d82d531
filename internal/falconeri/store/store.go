// Package store contains the database layer for falconeri: the
// authoritative Job/Datum/InputFile/OutputFile log, plus the interfaces the
// rest of the coordination core depends on instead of the Postgres
// implementation directly.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx, so
// repository methods can accept either a pooled connection or an open
// transaction.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is a DBTransaction that can be committed or rolled back.
type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// JobStore persists Job rows and answers Job-scoped queries.
type JobStore interface {
	CreateJob(ctx context.Context, tx DBTransaction, job *models.Job) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetJobByName(ctx context.Context, name string) (*models.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]models.Job, error)

	// LockJobForUpdate locks the Job row within tx and returns the
	// current row. Must be called inside a transaction.
	LockJobForUpdate(ctx context.Context, tx DBTransaction, id uuid.UUID) (*models.Job, error)

	// UpdateJobStatus sets status and updated_at for a locked Job.
	UpdateJobStatus(ctx context.Context, tx DBTransaction, id uuid.UUID, status models.Status) error

	// CountNonTerminalDatums returns how many of the Job's Datums are not
	// yet in a terminal state (Ready or Running).
	CountNonTerminalDatums(ctx context.Context, tx DBTransaction, jobID uuid.UUID) (int64, error)

	// CountDoneDatums and CountTotalDatums support Step D's
	// "Done iff every datum is Done" computation.
	CountDoneDatums(ctx context.Context, tx DBTransaction, jobID uuid.UUID) (int64, error)
	CountTotalDatums(ctx context.Context, tx DBTransaction, jobID uuid.UUID) (int64, error)

	DatumStatusCounts(ctx context.Context, jobID uuid.UUID) ([]models.DatumStatusCount, error)
	ListDatumsByStatus(ctx context.Context, jobID uuid.UUID, status models.Status) ([]models.Datum, error)

	// RunningJobsOlderThan lists Running jobs created before cutoff, for
	// the babysitter's vanished-batch-job pass.
	RunningJobsOlderThan(ctx context.Context, cutoff time.Time) ([]models.Job, error)

	// ListRunningJobs lists every Job in status Running, for the
	// babysitter's zombie-datum and retry-admission passes, which scope
	// their work per job rather than by age.
	ListRunningJobs(ctx context.Context) ([]models.Job, error)
}

// DatumStore persists Datum rows, implements the reservation/ownership
// primitives, and answers Datum-scoped queries.
type DatumStore interface {
	CreateDatum(ctx context.Context, tx DBTransaction, datum *models.Datum) error
	GetDatumByID(ctx context.Context, id uuid.UUID) (*models.Datum, error)

	// LockDatumForUpdate locks the Datum row within tx and returns the
	// current row. Must be called inside a transaction; every mutation
	// of a Datum's ownership or status goes through this first.
	LockDatumForUpdate(ctx context.Context, tx DBTransaction, id uuid.UUID) (*models.Datum, error)

	// ReserveNextDatum locks and returns the next Ready datum for jobID
	// using SELECT ... FOR UPDATE SKIP LOCKED, or nil if none is
	// available. It does not itself advance status or set pod_name;
	// the caller does that within the same transaction.
	ReserveNextDatum(ctx context.Context, tx DBTransaction, jobID uuid.UUID) (*models.Datum, error)

	// UpdateDatum persists every mutable field of datum (status,
	// pod_name, node_name, attempted_run_count, output, error_message,
	// backtrace, updated_at). Must be called on a row already locked in
	// the same transaction.
	UpdateDatum(ctx context.Context, tx DBTransaction, datum *models.Datum) error

	// RunningDatumsWithPodNotIn lists Running datums belonging to jobID
	// whose pod_name is not among livePodNames, for the babysitter's
	// zombie-datum pass.
	RunningDatumsWithPodNotIn(ctx context.Context, jobID uuid.UUID, livePodNames []string) ([]models.Datum, error)

	// RerunableDatums lists Error datums belonging to jobID that still
	// have attempts remaining, for the babysitter's retry-admission
	// pass.
	RerunableDatums(ctx context.Context, jobID uuid.UUID) ([]models.Datum, error)
}

// InputFileStore persists InputFile rows.
type InputFileStore interface {
	CreateInputFiles(ctx context.Context, tx DBTransaction, files []models.InputFile) error
	ListInputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.InputFile, error)
}

// OutputFileStore persists OutputFile rows and implements the three-step
// output protocol's bookkeeping.
type OutputFileStore interface {
	// CreateOutputFiles inserts one row per file at StatusRunning. A
	// unique constraint on (job_id, uri) makes a duplicate URI within
	// the same job a Conflict rather than a silent overwrite.
	CreateOutputFiles(ctx context.Context, tx DBTransaction, files []models.OutputFile) error

	// SetOutputFilesStatus transitions the named URIs for datumID to
	// status, Step C of the output protocol.
	SetOutputFilesStatus(ctx context.Context, tx DBTransaction, datumID uuid.UUID, uris []string, status models.Status) error

	ListOutputFilesByDatum(ctx context.Context, datumID uuid.UUID) ([]models.OutputFile, error)

	// DeleteOutputFilesByDatum removes every OutputFile row for datumID,
	// used when a Datum is reset for a rerun.
	DeleteOutputFilesByDatum(ctx context.Context, tx DBTransaction, datumID uuid.UUID) error
}

// Store bundles every repository plus transaction control, the shape
// every collaborator above the database layer depends on.
type Store interface {
	JobStore
	DatumStore
	InputFileStore
	OutputFileStore

	// BeginTx opens a new transaction. Callers must Commit or Rollback.
	BeginTx(ctx context.Context) (Tx, error)

	// Ping reports whether the underlying database connection is healthy,
	// for the REST facade's readiness probe.
	Ping(ctx context.Context) error
}

// UniqueViolation is implemented by errors that know they came from a
// violated unique constraint, so callers can map them to a Conflict
// without depending on the underlying driver.
type UniqueViolation interface {
	IsUniqueViolation() bool
}

// IsUniqueViolation reports whether err represents a violated unique
// constraint.
func IsUniqueViolation(err error) bool {
	uv, ok := err.(UniqueViolation)
	return ok && uv.IsUniqueViolation()
}
