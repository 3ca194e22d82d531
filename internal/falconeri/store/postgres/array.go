package postgres

import "github.com/lib/pq"

// pqArray adapts a Go slice to the driver.Valuer/sql.Scanner pair Postgres
// array columns and ANY() comparisons expect.
func pqArray(values []string) interface{} {
	return pq.Array(values)
}

// pqUniqueViolation carries the original driver error while answering
// store.UniqueViolation, so collaborators above the store package can map
// it to a Conflict without importing lib/pq themselves.
type pqUniqueViolation struct{ cause error }

func (e *pqUniqueViolation) Error() string          { return e.cause.Error() }
func (e *pqUniqueViolation) Unwrap() error          { return e.cause }
func (e *pqUniqueViolation) IsUniqueViolation() bool { return true }

// wrapUniqueViolation tags err if it is a Postgres unique_violation
// (SQLSTATE 23505), the code the output_files (job_id, uri) constraint
// raises when a URI is re-registered within the same job.
func wrapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return &pqUniqueViolation{cause: err}
	}
	return err
}
