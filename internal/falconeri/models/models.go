// Package models contains the data types shared by the state store, the
// coordination core, and the REST facade.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state shared by Jobs and Datums.
type Status string

const (
	StatusReady    Status = "ready"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// IsTerminal reports whether a Datum or Job in this status requires no
// further action from workers or the babysitter.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// Job is one submission of a pipeline specification.
type Job struct {
	ID           uuid.UUID
	Name         string
	PipelineSpec []byte // the submitted pipeline spec, stored verbatim as JSON
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Datum is one indivisible unit of work belonging to a Job.
type Datum struct {
	ID                     uuid.UUID
	JobID                  uuid.UUID
	Status                 Status
	PodName                *string
	NodeName               *string
	AttemptedRunCount      int
	MaximumAllowedRunCount int
	Output                 *string
	ErrorMessage           *string
	Backtrace              *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsRerunable reports whether the datum has errored and still has attempts
// remaining. Must only be trusted immediately after a fresh row lock.
func (d *Datum) IsRerunable() bool {
	return d.Status == StatusError && d.AttemptedRunCount < d.MaximumAllowedRunCount
}

// InputFile is one file a Datum must have available before it can run.
type InputFile struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	DatumID   uuid.UUID
	URI       string
	LocalPath string
	CreatedAt time.Time
}

// OutputFile is one file a Datum produced, in flight or committed.
type OutputFile struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	DatumID   uuid.UUID
	URI       string
	PodName   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DatumStatusCount is one row of a job-describe status histogram.
type DatumStatusCount struct {
	Status Status
	Count  int64
}
