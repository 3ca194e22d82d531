// Package reservation implements the hand-off of a single datum from the
// Ready pool to a worker: the only place attempted_run_count advances and
// pod_name/node_name get their value for this attempt.
package reservation

import (
	"context"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// Reservation is the result of a successful ReserveNextDatum call: the
// claimed datum plus the input files it needs staged before running.
type Reservation struct {
	Datum      *models.Datum
	InputFiles []models.InputFile
}

// ReserveNextDatum atomically claims the lowest-id Ready datum belonging to
// jobID, for podName running on nodeName. Returns nil, nil if the job has
// no Ready work right now — this is not an error, workers poll.
func ReserveNextDatum(ctx context.Context, s store.Store, jobID uuid.UUID, podName, nodeName string) (*Reservation, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, apperror.Transient(err, "could not begin reservation transaction")
	}
	defer tx.Rollback()

	if _, err := s.LockJobForUpdate(ctx, tx, jobID); err != nil {
		return nil, apperror.NotFound("job %s not found", jobID)
	}

	datum, err := s.ReserveNextDatum(ctx, tx, jobID)
	if err != nil {
		return nil, apperror.Transient(err, "could not reserve next datum for job %s", jobID)
	}
	if datum == nil {
		return nil, nil
	}

	datum.Status = models.StatusRunning
	datum.PodName = &podName
	datum.NodeName = &nodeName
	datum.AttemptedRunCount++

	if err := s.UpdateDatum(ctx, tx, datum); err != nil {
		return nil, apperror.Transient(err, "could not claim datum %s", datum.ID)
	}

	inputFiles, err := s.ListInputFilesByDatum(ctx, datum.ID)
	if err != nil {
		return nil, apperror.Transient(err, "could not load input files for datum %s", datum.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Transient(err, "could not commit reservation of datum %s", datum.ID)
	}

	return &Reservation{Datum: datum, InputFiles: inputFiles}, nil
}
