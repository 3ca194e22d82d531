// Package outputfiles implements the three-step register/upload/commit
// handshake a worker performs once per datum. The coordinator never
// touches Step B (the byte upload itself); it only tracks placeholders
// and outcomes around it.
package outputfiles

import (
	"context"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/ownership"
	"falconeri/internal/falconeri/store"
)

// RegisterOutputFiles is Step A: lock the datum, verify ownership, and
// insert one StatusRunning OutputFile per requested URI.
func RegisterOutputFiles(ctx context.Context, s store.Store, datumID uuid.UUID, podName string, uris []string) ([]models.OutputFile, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, apperror.Transient(err, "could not begin transaction")
	}
	defer tx.Rollback()

	datum, err := ownership.VerifyOwner(ctx, s, tx, datumID, podName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	files := make([]models.OutputFile, len(uris))
	for i, uri := range uris {
		files[i] = models.OutputFile{
			ID:        uuid.New(),
			JobID:     datum.JobID,
			DatumID:   datum.ID,
			URI:       uri,
			PodName:   podName,
			Status:    models.StatusRunning,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.CreateOutputFiles(ctx, tx, files); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperror.Conflict(err, "output file uri already registered for this job")
		}
		return nil, apperror.Transient(err, "could not register output files for datum %s", datumID)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Transient(err, "could not commit output file registration")
	}
	return files, nil
}

// OutcomeUpdate is one OutputFile's Step C outcome.
type OutcomeUpdate struct {
	ID     uuid.UUID
	Status models.Status
}

// CommitOutputFiles is Step C: lock the datum, verify ownership, and
// update each referenced OutputFile's status. Rejects any update whose
// OutputFile does not belong to this datum and this pod — a mismatch
// here means the caller is trying to finalize someone else's file.
func CommitOutputFiles(ctx context.Context, s store.Store, datumID uuid.UUID, podName string, updates []OutcomeUpdate) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return apperror.Transient(err, "could not begin transaction")
	}
	defer tx.Rollback()

	if _, err := ownership.VerifyOwner(ctx, s, tx, datumID, podName); err != nil {
		return err
	}

	existing, err := s.ListOutputFilesByDatum(ctx, datumID)
	if err != nil {
		return apperror.Transient(err, "could not load output files for datum %s", datumID)
	}
	byID := make(map[uuid.UUID]models.OutputFile, len(existing))
	for _, f := range existing {
		byID[f.ID] = f
	}

	doneURIs := make([]string, 0, len(updates))
	errorURIs := make([]string, 0, len(updates))
	for _, u := range updates {
		f, ok := byID[u.ID]
		if !ok {
			return apperror.Validation("output file %s does not belong to datum %s", u.ID, datumID)
		}
		if f.PodName != podName {
			return apperror.OwnershipMismatch(datumID.String(), podName, &f.PodName)
		}
		switch u.Status {
		case models.StatusDone:
			doneURIs = append(doneURIs, f.URI)
		case models.StatusError:
			errorURIs = append(errorURIs, f.URI)
		default:
			return apperror.Validation("output file status %q is not a valid Step C outcome", u.Status)
		}
	}

	if len(doneURIs) > 0 {
		if err := s.SetOutputFilesStatus(ctx, tx, datumID, doneURIs, models.StatusDone); err != nil {
			return apperror.Transient(err, "could not mark output files done for datum %s", datumID)
		}
	}
	if len(errorURIs) > 0 {
		if err := s.SetOutputFilesStatus(ctx, tx, datumID, errorURIs, models.StatusError); err != nil {
			return apperror.Transient(err, "could not mark output files errored for datum %s", datumID)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Transient(err, "could not commit output file outcomes")
	}
	return nil
}

// FinalizeDatum is Step D: lock the datum, verify ownership, persist the
// worker's reported outcome, then — in the same transaction — recompute
// the owning job's terminal status if this was the job's last
// non-terminal datum.
func FinalizeDatum(ctx context.Context, s store.Store, datumID uuid.UUID, podName string, status models.Status, output, errorMessage, backtrace *string) (*models.Datum, error) {
	if status != models.StatusDone && status != models.StatusError {
		return nil, apperror.Validation("datum finalize status must be Done or Error, got %q", status)
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, apperror.Transient(err, "could not begin transaction")
	}
	defer tx.Rollback()

	datum, err := ownership.VerifyOwner(ctx, s, tx, datumID, podName)
	if err != nil {
		return nil, err
	}

	datum.Status = status
	datum.Output = output
	datum.ErrorMessage = errorMessage
	datum.Backtrace = backtrace

	if err := s.UpdateDatum(ctx, tx, datum); err != nil {
		return nil, apperror.Transient(err, "could not finalize datum %s", datumID)
	}

	if err := recomputeJobStatusIfDone(ctx, s, tx, datum.JobID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Transient(err, "could not commit datum finalization")
	}
	return datum, nil
}

// recomputeJobStatusIfDone counts the job's remaining non-terminal
// datums. If none remain, the job's own status becomes Done when every
// datum is Done, otherwise Error.
func recomputeJobStatusIfDone(ctx context.Context, s store.Store, tx store.DBTransaction, jobID uuid.UUID) error {
	if _, err := s.LockJobForUpdate(ctx, tx, jobID); err != nil {
		return apperror.Transient(err, "could not lock job %s", jobID)
	}

	remaining, err := s.CountNonTerminalDatums(ctx, tx, jobID)
	if err != nil {
		return apperror.Transient(err, "could not count remaining datums for job %s", jobID)
	}
	if remaining > 0 {
		return nil
	}

	total, err := s.CountTotalDatums(ctx, tx, jobID)
	if err != nil {
		return apperror.Transient(err, "could not count total datums for job %s", jobID)
	}
	done, err := s.CountDoneDatums(ctx, tx, jobID)
	if err != nil {
		return apperror.Transient(err, "could not count done datums for job %s", jobID)
	}

	finalStatus := models.StatusError
	if done == total {
		finalStatus = models.StatusDone
	}
	if err := s.UpdateJobStatus(ctx, tx, jobID, finalStatus); err != nil {
		return apperror.Transient(err, "could not finalize job %s status", jobID)
	}
	return nil
}
