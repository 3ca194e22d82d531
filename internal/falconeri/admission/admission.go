// Package admission turns a submitted pipeline specification into a
// running Job: it resolves the input prefix into InputFiles, groups them
// into Datums, persists all of it in one transaction, and asks the
// orchestrator to start the workers.
package admission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/orchestrator"
	"falconeri/internal/falconeri/pipeline"
	"falconeri/internal/falconeri/storage"
	"falconeri/internal/falconeri/store"
)

// Admitter wires the state store, the object store, and the orchestrator
// together behind a single SubmitJob operation.
type Admitter struct {
	Store        store.Store
	Orchestrator orchestrator.Orchestrator
}

// SubmitJob materialises spec into a Job, its Datums, and their
// InputFiles, then submits a batch job for it. name must be unique
// across jobs; a duplicate name is a Validation error.
func (a *Admitter) SubmitJob(ctx context.Context, name string, spec *pipeline.Spec) (*models.Job, error) {
	if err := pipeline.Validate(spec); err != nil {
		return nil, apperror.Validation("%v", err)
	}

	objectStorage, err := storage.ForURI(ctx, spec.Input.Atom.URI, spec.Transform.Secrets)
	if err != nil {
		return nil, apperror.Transient(err, "could not resolve storage backend for %s", spec.Input.Atom.URI)
	}

	uris, err := objectStorage.ListPrefix(ctx, spec.Input.Atom.URI)
	if err != nil {
		return nil, apperror.Transient(err, "could not list input prefix %s", spec.Input.Atom.URI)
	}

	groups := partitionByGlob(uris, spec.Input.Atom.URI, spec.Input.Atom.Glob)

	rawSpec, err := json.Marshal(spec)
	if err != nil {
		return nil, apperror.Fatal(err, "could not serialize pipeline spec")
	}

	now := time.Now()
	job := &models.Job{
		ID:           uuid.New(),
		Name:         name,
		PipelineSpec: rawSpec,
		Status:       models.StatusRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := a.Store.BeginTx(ctx)
	if err != nil {
		return nil, apperror.Transient(err, "could not begin admission transaction")
	}
	defer tx.Rollback()

	if err := a.Store.CreateJob(ctx, tx, job); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperror.Validation("job named %q already exists", name)
		}
		return nil, apperror.Transient(err, "could not create job %q", name)
	}

	datumTries := spec.EffectiveDatumTries()
	for _, groupURIs := range groups {
		datum := &models.Datum{
			ID:                     uuid.New(),
			JobID:                  job.ID,
			Status:                 models.StatusReady,
			MaximumAllowedRunCount: datumTries,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := a.Store.CreateDatum(ctx, tx, datum); err != nil {
			return nil, apperror.Transient(err, "could not create datum for job %q", name)
		}

		inputFiles := make([]models.InputFile, 0, len(groupURIs))
		for _, uri := range groupURIs {
			inputFiles = append(inputFiles, models.InputFile{
				ID:        uuid.New(),
				JobID:     job.ID,
				DatumID:   datum.ID,
				URI:       uri,
				LocalPath: localPathFor(spec.Input.Atom, uri),
				CreatedAt: now,
			})
		}
		if err := a.Store.CreateInputFiles(ctx, tx, inputFiles); err != nil {
			return nil, apperror.Transient(err, "could not create input files for job %q", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Transient(err, "could not commit admission of job %q", name)
	}

	batchSpec := orchestrator.BatchJobSpec{
		JobID:            job.ID.String(),
		JobName:          job.Name,
		Image:            spec.Transform.Image,
		Cmd:              spec.Transform.Cmd,
		Env:              spec.Transform.Env,
		Secrets:          spec.Transform.Secrets,
		Parallelism:      spec.EffectiveParallelism(),
		ResourceLimits:   spec.ResourceRequests,
		NodeSelector:     spec.NodeSelector,
		ServiceAccount:   spec.ServiceAccount,
		TTLAfterFinished: spec.JobTimeout,
	}
	if err := a.Orchestrator.SubmitBatchJob(ctx, batchSpec); err != nil {
		return nil, apperror.Transient(err, "job %q admitted but could not start workers", name)
	}

	return job, nil
}

// RetryJob re-queues every Error datum of job that still has attempts
// remaining, immediately rather than waiting for the babysitter's next
// retry-admission pass. It returns the number of datums requeued; a job
// with no eligible datums is not an error.
func (a *Admitter) RetryJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	if _, err := a.Store.GetJobByID(ctx, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("job %s not found", jobID)
		}
		return 0, apperror.Transient(err, "could not look up job %s", jobID)
	}

	rerunable, err := a.Store.RerunableDatums(ctx, jobID)
	if err != nil {
		return 0, apperror.Transient(err, "could not list rerunable datums for job %s", jobID)
	}

	requeued := 0
	for _, datum := range rerunable {
		ok, err := a.requeueDatum(ctx, datum.ID)
		if err != nil {
			return requeued, apperror.Transient(err, "could not requeue datum %s", datum.ID)
		}
		if ok {
			requeued++
		}
	}

	if requeued > 0 {
		if err := a.reviveJobStatus(ctx, jobID); err != nil {
			return requeued, apperror.Transient(err, "could not revive job %s status", jobID)
		}
	}

	return requeued, nil
}

// requeueDatum resets a single errored datum to Ready, mirroring the
// babysitter's retry-admission pass so a client-triggered retry and the
// background one behave identically.
func (a *Admitter) requeueDatum(ctx context.Context, datumID uuid.UUID) (bool, error) {
	tx, err := a.Store.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	datum, err := a.Store.LockDatumForUpdate(ctx, tx, datumID)
	if err != nil {
		return false, err
	}
	if !datum.IsRerunable() {
		return false, tx.Commit()
	}

	if err := a.Store.DeleteOutputFilesByDatum(ctx, tx, datum.ID); err != nil {
		return false, err
	}

	datum.Status = models.StatusReady
	datum.PodName = nil
	datum.NodeName = nil
	datum.Output = nil
	datum.ErrorMessage = nil
	datum.Backtrace = nil

	if err := a.Store.UpdateDatum(ctx, tx, datum); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// reviveJobStatus moves a job that had gone Error back to Running after a
// retry actually requeued work for it.
func (a *Admitter) reviveJobStatus(ctx context.Context, jobID uuid.UUID) error {
	tx, err := a.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := a.Store.LockJobForUpdate(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if current.Status != models.StatusError {
		return tx.Commit()
	}
	if err := a.Store.UpdateJobStatus(ctx, tx, jobID, models.StatusRunning); err != nil {
		return err
	}
	return tx.Commit()
}

// partitionByGlob groups uris into datums according to glob. The glob's
// path depth (the number of "/"-separated segments) decides how many
// leading path components, relative to prefix, group into one datum;
// "/*" has depth 1, so every file directly under prefix becomes its own
// datum.
func partitionByGlob(uris []string, prefix, glob string) [][]string {
	depth := len(strings.Split(strings.Trim(glob, "/"), "/"))
	if depth < 1 {
		depth = 1
	}

	trimmedPrefix := strings.TrimSuffix(prefix, "/")
	groupKeys := map[string][]string{}
	var order []string
	for _, uri := range uris {
		rel := strings.TrimPrefix(uri, trimmedPrefix+"/")
		segments := strings.Split(rel, "/")
		if len(segments) > depth {
			segments = segments[:depth]
		}
		key := path.Join(segments...)
		if _, ok := groupKeys[key]; !ok {
			order = append(order, key)
		}
		groupKeys[key] = append(groupKeys[key], uri)
	}

	sort.Strings(order)
	groups := make([][]string, 0, len(order))
	for _, key := range order {
		files := groupKeys[key]
		sort.Strings(files)
		groups = append(groups, files)
	}
	return groups
}

// localPathFor computes where a worker must stage uri, mirroring the
// input repo's layout under /pfs/<repo>/...
func localPathFor(atom pipeline.Atom, uri string) string {
	trimmedPrefix := strings.TrimSuffix(atom.URI, "/")
	rel := strings.TrimPrefix(uri, trimmedPrefix+"/")
	return fmt.Sprintf("/pfs/%s/%s", atom.Repo, rel)
}
