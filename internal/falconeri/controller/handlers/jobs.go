package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/pipeline"
	"falconeri/pkg/api"
)

// CreateJob handles POST /jobs: validates and submits a pipeline
// specification, starting its workers immediately.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.handleError(w, apperror.Validation("name is required"))
		return
	}

	if err := pipeline.ValidateJSON(req.Pipeline); err != nil {
		h.handleError(w, apperror.Validation("%v", err))
		return
	}

	var spec pipeline.Spec
	if err := json.Unmarshal(req.Pipeline, &spec); err != nil {
		h.handleError(w, apperror.Validation("could not parse pipeline spec: %v", err))
		return
	}

	job, err := h.admitter.SubmitJob(r.Context(), req.Name, &spec)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.JobEnvelope{Job: jobResource(job)})
}

// ListJobs handles GET /jobs/list, a paginated listing ordered by
// creation time.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	jobs, err := h.store.ListJobs(r.Context(), limit, offset)
	if err != nil {
		h.handleError(w, apperror.Transient(err, "could not list jobs"))
		return
	}

	resources := make([]api.JobResource, len(jobs))
	for i := range jobs {
		resources[i] = jobResource(&jobs[i])
	}
	h.respondJson(w, http.StatusOK, api.JobsEnvelope{Jobs: resources})
}

// GetJob handles GET /jobs/{id} and, when called with a job_name query
// parameter instead of a path id, GET /jobs?job_name=....
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("job_name"); name != "" {
		job, err := h.store.GetJobByName(r.Context(), name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				h.handleError(w, apperror.NotFound("job named %q not found", name))
				return
			}
			h.handleError(w, apperror.Transient(err, "could not look up job %q", name))
			return
		}
		h.respondJson(w, http.StatusOK, api.JobEnvelope{Job: jobResource(job)})
		return
	}

	id, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}
	job, err := h.store.GetJobByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.handleError(w, apperror.NotFound("job %s not found", id))
			return
		}
		h.handleError(w, apperror.Transient(err, "could not look up job %s", id))
		return
	}
	h.respondJson(w, http.StatusOK, api.JobEnvelope{Job: jobResource(job)})
}

// DescribeJob handles GET /jobs/{id}/describe: the job plus a status
// histogram and the datums most useful for diagnosing a stuck run.
func (h *Handlers) DescribeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	job, err := h.store.GetJobByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.handleError(w, apperror.NotFound("job %s not found", id))
			return
		}
		h.handleError(w, apperror.Transient(err, "could not look up job %s", id))
		return
	}

	counts, err := h.store.DatumStatusCounts(r.Context(), id)
	if err != nil {
		h.handleError(w, apperror.Transient(err, "could not count datum statuses for job %s", id))
		return
	}
	failed, err := h.store.ListDatumsByStatus(r.Context(), id, models.StatusError)
	if err != nil {
		h.handleError(w, apperror.Transient(err, "could not list failed datums for job %s", id))
		return
	}
	running, err := h.store.ListDatumsByStatus(r.Context(), id, models.StatusRunning)
	if err != nil {
		h.handleError(w, apperror.Transient(err, "could not list running datums for job %s", id))
		return
	}

	h.respondJson(w, http.StatusOK, api.JobDescribeResponse{
		Job:               jobResource(job),
		DatumStatusCounts: datumStatusCounts(counts),
		FailedDatums:      datumResources(failed),
		RunningDatums:     datumResources(running),
	})
}

// RetryJob handles POST /jobs/{id}/retry: re-queues every errored datum
// of the job that still has attempts remaining.
func (h *Handlers) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	requeued, err := h.admitter.RetryJob(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.RetryJobResponse{Requeued: requeued})
}

func (h *Handlers) parseUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		h.handleError(w, apperror.Validation("invalid id %q", raw))
		return uuid.UUID{}, false
	}
	return id, true
}
