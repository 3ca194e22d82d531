package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/outputfiles"
	"falconeri/pkg/api"
)

// CreateOutputFiles handles POST /datums/{id}/output_files (Output
// Protocol Step A): the worker RPC that registers each URI it is about
// to upload.
func (h *Handlers) CreateOutputFiles(w http.ResponseWriter, r *http.Request) {
	datumID, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req api.CreateOutputFilesRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PodName == "" {
		h.handleError(w, apperror.Validation("pod_name is required"))
		return
	}

	uris := make([]string, len(req.OutputFiles))
	for i, f := range req.OutputFiles {
		uris[i] = f.URI
	}

	files, err := outputfiles.RegisterOutputFiles(r.Context(), h.store, datumID, req.PodName, uris)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.CreateOutputFilesResponse{OutputFiles: outputFileResources(files)})
}

// PatchOutputFiles handles PATCH /datums/{id}/output_files (Output
// Protocol Step C): the worker RPC that commits each output file's
// upload outcome.
func (h *Handlers) PatchOutputFiles(w http.ResponseWriter, r *http.Request) {
	datumID, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req api.PatchOutputFilesRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PodName == "" {
		h.handleError(w, apperror.Validation("pod_name is required"))
		return
	}

	updates := make([]outputfiles.OutcomeUpdate, len(req.OutputFiles))
	for i, p := range req.OutputFiles {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			h.handleError(w, apperror.Validation("invalid output file id %q", p.ID))
			return
		}
		updates[i] = outputfiles.OutcomeUpdate{ID: id, Status: models.Status(p.Status)}
	}

	if err := outputfiles.CommitOutputFiles(r.Context(), h.store, datumID, req.PodName, updates); err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, map[string]string{"status": "committed"})
}
