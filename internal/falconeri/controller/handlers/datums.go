package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/outputfiles"
	"falconeri/internal/falconeri/reservation"
	"falconeri/pkg/api"
)

// ReserveNextDatum handles POST /jobs/{id}/reserve_next_datum: the worker
// RPC that claims the next Ready datum of a job.
func (h *Handlers) ReserveNextDatum(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req api.ReserveNextDatumRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PodName == "" || req.NodeName == "" {
		h.handleError(w, apperror.Validation("pod_name and node_name are required"))
		return
	}

	res, err := reservation.ReserveNextDatum(r.Context(), h.store, jobID, req.PodName, req.NodeName)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res == nil {
		h.respondJson(w, http.StatusOK, api.ReserveNextDatumResponse{Datum: nil})
		return
	}

	datum := datumResource(res.Datum)
	h.respondJson(w, http.StatusOK, api.ReserveNextDatumResponse{
		Datum:      &datum,
		InputFiles: inputFileResources(res.InputFiles),
	})
}

// PatchDatum handles PATCH /datums/{id}: the worker RPC that finalizes a
// datum with its outcome (Output Protocol Step D).
func (h *Handlers) PatchDatum(w http.ResponseWriter, r *http.Request) {
	datumID, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req api.DatumPatchRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PodName == "" {
		h.handleError(w, apperror.Validation("pod_name is required"))
		return
	}

	datum, err := outputfiles.FinalizeDatum(r.Context(), h.store, datumID, req.PodName,
		models.Status(req.Status), req.Output, req.ErrorMessage, req.Backtrace)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.DatumEnvelope{Datum: datumResource(datum)})
}

// DescribeDatum handles GET /datums/{id}/describe: the datum plus the
// input files it was given to work on.
func (h *Handlers) DescribeDatum(w http.ResponseWriter, r *http.Request) {
	datumID, ok := h.parseUUID(w, r.PathValue("id"))
	if !ok {
		return
	}

	datum, err := h.store.GetDatumByID(r.Context(), datumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.handleError(w, apperror.NotFound("datum %s not found", datumID))
			return
		}
		h.handleError(w, apperror.Transient(err, "could not look up datum %s", datumID))
		return
	}

	inputFiles, err := h.store.ListInputFilesByDatum(r.Context(), datumID)
	if err != nil {
		h.handleError(w, apperror.Transient(err, "could not list input files for datum %s", datumID))
		return
	}

	h.respondJson(w, http.StatusOK, api.DatumDescribeResponse{
		Datum:      datumResource(datum),
		InputFiles: inputFileResources(inputFiles),
	})
}
