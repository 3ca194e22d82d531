// Package handlers contains HTTP handlers for the REST facade: thin
// adapters that decode a request, call into the coordination core, and
// encode the result using the wire envelopes in pkg/api.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"falconeri/internal/falconeri/admission"
	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/orchestrator"
	"falconeri/internal/falconeri/store"
	"falconeri/pkg/api"
)

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    store.Store
	orch     orchestrator.Orchestrator
	admitter *admission.Admitter
}

// New creates a new Handlers instance wired to the given collaborators.
func New(s store.Store, orch orchestrator.Orchestrator, admitter *admission.Admitter) *Handlers {
	return &Handlers{store: s, orch: orch, admitter: admitter}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Kind:  string(apperror.KindFatal),
	})
}

// handleError inspects err and writes the matching HTTP status plus an
// api.ErrorResponse body, dispatching on apperror.Kind rather than
// string-matching the message.
func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		h.respondJson(w, appErr.HTTPStatus(), api.ErrorResponse{
			Error: appErr.Error(),
			Kind:  string(appErr.Kind),
		})
		return
	}
	h.respondJson(w, http.StatusInternalServerError, api.ErrorResponse{
		Error: err.Error(),
		Kind:  string(apperror.KindFatal),
	})
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.handleError(w, apperror.Validation("could not parse request body: %v", err))
		return false
	}
	return true
}
