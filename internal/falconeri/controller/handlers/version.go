package handlers

import "net/http"

// Version is the coordinator's release version, reported verbatim by
// GET /version.
const Version = "0.1.0"

// openAPIDocument is a minimal description of the REST facade, enough
// for GET /api-docs/openapi.json to return something a client generator
// can consume rather than a 404.
const openAPIDocument = `{
  "openapi": "3.0.0",
  "info": {"title": "falconeri", "version": "` + Version + `"},
  "paths": {
    "/version": {"get": {"summary": "Coordinator version"}},
    "/jobs": {"post": {"summary": "Submit a pipeline"}},
    "/jobs/list": {"get": {"summary": "List jobs"}},
    "/jobs/{id}": {"get": {"summary": "Get a job"}},
    "/jobs/{id}/describe": {"get": {"summary": "Describe a job"}},
    "/jobs/{id}/retry": {"post": {"summary": "Retry a job's errored datums"}},
    "/jobs/{id}/reserve_next_datum": {"post": {"summary": "Reserve the next datum"}},
    "/datums/{id}": {"patch": {"summary": "Finalize a datum"}},
    "/datums/{id}/describe": {"get": {"summary": "Describe a datum"}},
    "/datums/{id}/output_files": {
      "post": {"summary": "Register output files"},
      "patch": {"summary": "Commit output file outcomes"}
    }
  }
}`

// VersionHandler handles GET /version, a public plain-text endpoint.
func (h *Handlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Version))
}

// OpenAPIDocument handles GET /api-docs/openapi.json, a public endpoint.
func (h *Handlers) OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(openAPIDocument))
}
