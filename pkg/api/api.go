// Package api contains the JSON wire types shared by the REST facade and
// the CLI. Single-resource bodies wrap their payload as {"resource": ...};
// collection bodies wrap it as {"resources": [...]}. Worker requests that
// carry ownership metadata place pod_name (and node_name, where relevant)
// at the top level alongside the wrapped resource.
package api

import (
	"encoding/json"
	"time"
)

// JobResource mirrors models.Job for wire transport.
type JobResource struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PipelineSpec json.RawMessage `json:"pipeline_spec"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DatumResource mirrors models.Datum for wire transport.
type DatumResource struct {
	ID                     string    `json:"id"`
	JobID                  string    `json:"job_id"`
	Status                 string    `json:"status"`
	PodName                *string   `json:"pod_name,omitempty"`
	NodeName               *string   `json:"node_name,omitempty"`
	AttemptedRunCount      int       `json:"attempted_run_count"`
	MaximumAllowedRunCount int       `json:"maximum_allowed_run_count"`
	Output                 *string   `json:"output,omitempty"`
	ErrorMessage           *string   `json:"error_message,omitempty"`
	Backtrace              *string   `json:"backtrace,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// InputFileResource mirrors models.InputFile for wire transport.
type InputFileResource struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	DatumID   string    `json:"datum_id"`
	URI       string    `json:"uri"`
	LocalPath string    `json:"local_path"`
	CreatedAt time.Time `json:"created_at"`
}

// OutputFileResource mirrors models.OutputFile for wire transport.
type OutputFileResource struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	DatumID   string    `json:"datum_id"`
	URI       string    `json:"uri"`
	PodName   string    `json:"pod_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobEnvelope wraps a single Job.
type JobEnvelope struct {
	Job JobResource `json:"job"`
}

// JobsEnvelope wraps a page of Jobs.
type JobsEnvelope struct {
	Jobs []JobResource `json:"jobs"`
}

// DatumEnvelope wraps a single Datum.
type DatumEnvelope struct {
	Datum DatumResource `json:"datum"`
}

// DatumStatusCount is one row of a job-describe status histogram.
type DatumStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// JobDescribeResponse is the composite body for GET /jobs/{id}/describe.
type JobDescribeResponse struct {
	Job               JobResource        `json:"job"`
	DatumStatusCounts []DatumStatusCount `json:"datum_status_counts"`
	FailedDatums      []DatumResource    `json:"failed_datums"`
	RunningDatums     []DatumResource    `json:"running_datums"`
}

// DatumDescribeResponse is the composite body for GET /datums/{id}/describe.
type DatumDescribeResponse struct {
	Datum      DatumResource       `json:"datum"`
	InputFiles []InputFileResource `json:"input_files"`
}

// ReserveNextDatumRequest is the body of POST /jobs/{id}/reserve_next_datum.
type ReserveNextDatumRequest struct {
	PodName  string `json:"pod_name"`
	NodeName string `json:"node_name"`
}

// ReserveNextDatumResponse is the body returned on a successful
// reservation. A nil Datum means the job currently has no Ready work.
type ReserveNextDatumResponse struct {
	Datum      *DatumResource      `json:"datum"`
	InputFiles []InputFileResource `json:"input_files,omitempty"`
}

// DatumPatchRequest is the body of PATCH /datums/{id} (Output Protocol
// Step D). Status must be Done or Error; output, error_message, and
// backtrace are set accordingly.
type DatumPatchRequest struct {
	PodName      string  `json:"pod_name"`
	Status       string  `json:"status"`
	Output       *string `json:"output,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	Backtrace    *string `json:"backtrace,omitempty"`
}

// NewOutputFile is one entry of the Step A registration request.
type NewOutputFile struct {
	URI string `json:"uri"`
}

// CreateOutputFilesRequest is the body of POST /datums/{id}/output_files
// (Output Protocol Step A).
type CreateOutputFilesRequest struct {
	PodName     string          `json:"pod_name"`
	OutputFiles []NewOutputFile `json:"output_files"`
}

// CreateOutputFilesResponse wraps the OutputFiles created by Step A.
type CreateOutputFilesResponse struct {
	OutputFiles []OutputFileResource `json:"output_files"`
}

// OutputFilePatch is one entry of the Step C commit request.
type OutputFilePatch struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PatchOutputFilesRequest is the body of PATCH /datums/{id}/output_files
// (Output Protocol Step C).
type PatchOutputFilesRequest struct {
	PodName     string            `json:"pod_name"`
	OutputFiles []OutputFilePatch `json:"output_files"`
}

// CreateJobRequest is the body of POST /jobs: a pipeline specification
// document plus the unique name to register it under.
type CreateJobRequest struct {
	Name     string          `json:"name"`
	Pipeline json.RawMessage `json:"pipeline"`
}

// RetryJobResponse is the body of POST /jobs/{id}/retry.
type RetryJobResponse struct {
	Requeued int `json:"requeued"`
}

// ErrorResponse is the standard error body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
