package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/admission"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/orchestrator/fake"
	"falconeri/internal/falconeri/store/storetest"
	"falconeri/pkg/api"
)

const testPipelineJSON = `{
  "pipeline": {"name": "edges"},
  "transform": {"image": "edges:latest", "cmd": ["./edges"]},
  "input": {"atom": {"uri": "teststore://bucket/images", "repo": "images", "glob": "/*"}},
  "egress": {"uri": "teststore://bucket/out"},
  "resource_requests": {"memory": "256Mi", "cpu": "500m"}
}`

func newTestHandlers() (*Handlers, *storetest.Fake, *fake.Orchestrator) {
	s := storetest.New()
	o := fake.New()
	admitter := &admission.Admitter{Store: s, Orchestrator: o}
	return New(s, o, admitter), s, o
}

func TestCreateJob_MissingName(t *testing.T) {
	h, _, _ := newTestHandlers()

	body := bytes.NewBufferString(`{"pipeline": {}}`)
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	rr := httptest.NewRecorder()

	h.CreateJob(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateJob_InvalidPipelineSchema(t *testing.T) {
	h, _, _ := newTestHandlers()

	req := httptest.NewRequest(http.MethodPost, "/jobs",
		bytes.NewBufferString(`{"name": "edges-run", "pipeline": {"transform": {}}}`))
	rr := httptest.NewRecorder()

	h.CreateJob(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	h, _, _ := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.New().String(), nil)
	req.SetPathValue("id", uuid.New().String())
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetJob_ByName(t *testing.T) {
	h, s, _ := newTestHandlers()
	job := models.Job{ID: uuid.New(), Name: "edges-run", Status: models.StatusRunning, PipelineSpec: []byte("{}")}
	s.PutJob(job)

	req := httptest.NewRequest(http.MethodGet, "/jobs?job_name=edges-run", nil)
	rr := httptest.NewRecorder()

	h.GetJob(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
	var resp api.JobEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Job.Name != "edges-run" {
		t.Errorf("got name %q, want edges-run", resp.Job.Name)
	}
}

func TestDescribeJob(t *testing.T) {
	h, s, _ := newTestHandlers()
	jobID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusRunning, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusError, MaximumAllowedRunCount: 3})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusRunning, MaximumAllowedRunCount: 3})

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+jobID.String()+"/describe", nil)
	req.SetPathValue("id", jobID.String())
	rr := httptest.NewRecorder()

	h.DescribeJob(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
	var resp api.JobDescribeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.FailedDatums) != 1 {
		t.Errorf("got %d failed datums, want 1", len(resp.FailedDatums))
	}
	if len(resp.RunningDatums) != 1 {
		t.Errorf("got %d running datums, want 1", len(resp.RunningDatums))
	}
}

func TestRetryJob_RequeuesErroredDatums(t *testing.T) {
	h, s, _ := newTestHandlers()
	jobID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusError, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusError, AttemptedRunCount: 1, MaximumAllowedRunCount: 3})

	req := httptest.NewRequest(http.MethodPost, "/jobs/"+jobID.String()+"/retry", nil)
	req.SetPathValue("id", jobID.String())
	rr := httptest.NewRecorder()

	h.RetryJob(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}

	job, err := s.GetJobByID(req.Context(), jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.StatusRunning {
		t.Errorf("got job status %q, want running", job.Status)
	}
}
