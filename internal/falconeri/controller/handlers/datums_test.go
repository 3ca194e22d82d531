package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	"falconeri/pkg/api"
)

func TestReserveNextDatum_NoReadyWork(t *testing.T) {
	h, s, _ := newTestHandlers()
	jobID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusRunning, PipelineSpec: []byte("{}")})

	body, _ := json.Marshal(api.ReserveNextDatumRequest{PodName: "worker-1", NodeName: "node-1"})
	req := httptest.NewRequest(http.MethodPost, "/jobs/"+jobID.String()+"/reserve_next_datum", bytes.NewReader(body))
	req.SetPathValue("id", jobID.String())
	rr := httptest.NewRecorder()

	h.ReserveNextDatum(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
	var resp api.ReserveNextDatumResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Datum != nil {
		t.Errorf("got a datum, want none ready")
	}
}

func TestReserveNextDatum_ClaimsReadyDatum(t *testing.T) {
	h, s, _ := newTestHandlers()
	jobID := uuid.New()
	datumID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusRunning, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: datumID, JobID: jobID, Status: models.StatusReady, MaximumAllowedRunCount: 3})

	body, _ := json.Marshal(api.ReserveNextDatumRequest{PodName: "worker-1", NodeName: "node-1"})
	req := httptest.NewRequest(http.MethodPost, "/jobs/"+jobID.String()+"/reserve_next_datum", bytes.NewReader(body))
	req.SetPathValue("id", jobID.String())
	rr := httptest.NewRecorder()

	h.ReserveNextDatum(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
	var resp api.ReserveNextDatumResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Datum == nil || resp.Datum.ID != datumID.String() {
		t.Fatalf("got %+v, want datum %s", resp.Datum, datumID)
	}
	if *resp.Datum.PodName != "worker-1" {
		t.Errorf("got pod_name %q, want worker-1", *resp.Datum.PodName)
	}
}

func TestPatchDatum_OwnershipMismatch(t *testing.T) {
	h, s, _ := newTestHandlers()
	datumID := uuid.New()
	owner := "worker-1"
	s.PutDatum(models.Datum{ID: datumID, Status: models.StatusRunning, PodName: &owner})

	body, _ := json.Marshal(api.DatumPatchRequest{PodName: "worker-2", Status: "done"})
	req := httptest.NewRequest(http.MethodPatch, "/datums/"+datumID.String(), bytes.NewReader(body))
	req.SetPathValue("id", datumID.String())
	rr := httptest.NewRecorder()

	h.PatchDatum(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestPatchDatum_Finalize(t *testing.T) {
	h, s, _ := newTestHandlers()
	datumID := uuid.New()
	jobID := uuid.New()
	owner := "worker-1"
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusRunning, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: datumID, JobID: jobID, Status: models.StatusRunning, PodName: &owner, MaximumAllowedRunCount: 3})

	body, _ := json.Marshal(api.DatumPatchRequest{PodName: "worker-1", Status: "done"})
	req := httptest.NewRequest(http.MethodPatch, "/datums/"+datumID.String(), bytes.NewReader(body))
	req.SetPathValue("id", datumID.String())
	rr := httptest.NewRecorder()

	h.PatchDatum(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestDescribeDatum(t *testing.T) {
	h, s, _ := newTestHandlers()
	datumID := uuid.New()
	s.PutDatum(models.Datum{ID: datumID, Status: models.StatusReady})

	req := httptest.NewRequest(http.MethodGet, "/datums/"+datumID.String()+"/describe", nil)
	req.SetPathValue("id", datumID.String())
	rr := httptest.NewRecorder()

	h.DescribeDatum(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}
