package admission

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/models"
	orchfake "falconeri/internal/falconeri/orchestrator/fake"
	"falconeri/internal/falconeri/pipeline"
	"falconeri/internal/falconeri/storage"
	storagefake "falconeri/internal/falconeri/storage/fake"
	"falconeri/internal/falconeri/store/storetest"
)

func init() {
	storage.Register("teststore", func(ctx context.Context, uri string, secrets []pipeline.Secret) (storage.Storage, error) {
		return backingStorage, nil
	})
}

var backingStorage *storagefake.Storage

func newSpec(glob string) *pipeline.Spec {
	return &pipeline.Spec{
		Pipeline:         pipeline.PipelineInfo{Name: "edges"},
		Transform:        pipeline.Transform{Image: "edges:latest", Cmd: []string{"./edges"}},
		Input:            pipeline.Input{Atom: pipeline.Atom{URI: "teststore://bucket/images", Repo: "images", Glob: glob}},
		Egress:           pipeline.Egress{URI: "teststore://bucket/out"},
		ResourceRequests: pipeline.ResourceRequests{Memory: "256Mi", CPU: "500m"},
		DatumTries:       3,
	}
}

func TestSubmitJob_PartitionsOneDatumPerFile(t *testing.T) {
	backingStorage = storagefake.New()
	backingStorage.Put("teststore://bucket/images/a.png", []byte("a"))
	backingStorage.Put("teststore://bucket/images/b.png", []byte("b"))

	s := storetest.New()
	o := orchfake.New()
	admitter := &Admitter{Store: s, Orchestrator: o}

	job, err := admitter.SubmitJob(context.Background(), "edges-run", newSpec("/*"))
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}

	counts, err := s.DatumStatusCounts(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if total != 2 {
		t.Fatalf("got %d datums, want 2", total)
	}

	if len(o.SubmitCalls) != 1 {
		t.Fatalf("got %d orchestrator submissions, want 1", len(o.SubmitCalls))
	}
	if o.SubmitCalls[0].Parallelism != 1 {
		t.Errorf("got parallelism %d, want default 1", o.SubmitCalls[0].Parallelism)
	}
}

func TestSubmitJob_DuplicateNameRejected(t *testing.T) {
	backingStorage = storagefake.New()
	backingStorage.Put("teststore://bucket/images/a.png", []byte("a"))

	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	if _, err := admitter.SubmitJob(context.Background(), "edges-run", newSpec("/*")); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := admitter.SubmitJob(context.Background(), "edges-run", newSpec("/*"))
	if err == nil {
		t.Fatal("expected an error for duplicate job name")
	}
}

func TestSubmitJob_SetsCreatedAtOnJobAndDatums(t *testing.T) {
	backingStorage = storagefake.New()
	backingStorage.Put("teststore://bucket/images/a.png", []byte("a"))

	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	job, err := admitter.SubmitJob(context.Background(), "edges-run", newSpec("/*"))
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatalf("got job with zero-value timestamps: %+v", job)
	}

	datums, err := s.ListDatumsByStatus(context.Background(), job.ID, models.StatusReady)
	if err != nil {
		t.Fatal(err)
	}
	if len(datums) != 1 {
		t.Fatalf("got %d datums, want 1", len(datums))
	}
	if datums[0].CreatedAt.IsZero() || datums[0].UpdatedAt.IsZero() {
		t.Fatalf("got datum with zero-value timestamps: %+v", datums[0])
	}

	files, err := s.ListInputFilesByDatum(context.Background(), datums[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].CreatedAt.IsZero() {
		t.Fatalf("got input files %+v, want one with a non-zero CreatedAt", files)
	}
}

func TestSubmitJob_SetsDatumTriesFromSpec(t *testing.T) {
	backingStorage = storagefake.New()
	backingStorage.Put("teststore://bucket/images/a.png", []byte("a"))

	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	job, err := admitter.SubmitJob(context.Background(), "edges-run", newSpec("/*"))
	if err != nil {
		t.Fatalf("SubmitJob failed: %v", err)
	}

	datums, err := s.ListDatumsByStatus(context.Background(), job.ID, models.StatusReady)
	if err != nil {
		t.Fatal(err)
	}
	if len(datums) != 1 || datums[0].MaximumAllowedRunCount != 3 {
		t.Fatalf("got %+v, want one datum with maximum_allowed_run_count=3", datums)
	}
}

func TestRetryJob_RequeuesErroredDatumAndRevivesJob(t *testing.T) {
	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	jobID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusError, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusError, AttemptedRunCount: 1, MaximumAllowedRunCount: 3})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusError, AttemptedRunCount: 3, MaximumAllowedRunCount: 3})

	requeued, err := admitter.RetryJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("RetryJob failed: %v", err)
	}
	if requeued != 1 {
		t.Fatalf("got %d requeued, want 1 (the exhausted datum must not count)", requeued)
	}

	job, err := s.GetJobByID(context.Background(), jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.StatusRunning {
		t.Errorf("got job status %q, want running", job.Status)
	}
}

func TestRetryJob_NoEligibleDatumsLeavesJobStatusAlone(t *testing.T) {
	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	jobID := uuid.New()
	s.PutJob(models.Job{ID: jobID, Name: "edges-run", Status: models.StatusError, PipelineSpec: []byte("{}")})
	s.PutDatum(models.Datum{ID: uuid.New(), JobID: jobID, Status: models.StatusError, AttemptedRunCount: 3, MaximumAllowedRunCount: 3})

	requeued, err := admitter.RetryJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("RetryJob failed: %v", err)
	}
	if requeued != 0 {
		t.Fatalf("got %d requeued, want 0", requeued)
	}

	job, err := s.GetJobByID(context.Background(), jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.StatusError {
		t.Errorf("got job status %q, want it to stay error", job.Status)
	}
}

func TestRetryJob_UnknownJobIsNotFound(t *testing.T) {
	s := storetest.New()
	admitter := &Admitter{Store: s, Orchestrator: orchfake.New()}

	if _, err := admitter.RetryJob(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected an error for an unknown job")
	}
}
