// Package orchestrator isolates the coordination core from the thing
// that actually schedules worker pods, behind the four operations the
// rest of the codebase needs: submit a batch job, list batch jobs, list
// running pods, and delete a batch job.
package orchestrator

import (
	"context"

	"falconeri/internal/falconeri/pipeline"
)

// BatchJobSpec is everything the orchestrator needs to start the workers
// for one Job.
type BatchJobSpec struct {
	JobID          string
	JobName        string
	Image          string
	Cmd            []string
	Env            map[string]string
	Secrets        []pipeline.Secret
	Parallelism    int
	ResourceLimits pipeline.ResourceRequests
	NodeSelector   map[string]string
	ServiceAccount string
	TTLAfterFinished string // duration string, mirrors pipeline.Spec.JobTimeout
}

// BatchJob is the orchestrator's view of a previously submitted job.
type BatchJob struct {
	Name      string
	FalconeriJobID string
	Complete  bool
	Failed    bool
}

// Orchestrator is the capability set the Babysitter and Job Admission
// need from whatever actually runs worker pods.
type Orchestrator interface {
	// SubmitBatchJob renders and submits a batch-job manifest for spec.
	SubmitBatchJob(ctx context.Context, spec BatchJobSpec) error

	// ListBatchJobs lists every batch job this orchestrator currently
	// knows about, for the babysitter's vanished-job pass.
	ListBatchJobs(ctx context.Context) ([]BatchJob, error)

	// ListRunningPodNames lists the names of every currently running
	// worker pod, for the babysitter's zombie-datum pass.
	ListRunningPodNames(ctx context.Context) ([]string, error)

	// DeleteBatchJob removes the batch job associated with falconeriJobID,
	// if one exists.
	DeleteBatchJob(ctx context.Context, falconeriJobID string) error
}
