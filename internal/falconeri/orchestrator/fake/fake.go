// Package fake provides an in-memory orchestrator.Orchestrator for tests
// that exercise Job Admission and the Babysitter without a cluster.
package fake

import (
	"context"
	"sync"

	"falconeri/internal/falconeri/orchestrator"
)

// Orchestrator is an in-memory orchestrator.Orchestrator.
type Orchestrator struct {
	mu             sync.Mutex
	batchJobs      map[string]orchestrator.BatchJob
	runningPods    []string
	SubmitCalls    []orchestrator.BatchJobSpec
}

// New returns an empty fake Orchestrator.
func New() *Orchestrator {
	return &Orchestrator{batchJobs: map[string]orchestrator.BatchJob{}}
}

func (o *Orchestrator) SubmitBatchJob(ctx context.Context, spec orchestrator.BatchJobSpec) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SubmitCalls = append(o.SubmitCalls, spec)
	o.batchJobs[spec.JobID] = orchestrator.BatchJob{Name: spec.JobName, FalconeriJobID: spec.JobID}
	return nil
}

func (o *Orchestrator) ListBatchJobs(ctx context.Context) ([]orchestrator.BatchJob, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	jobs := make([]orchestrator.BatchJob, 0, len(o.batchJobs))
	for _, j := range o.batchJobs {
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (o *Orchestrator) ListRunningPodNames(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.runningPods...), nil
}

func (o *Orchestrator) DeleteBatchJob(ctx context.Context, falconeriJobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.batchJobs, falconeriJobID)
	return nil
}

// SetRunningPods lets a test control what ListRunningPodNames returns,
// simulating pods that vanished or never existed.
func (o *Orchestrator) SetRunningPods(names []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runningPods = names
}

// RemoveBatchJob simulates a vanished batch job for the babysitter's
// Pass 1 to discover.
func (o *Orchestrator) RemoveBatchJob(falconeriJobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.batchJobs, falconeriJobID)
}
