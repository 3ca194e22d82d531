package kubernetes

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"falconeri/internal/falconeri/orchestrator"
	"falconeri/internal/falconeri/pipeline"
)

func TestSubmitBatchJob_CreatesJobWithParallelism(t *testing.T) {
	clientset := fake.NewClientset()
	o := &Orchestrator{clientset: clientset, namespace: "test-ns"}

	ctx := context.Background()
	err := o.SubmitBatchJob(ctx, orchestrator.BatchJobSpec{
		JobID:          "job-1",
		Image:          "edges:latest",
		Cmd:            []string{"./edges"},
		Parallelism:    3,
		ResourceLimits: pipeline.ResourceRequests{Memory: "256Mi", CPU: "500m"},
	})
	if err != nil {
		t.Fatalf("SubmitBatchJob failed: %v", err)
	}

	jobs, err := clientset.BatchV1().Jobs("test-ns").List(ctx, metav1.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.Items) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.Items))
	}
	job := jobs.Items[0]
	if *job.Spec.Parallelism != 3 {
		t.Errorf("got parallelism %d, want 3", *job.Spec.Parallelism)
	}
	if job.Labels[jobIDLabel] != "job-1" {
		t.Errorf("got job-id label %q, want job-1", job.Labels[jobIDLabel])
	}
}

func TestListRunningPodNames_FiltersToRunningPhase(t *testing.T) {
	running := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "running-pod", Namespace: "test-ns", Labels: map[string]string{managedByLabel: managedByValue}},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
	pending := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "pending-pod", Namespace: "test-ns", Labels: map[string]string{managedByLabel: managedByValue}},
		Status:     corev1.PodStatus{Phase: corev1.PodPending},
	}
	clientset := fake.NewClientset(running, pending)
	o := &Orchestrator{clientset: clientset, namespace: "test-ns"}

	names, err := o.ListRunningPodNames(context.Background())
	if err != nil {
		t.Fatalf("ListRunningPodNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "running-pod" {
		t.Fatalf("got %v, want [running-pod]", names)
	}
}
