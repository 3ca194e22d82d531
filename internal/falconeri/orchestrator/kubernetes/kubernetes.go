// Package kubernetes implements the orchestrator collaborator on top of
// a Kubernetes batch/v1.Job per Falconeri job.
package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"falconeri/internal/falconeri/orchestrator"
)

const (
	managedByLabel = "app.kubernetes.io/managed-by"
	managedByValue = "falconeri"
	jobIDLabel     = "falconeri.io/job-id"
)

// Config configures the Kubernetes-backed Orchestrator.
type Config struct {
	Namespace string
}

// Orchestrator implements orchestrator.Orchestrator against a Kubernetes
// cluster. One batch/v1.Job per Falconeri Job, with parallelism set from
// the pipeline spec's parallelism_spec.constant.
type Orchestrator struct {
	clientset kubernetes.Interface
	namespace string
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return os.Getenv("USERPROFILE")
}

// New builds an Orchestrator, trying in-cluster configuration first and
// falling back to the local kubeconfig for development.
func New(cfg Config) (*Orchestrator, error) {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := filepath.Join(homeDir(), ".kube", "config")
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("build kubernetes config: %w", err)
		}
		slog.Info("using kubeconfig for orchestrator", "path", kubeconfig)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes clientset: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}

	return &Orchestrator{clientset: clientset, namespace: namespace}, nil
}

// SubmitBatchJob renders spec into a batch/v1.Job and creates it.
func (o *Orchestrator) SubmitBatchJob(ctx context.Context, spec orchestrator.BatchJobSpec) error {
	var envVars []corev1.EnvVar
	for key, value := range spec.Env {
		envVars = append(envVars, corev1.EnvVar{Name: key, Value: value})
	}

	resourceList := corev1.ResourceList{}
	if spec.ResourceLimits.Memory != "" {
		resourceList[corev1.ResourceMemory] = resource.MustParse(spec.ResourceLimits.Memory)
	}
	if spec.ResourceLimits.CPU != "" {
		resourceList[corev1.ResourceCPU] = resource.MustParse(spec.ResourceLimits.CPU)
	}

	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount
	for _, secret := range spec.Secrets {
		switch secret.Kind {
		case "mount":
			volumes = append(volumes, corev1.Volume{
				Name: secret.Name,
				VolumeSource: corev1.VolumeSource{
					Secret: &corev1.SecretVolumeSource{SecretName: secret.Name},
				},
			})
			mounts = append(mounts, corev1.VolumeMount{Name: secret.Name, MountPath: secret.MountPath, ReadOnly: true})
		case "env":
			envVars = append(envVars, corev1.EnvVar{
				Name: secret.EnvVar,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: secret.Name},
						Key:                  secret.Key,
						Optional:             &secret.Optional,
					},
				},
			})
		}
	}

	parallelism := int32(spec.Parallelism)
	backoffLimit := int32(0)
	jobName := fmt.Sprintf("falconeri-%s", spec.JobID)

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: o.namespace,
			Labels: map[string]string{
				managedByLabel: managedByValue,
				jobIDLabel:     spec.JobID,
			},
		},
		Spec: batchv1.JobSpec{
			Parallelism:  &parallelism,
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						managedByLabel: managedByValue,
						jobIDLabel:     spec.JobID,
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					NodeSelector:  spec.NodeSelector,
					Volumes:       volumes,
					Containers: []corev1.Container{
						{
							Name:         "worker",
							Image:        spec.Image,
							Command:      spec.Cmd,
							Env:          envVars,
							VolumeMounts: mounts,
							Resources:    corev1.ResourceRequirements{Limits: resourceList},
						},
					},
				},
			},
		},
	}

	if spec.ServiceAccount != "" {
		job.Spec.Template.Spec.ServiceAccountName = spec.ServiceAccount
	}

	_, err := o.clientset.BatchV1().Jobs(o.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("create kubernetes job for falconeri job %s: %w", spec.JobID, err)
	}
	return nil
}

// ListBatchJobs lists every batch/v1.Job this orchestrator manages.
func (o *Orchestrator) ListBatchJobs(ctx context.Context) ([]orchestrator.BatchJob, error) {
	list, err := o.clientset.BatchV1().Jobs(o.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", managedByLabel, managedByValue),
	})
	if err != nil {
		return nil, fmt.Errorf("list kubernetes jobs: %w", err)
	}

	jobs := make([]orchestrator.BatchJob, 0, len(list.Items))
	for _, item := range list.Items {
		jobs = append(jobs, orchestrator.BatchJob{
			Name:           item.Name,
			FalconeriJobID: item.Labels[jobIDLabel],
			Complete:       item.Status.Succeeded > 0,
			Failed:         item.Status.Failed > 0,
		})
	}
	return jobs, nil
}

// ListRunningPodNames lists the names of every pod this orchestrator
// manages that is currently Running.
func (o *Orchestrator) ListRunningPodNames(ctx context.Context) ([]string, error) {
	list, err := o.clientset.CoreV1().Pods(o.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", managedByLabel, managedByValue),
	})
	if err != nil {
		return nil, fmt.Errorf("list kubernetes pods: %w", err)
	}

	names := make([]string, 0, len(list.Items))
	for _, pod := range list.Items {
		if pod.Status.Phase == corev1.PodRunning {
			names = append(names, pod.Name)
		}
	}
	return names, nil
}

// DeleteBatchJob deletes the batch/v1.Job for falconeriJobID, with
// foreground propagation so its pods are cleaned up too.
func (o *Orchestrator) DeleteBatchJob(ctx context.Context, falconeriJobID string) error {
	propagation := metav1.DeletePropagationForeground
	jobName := fmt.Sprintf("falconeri-%s", falconeriJobID)
	err := o.clientset.BatchV1().Jobs(o.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil {
		return fmt.Errorf("delete kubernetes job %s: %w", jobName, err)
	}
	return nil
}
