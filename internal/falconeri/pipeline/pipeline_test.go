package pipeline

import (
	"encoding/json"
	"testing"
)

const validSpecJSON = `{
  "pipeline": {"name": "edges"},
  "transform": {"image": "edges:latest", "cmd": ["./edges"]},
  "input": {"atom": {"uri": "s3://bucket/images", "repo": "images", "glob": "/*"}},
  "egress": {"uri": "s3://bucket/out"},
  "parallelism_spec": {"constant": 2},
  "resource_requests": {"memory": "256Mi", "cpu": "500m"},
  "datum_tries": 3,
  "job_timeout": "10m"
}`

func TestValidateJSON_Accepts(t *testing.T) {
	if err := ValidateJSON([]byte(validSpecJSON)); err != nil {
		t.Fatalf("expected valid schema, got %v", err)
	}
}

func TestValidateJSON_RejectsMissingRequiredField(t *testing.T) {
	if err := ValidateJSON([]byte(`{"pipeline": {"name": "edges"}}`)); err == nil {
		t.Fatal("expected schema violation for missing fields")
	}
}

func TestUnmarshalAndValidate_HappyPath(t *testing.T) {
	var spec Spec
	if err := json.Unmarshal([]byte(validSpecJSON), &spec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := Validate(&spec); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if spec.EffectiveDatumTries() != 3 {
		t.Errorf("got datum tries %d, want 3", spec.EffectiveDatumTries())
	}
	if spec.EffectiveParallelism() != 2 {
		t.Errorf("got parallelism %d, want 2", spec.EffectiveParallelism())
	}
}

func TestValidate_RejectsBadJobTimeout(t *testing.T) {
	spec := Spec{
		Pipeline:         PipelineInfo{Name: "p"},
		Transform:        Transform{Image: "i", Cmd: []string{"run"}},
		Input:            Input{Atom: Atom{URI: "s3://b", Repo: "r", Glob: "/*"}},
		Egress:           Egress{URI: "s3://out"},
		ResourceRequests: ResourceRequests{Memory: "1Gi", CPU: "1"},
		JobTimeout:       "not-a-duration",
	}
	if err := Validate(&spec); err == nil {
		t.Fatal("expected error for malformed job_timeout")
	}
}

func TestSecretUnmarshal_MountAndEnv(t *testing.T) {
	var mount Secret
	if err := json.Unmarshal([]byte(`{"name": "creds", "mount_path": "/secrets/creds"}`), &mount); err != nil {
		t.Fatalf("mount unmarshal failed: %v", err)
	}
	if mount.Kind != SecretKindMount || mount.MountPath != "/secrets/creds" {
		t.Fatalf("got %+v, want a mount secret", mount)
	}

	var env Secret
	if err := json.Unmarshal([]byte(`{"name": "creds", "key": "token", "env_var": "API_TOKEN", "optional": true}`), &env); err != nil {
		t.Fatalf("env unmarshal failed: %v", err)
	}
	if env.Kind != SecretKindEnv || env.EnvVar != "API_TOKEN" || !env.Optional {
		t.Fatalf("got %+v, want an optional env secret", env)
	}
}

func TestSecretUnmarshal_RejectsAmbiguousShape(t *testing.T) {
	var s Secret
	if err := json.Unmarshal([]byte(`{"name": "creds"}`), &s); err == nil {
		t.Fatal("expected error for secret with neither mount_path nor env_var")
	}
}
