// Package pipeline defines the JSON document a job submission carries:
// what image to run, what input to read, where to write output, and how
// much of it to run in parallel.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Spec is the top-level pipeline specification document, submitted as the
// body of a job creation request and stored verbatim on the Job row.
type Spec struct {
	Pipeline         PipelineInfo      `json:"pipeline" validate:"required"`
	Transform        Transform         `json:"transform" validate:"required"`
	Input            Input             `json:"input" validate:"required"`
	Egress           Egress            `json:"egress" validate:"required"`
	ParallelismSpec  ParallelismSpec   `json:"parallelism_spec"`
	ResourceRequests ResourceRequests  `json:"resource_requests" validate:"required"`
	NodeSelector     map[string]string `json:"node_selector,omitempty"`
	ServiceAccount   string            `json:"service_account,omitempty"`
	DatumTries       int               `json:"datum_tries,omitempty"`
	JobTimeout       string            `json:"job_timeout,omitempty"`
}

// PipelineInfo names the pipeline being run.
type PipelineInfo struct {
	Name string `json:"name" validate:"required"`
}

// Transform describes the container the coordinator asks the orchestrator
// to run once per datum.
type Transform struct {
	Image   string            `json:"image" validate:"required"`
	Cmd     []string          `json:"cmd" validate:"required,min=1"`
	Env     map[string]string `json:"env,omitempty"`
	Secrets []Secret          `json:"secrets,omitempty"`
}

// Atom describes one input source: a repo exposed under /pfs/<repo>/…,
// resolved against a URI prefix, with a glob controlling how many files
// become one datum.
type Atom struct {
	URI  string `json:"uri" validate:"required"`
	Repo string `json:"repo" validate:"required"`
	Glob string `json:"glob" validate:"required"`
}

// Input wraps the atom Job Admission resolves into InputFiles.
type Input struct {
	Atom Atom `json:"atom" validate:"required"`
}

// Egress names the URI prefix output is ultimately expected to land under.
// The coordinator does not enforce this; it is informational for the
// worker and for operators inspecting a Job.
type Egress struct {
	URI string `json:"uri" validate:"required"`
}

// ParallelismSpec controls how many workers the orchestrator starts for
// a job. Only a constant worker count is supported.
type ParallelismSpec struct {
	Constant int `json:"constant"`
}

// ResourceRequests supplies the batch-job manifest's container resources.
// Memory and CPU are set verbatim as the container's resource limits, which
// Kubernetes also uses as its requests; GPU is not placed in the manifest.
type ResourceRequests struct {
	Memory string `json:"memory" validate:"required"`
	CPU    string `json:"cpu" validate:"required"`
	GPU    *int   `json:"gpu,omitempty"`
}

// SecretKind discriminates the two ways a Secret can attach to the
// transform's container.
type SecretKind string

const (
	SecretKindMount SecretKind = "mount"
	SecretKindEnv   SecretKind = "env"
)

// Secret is a tagged union: a Kubernetes secret mounted as a volume, or
// one key of it exposed as an environment variable.
type Secret struct {
	Kind SecretKind

	// Mount fields.
	Name      string
	MountPath string

	// Env fields.
	Key      string
	EnvVar   string
	Optional bool
}

type secretWire struct {
	Name      string `json:"name,omitempty"`
	MountPath string `json:"mount_path,omitempty"`
	Key       string `json:"key,omitempty"`
	EnvVar    string `json:"env_var,omitempty"`
	Optional  *bool  `json:"optional,omitempty"`
}

// UnmarshalJSON dispatches on which fields are present: mount_path means
// a Mount secret, env_var means an Env secret. Exactly one shape must
// match or the document is rejected.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var w secretWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.MountPath != "" && w.EnvVar == "":
		s.Kind = SecretKindMount
		s.Name = w.Name
		s.MountPath = w.MountPath
	case w.EnvVar != "" && w.MountPath == "":
		s.Kind = SecretKindEnv
		s.Name = w.Name
		s.Key = w.Key
		s.EnvVar = w.EnvVar
		s.Optional = w.Optional != nil && *w.Optional
	default:
		return fmt.Errorf("secret must set exactly one of mount_path or env_var")
	}
	return nil
}

// MarshalJSON renders the Secret back into the wire shape its Kind implies.
func (s Secret) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SecretKindMount:
		return json.Marshal(secretWire{Name: s.Name, MountPath: s.MountPath})
	case SecretKindEnv:
		optional := s.Optional
		return json.Marshal(secretWire{Name: s.Name, Key: s.Key, EnvVar: s.EnvVar, Optional: &optional})
	default:
		return nil, fmt.Errorf("secret has unknown kind %q", s.Kind)
	}
}

// schemaDocument enforces the shape of a submitted pipeline spec before it
// is even unmarshaled into Spec, so a client gets a precise field-path
// error for a malformed document instead of a generic JSON decode error.
const schemaDocument = `{
  "type": "object",
  "required": ["pipeline", "transform", "input", "egress", "resource_requests"],
  "properties": {
    "pipeline": {"type": "object", "required": ["name"]},
    "transform": {"type": "object", "required": ["image", "cmd"]},
    "input": {"type": "object", "required": ["atom"]},
    "egress": {"type": "object", "required": ["uri"]},
    "resource_requests": {"type": "object", "required": ["memory", "cpu"]},
    "datum_tries": {"type": "integer", "minimum": 0},
    "job_timeout": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaDocument)

// ValidateJSON checks raw against the pipeline spec's JSON schema. Called
// before json.Unmarshal so a malformed document produces a field-path
// error rather than a bare decode failure.
func ValidateJSON(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("could not evaluate pipeline spec schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("pipeline spec schema violations: %s", strings.Join(msgs, "; "))
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct-level constraints validator/v10 tags express,
// then the constraints those tags cannot: JobTimeout's duration syntax,
// DatumTries's non-negativity, and ParallelismSpec.Constant's non-negativity.
func Validate(spec *Spec) error {
	if err := validate.Struct(spec); err != nil {
		return fmt.Errorf("pipeline spec failed validation: %w", err)
	}
	if spec.DatumTries < 0 {
		return fmt.Errorf("datum_tries must be non-negative, got %d", spec.DatumTries)
	}
	if spec.ParallelismSpec.Constant < 0 {
		return fmt.Errorf("parallelism_spec.constant must be non-negative, got %d", spec.ParallelismSpec.Constant)
	}
	if spec.JobTimeout != "" {
		if _, err := time.ParseDuration(spec.JobTimeout); err != nil {
			return fmt.Errorf("job_timeout %q is not a valid duration: %w", spec.JobTimeout, err)
		}
	}
	return nil
}

// EffectiveDatumTries returns spec.DatumTries, defaulting to 1 when unset.
func (s *Spec) EffectiveDatumTries() int {
	if s.DatumTries <= 0 {
		return 1
	}
	return s.DatumTries
}

// EffectiveParallelism returns the worker count to request, defaulting to 1.
func (s *Spec) EffectiveParallelism() int {
	if s.ParallelismSpec.Constant <= 0 {
		return 1
	}
	return s.ParallelismSpec.Constant
}
