package domain

import "time"

// Component identifies one generated part of a project. The set is closed;
// Components returns it in declaration order, which is also the order
// validation results are reported in.
type Component string

const (
	ComponentFrontend Component = "frontend"
	ComponentBackend  Component = "backend"
	ComponentDatabase Component = "database"
	ComponentAPI      Component = "api"
)

// Components returns all components in declaration order.
func Components() []Component {
	return []Component{ComponentFrontend, ComponentBackend, ComponentDatabase, ComponentAPI}
}

// ProjectStatus is the lifecycle state of a generation run.
type ProjectStatus string

const (
	StatusInitializing ProjectStatus = "initializing"
	StatusGenerating   ProjectStatus = "generating"
	StatusValidating   ProjectStatus = "validating"
	StatusFixing       ProjectStatus = "fixing"
	StatusCompleted    ProjectStatus = "completed"
	StatusFailed       ProjectStatus = "failed"
)

// Terminal reports whether no further status may be written after s.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusRecord is the externally visible snapshot of a run, stored as a
// full-record replace keyed by project ID.
type StatusRecord struct {
	Status    ProjectStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
	Error     string        `json:"error,omitempty"`
}

// CodeArtifact maps each component to its generated files (path -> content).
// Fixes replace the whole artifact, never a partial patch.
type CodeArtifact map[Component]map[string]string

// ValidationError is one structured failure from a component's check command.
type ValidationError struct {
	Component Component `json:"component"`
	Message   string    `json:"message"`
	Location  string    `json:"location,omitempty"`
}

// ValidationResult is the outcome of validating a full artifact. Valid is
// true only when every component's check command exited zero.
type ValidationResult struct {
	Valid  bool              `json:"is_valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ProjectSpec is the caller-supplied description a generation run works from.
type ProjectSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// Project is the persisted record of one generation run.
type Project struct {
	ProjectID   string       `json:"project_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Artifact    CodeArtifact `json:"artifact,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
