package http

// GenerateProjectRequest is the body for POST /projects/generate
type GenerateProjectRequest struct {
	ProjectName string            `json:"project_name" binding:"required,min=3"`
	Description string            `json:"description" binding:"required"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// GenerateProjectResponse is returned with 202 Accepted once a run is queued
type GenerateProjectResponse struct {
	ProjectID      string `json:"project_id"`
	Status         string `json:"status"`
	StatusCheckURL string `json:"status_check_url"`
}

// ProjectStatusResponse is the polling view of a run's status record
type ProjectStatusResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
	Error     string `json:"error,omitempty"`
}
