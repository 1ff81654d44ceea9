package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Runner executes one generation run end to end.
type Runner interface {
	Run(ctx context.Context, projectID string, spec *domain.ProjectSpec, maxIterations int) (domain.CodeArtifact, error)
}

// StatusReader reads the current status record for a project.
type StatusReader interface {
	Get(ctx context.Context, projectID string) (*domain.StatusRecord, error)
}

// ProjectStore creates the persisted project row before a run starts.
type ProjectStore interface {
	Create(ctx context.Context, project *domain.Project) error
}

// Handler exposes project generation and status polling
type Handler struct {
	runner        Runner
	statuses      StatusReader
	projects      ProjectStore // optional; nil disables row persistence
	maxIterations int
	runTimeout    time.Duration
}

// NewHandler creates a new Handler
func NewHandler(runner Runner, statuses StatusReader, projects ProjectStore, maxIterations int) *Handler {
	return &Handler{
		runner:        runner,
		statuses:      statuses,
		projects:      projects,
		maxIterations: maxIterations,
		runTimeout:    30 * time.Minute,
	}
}

// GenerateProject accepts a project spec, starts a generation run in the
// background and returns 202 with the URL to poll for status
func (h *Handler) GenerateProject(c *gin.Context) {
	var body GenerateProjectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	projectID := uuid.New().String()
	spec := &domain.ProjectSpec{
		Name:        body.ProjectName,
		Description: body.Description,
		Settings:    body.Settings,
	}

	if h.projects != nil {
		project := &domain.Project{
			ProjectID:   projectID,
			Name:        body.ProjectName,
			Description: body.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.projects.Create(c.Request.Context(), project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
			return
		}
	}

	// The run outlives the HTTP request; it gets its own deadline instead of
	// the request context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()

		if _, err := h.runner.Run(ctx, projectID, spec, h.maxIterations); err != nil {
			log.Printf("generation run %s failed: %v", projectID, err)
		}
	}()

	c.JSON(http.StatusAccepted, GenerateProjectResponse{
		ProjectID:      projectID,
		Status:         string(domain.StatusInitializing),
		StatusCheckURL: "/api/v1/projects/" + projectID + "/status",
	})
}

// GetProjectStatus returns the current status record for a project
func (h *Handler) GetProjectStatus(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project ID is required"})
		return
	}

	record, err := h.statuses.Get(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get project status"})
		return
	}

	c.JSON(http.StatusOK, ProjectStatusResponse{
		ProjectID: projectID,
		Status:    string(record.Status),
		UpdatedAt: record.UpdatedAt.Format(time.RFC3339),
		Error:     record.Error,
	})
}
