package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository persists project rows and their finalized artifacts in
// Postgres. The artifact is stored as JSONB once a run completes.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Create inserts a new project row
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}

	sql := `
INSERT INTO projects (id, name, description, created_at)
VALUES ($1, $2, $3, $4)
`
	if _, err := r.pool.Exec(ctx, sql, project.ProjectID, project.Name, project.Description, project.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// SaveArtifact stores the finalized artifact for a completed run
func (r *ProjectRepository) SaveArtifact(ctx context.Context, projectID string, artifact domain.CodeArtifact) error {
	artifactB, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	sql := `
UPDATE projects
SET artifact = $2::jsonb, completed_at = $3
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, sql, projectID, artifactB, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// GetByID retrieves a project row, including its artifact if finalized
func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	sql := `
SELECT id, name, description, artifact, created_at, completed_at
FROM projects
WHERE id = $1
`
	var (
		project   domain.Project
		artifactB []byte
	)

	err := r.pool.QueryRow(ctx, sql, projectID).Scan(
		&project.ProjectID,
		&project.Name,
		&project.Description,
		&artifactB,
		&project.CreatedAt,
		&project.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if len(artifactB) > 0 {
		if err := json.Unmarshal(artifactB, &project.Artifact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
		}
	}

	return &project, nil
}
