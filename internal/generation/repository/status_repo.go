package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "project_status:" // Key for a project's status record: project_status:{project_id}
	statusTTL       = 7 * 24 * time.Hour
)

// StatusRepository handles Redis operations for project status records. Each
// write is a full-record replace keyed by project ID, so concurrent runs for
// different projects never conflict.
type StatusRepository struct {
	client *redis.Client
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(client *redis.Client) *StatusRepository {
	return &StatusRepository{client: client}
}

// Set upserts the status record for a project
func (r *StatusRepository) Set(ctx context.Context, projectID string, record *domain.StatusRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal status record: %w", err)
	}

	if err := r.client.Set(ctx, r.statusKey(projectID), data, statusTTL).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	return nil
}

// Get retrieves the status record for a project
func (r *StatusRepository) Get(ctx context.Context, projectID string) (*domain.StatusRecord, error) {
	data, err := r.client.Get(ctx, r.statusKey(projectID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var record domain.StatusRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status record: %w", err)
	}

	return &record, nil
}

func (r *StatusRepository) statusKey(projectID string) string {
	return fmt.Sprintf("%s%s", statusKeyPrefix, projectID)
}
