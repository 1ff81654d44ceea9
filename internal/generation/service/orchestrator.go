package service

import (
	"context"
	"log"
	"time"

	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/canopus-software/aoede-backend/internal/sandbox"
	"golang.org/x/sync/errgroup"
)

// CodeGenerator produces the files for one component. Invoked once per
// component per run, concurrently across components.
type CodeGenerator interface {
	Generate(ctx context.Context, component domain.Component, spec *domain.ProjectSpec) (map[string]string, error)
}

// Fixer produces a replacement for the full artifact given the current
// validation errors. Fixes are whole-artifact, never partial patches.
type Fixer interface {
	Fix(ctx context.Context, artifact domain.CodeArtifact, errs []domain.ValidationError) (domain.CodeArtifact, error)
}

// StatusStore publishes run progress for external polling.
type StatusStore interface {
	Set(ctx context.Context, projectID string, record *domain.StatusRecord) error
}

// ArtifactStore persists the finalized artifact of a completed run.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, projectID string, artifact domain.CodeArtifact) error
}

// Orchestrator drives the per-project generation state machine:
// INITIALIZING -> GENERATING -> VALIDATING -> (FIXING -> VALIDATING)* ->
// COMPLETED | FAILED. Each run owns exactly one sandbox, torn down on every
// exit path.
type Orchestrator struct {
	generator CodeGenerator
	fixer     Fixer
	executor  sandbox.Executor
	statuses  StatusStore
	artifacts ArtifactStore // optional; nil disables finalize persistence
	validator *Validator
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(generator CodeGenerator, fixer Fixer, executor sandbox.Executor, statuses StatusStore, artifacts ArtifactStore) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		fixer:     fixer,
		executor:  executor,
		statuses:  statuses,
		artifacts: artifacts,
		validator: NewValidator(executor),
	}
}

// Run executes one end-to-end generation run for a project. On success the
// finalized artifact is returned; on failure the error is returned after a
// FAILED status has been published. The number of fix rounds never exceeds
// maxIterations. The sandbox acquired at the start is torn down exactly once
// before Run returns, regardless of outcome or cancellation.
func (o *Orchestrator) Run(ctx context.Context, projectID string, spec *domain.ProjectSpec, maxIterations int) (domain.CodeArtifact, error) {
	if err := o.publish(ctx, projectID, domain.StatusInitializing); err != nil {
		o.fail(projectID, err)
		return nil, err
	}

	sb, err := o.executor.Create(ctx, projectID)
	if err != nil {
		o.fail(projectID, err)
		return nil, err
	}
	defer o.executor.Cleanup(sb)

	if err := o.publish(ctx, projectID, domain.StatusGenerating); err != nil {
		o.fail(projectID, err)
		return nil, err
	}

	artifact, err := o.generate(ctx, spec)
	if err != nil {
		o.fail(projectID, err)
		return nil, err
	}

	if err := o.publish(ctx, projectID, domain.StatusValidating); err != nil {
		o.fail(projectID, err)
		return nil, err
	}

	result, err := o.validator.Validate(ctx, sb, artifact)
	if err != nil {
		o.fail(projectID, err)
		return nil, err
	}

	// Fix and re-validate strictly alternate; the loop never runs more than
	// maxIterations fix rounds.
	iterations := 0
	for !result.Valid && iterations < maxIterations {
		if err := o.publish(ctx, projectID, domain.StatusFixing); err != nil {
			o.fail(projectID, err)
			return nil, err
		}

		fixed, err := o.fixer.Fix(ctx, artifact, result.Errors)
		if err != nil {
			ferr := &domain.FixError{Err: err}
			o.fail(projectID, ferr)
			return nil, ferr
		}
		artifact = fixed

		if err := o.publish(ctx, projectID, domain.StatusValidating); err != nil {
			o.fail(projectID, err)
			return nil, err
		}

		result, err = o.validator.Validate(ctx, sb, artifact)
		if err != nil {
			o.fail(projectID, err)
			return nil, err
		}

		iterations++
	}

	if !result.Valid {
		o.fail(projectID, domain.ErrIterationLimitExceeded)
		return nil, domain.ErrIterationLimitExceeded
	}

	if o.artifacts != nil {
		if err := o.artifacts.SaveArtifact(ctx, projectID, artifact); err != nil {
			o.fail(projectID, err)
			return nil, err
		}
	}

	if err := o.publish(ctx, projectID, domain.StatusCompleted); err != nil {
		// The run must still end on a terminal record; a stuck VALIDATING
		// status would leave pollers hanging forever.
		o.fail(projectID, err)
		return nil, err
	}

	return artifact, nil
}

// generate fans out one subtask per component and joins all results into a
// single artifact. The subtasks have no ordering dependency; the merge waits
// for all of them, and any subtask failure fails the whole run.
func (o *Orchestrator) generate(ctx context.Context, spec *domain.ProjectSpec) (domain.CodeArtifact, error) {
	components := domain.Components()
	results := make([]map[string]string, len(components))

	g, gctx := errgroup.WithContext(ctx)
	for i, component := range components {
		g.Go(func() error {
			files, err := o.generator.Generate(gctx, component, spec)
			if err != nil {
				return &domain.GenerationError{Component: component, Err: err}
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	artifact := make(domain.CodeArtifact, len(components))
	for i, component := range components {
		artifact[component] = results[i]
	}

	return artifact, nil
}

// publish writes the status record before the corresponding phase begins, so
// pollers always observe the in-progress state during long operations.
func (o *Orchestrator) publish(ctx context.Context, projectID string, status domain.ProjectStatus) error {
	return o.statuses.Set(ctx, projectID, &domain.StatusRecord{
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	})
}

// fail publishes the terminal FAILED record with the run's error. It uses a
// fresh context so the record still lands when the run was cancelled, and a
// store failure here is logged rather than propagated: the run's outcome is
// already decided.
func (o *Orchestrator) fail(projectID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := &domain.StatusRecord{
		Status:    domain.StatusFailed,
		UpdatedAt: time.Now().UTC(),
		Error:     cause.Error(),
	}
	if err := o.statuses.Set(ctx, projectID, record); err != nil {
		log.Printf("generation: failed to record FAILED status for %s: %v", projectID, err)
	}
}
