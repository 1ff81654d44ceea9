package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/canopus-software/aoede-backend/internal/generation/domain"
	"github.com/canopus-software/aoede-backend/internal/sandbox"
)

// checkCommands maps each component to the fixed command that validates it
// inside the sandbox. A component is valid iff its command exits zero.
var checkCommands = map[domain.Component]string{
	domain.ComponentFrontend: "npm test && npx eslint .",
	domain.ComponentBackend:  "pytest && pylint **/*.py",
	domain.ComponentDatabase: "sqlfluff lint .",
	domain.ComponentAPI:      "npm run test:api",
}

// Validator checks a full artifact inside a sandbox, one component at a time.
// Validation is all-or-nothing: every component is checked on every pass,
// including components that passed a previous pass.
type Validator struct {
	executor sandbox.Executor
}

// NewValidator creates a new Validator
func NewValidator(executor sandbox.Executor) *Validator {
	return &Validator{executor: executor}
}

// Validate writes each component's files into the sandbox workspace, runs its
// check command, and merges the outcomes. The overall result is valid iff
// every component passed; errors are concatenated in component declaration
// order, each segment preserving the check command's native ordering. An
// error return means the sandbox infrastructure failed, which is fatal to the
// run; a failing check command is reported through the result instead.
func (v *Validator) Validate(ctx context.Context, sb *sandbox.Sandbox, artifact domain.CodeArtifact) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{Valid: true}

	for _, component := range domain.Components() {
		res, err := v.executor.Execute(ctx, sb, artifact[component], checkCommands[component])
		if err != nil {
			return nil, err
		}

		if res.ExitCode == 0 {
			continue
		}

		result.Valid = false
		result.Errors = append(result.Errors, parseCheckOutput(component, res.Output)...)
	}

	return result, nil
}

// locationPattern matches the "path:line[:col]" prefix most linters and test
// runners emit.
var locationPattern = regexp.MustCompile(`^([^\s:]+:\d+(?::\d+)?):?\s+(.+)$`)

func parseCheckOutput(component domain.Component, output string) []domain.ValidationError {
	var errs []domain.ValidationError

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		e := domain.ValidationError{Component: component, Message: line}
		if m := locationPattern.FindStringSubmatch(line); m != nil {
			e.Location = m[1]
			e.Message = strings.TrimSpace(m[2])
		}
		errs = append(errs, e)
	}

	if len(errs) == 0 {
		errs = append(errs, domain.ValidationError{
			Component: component,
			Message:   "check command failed with no output",
		})
	}

	return errs
}
