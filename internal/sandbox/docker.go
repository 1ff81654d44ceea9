package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cleanupTimeout = 30 * time.Second

// commandRunner runs one external command and returns its combined output and
// exit code. A non-zero exit is not an error; err is set only when the
// command could not be run at all.
type commandRunner func(ctx context.Context, name string, args ...string) (output string, exitCode int, err error)

func runCommand(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return buf.String(), exitErr.ExitCode(), nil
		}
		return buf.String(), -1, err
	}

	return buf.String(), 0, nil
}

type DockerConfig struct {
	Image       string
	BaseDir     string
	MemoryLimit string
	CPUs        string
	DockerBin   string
}

// DockerExecutor runs sandboxes as docker containers with no network access,
// a memory ceiling and a CPU share, each mounting a per-project workspace
// directory at /workspace.
type DockerExecutor struct {
	image     string
	baseDir   string
	memory    string
	cpus      string
	dockerBin string
	run       commandRunner
}

func NewDockerExecutor(cfg DockerConfig) *DockerExecutor {
	image := strings.TrimSpace(cfg.Image)
	if image == "" {
		image = "aoede/sandbox:latest"
	}

	baseDir := strings.TrimSpace(cfg.BaseDir)
	if baseDir == "" {
		baseDir = "/tmp/aoede/sandbox"
	}

	memory := strings.TrimSpace(cfg.MemoryLimit)
	if memory == "" {
		memory = "512m"
	}

	cpus := strings.TrimSpace(cfg.CPUs)
	if cpus == "" {
		cpus = "0.5"
	}

	dockerBin := strings.TrimSpace(cfg.DockerBin)
	if dockerBin == "" {
		dockerBin = "docker"
	}

	return &DockerExecutor{
		image:     image,
		baseDir:   baseDir,
		memory:    memory,
		cpus:      cpus,
		dockerBin: dockerBin,
		run:       runCommand,
	}
}

// Create allocates an isolated container bound to a fresh workspace
// directory for the project.
func (e *DockerExecutor) Create(ctx context.Context, projectID string) (*Sandbox, error) {
	workdir := filepath.Join(e.baseDir, projectID)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, &CreationError{Err: fmt.Errorf("prepare workspace: %w", err)}
	}

	output, exitCode, err := e.run(ctx, e.dockerBin,
		"run", "-d", "--rm",
		"--network", "none",
		"--memory", e.memory,
		"--cpus", e.cpus,
		"-v", workdir+":/workspace",
		"-w", "/workspace",
		e.image,
		"sleep", "infinity",
	)
	if err != nil {
		return nil, &CreationError{Err: err}
	}
	if exitCode != 0 {
		return nil, &CreationError{Err: fmt.Errorf("docker run exited %d: %s", exitCode, strings.TrimSpace(output))}
	}

	return &Sandbox{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		ContainerID: strings.TrimSpace(output),
		Workdir:     workdir,
	}, nil
}

// Execute writes files into the sandbox workspace (overwriting existing paths)
// and runs command inside the container. File paths come from model output and
// must stay inside the workspace; anything absolute or escaping via ".." is
// rejected. The command's exit code and combined output are returned; only
// infrastructure failures produce an error.
func (e *DockerExecutor) Execute(ctx context.Context, sb *Sandbox, files map[string]string, command string) (*ExecResult, error) {
	for path, content := range files {
		rel := filepath.FromSlash(path)
		if !filepath.IsLocal(rel) {
			return nil, &ExecutionError{Err: fmt.Errorf("file path %q escapes the workspace", path)}
		}

		full := filepath.Join(sb.Workdir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, &ExecutionError{Err: fmt.Errorf("prepare dir for %s: %w", path, err)}
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return nil, &ExecutionError{Err: fmt.Errorf("write %s: %w", path, err)}
		}
	}

	output, exitCode, err := e.run(ctx, e.dockerBin,
		"exec",
		"--workdir", "/workspace",
		sb.ContainerID,
		"sh", "-c", command,
	)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	// docker exec reserves 125-127 for its own failures (dead container,
	// missing shell); a check command's own failures exit below that range.
	if exitCode >= 125 && exitCode <= 127 {
		return nil, &ExecutionError{Err: fmt.Errorf("docker exec exited %d: %s", exitCode, strings.TrimSpace(output))}
	}

	return &ExecResult{ExitCode: exitCode, Output: output}, nil
}

// Cleanup stops the container and reclaims the workspace. It is idempotent
// and never reports failure; errors are logged and swallowed so teardown can
// never override a previously decided run outcome.
func (e *DockerExecutor) Cleanup(sb *Sandbox) {
	if sb == nil || !sb.cleaned.CompareAndSwap(false, true) {
		return
	}

	// Teardown must run even when the run's context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if sb.ContainerID != "" {
		if output, exitCode, err := e.run(ctx, e.dockerBin, "stop", sb.ContainerID); err != nil {
			log.Printf("sandbox: failed to stop container %s: %v", sb.ContainerID, err)
		} else if exitCode != 0 {
			log.Printf("sandbox: docker stop %s exited %d: %s", sb.ContainerID, exitCode, strings.TrimSpace(output))
		}
	}

	if sb.Workdir != "" {
		if err := os.RemoveAll(sb.Workdir); err != nil {
			log.Printf("sandbox: failed to remove workspace %s: %v", sb.Workdir, err)
		}
	}
}
