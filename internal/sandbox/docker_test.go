package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records docker invocations and plays back scripted results.
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	output   string
	exitCode int
	err      error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.exitCode, f.err
}

func (f *fakeRunner) callCount(subcommand string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, call := range f.calls {
		if len(call) > 1 && call[1] == subcommand {
			n++
		}
	}
	return n
}

func newTestExecutor(t *testing.T, runner *fakeRunner) *DockerExecutor {
	t.Helper()

	e := NewDockerExecutor(DockerConfig{
		Image:   "aoede/sandbox:test",
		BaseDir: t.TempDir(),
	})
	e.run = runner.run
	return e
}

func TestDockerExecutor_Create(t *testing.T) {
	t.Run("creates isolated container with workspace", func(t *testing.T) {
		runner := &fakeRunner{output: "abc123def456\n"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		assert.NotEmpty(t, sb.ID)
		assert.Equal(t, "proj-1", sb.ProjectID)
		assert.Equal(t, "abc123def456", sb.ContainerID)
		assert.DirExists(t, sb.Workdir)

		require.Len(t, runner.calls, 1)
		args := runner.calls[0]
		assert.Contains(t, args, "--network")
		assert.Contains(t, args, "none")
		assert.Contains(t, args, "--memory")
		assert.Contains(t, args, "512m")
		assert.Contains(t, args, "--cpus")
		assert.Contains(t, args, "0.5")
		assert.Contains(t, args, sb.Workdir+":/workspace")
	})

	t.Run("returns CreationError when docker cannot run", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("docker daemon not running")}
		e := newTestExecutor(t, runner)

		_, err := e.Create(context.Background(), "proj-1")

		var cerr *CreationError
		require.ErrorAs(t, err, &cerr)
	})

	t.Run("returns CreationError on non-zero docker exit", func(t *testing.T) {
		runner := &fakeRunner{output: "no such image", exitCode: 125}
		e := newTestExecutor(t, runner)

		_, err := e.Create(context.Background(), "proj-1")

		var cerr *CreationError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "no such image")
	})
}

func TestDockerExecutor_Execute(t *testing.T) {
	t.Run("writes files and reports exit code", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		runner.output = "2 tests failed"
		runner.exitCode = 1

		res, err := e.Execute(context.Background(), sb, map[string]string{
			"main.py":           "print('hi')",
			"pkg/util/helpers.py": "x = 1",
		}, "pytest")
		require.NoError(t, err)

		// Non-zero exit is a normal reportable outcome, not an error.
		assert.Equal(t, 1, res.ExitCode)
		assert.Equal(t, "2 tests failed", res.Output)

		content, err := os.ReadFile(filepath.Join(sb.Workdir, "main.py"))
		require.NoError(t, err)
		assert.Equal(t, "print('hi')", string(content))

		nested, err := os.ReadFile(filepath.Join(sb.Workdir, "pkg", "util", "helpers.py"))
		require.NoError(t, err)
		assert.Equal(t, "x = 1", string(nested))
	})

	t.Run("overwrites existing files at the same path", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		_, err = e.Execute(context.Background(), sb, map[string]string{"main.py": "v1"}, "true")
		require.NoError(t, err)
		_, err = e.Execute(context.Background(), sb, map[string]string{"main.py": "v2"}, "true")
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(sb.Workdir, "main.py"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(content))
	})

	t.Run("rejects relative paths that escape the workspace", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		_, err = e.Execute(context.Background(), sb, map[string]string{
			"../../outside/escape.txt": "boom",
		}, "pytest")

		var serr *ExecutionError
		require.ErrorAs(t, err, &serr)
		assert.NoFileExists(t, filepath.Join(sb.Workdir, "..", "..", "outside", "escape.txt"))
		assert.Equal(t, 0, runner.callCount("exec"), "nothing may run after a rejected path")
	})

	t.Run("rejects absolute paths", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		_, err = e.Execute(context.Background(), sb, map[string]string{
			"/etc/passwd": "boom",
		}, "pytest")

		var serr *ExecutionError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("reports a dead container as an infrastructure failure", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		runner.output = "container container-1 is not running"
		runner.exitCode = 126

		_, err = e.Execute(context.Background(), sb, nil, "pytest")

		var serr *ExecutionError
		require.ErrorAs(t, err, &serr)
		assert.Contains(t, err.Error(), "is not running")
	})

	t.Run("returns ExecutionError on infrastructure failure", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		runner.err = errors.New("i/o timeout")
		_, err = e.Execute(context.Background(), sb, nil, "pytest")

		var serr *ExecutionError
		require.ErrorAs(t, err, &serr)
	})
}

func TestDockerExecutor_Cleanup(t *testing.T) {
	t.Run("stops container and removes workspace", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		e.Cleanup(sb)

		assert.Equal(t, 1, runner.callCount("stop"))
		assert.NoDirExists(t, sb.Workdir)
	})

	t.Run("is idempotent", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		e.Cleanup(sb)
		e.Cleanup(sb)

		assert.Equal(t, 1, runner.callCount("stop"))
	})

	t.Run("swallows teardown failures", func(t *testing.T) {
		runner := &fakeRunner{output: "container-1"}
		e := newTestExecutor(t, runner)

		sb, err := e.Create(context.Background(), "proj-1")
		require.NoError(t, err)

		runner.err = errors.New("already removed")
		assert.NotPanics(t, func() { e.Cleanup(sb) })
	})

	t.Run("nil sandbox is a no-op", func(t *testing.T) {
		runner := &fakeRunner{}
		e := newTestExecutor(t, runner)

		assert.NotPanics(t, func() { e.Cleanup(nil) })
		assert.Empty(t, runner.calls)
	})
}
