package npm

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes the package manager binary.
type Runner interface {
	// Run executes the binary with args in dir using exactly env and returns
	// its combined stdout and stderr. A failed start or a nonzero exit is
	// reported as *ExitError.
	Run(ctx context.Context, dir string, env []string, args ...string) ([]byte, error)
}

// ExecRunner runs a local executable.
type ExecRunner struct {
	Path string
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, env []string, args ...string) ([]byte, error) {
	//nolint:gosec // The executable comes from configuration, not from user input.
	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Dir = dir
	cmd.Env = env

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &ExitError{Path: r.Path, Args: args, Dir: dir, Output: out, Err: err}
	}
	return out, nil
}

// ExitError reports an npm invocation that could not start or exited
// nonzero. Output holds everything npm wrote to stdout and stderr.
type ExitError struct {
	Path   string
	Args   []string
	Dir    string
	Output []byte
	Err    error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Path, strings.Join(e.Args, " "), e.Err)
}

// Unwrap returns the underlying exec error.
func (e *ExitError) Unwrap() error { return e.Err }

// CombinedOutput returns the captured npm output.
func (e *ExitError) CombinedOutput() []byte { return e.Output }

// ExitCode returns the process exit code, or -1 if npm never ran.
func (e *ExitError) ExitCode() int {
	var ee *exec.ExitError
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
