package validation

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result aggregates the outcome of one validation pass. Validation is
// never fatal to the loop: a failed run routes back to the retry policy
// with the report text as diagnostics.
type Result struct {
	Passed bool
	Report string
}

// Runner checks the working tree after mutations were applied.
// Implementations run tests, linters, or type checkers; the loop only
// consumes the boolean and the report.
type Runner interface {
	Run(ctx context.Context, workDir string) (*Result, error)
}

// CommandRunner executes a configured shell command in the working tree
// and treats a non-zero exit as a validation failure.
type CommandRunner struct {
	Command string
}

// NewCommandRunner creates a validation runner for the given command
func NewCommandRunner(command string) *CommandRunner {
	return &CommandRunner{Command: command}
}

// Run executes the command and aggregates its combined output as report
func (r *CommandRunner) Run(ctx context.Context, workDir string) (*Result, error) {
	if strings.TrimSpace(r.Command) == "" {
		return &Result{Passed: true, Report: "no validation command configured"}, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.Command)
	cmd.Dir = workDir
	out, err := cmd.CombinedOutput()

	result := &Result{Report: string(out)}
	if err == nil {
		result.Passed = true
		return result, nil
	}

	if _, ok := err.(*exec.ExitError); ok {
		// Non-zero exit: a failed validation, not an error
		result.Report = fmt.Sprintf("validation command failed: %v\n%s", err, out)
		return result, nil
	}

	return nil, fmt.Errorf("failed to run validation command: %w", err)
}

// NopRunner always passes. Used when no validation is configured.
type NopRunner struct{}

// Run reports success without checking anything
func (NopRunner) Run(ctx context.Context, workDir string) (*Result, error) {
	return &Result{Passed: true, Report: "validation disabled"}, nil
}
