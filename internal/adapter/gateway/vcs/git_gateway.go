package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitGateway commits working tree changes via the git CLI. It is only
// invoked after a story passed validation; a commit failure must be
// treated as fatal for the iteration by the caller, never skipped.
type GitGateway struct {
	WorkDir string
}

// NewGitGateway creates a gateway committing inside workDir
func NewGitGateway(workDir string) *GitGateway {
	return &GitGateway{WorkDir: workDir}
}

// Commit stages everything and commits with the given message.
// An empty diff is not an error: the backend may have produced a state
// already committed (e.g. after a rerun), which git reports distinctly.
func (g *GitGateway) Commit(ctx context.Context, message string) error {
	if out, err := g.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("git add failed: %w (output: %s)", err, out)
	}

	out, err := g.run(ctx, "commit", "-m", message)
	if err != nil {
		if strings.Contains(out, "nothing to commit") {
			return nil
		}
		return fmt.Errorf("git commit failed: %w (output: %s)", err, out)
	}
	return nil
}

func (g *GitGateway) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.WorkDir
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// NopVCS skips version control entirely. Used in tests and dry runs.
type NopVCS struct{}

// Commit does nothing
func (NopVCS) Commit(ctx context.Context, message string) error {
	return nil
}
