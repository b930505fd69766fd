package claudecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes the claude CLI with a hard timeout. The backend is not
// trusted to respect deadlines, so the timeout is enforced here via the
// process context.
type Runner struct {
	Bin     string
	Timeout time.Duration
}

// ErrTimeout indicates the CLI did not finish within the deadline
var ErrTimeout = errors.New("claude execution timed out")

// claudeEnvelope is the JSON envelope `claude -p --output-format json` emits
type claudeEnvelope struct {
	Type      string `json:"type"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

// Run invokes the CLI once with the given prompt and returns the result
// text. No retries happen here: retry accounting belongs to the caller.
func (r Runner) Run(ctx context.Context, prompt string, extraArgs ...string) (string, error) {
	args := []string{"-p", "--output-format", "json"}
	args = append(args, extraArgs...)
	args = append(args, prompt)

	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.Bin, args...)
	out, err := cmd.CombinedOutput()

	if cctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w after %v", ErrTimeout, r.Timeout)
	}
	if err != nil {
		return "", fmt.Errorf("claude execution failed: %w (output: %s)", err, truncate(string(out), 2000))
	}

	var envelope claudeEnvelope
	if err := json.Unmarshal(out, &envelope); err != nil {
		// Older CLI versions emit plain text
		return string(out), nil
	}
	if envelope.IsError {
		return "", fmt.Errorf("claude returned error: %s", envelope.Result)
	}
	return envelope.Result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
