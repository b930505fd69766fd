package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/interface/external/claudecli"
)

// ClaudeCLIGateway implements AgentGateway by shelling out to the
// claude CLI. It is a boundary only: content is transported untouched,
// and no retry ever happens at this layer.
type ClaudeCLIGateway struct {
	runner *claudecli.Runner
}

// NewClaudeCLIGateway creates a gateway around the given CLI binary
func NewClaudeCLIGateway(bin string, timeout time.Duration) *ClaudeCLIGateway {
	return &ClaudeCLIGateway{
		runner: &claudecli.Runner{Bin: bin, Timeout: timeout},
	}
}

// Execute runs the CLI once with the request prompt
func (g *ClaudeCLIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	runner := *g.runner
	if req.Timeout > 0 {
		runner.Timeout = req.Timeout
	}

	start := time.Now()
	result, err := runner.Run(ctx, req.Prompt)
	if err != nil {
		if errors.Is(err, claudecli.ErrTimeout) {
			return nil, fmt.Errorf("%w: %v", output.ErrInvocationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", output.ErrInvocation, err)
	}

	return &output.AgentResponse{
		Output:    result,
		Duration:  time.Since(start),
		AgentType: "claude-cli",
	}, nil
}

// HealthCheck verifies the CLI binary is invocable
func (g *ClaudeCLIGateway) HealthCheck(ctx context.Context) error {
	runner := *g.runner
	runner.Timeout = 30 * time.Second

	if _, err := runner.Run(ctx, "ping", "--max-turns", "1"); err != nil {
		return fmt.Errorf("claude CLI health check failed: %w", err)
	}
	return nil
}
