package agent

import (
	"fmt"
	"time"

	"github.com/ralph-run/ralph/internal/application/port/output"
)

// NewAgentGateway creates an agent gateway by type.
// Supported types: claude-cli, scripted.
// The caller is responsible for the agent being installed.
func NewAgentGateway(agentType, bin string, timeout time.Duration) (output.AgentGateway, error) {
	switch agentType {
	case "claude-cli":
		if bin == "" {
			bin = "claude"
		}
		return NewClaudeCLIGateway(bin, timeout), nil

	case "scripted":
		// Empty script: every invocation fails, which surfaces quickly
		// in the ledger. Real scripts are injected in tests and dry runs.
		return NewScriptedGateway(), nil

	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: claude-cli, scripted)", agentType)
	}
}
