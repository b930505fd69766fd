package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ralph-run/ralph/internal/application/port/output"
)

// ScriptedGateway is an AgentGateway returning canned responses in
// order. It backs --dry-run and makes the loop testable without any
// backend process.
type ScriptedGateway struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	calls     int
}

// ScriptedResponse is one canned reply, or an error to simulate a
// failing invocation.
type ScriptedResponse struct {
	Output string
	Err    error
}

// NewScriptedGateway creates a gateway that replays the given responses
func NewScriptedGateway(responses ...ScriptedResponse) *ScriptedGateway {
	return &ScriptedGateway{responses: responses}
}

// Execute returns the next canned response
func (g *ScriptedGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.calls >= len(g.responses) {
		return nil, fmt.Errorf("%w: scripted gateway exhausted after %d calls", output.ErrInvocation, g.calls)
	}
	resp := g.responses[g.calls]
	g.calls++

	if resp.Err != nil {
		return nil, resp.Err
	}
	return &output.AgentResponse{
		Output:    resp.Output,
		Duration:  time.Millisecond,
		AgentType: "scripted",
	}, nil
}

// Calls returns how many times Execute ran
func (g *ScriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// HealthCheck always succeeds for the scripted gateway
func (g *ScriptedGateway) HealthCheck(ctx context.Context) error {
	return nil
}
