package output

import (
	"context"
	"errors"
	"time"
)

// ErrInvocationTimeout indicates the backend did not answer within the
// configured deadline. The adapter enforces the deadline itself; the
// backend is not trusted to respect it.
var ErrInvocationTimeout = errors.New("invocation timeout")

// ErrInvocation indicates the backend invocation failed for any other
// reason (process spawn failure, non-zero exit, unreadable output).
var ErrInvocation = errors.New("invocation error")

// AgentGateway is the interface to the external code-generation backend.
// It is a boundary only: it transports a prompt and returns raw text,
// never interpreting content and never retrying internally. Retries are
// exclusively the loop controller's responsibility so attempt counts
// stay accurate.
type AgentGateway interface {
	// Execute runs the agent with the given request
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)

	// HealthCheck verifies the agent is available
	HealthCheck(ctx context.Context) error
}

// AgentRequest represents a request to the code-generation backend
type AgentRequest struct {
	Prompt  string        // Full context payload for one iteration
	Timeout time.Duration // Hard deadline enforced by the adapter
}

// AgentResponse represents the raw response from the backend
type AgentResponse struct {
	Output    string        // Raw response text, uninterpreted
	Duration  time.Duration // Wall-clock execution time
	AgentType string        // Identifier of the backend that executed
}
