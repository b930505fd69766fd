package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/application/service"
	"github.com/ralph-run/ralph/internal/domain/model/attempt"
	"github.com/ralph-run/ralph/internal/domain/model/backlog"
	"github.com/ralph-run/ralph/internal/domain/repository"
	"github.com/ralph-run/ralph/internal/infra/validation"
	"github.com/ralph-run/ralph/internal/infra/workspace"
	"github.com/ralph-run/ralph/internal/infrastructure/parser"
)

// TerminationReason explains why the loop stopped
type TerminationReason string

const (
	ReasonBacklogExhausted         TerminationReason = "backlog_exhausted"
	ReasonBackendSignaledComplete  TerminationReason = "backend_signaled_complete"
	ReasonIterationBudgetExhausted TerminationReason = "iteration_budget_exhausted"
	ReasonCanceled                 TerminationReason = "canceled"
)

// Logger is the minimal logging surface the controller needs
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(format string, args ...interface{}) {}
func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Warn(format string, args ...interface{})  {}

// Options tunes one loop run
type Options struct {
	MaxIterations    int           // 0 means unlimited
	MaxRetries       int           // per-story attempt budget
	InvokeTimeout    time.Duration // hard deadline per backend call
	LedgerTailSize   int           // attempts fed back as context
	SentinelStopsRun bool          // completion sentinel terminates the whole run
	WorkDir          string        // working tree root, for validation and commits
}

// RunResult summarizes a finished loop run
type RunResult struct {
	Reason     TerminationReason
	Iterations int
}

// LoopController is the state machine tying the loop together:
// SelectingStory → BuildingContext → Invoking → Parsing → Applying →
// Validating → Committing → Recording → (loop) | Terminated.
// Exactly one story attempt runs per full cycle; attempts are never
// concurrent. The backlog file and the working tree are owned by this
// controller for the duration of one iteration (one loop instance per
// working tree is an operational constraint, not enforced here).
type LoopController struct {
	backlogRepo repository.BacklogRepository
	ledger      repository.LedgerRepository
	builder     *service.ContextBuilder
	agent       output.AgentGateway
	applier     *workspace.PatchApplier
	validator   validation.Runner
	vcs         output.VCSGateway
	learning    output.LearningGateway
	log         Logger
	opts        Options
}

// NewLoopController wires the loop's collaborators together
func NewLoopController(
	backlogRepo repository.BacklogRepository,
	ledger repository.LedgerRepository,
	builder *service.ContextBuilder,
	agent output.AgentGateway,
	applier *workspace.PatchApplier,
	validator validation.Runner,
	vcs output.VCSGateway,
	learning output.LearningGateway,
	log Logger,
	opts Options,
) *LoopController {
	if log == nil {
		log = nopLogger{}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.LedgerTailSize <= 0 {
		opts.LedgerTailSize = 10
	}
	return &LoopController{
		backlogRepo: backlogRepo,
		ledger:      ledger,
		builder:     builder,
		agent:       agent,
		applier:     applier,
		validator:   validator,
		vcs:         vcs,
		learning:    learning,
		log:         log,
		opts:        opts,
	}
}

// attemptResult carries one iteration's outcome through Recording
type attemptResult struct {
	outcome     attempt.Outcome
	diagnostics string
	sentinel    bool
}

// Run executes the loop until the backlog is exhausted, the iteration
// budget runs out, the backend signals completion, or the context is
// canceled. Fatal errors (malformed backlog, persistence) abort with a
// non-nil error; per-story failures never do.
func (c *LoopController) Run(ctx context.Context) (*RunResult, error) {
	b, err := c.backlogRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	iterations := 0
	for {
		// SelectingStory: budget and cancellation are checked on entry
		if err := ctx.Err(); err != nil {
			c.log.Info("run canceled after %d iterations", iterations)
			return &RunResult{Reason: ReasonCanceled, Iterations: iterations}, nil
		}
		if c.opts.MaxIterations > 0 && iterations >= c.opts.MaxIterations {
			c.log.Info("iteration budget of %d exhausted", c.opts.MaxIterations)
			return &RunResult{Reason: ReasonIterationBudgetExhausted, Iterations: iterations}, nil
		}

		story := b.NextEligible()
		if story == nil {
			c.log.Info("backlog exhausted after %d iterations", iterations)
			return &RunResult{Reason: ReasonBacklogExhausted, Iterations: iterations}, nil
		}
		iterations++

		attemptNumber := story.RetryCount + 1
		c.log.Info("iteration %d: story %s (%s), attempt %d/%d",
			iterations, story.ID, story.Title, attemptNumber, c.opts.MaxRetries)

		started := time.Now()
		res := c.runAttempt(ctx, b, story)

		// Recording: the attempt is durable before any status change
		a := attempt.New(story.ID, attemptNumber, res.outcome, res.diagnostics)
		a.ElapsedMs = time.Since(started).Milliseconds()
		if err := c.ledger.Append(ctx, a); err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrPersistence, err)
		}
		if err := c.learning.RecordDiary(ctx, a); err != nil {
			c.log.Warn("learning diary failed: %v", err)
		}

		resolved, err := c.transition(ctx, b, story, res)
		if err != nil {
			return nil, err
		}
		if resolved {
			c.reflect(ctx, story)
		}

		if res.sentinel && c.opts.SentinelStopsRun {
			pending, _, _ := b.CountByStatus()
			c.log.Info("backend signaled completion with %d stories still pending", pending)
			return &RunResult{Reason: ReasonBackendSignaledComplete, Iterations: iterations}, nil
		}
	}
}

// runAttempt walks one story through BuildingContext → Invoking →
// Parsing → Applying → Validating → Committing. Every failure is
// converted into a recoverable outcome for Recording.
func (c *LoopController) runAttempt(ctx context.Context, b *backlog.Backlog, story *backlog.Story) attemptResult {
	// BuildingContext
	learnings, err := c.learning.QueryPastLearnings(ctx, story.Description)
	if err != nil {
		c.log.Warn("learning query failed: %v", err)
		learnings = nil
	}
	tail, err := c.ledger.Tail(ctx, c.opts.LedgerTailSize)
	if err != nil {
		c.log.Warn("ledger tail unavailable: %v", err)
		tail = nil
	}
	payload, err := c.builder.Build(b, story, tail, learnings)
	if err != nil {
		return attemptResult{outcome: attempt.OutcomeInvocationError, diagnostics: err.Error()}
	}

	// Invoking
	resp, err := c.agent.Execute(ctx, output.AgentRequest{Prompt: payload, Timeout: c.opts.InvokeTimeout})
	if err != nil {
		return attemptResult{outcome: attempt.OutcomeInvocationError, diagnostics: err.Error()}
	}

	// Parsing
	parsed, err := parser.Parse(resp.Output)
	if err != nil {
		return attemptResult{outcome: attempt.OutcomeParseFailure, diagnostics: err.Error()}
	}

	if len(parsed.Mutations) == 0 {
		// Sentinel-only response: nothing to apply, but the claim is
		// verified before the story is treated as satisfied.
		result, err := c.validator.Run(ctx, c.opts.WorkDir)
		if err != nil {
			return attemptResult{outcome: attempt.OutcomeValidationFailure, diagnostics: err.Error(), sentinel: true}
		}
		if !result.Passed {
			return attemptResult{outcome: attempt.OutcomeValidationFailure, diagnostics: result.Report, sentinel: true}
		}
		return attemptResult{
			outcome:     attempt.OutcomeSuccess,
			diagnostics: "completion sentinel received, no mutations",
			sentinel:    true,
		}
	}

	// Applying
	applied, err := c.applier.Apply(ctx, parsed.Mutations)
	if err != nil {
		return attemptResult{outcome: attempt.OutcomeApplyFailure, diagnostics: err.Error(), sentinel: parsed.CompletionSignal}
	}

	// Validating
	result, err := c.validator.Run(ctx, c.opts.WorkDir)
	if err != nil {
		c.revert(ctx, applied)
		return attemptResult{outcome: attempt.OutcomeValidationFailure, diagnostics: err.Error(), sentinel: parsed.CompletionSignal}
	}
	if !result.Passed {
		c.revert(ctx, applied)
		return attemptResult{outcome: attempt.OutcomeValidationFailure, diagnostics: result.Report, sentinel: parsed.CompletionSignal}
	}

	// Committing: only after validation passed. A failed commit would
	// desynchronize backlog status from the actual code state, so the
	// tree is reverted and the attempt fails.
	message := fmt.Sprintf("%s: %s", story.ID, story.Title)
	if err := c.vcs.Commit(ctx, message); err != nil {
		c.revert(ctx, applied)
		return attemptResult{
			outcome:     attempt.OutcomeInvocationError,
			diagnostics: fmt.Sprintf("commit failed: %v", err),
			sentinel:    parsed.CompletionSignal,
		}
	}

	return attemptResult{outcome: attempt.OutcomeSuccess, sentinel: parsed.CompletionSignal}
}

// transition applies the retry policy and persists the backlog
// snapshot. Returns true when the story resolved (passed or failed).
func (c *LoopController) transition(ctx context.Context, b *backlog.Backlog, story *backlog.Story, res attemptResult) (bool, error) {
	resolved := false

	if res.outcome == attempt.OutcomeSuccess {
		if err := story.MarkPassed(); err != nil {
			return false, err
		}
		c.log.Info("story %s passed", story.ID)
		resolved = true
	} else {
		story.IncrementRetry()
		exhausted := story.RetryCount >= c.opts.MaxRetries
		// A completion sentinel on a failed attempt ends the story's
		// retry loop early, whatever the retry budget says.
		if exhausted || (res.sentinel && !c.opts.SentinelStopsRun) {
			if err := story.MarkFailed(); err != nil {
				return false, err
			}
			c.log.Warn("story %s failed after %d attempts: %s", story.ID, story.RetryCount, res.outcome)
			resolved = true
		} else {
			c.log.Warn("story %s attempt %d failed (%s), will retry", story.ID, story.RetryCount, res.outcome)
		}
	}

	if err := c.backlogRepo.Save(ctx, b); err != nil {
		if errors.Is(err, repository.ErrPersistence) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", repository.ErrPersistence, err)
	}
	return resolved, nil
}

// reflect hands a resolved story's attempt history to the learning
// collaborator. Best-effort only.
func (c *LoopController) reflect(ctx context.Context, story *backlog.Story) {
	all, err := c.ledger.Load(ctx)
	if err != nil {
		c.log.Warn("reflect skipped, ledger unavailable: %v", err)
		return
	}
	var storyAttempts []*attempt.Attempt
	for _, a := range all {
		if a.StoryID == story.ID {
			storyAttempts = append(storyAttempts, a)
		}
	}
	if _, err := c.learning.Reflect(ctx, story.ID, storyAttempts); err != nil {
		c.log.Warn("reflect failed: %v", err)
	}
}

func (c *LoopController) revert(ctx context.Context, applied *workspace.AppliedSet) {
	if err := c.applier.Revert(ctx, applied); err != nil {
		c.log.Warn("revert after failed attempt incomplete: %v", err)
	}
}
