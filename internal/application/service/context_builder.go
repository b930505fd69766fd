package service

import (
	"fmt"
	"strings"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/domain/model/attempt"
	"github.com/ralph-run/ralph/internal/domain/model/backlog"
)

// DefaultMaxPayloadBytes caps the context payload for one iteration
const DefaultMaxPayloadBytes = 200_000

// ContextBuilder assembles the prompt payload for one iteration.
// Build is a pure function: the same inputs always produce the same
// payload, which keeps iterations reproducible in tests.
type ContextBuilder struct {
	MaxPayloadBytes int
}

// NewContextBuilder creates a builder with the given payload cap.
// Zero or negative means the default cap.
func NewContextBuilder(maxPayloadBytes int) *ContextBuilder {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxPayloadBytes
	}
	return &ContextBuilder{MaxPayloadBytes: maxPayloadBytes}
}

// Build assembles the payload from the backlog snapshot, the target
// story, the ledger tail, and optional learning summaries. The size cap
// is enforced by dropping learnings first, then the oldest ledger
// entries. The target story is never truncated: if it alone exceeds the
// cap, Build fails.
func (c *ContextBuilder) Build(b *backlog.Backlog, story *backlog.Story, ledgerTail []*attempt.Attempt, learnings []output.LearningSummary) (string, error) {
	var core strings.Builder

	core.WriteString(instructions)
	core.WriteString("\n## Backlog\n\n")
	fmt.Fprintf(&core, "Branch: %s\n\n", b.BranchName)
	for _, s := range b.Stories {
		fmt.Fprintf(&core, "- [%s] %s (priority %d, %s)\n", s.ID, s.Title, s.Priority, s.Status)
	}

	core.WriteString("\n## Target story\n\n")
	fmt.Fprintf(&core, "ID: %s\nTitle: %s\nPriority: %d\n", story.ID, story.Title, story.Priority)
	if story.Description != "" {
		fmt.Fprintf(&core, "\n%s\n", story.Description)
	}
	if len(story.AcceptanceCriteria) > 0 {
		core.WriteString("\nAcceptance criteria:\n")
		for _, ac := range story.AcceptanceCriteria {
			fmt.Fprintf(&core, "- %s\n", ac)
		}
	}

	payload := core.String()
	if len(payload) > c.MaxPayloadBytes {
		return "", fmt.Errorf("target story %s exceeds payload budget: %d > %d bytes",
			story.ID, len(payload), c.MaxPayloadBytes)
	}

	remaining := c.MaxPayloadBytes - len(payload)

	// Ledger tail: keep the newest entries that fit, drop the oldest
	ledgerSection := c.fitLedger(ledgerTail, remaining)
	payload += ledgerSection
	remaining -= len(ledgerSection)

	// Learnings are sacrificed before ledger context
	payload += c.fitLearnings(learnings, remaining)

	return payload, nil
}

// fitLedger renders as many tail entries as the budget allows, newest
// preferred, output in chronological order.
func (c *ContextBuilder) fitLedger(tail []*attempt.Attempt, budget int) string {
	if len(tail) == 0 {
		return ""
	}

	header := "\n## Recent attempts\n\n"
	lines := make([]string, len(tail))
	for i, a := range tail {
		line := fmt.Sprintf("- %s attempt %d on %s: %s",
			a.Timestamp.Format("2006-01-02T15:04:05Z"), a.AttemptNumber, a.StoryID, a.Outcome)
		if a.Diagnostics != "" {
			line += ": " + a.Diagnostics
		}
		lines[i] = line + "\n"
	}

	// Walk backwards from the newest entry until the budget is spent
	size := len(header)
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		if size+len(lines[i]) > budget {
			break
		}
		size += len(lines[i])
		start = i
	}
	if start == len(lines) {
		return ""
	}

	return header + strings.Join(lines[start:], "")
}

func (c *ContextBuilder) fitLearnings(learnings []output.LearningSummary, budget int) string {
	if len(learnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n## Past learnings\n\n")
	added := 0
	for _, l := range learnings {
		line := fmt.Sprintf("- [%s] %s\n", l.StoryID, l.Summary)
		if sb.Len()+len(line) > budget {
			break
		}
		sb.WriteString(line)
		added++
	}
	if added == 0 {
		return ""
	}
	return sb.String()
}

const instructions = `# Implementation task

You are implementing one story from the backlog below. Respond with file
mutations using exactly this protocol:

Full file (create or overwrite):
<<<FILE: relative/path>>>
...entire new file content...
<<<END>>>

Targeted edit (search text must match exactly once):
<<<EDIT: relative/path>>>
SEARCH:
...exact existing text...
REPLACE:
...replacement text...
<<<END>>>

If every story in the backlog is already satisfied, respond with the
single marker RALPH_BACKLOG_COMPLETE instead of mutations.
`
