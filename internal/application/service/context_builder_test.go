package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/domain/model/attempt"
	"github.com/ralph-run/ralph/internal/domain/model/backlog"
)

func fixtureBacklog(t *testing.T) (*backlog.Backlog, *backlog.Story) {
	t.Helper()
	s1 := &backlog.Story{
		ID:                 "S1",
		Title:              "Add parser",
		Description:        "Implement the response parser",
		AcceptanceCriteria: []string{"handles file blocks", "handles edit blocks"},
		Priority:           1,
		Status:             backlog.StatusPending,
	}
	s2 := &backlog.Story{ID: "S2", Title: "Add applier", Priority: 2, Status: backlog.StatusPassed}
	b, err := backlog.NewBacklog("feature/loop", []*backlog.Story{s1, s2})
	require.NoError(t, err)
	return b, s1
}

func fixtureAttempt(storyID string, n int, diag string) *attempt.Attempt {
	return &attempt.Attempt{
		AttemptID:     "01TEST",
		StoryID:       storyID,
		AttemptNumber: n,
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Outcome:       attempt.OutcomeValidationFailure,
		Diagnostics:   diag,
	}
}

func TestContextBuilder_IncludesAllSections(t *testing.T) {
	b, story := fixtureBacklog(t)
	builder := NewContextBuilder(0)

	payload, err := builder.Build(b, story,
		[]*attempt.Attempt{fixtureAttempt("S1", 1, "tests failed")},
		[]output.LearningSummary{{StoryID: "S2", Summary: "applier needed staged writes"}},
	)
	require.NoError(t, err)

	// Backlog snapshot with all stories and statuses
	assert.Contains(t, payload, "Branch: feature/loop")
	assert.Contains(t, payload, "[S1] Add parser (priority 1, pending)")
	assert.Contains(t, payload, "[S2] Add applier (priority 2, passed)")

	// Full target story
	assert.Contains(t, payload, "Implement the response parser")
	assert.Contains(t, payload, "handles file blocks")

	// Ledger tail and learnings
	assert.Contains(t, payload, "attempt 1 on S1: validation_failure: tests failed")
	assert.Contains(t, payload, "applier needed staged writes")

	// Protocol instructions and sentinel
	assert.Contains(t, payload, "<<<FILE:")
	assert.Contains(t, payload, "RALPH_BACKLOG_COMPLETE")
}

func TestContextBuilder_Deterministic(t *testing.T) {
	b, story := fixtureBacklog(t)
	builder := NewContextBuilder(0)
	tail := []*attempt.Attempt{fixtureAttempt("S1", 1, "x")}

	p1, err := builder.Build(b, story, tail, nil)
	require.NoError(t, err)
	p2, err := builder.Build(b, story, tail, nil)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
}

func TestContextBuilder_TruncatesLearningsBeforeLedger(t *testing.T) {
	b, story := fixtureBacklog(t)

	// Budget sized so the core plus a small ledger fits, learnings do not
	core, err := NewContextBuilder(0).Build(b, story, nil, nil)
	require.NoError(t, err)

	tail := []*attempt.Attempt{fixtureAttempt("S1", 1, "short")}
	withTail, err := NewContextBuilder(0).Build(b, story, tail, nil)
	require.NoError(t, err)
	tailSize := len(withTail) - len(core)

	builder := NewContextBuilder(len(core) + tailSize + 10)
	payload, err := builder.Build(b, story, tail,
		[]output.LearningSummary{{StoryID: "S2", Summary: strings.Repeat("long learning ", 50)}},
	)
	require.NoError(t, err)

	assert.Contains(t, payload, "attempt 1 on S1", "ledger tail survives")
	assert.NotContains(t, payload, "long learning", "learnings dropped first")
	assert.LessOrEqual(t, len(payload), builder.MaxPayloadBytes)
}

func TestContextBuilder_DropsOldestLedgerEntries(t *testing.T) {
	b, story := fixtureBacklog(t)

	core, err := NewContextBuilder(0).Build(b, story, nil, nil)
	require.NoError(t, err)

	tail := []*attempt.Attempt{
		fixtureAttempt("S1", 1, "oldest diagnostics "+strings.Repeat("a", 100)),
		fixtureAttempt("S1", 2, "newest diagnostics"),
	}

	// Room for roughly one entry only
	builder := NewContextBuilder(len(core) + 150)
	payload, err := builder.Build(b, story, tail, nil)
	require.NoError(t, err)

	assert.Contains(t, payload, "newest diagnostics")
	assert.NotContains(t, payload, "oldest diagnostics")
}

func TestContextBuilder_NeverTruncatesStory(t *testing.T) {
	b, story := fixtureBacklog(t)
	story.Description = strings.Repeat("very long description ", 100)

	builder := NewContextBuilder(500)
	_, err := builder.Build(b, story, nil, nil)
	require.Error(t, err, "story over budget must fail, not truncate")
	assert.Contains(t, err.Error(), "payload budget")
}
