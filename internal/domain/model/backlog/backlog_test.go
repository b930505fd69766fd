package backlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func story(id string, priority int) *Story {
	return &Story{ID: id, Title: "story " + id, Priority: priority, Status: StatusPending}
}

func TestNewBacklog_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewBacklog("main", []*Story{story("S1", 1), story("S1", 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate story id")
}

func TestNewBacklog_ValidatesStories(t *testing.T) {
	tests := []struct {
		name  string
		story *Story
	}{
		{"missing id", &Story{Title: "t", Priority: 1, Status: StatusPending}},
		{"missing title", &Story{ID: "S1", Priority: 1, Status: StatusPending}},
		{"negative priority", &Story{ID: "S1", Title: "t", Priority: -1, Status: StatusPending}},
		{"unknown status", &Story{ID: "S1", Title: "t", Priority: 1, Status: "done"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBacklog("main", []*Story{tt.story})
			assert.Error(t, err)
		})
	}
}

func TestNextEligible_LowestPriorityWins(t *testing.T) {
	b, err := NewBacklog("main", []*Story{story("low", 5), story("high", 1), story("mid", 3)})
	require.NoError(t, err)

	assert.Equal(t, "high", b.NextEligible().ID)
}

func TestNextEligible_TiesBreakByFileOrder(t *testing.T) {
	b, err := NewBacklog("main", []*Story{story("first", 2), story("second", 2)})
	require.NoError(t, err)

	assert.Equal(t, "first", b.NextEligible().ID)
}

func TestNextEligible_SkipsResolvedStories(t *testing.T) {
	s1 := story("S1", 1)
	s2 := story("S2", 2)
	b, err := NewBacklog("main", []*Story{s1, s2})
	require.NoError(t, err)

	require.NoError(t, s1.MarkPassed())
	assert.Equal(t, "S2", b.NextEligible().ID)

	require.NoError(t, s2.MarkFailed())
	assert.Nil(t, b.NextEligible())
}

func TestStory_TransitionsAreForwardOnly(t *testing.T) {
	s := story("S1", 1)
	require.NoError(t, s.MarkPassed())

	assert.Error(t, s.MarkPassed(), "passed story cannot pass again")
	assert.Error(t, s.MarkFailed(), "passed story cannot fail")

	f := story("S2", 1)
	require.NoError(t, f.MarkFailed())
	assert.Error(t, f.MarkPassed(), "failed story cannot pass")
}

func TestResetStatuses(t *testing.T) {
	s1 := story("S1", 1)
	s2 := story("S2", 2)
	b, err := NewBacklog("main", []*Story{s1, s2})
	require.NoError(t, err)

	require.NoError(t, s1.MarkPassed())
	s2.IncrementRetry()
	s2.IncrementRetry()
	require.NoError(t, s2.MarkFailed())

	b.ResetStatuses()

	for _, s := range b.Stories {
		assert.Equal(t, StatusPending, s.Status)
		assert.Equal(t, 0, s.RetryCount)
	}
}

func TestStatus_IsResolved(t *testing.T) {
	assert.False(t, StatusPending.IsResolved())
	assert.True(t, StatusPassed.IsResolved())
	assert.True(t, StatusFailed.IsResolved())
}
