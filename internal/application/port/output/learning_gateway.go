package output

import (
	"context"

	"github.com/ralph-run/ralph/internal/domain/model/attempt"
)

// LearningSummary is one past-attempt summary returned by the learning
// collaborator.
type LearningSummary struct {
	StoryID   string
	Kind      string
	Summary   string
	CreatedAt string
}

// LearningGateway is the optional learning collaborator. The loop calls
// it at well-defined points: QueryPastLearnings before building context,
// RecordDiary after each attempt, Reflect after a story resolves. All
// calls are best-effort from the loop's point of view; a failing
// collaborator never fails an iteration.
type LearningGateway interface {
	QueryPastLearnings(ctx context.Context, storyDescription string) ([]LearningSummary, error)
	RecordDiary(ctx context.Context, a *attempt.Attempt) error
	Reflect(ctx context.Context, storyID string, attempts []*attempt.Attempt) (string, error)
}
