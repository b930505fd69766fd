package learning

import (
	"context"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/domain/model/attempt"
)

// NopLearningGateway is used when no learning collaborator is
// configured. Every call succeeds and returns nothing.
type NopLearningGateway struct{}

// QueryPastLearnings returns no summaries
func (NopLearningGateway) QueryPastLearnings(ctx context.Context, storyDescription string) ([]output.LearningSummary, error) {
	return nil, nil
}

// RecordDiary discards the attempt
func (NopLearningGateway) RecordDiary(ctx context.Context, a *attempt.Attempt) error {
	return nil
}

// Reflect returns no insight
func (NopLearningGateway) Reflect(ctx context.Context, storyID string, attempts []*attempt.Attempt) (string, error) {
	return "", nil
}
