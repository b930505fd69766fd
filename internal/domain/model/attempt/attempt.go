package attempt

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Outcome classifies how one attempt at a story ended
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeParseFailure      Outcome = "parse_failure"
	OutcomeApplyFailure      Outcome = "apply_failure"
	OutcomeValidationFailure Outcome = "validation_failure"
	OutcomeInvocationError   Outcome = "invocation_error"
)

// IsValid checks if the outcome is a known value
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeParseFailure, OutcomeApplyFailure,
		OutcomeValidationFailure, OutcomeInvocationError:
		return true
	}
	return false
}

// Attempt records one iteration's result for a specific story.
// Attempts are immutable once written to the ledger.
type Attempt struct {
	AttemptID     string    `json:"attempt_id"`
	StoryID       string    `json:"story_id"`
	AttemptNumber int       `json:"attempt_number"`
	Timestamp     time.Time `json:"timestamp"`
	Outcome       Outcome   `json:"outcome"`
	Diagnostics   string    `json:"diagnostics"`
	ElapsedMs     int64     `json:"elapsed_ms"`
}

// New creates an attempt record with a fresh ULID and the current time
func New(storyID string, attemptNumber int, outcome Outcome, diagnostics string) *Attempt {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)

	return &Attempt{
		AttemptID:     id.String(),
		StoryID:       storyID,
		AttemptNumber: attemptNumber,
		Timestamp:     time.Now().UTC(),
		Outcome:       outcome,
		Diagnostics:   diagnostics,
	}
}

// Succeeded reports whether the attempt completed its story
func (a *Attempt) Succeeded() bool {
	return a.Outcome == OutcomeSuccess
}
