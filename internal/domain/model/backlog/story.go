package backlog

import (
	"fmt"
	"strings"
)

// Status represents a Story's lifecycle state
type Status string

const (
	StatusPending Status = "pending"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPassed, StatusFailed:
		return true
	}
	return false
}

// IsResolved returns true when the story no longer needs attempts
func (s Status) IsResolved() bool {
	return s == StatusPassed || s == StatusFailed
}

// Story is one unit of requested work with acceptance criteria and priority.
// Stories are created at backlog load time and only transition forward:
// pending → passed or pending → failed, never backward.
type Story struct {
	ID                 string
	Title              string
	Description        string
	AcceptanceCriteria []string
	Priority           int
	Status             Status
	RetryCount         int
}

// Validate checks the required fields
func (s *Story) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("story id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("story %s: title is required", s.ID)
	}
	if s.Priority < 0 {
		return fmt.Errorf("story %s: priority must be non-negative, got %d", s.ID, s.Priority)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("story %s: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// MarkPassed transitions the story to passed
func (s *Story) MarkPassed() error {
	if s.Status != StatusPending {
		return fmt.Errorf("story %s: cannot pass from status %s", s.ID, s.Status)
	}
	s.Status = StatusPassed
	return nil
}

// MarkFailed transitions the story to failed
func (s *Story) MarkFailed() error {
	if s.Status != StatusPending {
		return fmt.Errorf("story %s: cannot fail from status %s", s.ID, s.Status)
	}
	s.Status = StatusFailed
	return nil
}

// IncrementRetry bumps the retry counter. The counter only increases.
func (s *Story) IncrementRetry() {
	s.RetryCount++
}
