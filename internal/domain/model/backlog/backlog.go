package backlog

import "fmt"

// Backlog is the ordered collection of Stories for one branch.
// It owns its Stories exclusively; persistence always writes the whole
// backlog as a snapshot, never a partial diff.
type Backlog struct {
	BranchName string
	Stories    []*Story
}

// NewBacklog creates a backlog and validates story uniqueness
func NewBacklog(branchName string, stories []*Story) (*Backlog, error) {
	seen := make(map[string]bool, len(stories))
	for _, s := range stories {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate story id: %s", s.ID)
		}
		seen[s.ID] = true
	}
	return &Backlog{BranchName: branchName, Stories: stories}, nil
}

// NextEligible returns the pending story with the lowest numeric priority.
// Ties are broken by original file order (the scan is stable).
// Returns nil when no story is pending.
func (b *Backlog) NextEligible() *Story {
	var best *Story
	for _, s := range b.Stories {
		if s.Status != StatusPending {
			continue
		}
		if best == nil || s.Priority < best.Priority {
			best = s
		}
	}
	return best
}

// FindByID returns the story with the given id, or nil
func (b *Backlog) FindByID(id string) *Story {
	for _, s := range b.Stories {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// CountByStatus returns the number of stories in each status
func (b *Backlog) CountByStatus() (pending, passed, failed int) {
	for _, s := range b.Stories {
		switch s.Status {
		case StatusPending:
			pending++
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		}
	}
	return pending, passed, failed
}

// ResetStatuses clears all story statuses and retry counts back to pending
func (b *Backlog) ResetStatuses() {
	for _, s := range b.Stories {
		s.Status = StatusPending
		s.RetryCount = 0
	}
}
