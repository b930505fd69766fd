package repository

import (
	"context"
	"errors"

	"github.com/ralph-run/ralph/internal/domain/model/attempt"
	"github.com/ralph-run/ralph/internal/domain/model/backlog"
)

// ErrMalformedBacklog indicates the backlog file could not be loaded.
// This is fatal at startup and never retried.
var ErrMalformedBacklog = errors.New("malformed backlog")

// ErrPersistence indicates a state write could not be completed.
// This is fatal: state integrity cannot be guaranteed past this point.
var ErrPersistence = errors.New("persistence error")

// BacklogRepository loads and saves the backlog as a whole snapshot.
// Save must be atomic (write-temp, fsync, rename) so a crash between
// writes never leaves a half-written backlog on disk.
type BacklogRepository interface {
	Load(ctx context.Context) (*backlog.Backlog, error)
	Save(ctx context.Context, b *backlog.Backlog) error
}

// LedgerRepository is the append-only attempt history.
// Append must be durable before the caller proceeds; prior entries are
// never rewritten.
type LedgerRepository interface {
	Append(ctx context.Context, a *attempt.Attempt) error
	Tail(ctx context.Context, n int) ([]*attempt.Attempt, error)
	Load(ctx context.Context) ([]*attempt.Attempt, error)
}
