package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ralph-run/ralph/internal/domain/model/attempt"
)

// WarnFunc reports a non-fatal problem while reading the ledger
type WarnFunc func(format string, args ...interface{})

// FileLedgerRepository implements the progress ledger as an NDJSON file.
// One timestamped line per attempt, append-only: prior entries are never
// rewritten, and each append is synced before returning so a crash
// cannot lose a just-completed attempt's record.
type FileLedgerRepository struct {
	FS   afero.Fs
	Path string
	Warn WarnFunc
}

// NewFileLedgerRepository creates an NDJSON-backed ledger repository
func NewFileLedgerRepository(fs afero.Fs, path string, warn WarnFunc) *FileLedgerRepository {
	if warn == nil {
		warn = func(format string, args ...interface{}) {}
	}
	return &FileLedgerRepository{FS: fs, Path: path, Warn: warn}
}

// Append writes one attempt as a JSON line and syncs it to disk
func (r *FileLedgerRepository) Append(ctx context.Context, a *attempt.Attempt) error {
	if err := r.FS.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	line, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	f, err := r.FS.OpenFile(r.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	// Durable before the loop proceeds to the next iteration
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}

	return nil
}

// Load reads all attempts in append order. Corrupted lines are skipped
// with a warning rather than failing the whole read.
func (r *FileLedgerRepository) Load(ctx context.Context) ([]*attempt.Attempt, error) {
	exists, err := afero.Exists(r.FS, r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat ledger: %w", err)
	}
	if !exists {
		return []*attempt.Attempt{}, nil
	}

	f, err := r.FS.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var attempts []*attempt.Attempt
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var a attempt.Attempt
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			r.Warn("skipping corrupted ledger line %d: %v", lineNum, err)
			continue
		}
		attempts = append(attempts, &a)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	return attempts, nil
}

// Tail returns the last n attempts in append order
func (r *FileLedgerRepository) Tail(ctx context.Context, n int) ([]*attempt.Attempt, error) {
	all, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}
