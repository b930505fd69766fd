package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ralph-run/ralph/internal/domain/model/mutation"
)

// ErrApply indicates a mutation set could not be applied. The working
// tree is left unmodified: all mutations of one attempt are staged
// together, and any failure discards the whole set.
var ErrApply = errors.New("apply error")

// AppliedFile records one written file together with its previous state,
// so a validation failure can restore the tree before the next attempt.
type AppliedFile struct {
	Path     string
	Existed  bool
	Previous []byte
}

// AppliedSet is the result of applying one attempt's mutation set
type AppliedSet struct {
	Files []AppliedFile
}

// Paths lists the written file paths in apply order
func (s *AppliedSet) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// PatchApplier applies mutation sequences to a working tree rooted at
// one directory. Paths are validated against directory traversal: a
// mutation may never touch anything outside the root.
type PatchApplier struct {
	FS afero.Fs
}

// NewPatchApplier creates an applier over the given working tree fs.
// The fs is expected to be rooted at the working tree (afero.NewBasePathFs
// over the OS fs in production, a MemMapFs in tests).
func NewPatchApplier(fs afero.Fs) *PatchApplier {
	return &PatchApplier{FS: fs}
}

// Apply stages all mutations, then writes them. Staging validates every
// path and computes every final file content in memory first; nothing
// touches the tree until the whole set is known to be applicable.
func (a *PatchApplier) Apply(ctx context.Context, mutations []mutation.Mutation) (*AppliedSet, error) {
	if len(mutations) == 0 {
		return nil, fmt.Errorf("%w: empty mutation set", ErrApply)
	}

	// Phase 1: stage. staged holds the final content per cleaned path,
	// so sequential mutations against the same file compose.
	staged := make(map[string][]byte)
	order := make([]string, 0, len(mutations))

	for _, m := range mutations {
		path, err := cleanPath(m.Path)
		if err != nil {
			return nil, err
		}

		switch m.Kind {
		case mutation.KindFullFileReplace:
			if _, seen := staged[path]; !seen {
				order = append(order, path)
			}
			staged[path] = []byte(m.Content)

		case mutation.KindSearchReplaceEdit:
			current, seen := staged[path]
			if !seen {
				exists, err := afero.Exists(a.FS, path)
				if err != nil {
					return nil, fmt.Errorf("%w: stat %s: %v", ErrApply, path, err)
				}
				if !exists {
					return nil, fmt.Errorf("%w: edit target %s does not exist", ErrApply, path)
				}
				current, err = afero.ReadFile(a.FS, path)
				if err != nil {
					return nil, fmt.Errorf("%w: read %s: %v", ErrApply, path, err)
				}
				order = append(order, path)
			}

			count := strings.Count(string(current), m.SearchText)
			if count == 0 {
				return nil, fmt.Errorf("%w: search text not found in %s", ErrApply, path)
			}
			if count > 1 {
				return nil, fmt.Errorf("%w: search text matches %d locations in %s, must match exactly once", ErrApply, count, path)
			}
			staged[path] = []byte(strings.Replace(string(current), m.SearchText, m.ReplaceText, 1))

		default:
			return nil, fmt.Errorf("%w: unknown mutation kind %q", ErrApply, m.Kind)
		}
	}

	// Phase 2: write, backing up previous contents as we go.
	set := &AppliedSet{}
	for _, path := range order {
		backup := AppliedFile{Path: path}
		exists, err := afero.Exists(a.FS, path)
		if err != nil {
			a.rollback(set)
			return nil, fmt.Errorf("%w: stat %s: %v", ErrApply, path, err)
		}
		if exists {
			prev, err := afero.ReadFile(a.FS, path)
			if err != nil {
				a.rollback(set)
				return nil, fmt.Errorf("%w: backup %s: %v", ErrApply, path, err)
			}
			backup.Existed = true
			backup.Previous = prev
		}

		if dir := filepath.Dir(path); dir != "." {
			if err := a.FS.MkdirAll(dir, 0o755); err != nil {
				a.rollback(set)
				return nil, fmt.Errorf("%w: mkdir %s: %v", ErrApply, dir, err)
			}
		}
		if err := afero.WriteFile(a.FS, path, staged[path], 0o644); err != nil {
			a.rollback(set)
			return nil, fmt.Errorf("%w: write %s: %v", ErrApply, path, err)
		}
		set.Files = append(set.Files, backup)
	}

	return set, nil
}

// Revert restores every file in the set to its pre-apply state. Used by
// the loop controller to discard changes after a validation failure.
func (a *PatchApplier) Revert(ctx context.Context, set *AppliedSet) error {
	var firstErr error
	for i := len(set.Files) - 1; i >= 0; i-- {
		f := set.Files[i]
		var err error
		if f.Existed {
			err = afero.WriteFile(a.FS, f.Path, f.Previous, 0o644)
		} else {
			err = a.FS.Remove(f.Path)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to revert %s: %w", f.Path, err)
		}
	}
	return firstErr
}

// rollback undoes partially written files after a write-phase failure
func (a *PatchApplier) rollback(set *AppliedSet) {
	_ = a.Revert(context.Background(), set)
}

// cleanPath validates a mutation path against directory traversal.
// Absolute paths and any path resolving outside the working tree root
// are rejected. This is a safety invariant, not an optimization.
func cleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty mutation path", ErrApply)
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: absolute path not allowed: %s", ErrApply, path)
	}
	cleaned := filepath.Clean(filepath.ToSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "..\\") {
		return "", fmt.Errorf("%w: path escapes working tree: %s", ErrApply, path)
	}
	return cleaned, nil
}
