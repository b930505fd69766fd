// Package fs holds filesystem helpers that need os-level primitives
// not expressed through afero.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// AcquireLock prevents two loop instances from sharing one working
// tree. The lock is a file created with O_EXCL; a stale lock after a
// crash must be removed by the operator. Returns a release function.
func AcquireLock(lockPath string) (release func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare lock directory: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another loop instance appears to be running (remove %s if it is stale)", lockPath)
		}
		return nil, fmt.Errorf("failed to create lock %s: %w", lockPath, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return nil, err
	}
	return func() error { return os.Remove(lockPath) }, nil
}
