package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("git CLI tests use sh-style setup")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v (%s)", args, err, out)
		}
	}
	return dir
}

func TestGitGateway_Commit(t *testing.T) {
	dir := initRepo(t)
	g := NewGitGateway(dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, g.Commit(ctx, "S1: First story"))

	cmd := exec.Command("git", "log", "-1", "--pretty=%s")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, "S1: First story", strings.TrimSpace(string(out)))
}

func TestGitGateway_EmptyDiffIsNotAnError(t *testing.T) {
	dir := initRepo(t)
	g := NewGitGateway(dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, g.Commit(ctx, "first"))

	// Second commit with no changes
	assert.NoError(t, g.Commit(ctx, "second"))
}

func TestGitGateway_OutsideRepoFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("git CLI tests use sh-style setup")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	g := NewGitGateway(dir)
	assert.Error(t, g.Commit(context.Background(), "no repo here"))
}
