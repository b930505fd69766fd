package claudecli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeScript creates a fake claude binary for tests
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI scripts use sh")
	}
	path := filepath.Join(t.TempDir(), "claude")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunner_PlainTextOutput(t *testing.T) {
	bin := writeScript(t, `echo "raw response text"`)
	r := Runner{Bin: bin, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), "do something")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "raw response text") {
		t.Errorf("output = %q, want raw text passthrough", out)
	}
}

func TestRunner_JSONEnvelope(t *testing.T) {
	bin := writeScript(t, `echo '{"type":"result","is_error":false,"result":"parsed result"}'`)
	r := Runner{Bin: bin, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "parsed result" {
		t.Errorf("output = %q, want %q", out, "parsed result")
	}
}

func TestRunner_ErrorEnvelope(t *testing.T) {
	bin := writeScript(t, `echo '{"type":"result","is_error":true,"result":"quota exceeded"}'`)
	r := Runner{Bin: bin, Timeout: 10 * time.Second}

	_, err := r.Run(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for is_error envelope")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error = %v, want envelope result included", err)
	}
}

func TestRunner_Timeout(t *testing.T) {
	bin := writeScript(t, `sleep 5`)
	r := Runner{Bin: bin, Timeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := r.Run(context.Background(), "prompt")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestRunner_MissingBinary(t *testing.T) {
	r := Runner{Bin: "/nonexistent/claude-bin", Timeout: time.Second}

	_, err := r.Run(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("missing binary must not report as timeout, got %v", err)
	}
}
