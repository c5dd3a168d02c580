package execrun

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out")
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err")
	}
}

func TestRunReportsExitCodeInBand(t *testing.T) {
	r := New()

	tests := []struct {
		script string
		want   int
	}{
		{"exit 0", 0},
		{"exit 1", 1},
		{"exit 2", 2},
		{"exit 7", 7},
	}

	for _, tt := range tests {
		res, err := r.Run(context.Background(), Spec{
			Command: "sh",
			Args:    []string{"-c", tt.script},
		})
		if err != nil {
			t.Fatalf("Run(%q) error = %v", tt.script, err)
		}
		if res.ExitCode != tt.want {
			t.Errorf("Run(%q) ExitCode = %d, want %d", tt.script, res.ExitCode, tt.want)
		}
	}
}

func TestRunMissingBinaryIsError(t *testing.T) {
	r := New()

	_, err := r.Run(context.Background(), Spec{Command: "skillgate-no-such-binary"})
	if err == nil {
		t.Fatal("Run() with missing binary should return an error")
	}
}

func TestRunTimeout(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false, want true")
	}
}

func TestRunAppendsEnv(t *testing.T) {
	r := New()

	res, err := r.Run(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", "echo $SKILLGATE_TEST_VAR"},
		Env:     []string{"SKILLGATE_TEST_VAR=hello"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello")
	}
}

func TestRunRespectsDir(t *testing.T) {
	r := New()
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Spec{
		Command: "pwd",
		Dir:     dir,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Stdout), filepath.Base(dir)) {
		t.Errorf("pwd in %q reported %q", dir, res.Stdout)
	}
}
