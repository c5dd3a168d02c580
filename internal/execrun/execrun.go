// Package execrun runs external processes with explicit timeouts and
// in-band exit codes. Adapters own the mapping from exit codes to
// outcomes; this package only reports what happened.
package execrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
)

// Spec describes a single external invocation.
type Spec struct {
	// Command is the binary to run, resolved via PATH if not absolute.
	Command string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory. Empty means the caller's.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Timeout bounds the invocation. Zero means no bound.
	Timeout time.Duration
}

// Result is the observed outcome of an invocation. A non-zero exit code
// is not an error here; spawn failures are.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Runner executes a Spec. The interface exists so rule adapters can be
// tested against scripted results.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// New returns the real process runner.
func New() Runner {
	return osRunner{}
}

type osRunner struct{}

func (osRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		log.Debug("command timed out", "command", spec.Command, "timeout", spec.Timeout)
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Debug("command exited",
				"command", spec.Command, "code", result.ExitCode, "duration", result.Duration)
			return result, nil
		}
		// The process never ran: missing binary, permission, bad dir.
		return nil, err
	}

	log.Debug("command succeeded", "command", spec.Command, "duration", result.Duration)
	return result, nil
}
