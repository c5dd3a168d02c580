// Package faults separates "the check failed" from "we could not run the
// check". Policy violations are ordinary results and never appear here;
// every error produced by the engine is either a usage fault (bad
// configuration or invocation) or an infrastructure fault (a tool,
// filesystem, or process problem).
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a fault.
type Kind int

const (
	// Usage marks malformed rule definitions, unknown project names,
	// invalid flag combinations, and other operator mistakes.
	Usage Kind = iota
	// Infra marks missing binaries, filesystem failures, process
	// timeouts, and unexpected external exit codes.
	Infra
)

// String returns the kind's diagnostic label.
func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage error"
	case Infra:
		return "infrastructure error"
	}
	return "unknown"
}

// Error is a classified engine fault. It wraps an optional cause so that
// callers can use errors.Is/As through it.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Usagef creates a usage fault.
func Usagef(format string, args ...any) error {
	return &Error{Kind: Usage, msg: fmt.Sprintf(format, args...)}
}

// Infraf creates an infrastructure fault.
func Infraf(format string, args ...any) error {
	return &Error{Kind: Infra, msg: fmt.Sprintf(format, args...)}
}

// WrapUsage wraps err as a usage fault with context.
func WrapUsage(err error, format string, args ...any) error {
	return &Error{Kind: Usage, msg: fmt.Sprintf(format, args...), err: err}
}

// WrapInfra wraps err as an infrastructure fault with context.
func WrapInfra(err error, format string, args ...any) error {
	return &Error{Kind: Infra, msg: fmt.Sprintf(format, args...), err: err}
}

// IsUsage reports whether err is (or wraps) a usage fault.
func IsUsage(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == Usage
}

// IsInfra reports whether err is (or wraps) an infrastructure fault.
func IsInfra(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == Infra
}
