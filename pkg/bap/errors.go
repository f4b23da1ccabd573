// SPDX-License-Identifier: Apache-2.0

// Package bap defines the structured error kinds shared by the workflow
// core and its service shims: user/input errors, skip conditions,
// backend failures, resource-exhaustion/timeouts, and programmer
// invariant violations.
package bap

import "fmt"

// Code classifies an Error into one of its five kinds.
type Code string

const (
	// CodeUserInput marks errors caused by missing/malformed input or an
	// unsatisfiable resource request. Never logged with a stack trace.
	CodeUserInput Code = "USER_INPUT"
	// CodeSkip marks a service that does not apply in this context.
	// Resolves as FAILED with a neutral reason.
	CodeSkip Code = "SKIP"
	// CodeBackend marks a non-zero exit, crash, missing output file, or
	// unparseable output from an external program.
	CodeBackend Code = "BACKEND"
	// CodeTimeout marks a per-job or global scheduler deadline excess.
	CodeTimeout Code = "TIMEOUT"
	// CodeInvariant marks a programmer/invariant violation: fatal.
	CodeInvariant Code = "INVARIANT"
)

// Error is the structured error type carried by Task/Execution failures
// and surfaced on the blackboard under "errors".
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary reports whether the error is worth a shim-level retry. The
// core itself never retries; this predicate exists purely for shims that
// implement their own retry policy.
func (e *Error) Temporary() bool {
	return e.Code == CodeBackend || e.Code == CodeTimeout
}

// New builds an Error of the given kind.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// UserError reports a condition caused by user input or environment
// (missing input, exceeded resource request, unknown scheme).
func UserError(format string, args ...any) *Error {
	return New(CodeUserInput, format, args...)
}

// SkipError reports that a service does not apply in this context.
func SkipError(format string, args ...any) *Error {
	return New(CodeSkip, format, args...)
}

// BackendError reports a backend failure, referencing the stderr path
// for forensics.
func BackendError(stderrPath string) *Error {
	return New(CodeBackend, "backend run failed, check its error log: %s", stderrPath)
}

// IsUser reports whether err is a user/input Error.
func IsUser(err error) bool { return hasCode(err, CodeUserInput) }

// IsSkip reports whether err is a skip-condition Error.
func IsSkip(err error) bool { return hasCode(err, CodeSkip) }

func hasCode(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
