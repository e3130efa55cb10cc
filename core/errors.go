package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CodeConfiguration is recorded when no tools are mapped for a
	// dimension/scope combination. Recoverable per dimension.
	CodeConfiguration = "CONFIGURATION_ERROR"
	// CodeEnvironment is recorded when a tool is unavailable on the host.
	// Recoverable per tool; fatal when every tool of a run is affected.
	CodeEnvironment = "ENVIRONMENT_ERROR"
	// CodeExecution is recorded for nonzero exits, exceptions, and
	// malformed tool output. Scoped to one tool.
	CodeExecution = "EXECUTION_ERROR"
	// CodeTimeout is recorded when an invocation exceeds its timeout and
	// the subprocess is force-killed.
	CodeTimeout = "TIMEOUT_ERROR"
	// CodeIntegration is recorded for collaborator contract violations,
	// such as a malformed configuration shape. Always fatal, never retried.
	CodeIntegration = "INTEGRATION_ERROR"
	// CodeNothingToDo is the terminal code when mapping yields zero tools
	// for every requested dimension.
	CodeNothingToDo = "NOTHING_TO_DO"
	// CodeEnvironmentNotReady is the terminal code when validation leaves
	// zero available tools.
	CodeEnvironmentNotReady = "ENVIRONMENT_NOT_READY"
)

// Sentinel errors for run-fatal conditions, usable with errors.Is.
var (
	ErrNothingToDo         = errors.New("no applicable tools for requested dimensions")
	ErrEnvironmentNotReady = errors.New("no requested tool is available in this environment")
)

// Error is the structured error that flows across the engine, wrappers,
// and CLI without losing its machine-readable code or fatality.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Fatal   bool           `json:"fatal"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return CodeExecution
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds a structured engine error.
func NewError(code, message string, fatal bool, cause error) *Error {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = CodeExecution
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &Error{
		Code:    cleanCode,
		Message: cleanMsg,
		Fatal:   fatal,
		Cause:   cause,
	}
}

// WithDetails attaches key/value context to an error, merging into any
// existing details.
func WithDetails(err *Error, details map[string]any) *Error {
	if err == nil {
		return nil
	}
	if len(details) == 0 {
		return err
	}
	if err.Details == nil {
		err.Details = make(map[string]any, len(details))
	}
	for key, value := range details {
		err.Details[key] = value
	}
	return err
}

// ErrorCode extracts the machine-readable code from any error chain.
// Returns "" when the chain carries no *Error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// IsFatal reports whether the error chain carries a run-fatal *Error.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Fatal
	}
	return false
}
