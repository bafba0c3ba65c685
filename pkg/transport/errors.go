package transport

import "fmt"

// Error is a typed transport failure. Kind names the taxonomy member from
// spec.md §7 (e.g. "TransportConnectionError"); Message is the diagnostic
// text, which for a spawn failure may be the remote's full stderr.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewConnectionError builds a TransportConnectionError.
func NewConnectionError(format string, args ...interface{}) *Error {
	return newError("TransportConnectionError", format, args...)
}

// NewTerminateError builds a TransportTerminateError.
func NewTerminateError(format string, args ...interface{}) *Error {
	return newError("TransportTerminateError", format, args...)
}

// NewStartJobError builds a TransportStartJobError.
func NewStartJobError(format string, args ...interface{}) *Error {
	return newError("TransportStartJobError", format, args...)
}

// NewStopJobError builds a TransportStopJobError.
func NewStopJobError(format string, args ...interface{}) *Error {
	return newError("TransportStopJobError", format, args...)
}

// NewUpdateJobParametersError builds a TransportUpdateJobParametersError.
func NewUpdateJobParametersError(format string, args ...interface{}) *Error {
	return newError("TransportUpdateJobParametersError", format, args...)
}

// NewGetJobsError builds a TransportGetJobsError.
func NewGetJobsError(format string, args ...interface{}) *Error {
	return newError("TransportGetJobsError", format, args...)
}

// NewGetJobStatusError builds a TransportGetJobStatusError.
func NewGetJobStatusError(format string, args ...interface{}) *Error {
	return newError("TransportGetJobStatusError", format, args...)
}

// NewGetJobSolutionError builds a TransportGetJobSolutionError.
func NewGetJobSolutionError(format string, args ...interface{}) *Error {
	return newError("TransportGetJobSolutionError", format, args...)
}

// NewGetJobFileError builds a TransportGetJobFileError.
func NewGetJobFileError(format string, args ...interface{}) *Error {
	return newError("TransportGetJobFileError", format, args...)
}

// NewGetJobFileListError builds a TransportGetJobFileListError.
func NewGetJobFileListError(format string, args ...interface{}) *Error {
	return newError("TransportGetJobFileListError", format, args...)
}

// ErrDatabaseNotConfigured is the programmer error raised when the
// registry is accessed before SetExecPath.
var ErrDatabaseNotConfigured = &Error{Kind: "DatabaseNotConfigured", Message: "exec path not set"}
