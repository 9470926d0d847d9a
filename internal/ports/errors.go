package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Lifecycle precondition violations (reported as warnings, not faults)
	ErrAlreadyRunning = errors.New("strategy is already running")
	ErrNotRunning     = errors.New("strategy is not running")
	ErrNoEntryPoint   = errors.New("no strategy entry point found in directory")
	ErrNotADirectory  = errors.New("strategy path is not a directory")

	// Container runtime errors
	ErrRuntimeFailed = errors.New("container runtime invocation failed")

	// Order client errors
	ErrDecodeResponse = errors.New("failed to decode order response")

	// Journal errors
	ErrJournalWrite = errors.New("failed to record deployment event")
	ErrJournalQuery = errors.New("failed to query deployment events")
)
