package actions

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch surface.
var (
	// ErrUnknownAction marks an action token that no handler is registered
	// for.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMissingAction marks a workflow description without an action field.
	ErrMissingAction = errors.New("missing action")

	// ErrUsage marks a malformed command line (wrong argument count,
	// unknown flag).
	ErrUsage = errors.New("malformed command line")
)

// WorkflowError reports a malformed or invalid workflow description. It is
// raised before any action runs.
type WorkflowError struct {
	Msg string
	Err error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid workflow: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid workflow: %s", e.Msg)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// ConfigError reports an IO or parse failure on a config document.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ActionError reports a handler failure, annotated with the step identity
// the engine was executing.
type ActionError struct {
	Action    string
	Step      string // step description, when known
	Iteration int    // 1-based loop iteration, 0 outside loops
	Err       error
}

func (e *ActionError) Error() string {
	where := e.Action
	if e.Step != "" {
		where = fmt.Sprintf("%s (%s)", e.Action, e.Step)
	}
	if e.Iteration > 0 {
		return fmt.Sprintf("action %s failed in iteration %d: %v", where, e.Iteration, e.Err)
	}
	return fmt.Sprintf("action %s failed: %v", where, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Process exit codes for the CLI surface.
const (
	ExitOK            = 0
	ExitUnknownAction = 1
	ExitConfigError   = 2
	ExitActionFailed  = 3
)

// ExitCode maps an error to the process exit code contract: 1 for a missing
// or unknown action or a malformed command line, 2 for workflow/config
// errors, 3 for action failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrUnknownAction) || errors.Is(err, ErrMissingAction) || errors.Is(err, ErrUsage) {
		return ExitUnknownAction
	}
	var wfErr *WorkflowError
	var cfgErr *ConfigError
	if errors.As(err, &wfErr) || errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	return ExitActionFailed
}
