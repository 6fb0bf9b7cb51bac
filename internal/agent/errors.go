// internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

// ErrorCode is a string type used for structured failure reporting from the
// execution engine. Execution failures are values, not Go errors.
type ErrorCode string

const (
	// -- Target Resolution --
	ErrCodeElementNotFound      ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeNoTargetSpecified    ErrorCode = "NO_TARGET_SPECIFIED"
	ErrCodeNoEditableFieldFound ErrorCode = "NO_EDITABLE_FIELD_FOUND"

	// -- Dispatch --
	// ErrCodeHostDispatchFailed covers any host failure not classified above,
	// including launches and global actions the host reports as not performed.
	ErrCodeHostDispatchFailed ErrorCode = "HOST_DISPATCH_FAILED"

	// ErrCodeActionReportedError is the result of an Error action.
	ErrCodeActionReportedError ErrorCode = "ACTION_REPORTED_ERROR"

	// ErrCodeCancelled marks an action interrupted by context cancellation.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// ErrEngineNotIdle is returned when Run is called on an engine that has
// already been started.
var ErrEngineNotIdle = errors.New("execution engine is not idle")

// ActionDecodeWarning describes a plan item the decoder dropped. It is not
// fatal to decoding.
type ActionDecodeWarning struct {
	Index  int
	Type   string
	Reason string
}

var _ error = ActionDecodeWarning{}

func (w ActionDecodeWarning) Error() string {
	return fmt.Sprintf("action %d (%q) dropped: %s", w.Index, w.Type, w.Reason)
}
