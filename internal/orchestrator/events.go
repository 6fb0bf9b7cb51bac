// internal/orchestrator/events.go
package orchestrator

import "github.com/xkilldash9x/droidpilot/internal/agent"

// EventKind discriminates Event payloads.
type EventKind string

const (
	EventStatus  EventKind = "status"
	EventLog     EventKind = "log"
	EventOutcome EventKind = "outcome"
	EventDone    EventKind = "done"
)

// Status is the coarse progress of a command.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusExecuting  Status = "executing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Event is broadcast while a command moves through the pipeline. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	CommandID string

	Status  Status
	Message string

	// Index and Outcome are set for EventOutcome.
	Index   int
	Outcome *agent.ActionResult

	// Result is set for EventDone.
	Result *Result
}
