// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/bus"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
	"github.com/xkilldash9x/droidpilot/internal/prompt"
)

const (
	eventBufferSize = 64

	// doneDeliveryTimeout bounds how long the terminal event waits for a
	// full subscriber buffer to drain.
	doneDeliveryTimeout = 5 * time.Second
)

// ErrEmptyCommand is returned for a blank command. Nothing is recorded.
var ErrEmptyCommand = errors.New("command is empty")

// Result is the full record of one processed command.
type Result struct {
	ID       string
	Command  string
	Thinking string
	Success  bool
	Outcomes []agent.ActionResult
	Warnings []agent.ActionDecodeWarning
}

// Summaries returns the history form of the outcomes.
func (r *Result) Summaries() []string {
	return agent.SummarizeResults(r.Outcomes)
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	Settings  schemas.SettingsProvider
	Snapshots agent.SnapshotSource
	Planner   schemas.PlannerClient
	Host      schemas.ActionHost
	Speaker   schemas.Speaker
	History   schemas.HistoryStore
	Engine    config.EngineConfig
}

// Orchestrator turns one natural-language command into executed actions:
// snapshot, prompt, plan, decode, execute, record. It does not lock; callers
// submit one command at a time.
type Orchestrator struct {
	deps    Deps
	decoder *agent.Decoder
	logger  *zap.Logger
	events  *bus.Bus[Event]

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator. Speaker may be nil.
func New(deps Deps, logger *zap.Logger) (*Orchestrator, error) {
	if deps.Settings == nil ||
		deps.Snapshots == nil ||
		deps.Planner == nil ||
		deps.Host == nil ||
		deps.History == nil ||
		logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		deps:    deps,
		decoder: agent.NewDecoder(logger),
		logger:  logger.Named("orchestrator"),
		events:  bus.New[Event](logger, "orchestrator_events", eventBufferSize),
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Events subscribes to pipeline events. Slow subscribers lose progress events
// rather than stall the pipeline; the final EventDone is always delivered
// unless the subscriber stays full for doneDeliveryTimeout. Call the returned
// function to unsubscribe.
func (o *Orchestrator) Events() (<-chan Event, func()) {
	return o.events.Subscribe()
}

// Shutdown closes every event subscription.
func (o *Orchestrator) Shutdown() {
	o.events.Shutdown()
}

// Process runs the full pipeline for command. priorTurns are sent to the
// planner verbatim before the command.
//
// A returned error means the command never reached execution (or ctx ended
// it); action failures are reported through Result.Success instead.
func (o *Orchestrator) Process(ctx context.Context, command string, priorTurns ...string) (*Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	res := &Result{ID: o.newID(), Command: command}
	log := o.logger.With(zap.String("command_id", res.ID))
	log.Info("Processing command.", zap.String("command", command))
	o.status(res, StatusProcessing, "Processing command...")

	snap := o.deps.Snapshots.Latest()
	if snap == nil {
		o.finish(ctx, res, StatusFailed, "No screen snapshot available.")
		return res, schemas.ErrNoSnapshot
	}

	// Settings may change between commands, so read them now.
	apiKey := o.deps.Settings.APIKey()
	model := o.deps.Settings.Model()
	voice := o.deps.Settings.VoiceEnabled()

	plan, err := o.plan(ctx, command, snap.State, priorTurns, apiKey, model)
	if err != nil {
		log.Error("Planning failed.", zap.Error(err))
		o.emitLog(res, "Planner error: "+err.Error())
		o.record(ctx, res)
		o.finish(ctx, res, StatusFailed, "Error: "+err.Error())
		return res, err
	}
	res.Thinking = plan.Thinking
	res.Warnings = plan.Warnings
	for _, w := range plan.Warnings {
		o.emitLog(res, w.Error())
	}
	if plan.Thinking != "" {
		log.Debug("Planner reasoning.", zap.String("thinking", llmutil.Truncate(plan.Thinking, 500)))
	}

	o.status(res, StatusExecuting, fmt.Sprintf("Executing %d actions...", len(plan.Actions)))
	engine := agent.NewEngine(o.logger, o.deps.Engine, o.deps.Host,
		agent.WithSnapshots(o.deps.Snapshots),
		agent.WithSpeaker(o.deps.Speaker, voice),
		agent.WithResultHook(func(i int, r agent.ActionResult) { o.outcome(res, i, r) }),
	)

	success, outcomes, runErr := engine.Run(ctx, plan.Actions)
	res.Success = success
	res.Outcomes = outcomes
	o.record(ctx, res)

	if runErr != nil {
		log.Warn("Execution interrupted.", zap.Error(runErr))
		o.finish(ctx, res, StatusFailed, "Interrupted: "+runErr.Error())
		return res, runErr
	}

	if success {
		log.Info("Command completed.", zap.Int("actions", len(outcomes)))
		o.finish(ctx, res, StatusCompleted, "Command completed")
	} else {
		log.Info("Command completed with errors.", zap.Int("actions", len(outcomes)))
		o.finish(ctx, res, StatusFailed, "Command completed with errors")
	}
	return res, nil
}

// plan builds the prompt, calls the planner and decodes its answer.
func (o *Orchestrator) plan(ctx context.Context, command string, state schemas.ScreenState, priorTurns []string, apiKey, model string) (*agent.Plan, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is not set", schemas.ErrConfiguration)
	}

	messages := prompt.Build(command, state, priorTurns)
	raw, err := o.deps.Planner.Plan(ctx, apiKey, model, messages)
	if err != nil {
		return nil, fmt.Errorf("planner call failed: %w", err)
	}

	plan, err := o.decoder.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode planner response: %w", err)
	}
	return plan, nil
}

// record appends the history entry. A store failure never fails the command.
func (o *Orchestrator) record(ctx context.Context, res *Result) {
	entry := schemas.HistoryEntry{
		ID:        res.ID,
		Command:   res.Command,
		Actions:   res.Summaries(),
		Success:   res.Success,
		Timestamp: o.now(),
	}
	// The entry is written even if ctx is already done.
	if err := o.deps.History.Append(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Error("Failed to record command history.", zap.String("command_id", res.ID), zap.Error(err))
	}
}

// -- Events --

func (o *Orchestrator) status(res *Result, s Status, msg string) {
	o.events.Offer(Event{Kind: EventStatus, CommandID: res.ID, Status: s, Message: msg})
}

func (o *Orchestrator) emitLog(res *Result, msg string) {
	o.events.Offer(Event{Kind: EventLog, CommandID: res.ID, Message: msg})
}

func (o *Orchestrator) outcome(res *Result, i int, r agent.ActionResult) {
	line := "Executing: " + agent.Summarize(r.Action)
	if !r.Success {
		line += " failed: " + r.Message
	}
	o.emitLog(res, line)

	outcome := r
	o.events.Offer(Event{Kind: EventOutcome, CommandID: res.ID, Index: i, Outcome: &outcome})
}

// finish emits the final status and blocks until EventDone is queued for every
// subscriber. Cancellation of ctx does not skip delivery.
func (o *Orchestrator) finish(ctx context.Context, res *Result, s Status, msg string) {
	o.status(res, s, msg)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), doneDeliveryTimeout)
	defer cancel()
	done := Event{Kind: EventDone, CommandID: res.ID, Status: s, Message: msg, Result: res}
	if err := o.events.Post(ctx, done); err != nil {
		o.logger.Warn("Failed to deliver completion event.", zap.String("command_id", res.ID), zap.Error(err))
	}
}
