package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/event"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
	"github.com/garyjia/approval-workflow/internal/metrics"
	"go.uber.org/zap"
)

// Engine orchestrates workflow transitions: it asks the transition table
// for a verdict, applies the accepted transition through the repository
// and publishes a transition signal once the store has committed.
//
// Validation failures are returned before any store call. Store failures
// propagate verbatim and suppress the signal. Signal publication is
// fire-and-forget: delivery failures never undo a committed transition.
type Engine struct {
	table     workflow.Table
	repo      port.WorkflowRepository
	publisher port.TransitionPublisher
	logger    *zap.Logger
}

// Health reports engine liveness.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a workflow engine.
func New(table workflow.Table, repo port.WorkflowRepository, publisher port.TransitionPublisher, logger *zap.Logger) *Engine {
	return &Engine{
		table:     table,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit creates a new workflow instance from the caller's payload. The
// instance starts in the state the submit rule designates, with a
// single-entry history seeded from this transition.
func (e *Engine) Submit(ctx context.Context, payload json.RawMessage, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error) {
	rule, err := e.table.Validate(nil, workflow.TriggerSubmit, actor.Role)
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(workflow.TriggerSubmit.String(), metrics.OutcomeRejected).Inc()
		return nil, err
	}

	instance := &entity.WorkflowInstance{
		CurrentState:      rule.To,
		Payload:           payload,
		DefinitionVersion: entity.DefinitionVersion,
		History: []entity.HistoryEntry{{
			State:       rule.To,
			TriggeredBy: actor.ID,
			Metadata:    metadata,
		}},
	}

	if err := e.repo.Create(ctx, instance); err != nil {
		metrics.TransitionsTotal.WithLabelValues(workflow.TriggerSubmit.String(), metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	e.signal(ctx, workflow.TriggerSubmit, instance, actor)
	return instance, nil
}

// Respond applies a trigger (approve, reject, withdraw, complete, error)
// to an existing instance. The state update and the history append happen
// in one atomic store operation; a concurrent transition on the same id
// surfaces as port.ErrConflict.
func (e *Engine) Respond(ctx context.Context, id string, trigger workflow.Trigger, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error) {
	instance, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", id, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, port.ErrNotFound)
	}

	current := instance.CurrentState
	rule, err := e.table.Validate(&current, trigger, actor.Role)
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(trigger.String(), metrics.OutcomeRejected).Inc()
		return nil, err
	}

	entry := entity.HistoryEntry{
		State:       rule.To,
		TriggeredBy: actor.ID,
		Metadata:    metadata,
	}

	updated, err := e.repo.UpdateState(ctx, id, current, rule.To, entry)
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(trigger.String(), metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("apply %s to workflow %s: %w", trigger, id, err)
	}

	e.signal(ctx, trigger, updated, actor)
	return updated, nil
}

// Withdraw is a named convenience for the withdraw trigger.
func (e *Engine) Withdraw(ctx context.Context, id string, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error) {
	return e.Respond(ctx, id, workflow.TriggerWithdraw, actor, metadata)
}

// Status returns the instance with its full history, or (nil, nil) when
// the id is unknown. Read-only, no side effects.
func (e *Engine) Status(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	return e.repo.GetByID(ctx, id)
}

// Heartbeat reports engine liveness. Stateless, no store access.
func (e *Engine) Heartbeat() Health {
	return Health{Status: "ok", Timestamp: time.Now()}
}

// signal publishes the transition event for notification and records the
// accepted transition. Called only after the store commit succeeded.
func (e *Engine) signal(ctx context.Context, trigger workflow.Trigger, wf *entity.WorkflowInstance, actor entity.Actor) {
	metrics.TransitionsTotal.WithLabelValues(trigger.String(), metrics.OutcomeAccepted).Inc()

	e.logger.Info("Workflow transition committed",
		zap.String("workflow_id", wf.ID),
		zap.String("trigger", trigger.String()),
		zap.String("state", wf.CurrentState.String()),
		zap.String("triggered_by", actor.ID))

	e.publisher.Publish(ctx, event.NewTransition(trigger, wf, []string{actor.ID}))
}
