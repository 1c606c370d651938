package event

import (
	"time"

	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
)

// Type classifies an event for handler routing.
type Type string

const (
	// TypeTransition is published after a workflow transition has been
	// committed to the store.
	TypeTransition Type = "workflow.transition"
)

// Transition is the signal emitted for every committed state transition.
// It is published only after the store mutation succeeded.
type Transition struct {
	Trigger    workflow.Trigger         `json:"trigger"`
	Workflow   *entity.WorkflowInstance `json:"workflow"`
	Recipients []string                 `json:"recipients"`
	OccurredAt time.Time                `json:"occurred_at"`
}

// NewTransition builds a transition event stamped with the current time.
func NewTransition(trigger workflow.Trigger, wf *entity.WorkflowInstance, recipients []string) *Transition {
	return &Transition{
		Trigger:    trigger,
		Workflow:   wf,
		Recipients: recipients,
		OccurredAt: time.Now(),
	}
}
