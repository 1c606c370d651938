package port

import (
	"context"

	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/event"
)

// Notifier delivers a transition notification to its recipients. It is
// invoked after a committed transition; delivery failures are logged by
// the caller and never reverse the transition.
type Notifier interface {
	Notify(ctx context.Context, eventName string, wf *entity.WorkflowInstance, recipients []string) error
}

// TransitionPublisher broadcasts a committed transition to subscribed
// handlers without blocking the caller.
type TransitionPublisher interface {
	Publish(ctx context.Context, evt *event.Transition)
}
