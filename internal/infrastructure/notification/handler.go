package notification

import (
	"context"

	"github.com/garyjia/approval-workflow/internal/application/dispatcher"
	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/event"
	"github.com/garyjia/approval-workflow/internal/metrics"
)

// TransitionHandler returns a dispatcher handler that forwards committed
// transition events to the notifier. Errors bubble up to the dispatcher,
// which logs them; they never reach the transition caller.
func TransitionHandler(notifier port.Notifier) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Transition) error {
		err := notifier.Notify(ctx, evt.Trigger.String(), evt.Workflow, evt.Recipients)
		if err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			return err
		}
		metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
		return nil
	}
}
