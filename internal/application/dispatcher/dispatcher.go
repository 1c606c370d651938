package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/event"
	"go.uber.org/zap"
)

// Handler processes a committed transition event.
type Handler func(ctx context.Context, evt *event.Transition) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name    string
	Handler Handler
}

// Dispatcher fans committed transition events out to registered handlers
// without blocking the publisher. Handler errors are logged, never
// propagated: a notification failure must not reach the transition caller.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []HandlerInfo
	logger   *zap.Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a transition event dispatcher.
func New(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers a handler under a name used in failure logs.
func (d *Dispatcher) Subscribe(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, HandlerInfo{Name: name, Handler: handler})
	d.logger.Info("Transition handler registered", zap.String("handler_name", name))
}

// Publish delivers the event to every registered handler on its own
// goroutine and returns immediately. Handlers run on a background context:
// the originating request may complete or be cancelled while delivery is
// still in flight.
func (d *Dispatcher) Publish(ctx context.Context, evt *event.Transition) {
	if d.closed.Load() {
		d.logger.Error("Dropping transition event, dispatcher is closed",
			zap.String("workflow_id", evt.Workflow.ID),
			zap.String("trigger", evt.Trigger.String()))
		return
	}

	d.mu.RLock()
	handlers := make([]HandlerInfo, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, info := range handlers {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()

			if err := d.safeExecute(context.Background(), evt, h); err != nil {
				d.logger.Error("Transition handler failed",
					zap.String("handler_name", h.Name),
					zap.String("workflow_id", evt.Workflow.ID),
					zap.String("trigger", evt.Trigger.String()),
					zap.Error(err))
			}
		}(info)
	}
}

// Close stops accepting events and waits for in-flight handlers to finish.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.logger.Info("Closing dispatcher, waiting for in-flight handlers")
	d.wg.Wait()
	return nil
}

// safeExecute runs a handler with panic recovery.
func (d *Dispatcher) safeExecute(ctx context.Context, evt *event.Transition, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return info.Handler(ctx, evt)
}

// Verify interface compliance
var _ port.TransitionPublisher = (*Dispatcher)(nil)
