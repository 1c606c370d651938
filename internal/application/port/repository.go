package port

import (
	"context"
	"errors"

	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when the workflow id does not exist.
	ErrNotFound = errors.New("workflow not found")

	// ErrConflict is returned when a conditional update observed a state
	// other than the one the caller validated against. The caller lost a
	// race with a concurrent transition; the store does not retry.
	ErrConflict = errors.New("workflow state changed concurrently")
)

// WorkflowRepository defines persistence operations for WorkflowInstance.
type WorkflowRepository interface {
	// Create persists a new instance with its seeded single-entry history.
	// The store assigns ID, CreatedAt, UpdatedAt and the entry timestamp,
	// and must be durable before returning.
	Create(ctx context.Context, instance *entity.WorkflowInstance) error

	// GetByID returns the instance with its full ordered history, or
	// (nil, nil) when the id is unknown.
	GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error)

	// UpdateState atomically moves the instance from state `from` to state
	// `to` and appends one history entry, in a single transaction. It
	// returns ErrNotFound for an unknown id and ErrConflict when the
	// current state no longer equals `from`.
	UpdateState(ctx context.Context, id string, from, to workflow.State, entry entity.HistoryEntry) (*entity.WorkflowInstance, error)
}

// TransactionManager handles database transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
