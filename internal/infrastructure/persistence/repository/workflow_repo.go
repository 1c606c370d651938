package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
	"github.com/garyjia/approval-workflow/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository on sqlite. The
// instance row and its history rows always change in one transaction, so
// a concurrent reader never observes a state without its audit entry.
type WorkflowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sqlite.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create persists a new instance and its seeded single-entry history.
// The repository assigns the id and all timestamps.
func (r *WorkflowRepository) Create(ctx context.Context, instance *entity.WorkflowInstance) error {
	if len(instance.History) != 1 {
		return fmt.Errorf("new workflow must carry exactly one history entry, got %d", len(instance.History))
	}

	now := time.Now().UTC()
	instance.ID = uuid.NewString()
	instance.CreatedAt = now
	instance.UpdatedAt = now
	instance.History[0].Timestamp = now
	instance.History[0].State = instance.CurrentState

	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO workflow_instances (
				id, current_state, payload, definition_version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := r.exec(txCtx).ExecContext(txCtx, query,
			instance.ID,
			instance.CurrentState.String(),
			payloadText(instance.Payload),
			instance.DefinitionVersion,
			instance.CreatedAt,
			instance.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert workflow: %w", err)
		}

		return r.insertHistory(txCtx, instance.ID, instance.History[0])
	})
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.Error(err))
		return err
	}

	return nil
}

// GetByID returns the instance with its full ordered history, or
// (nil, nil) when the id is unknown.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	return r.getByID(ctx, id)
}

// UpdateState atomically moves the instance to a new state and appends
// one history entry. The update is conditional on the state the caller
// observed; losing that race surfaces as port.ErrConflict.
func (r *WorkflowRepository) UpdateState(ctx context.Context, id string, from, to workflow.State, entry entity.HistoryEntry) (*entity.WorkflowInstance, error) {
	now := time.Now().UTC()
	entry.Timestamp = now
	entry.State = to

	var updated *entity.WorkflowInstance
	err := r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE workflow_instances
			SET current_state = ?, updated_at = ?
			WHERE id = ? AND current_state = ?
		`
		result, err := r.exec(txCtx).ExecContext(txCtx, query,
			to.String(), now, id, from.String())
		if err != nil {
			return fmt.Errorf("failed to update workflow state: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			exists, err := r.exists(txCtx, id)
			if err != nil {
				return err
			}
			if !exists {
				return port.ErrNotFound
			}
			return fmt.Errorf("workflow %s no longer at %s: %w", id, from, port.ErrConflict)
		}

		if err := r.insertHistory(txCtx, id, entry); err != nil {
			return err
		}

		updated, err = r.getByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *WorkflowRepository) getByID(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	query := `
		SELECT id, current_state, payload, definition_version, created_at, updated_at
		FROM workflow_instances
		WHERE id = ?
	`

	var instance entity.WorkflowInstance
	var state, payload string

	err := r.exec(ctx).QueryRowContext(ctx, query, id).Scan(
		&instance.ID,
		&state,
		&payload,
		&instance.DefinitionVersion,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	instance.CurrentState = workflow.State(state)
	instance.Payload = json.RawMessage(payload)

	history, err := r.historyByWorkflowID(ctx, id)
	if err != nil {
		return nil, err
	}
	instance.History = history

	return &instance, nil
}

func (r *WorkflowRepository) historyByWorkflowID(ctx context.Context, id string) ([]entity.HistoryEntry, error) {
	query := `
		SELECT state, triggered_by, metadata, timestamp
		FROM workflow_history
		WHERE workflow_id = ?
		ORDER BY id ASC
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get workflow history", zap.String("workflow_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow history: %w", err)
	}
	defer rows.Close()

	var history []entity.HistoryEntry
	for rows.Next() {
		var entry entity.HistoryEntry
		var state, metadata string

		if err := rows.Scan(&state, &entry.TriggeredBy, &metadata, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.State = workflow.State(state)
		if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode history metadata: %w", err)
		}

		history = append(history, entry)
	}

	return history, rows.Err()
}

func (r *WorkflowRepository) insertHistory(ctx context.Context, workflowID string, entry entity.HistoryEntry) error {
	metadata, err := metadataText(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_history (workflow_id, state, triggered_by, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = r.exec(ctx).ExecContext(ctx, query,
		workflowID,
		entry.State.String(),
		entry.TriggeredBy,
		metadata,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.exec(ctx).QueryRowContext(ctx,
		"SELECT 1 FROM workflow_instances WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check workflow existence: %w", err)
	}
	return true, nil
}

func payloadText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "{}"
	}
	return string(payload)
}

func metadataText(metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

// exec returns the enclosing transaction when present, the pool otherwise.
func (r *WorkflowRepository) exec(ctx context.Context) executor {
	if tx := sqlite.TxFrom(ctx); tx != nil {
		return tx
	}
	return r.db.DB
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
