package entity

import (
	"encoding/json"
	"time"

	"github.com/garyjia/approval-workflow/internal/domain/workflow"
)

// DefinitionVersion tags instances with the transition table version that
// produced them. Recorded at creation for forward compatibility; not
// otherwise interpreted.
const DefinitionVersion = "1.0"

// WorkflowInstance is the aggregate root of one approval workflow.
type WorkflowInstance struct {
	ID                string          `json:"id"`
	CurrentState      workflow.State  `json:"current_state"`
	Payload           json.RawMessage `json:"payload"`
	DefinitionVersion string          `json:"workflow_definition_version"`
	History           []HistoryEntry  `json:"history"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// LastState returns the state recorded by the most recent history entry.
// An instance always carries at least its creation entry.
func (w *WorkflowInstance) LastState() workflow.State {
	if len(w.History) == 0 {
		return ""
	}
	return w.History[len(w.History)-1].State
}

// HistoryEntry is one immutable audit record of an accepted transition.
// Entries are appended in transition order and never reordered or removed.
type HistoryEntry struct {
	State       workflow.State `json:"state"`
	Timestamp   time.Time      `json:"timestamp"`
	TriggeredBy string         `json:"triggered_by"`
	Metadata    map[string]any `json:"metadata"`
}

// Actor identifies the authenticated caller of a workflow operation.
type Actor struct {
	ID   string        `json:"id"`
	Role workflow.Role `json:"role"`
}
