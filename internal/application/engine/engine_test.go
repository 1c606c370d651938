package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/event"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
)

// fakeRepo is an in-memory stand-in for the sqlite repository. It applies
// the same semantics: id and timestamps assigned on create, conditional
// update keyed on the observed state, history appended atomically.
type fakeRepo struct {
	mu         sync.Mutex
	workflows  map[string]*entity.WorkflowInstance
	seq        int
	failCreate error
	failUpdate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{workflows: make(map[string]*entity.WorkflowInstance)}
}

func (r *fakeRepo) Create(_ context.Context, instance *entity.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}

	r.seq++
	now := time.Now()
	instance.ID = fmt.Sprintf("wf-%d", r.seq)
	instance.CreatedAt = now
	instance.UpdatedAt = now
	instance.History[0].Timestamp = now
	r.workflows[instance.ID] = clone(instance)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*entity.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wf, ok := r.workflows[id]
	if !ok {
		return nil, nil
	}
	return clone(wf), nil
}

func (r *fakeRepo) UpdateState(_ context.Context, id string, from, to workflow.State, entry entity.HistoryEntry) (*entity.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdate != nil {
		return nil, r.failUpdate
	}

	wf, ok := r.workflows[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	if wf.CurrentState != from {
		return nil, port.ErrConflict
	}

	entry.State = to
	entry.Timestamp = time.Now()
	wf.CurrentState = to
	wf.UpdatedAt = entry.Timestamp
	wf.History = append(wf.History, entry)
	return clone(wf), nil
}

func clone(wf *entity.WorkflowInstance) *entity.WorkflowInstance {
	c := *wf
	c.History = append([]entity.HistoryEntry(nil), wf.History...)
	return &c
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Transition
}

func (p *mockPublisher) Publish(_ context.Context, evt *event.Transition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *mockPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestEngine(repo port.WorkflowRepository) (*Engine, *mockPublisher) {
	publisher := &mockPublisher{}
	return New(workflow.DefaultTable(), repo, publisher, zap.NewNop()), publisher
}

var (
	submitter = entity.Actor{ID: "u1", Role: workflow.RoleSubmitter}
	approver  = entity.Actor{ID: "a1", Role: workflow.RoleApprover}
	system    = entity.Actor{ID: "sys", Role: workflow.RoleSystem}
)

func TestEngine_Submit(t *testing.T) {
	e, publisher := newTestEngine(newFakeRepo())

	instance, err := e.Submit(context.Background(), json.RawMessage(`{"amount":100}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if instance.CurrentState != workflow.StatePending {
		t.Errorf("CurrentState = %v, want %v", instance.CurrentState, workflow.StatePending)
	}
	if instance.ID == "" {
		t.Error("Submit() should assign an id")
	}
	if instance.DefinitionVersion != entity.DefinitionVersion {
		t.Errorf("DefinitionVersion = %v, want %v", instance.DefinitionVersion, entity.DefinitionVersion)
	}
	if len(instance.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(instance.History))
	}
	if instance.History[0].State != workflow.StatePending {
		t.Errorf("history[0].State = %v, want %v", instance.History[0].State, workflow.StatePending)
	}
	if instance.History[0].TriggeredBy != "u1" {
		t.Errorf("history[0].TriggeredBy = %v, want u1", instance.History[0].TriggeredBy)
	}
	if publisher.count() != 1 {
		t.Errorf("published %d events, want 1", publisher.count())
	}
}

func TestEngine_Submit_WrongRole(t *testing.T) {
	repo := newFakeRepo()
	e, publisher := newTestEngine(repo)

	_, err := e.Submit(context.Background(), json.RawMessage(`{}`), approver, nil)
	if !errors.Is(err, workflow.ErrRoleNotPermitted) {
		t.Fatalf("Submit() error = %v, want %v", err, workflow.ErrRoleNotPermitted)
	}
	if len(repo.workflows) != 0 {
		t.Error("no workflow should be persisted on validation failure")
	}
	if publisher.count() != 0 {
		t.Errorf("published %d events, want 0", publisher.count())
	}
}

func TestEngine_Submit_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreate = errors.New("disk full")
	e, publisher := newTestEngine(repo)

	_, err := e.Submit(context.Background(), json.RawMessage(`{}`), submitter, nil)
	if err == nil {
		t.Fatal("Submit() should propagate store failure")
	}
	if publisher.count() != 0 {
		t.Errorf("published %d events after failed commit, want 0", publisher.count())
	}
}

func TestEngine_Respond_Approve(t *testing.T) {
	e, publisher := newTestEngine(newFakeRepo())

	instance, err := e.Submit(context.Background(), json.RawMessage(`{}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	updated, err := e.Respond(context.Background(), instance.ID, workflow.TriggerApprove, approver, map[string]any{"comment": "ok"})
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if updated.CurrentState != workflow.StateApproved {
		t.Errorf("CurrentState = %v, want %v", updated.CurrentState, workflow.StateApproved)
	}
	if len(updated.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(updated.History))
	}
	if updated.History[1].Metadata["comment"] != "ok" {
		t.Errorf("history[1].Metadata = %v, want comment=ok", updated.History[1].Metadata)
	}
	if publisher.count() != 2 {
		t.Errorf("published %d events, want 2", publisher.count())
	}

	// Retrying approve on the now-Approved instance must fail.
	_, err = e.Respond(context.Background(), instance.ID, workflow.TriggerApprove, approver, nil)
	if !errors.Is(err, workflow.ErrNoMatchingOrigin) {
		t.Errorf("retry Respond() error = %v, want %v", err, workflow.ErrNoMatchingOrigin)
	}
}

func TestEngine_Respond_WrongRoleLeavesStateUnchanged(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())

	instance, err := e.Submit(context.Background(), json.RawMessage(`{}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	_, err = e.Respond(context.Background(), instance.ID, workflow.TriggerApprove, submitter, nil)
	if !errors.Is(err, workflow.ErrRoleNotPermitted) {
		t.Fatalf("Respond() error = %v, want %v", err, workflow.ErrRoleNotPermitted)
	}

	current, err := e.Status(context.Background(), instance.ID)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if current.CurrentState != workflow.StatePending {
		t.Errorf("CurrentState = %v, want %v (unchanged)", current.CurrentState, workflow.StatePending)
	}
	if len(current.History) != 1 {
		t.Errorf("history length = %d, want 1 (unchanged)", len(current.History))
	}
}

func TestEngine_Respond_NotFound(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())

	_, err := e.Respond(context.Background(), "missing", workflow.TriggerApprove, approver, nil)
	if !errors.Is(err, port.ErrNotFound) {
		t.Errorf("Respond() error = %v, want %v", err, port.ErrNotFound)
	}
}

func TestEngine_Respond_ConflictPropagates(t *testing.T) {
	repo := newFakeRepo()
	e, publisher := newTestEngine(repo)

	instance, err := e.Submit(context.Background(), json.RawMessage(`{}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	repo.failUpdate = port.ErrConflict
	_, err = e.Respond(context.Background(), instance.ID, workflow.TriggerApprove, approver, nil)
	if !errors.Is(err, port.ErrConflict) {
		t.Fatalf("Respond() error = %v, want %v", err, port.ErrConflict)
	}
	if publisher.count() != 1 {
		t.Errorf("published %d events, want 1 (submit only)", publisher.count())
	}
}

func TestEngine_Withdraw(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())

	instance, err := e.Submit(context.Background(), json.RawMessage(`{}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	updated, err := e.Withdraw(context.Background(), instance.ID, submitter, nil)
	if err != nil {
		t.Fatalf("Withdraw() failed: %v", err)
	}
	if updated.CurrentState != workflow.StateWithdrawn {
		t.Errorf("CurrentState = %v, want %v", updated.CurrentState, workflow.StateWithdrawn)
	}
}

func TestEngine_FullLifecycle(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())
	ctx := context.Background()

	instance, err := e.Submit(ctx, json.RawMessage(`{"amount":42}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	steps := []struct {
		trigger workflow.Trigger
		actor   entity.Actor
		want    workflow.State
	}{
		{workflow.TriggerApprove, approver, workflow.StateApproved},
		{workflow.TriggerComplete, system, workflow.StateCompleted},
	}

	wantStates := []workflow.State{workflow.StatePending}
	for i, step := range steps {
		updated, err := e.Respond(ctx, instance.ID, step.trigger, step.actor, nil)
		if err != nil {
			t.Fatalf("step %d: Respond(%s) failed: %v", i, step.trigger, err)
		}
		wantStates = append(wantStates, step.want)

		if updated.CurrentState != step.want {
			t.Errorf("step %d: CurrentState = %v, want %v", i, updated.CurrentState, step.want)
		}
		if len(updated.History) != len(wantStates) {
			t.Fatalf("step %d: history length = %d, want %d", i, len(updated.History), len(wantStates))
		}
		for j, want := range wantStates {
			if updated.History[j].State != want {
				t.Errorf("step %d: history[%d].State = %v, want %v", i, j, updated.History[j].State, want)
			}
		}
		if updated.LastState() != updated.CurrentState {
			t.Errorf("step %d: CurrentState %v diverged from history tail %v", i, updated.CurrentState, updated.LastState())
		}
	}

	// Completed is terminal: no further trigger except error succeeds.
	if _, err := e.Respond(ctx, instance.ID, workflow.TriggerComplete, system, nil); !errors.Is(err, workflow.ErrNoMatchingOrigin) {
		t.Errorf("Respond(complete) on Completed error = %v, want %v", err, workflow.ErrNoMatchingOrigin)
	}
}

func TestEngine_ErrorTriggerFromAnyState(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())
	ctx := context.Background()

	for _, setup := range [][]struct {
		trigger workflow.Trigger
		actor   entity.Actor
	}{
		{},
		{{workflow.TriggerApprove, approver}},
		{{workflow.TriggerReject, approver}},
		{{workflow.TriggerWithdraw, submitter}},
	} {
		instance, err := e.Submit(ctx, json.RawMessage(`{}`), submitter, nil)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		for _, step := range setup {
			if _, err := e.Respond(ctx, instance.ID, step.trigger, step.actor, nil); err != nil {
				t.Fatalf("setup Respond(%s) failed: %v", step.trigger, err)
			}
		}

		updated, err := e.Respond(ctx, instance.ID, workflow.TriggerError, system, nil)
		if err != nil {
			t.Fatalf("Respond(error) failed: %v", err)
		}
		if updated.CurrentState != workflow.StateError {
			t.Errorf("CurrentState = %v, want %v", updated.CurrentState, workflow.StateError)
		}
	}
}

func TestEngine_Status(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())
	ctx := context.Background()

	instance, err := e.Submit(ctx, json.RawMessage(`{}`), submitter, nil)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	first, err := e.Status(ctx, instance.ID)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	second, err := e.Status(ctx, instance.ID)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}

	if first.CurrentState != second.CurrentState || len(first.History) != len(second.History) {
		t.Error("Status() should be idempotent with no intervening write")
	}

	missing, err := e.Status(ctx, "missing")
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if missing != nil {
		t.Error("Status() on unknown id should return nil")
	}
}

func TestEngine_Heartbeat(t *testing.T) {
	e, _ := newTestEngine(newFakeRepo())

	health := e.Heartbeat()
	if health.Status != "ok" {
		t.Errorf("Heartbeat().Status = %v, want ok", health.Status)
	}
	if time.Since(health.Timestamp) > time.Second {
		t.Errorf("Heartbeat().Timestamp = %v, want recent", health.Timestamp)
	}
}
