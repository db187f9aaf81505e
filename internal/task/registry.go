// Package task tracks the status of research workflows. The in-memory
// Registry is authoritative for live tasks; every change is also pushed to a
// StatusWriter so status survives restarts.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/model"
)

// ErrNotFound is returned when updating an unknown task id.
var ErrNotFound = eris.New("task: not found")

// ErrInvalidTransition is returned when an update would move a task
// backwards or out of a terminal state.
var ErrInvalidTransition = eris.New("task: invalid status transition")

// StatusWriter persists task status snapshots.
type StatusWriter interface {
	UpsertTaskStatus(ctx context.Context, t model.Task) error
}

// Registry is a concurrency-safe map of task id to task status.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*model.Task
	order  []string
	writer StatusWriter
	now    func() time.Time
}

// NewRegistry creates a registry. writer may be nil.
func NewRegistry(writer StatusWriter) *Registry {
	return &Registry{
		tasks:  make(map[string]*model.Task),
		writer: writer,
		now:    time.Now,
	}
}

// Create registers a new pending task and returns a snapshot of it.
func (r *Registry) Create(ctx context.Context, sessionID, company string, kind model.TaskKind) model.Task {
	now := r.now().UTC()
	t := &model.Task{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		CompanyName: company,
		Kind:        kind,
		Status:      model.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	snap := *t
	r.mu.Unlock()

	r.persist(ctx, snap)
	return snap
}

// Update moves a task to status with the given progress and message.
// Progress never decreases while the task is running, and terminal tasks
// are immutable.
func (r *Registry) Update(ctx context.Context, id string, status model.TaskStatus, progress int, message string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		zap.L().Warn("task: update for unknown id", zap.String("task_id", id))
		return eris.Wrap(ErrNotFound, id)
	}
	if !t.Status.CanTransition(status) {
		from := t.Status
		r.mu.Unlock()
		return eris.Wrapf(ErrInvalidTransition, "%s: %s -> %s", id, from, status)
	}

	progress = max(0, min(progress, 100))
	if status == model.TaskRunning && progress < t.Progress {
		progress = t.Progress
	}
	if status == model.TaskCompleted {
		progress = 100
	}
	if status == model.TaskFailed {
		// failure keeps the last checkpoint reached
		progress = t.Progress
	}

	t.Status = status
	t.Progress = progress
	t.Message = message
	t.UpdatedAt = r.now().UTC()
	snap := *t
	r.mu.Unlock()

	r.persist(ctx, snap)
	return nil
}

// Get returns a snapshot of the task with the given id.
func (r *Registry) Get(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// List returns snapshots of every task in creation order.
func (r *Registry) List() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.tasks[id])
	}
	return out
}

// ListBySession returns the tasks of one session in creation order.
func (r *Registry) ListBySession(sessionID string) []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Task
	for _, id := range r.order {
		if t := r.tasks[id]; t.SessionID == sessionID {
			out = append(out, *t)
		}
	}
	return out
}

func (r *Registry) persist(ctx context.Context, t model.Task) {
	if r.writer == nil {
		return
	}
	// a cancelled workflow must still record its final status
	if err := r.writer.UpsertTaskStatus(context.WithoutCancel(ctx), t); err != nil {
		zap.L().Warn("failed to update status",
			zap.String("task_id", t.ID),
			zap.String("status", string(t.Status)),
			zap.Error(err),
		)
	}
}
