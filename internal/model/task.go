package model

import "time"

// TaskStatus represents the lifecycle state of a scheduled research task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// IsTerminal returns true if no further state transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskRunning, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// CanTransition reports whether a task may move from s to next.
// Running tasks may re-enter running to report progress. Pending tasks may
// fail directly when they are cancelled before admission.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskRunning || next == TaskFailed
	case TaskRunning:
		return next == TaskRunning || next.IsTerminal()
	default:
		return false
	}
}

// TaskKind names the type of work a task performs.
type TaskKind string

const (
	TaskKindResearch TaskKind = "research"
)

// Task is one scheduled research unit for a single company.
type Task struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id,omitempty"`
	CompanyName string     `json:"company"`
	Kind        TaskKind   `json:"kind"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
