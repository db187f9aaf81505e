package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/store"
)

// HealthSnapshot holds a point-in-time view of research task health.
type HealthSnapshot struct {
	// Task counts (within lookback window).
	TasksTotal     int     `json:"tasks_total"`
	TasksCompleted int     `json:"tasks_completed"`
	TasksFailed    int     `json:"tasks_failed"`
	TasksRunning   int     `json:"tasks_running"`
	TasksPending   int     `json:"tasks_pending"`
	FailRate       float64 `json:"fail_rate"`

	// Running tasks with no update for longer than the stuck threshold,
	// oldest update first.
	TasksStuck int         `json:"tasks_stuck"`
	Stuck      []StuckTask `json:"stuck,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StuckTask identifies one running task that stopped reporting progress.
type StuckTask struct {
	ID        string    `json:"id"`
	Company   string    `json:"company"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskStatusLister abstracts the durable task status history.
type TaskStatusLister interface {
	ListTaskStatuses(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// Collector gathers task health from the durable status rows.
type Collector struct {
	tasks      TaskStatusLister
	stuckAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a new health collector. A non-positive stuckAfter
// disables stuck detection.
func NewCollector(tasks TaskStatusLister, stuckAfter time.Duration) *Collector {
	return &Collector{tasks: tasks, stuckAfter: stuckAfter, now: time.Now}
}

// Collect gathers a snapshot of task health over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*HealthSnapshot, error) {
	now := c.now().UTC()
	snap := &HealthSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	tasks, err := c.tasks.ListTaskStatuses(ctx, store.TaskFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list task statuses")
	}

	for _, t := range tasks {
		if t.CreatedAt.Before(cutoff) {
			continue
		}
		snap.TasksTotal++
		switch t.Status {
		case model.TaskCompleted:
			snap.TasksCompleted++
		case model.TaskFailed:
			snap.TasksFailed++
		case model.TaskRunning:
			snap.TasksRunning++
			if c.stuckAfter > 0 && now.Sub(t.UpdatedAt) > c.stuckAfter {
				snap.Stuck = append(snap.Stuck, StuckTask{
					ID:        t.ID,
					Company:   t.CompanyName,
					Progress:  t.Progress,
					UpdatedAt: t.UpdatedAt,
				})
			}
		case model.TaskPending:
			snap.TasksPending++
		}
	}

	sort.Slice(snap.Stuck, func(i, j int) bool {
		return snap.Stuck[i].UpdatedAt.Before(snap.Stuck[j].UpdatedAt)
	})
	snap.TasksStuck = len(snap.Stuck)

	finished := snap.TasksCompleted + snap.TasksFailed
	if finished > 0 {
		snap.FailRate = float64(snap.TasksFailed) / float64(finished)
	}

	return snap, nil
}
