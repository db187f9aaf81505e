// Package monitoring derives read-side views of research state: the global
// and per-session summaries served to callers, and the periodic task health
// snapshot that drives alerting.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitor-research/internal/index"
	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/scheduler"
)

// ResultReader is the slice of the store the aggregator reads.
type ResultReader interface {
	ListCompanies(ctx context.Context) ([]model.CompanyProfile, error)
	LeadCounts(ctx context.Context) (map[string]int, error)
}

// IndexStatter reports the size of the search index.
type IndexStatter interface {
	Stats(ctx context.Context) index.Stats
}

// SessionSource looks up sessions and the tasks they spawned.
type SessionSource interface {
	GetSession(id string) (scheduler.Session, bool)
	SessionTasks(id string) []model.Task
}

// CompanySummary is one row of the global summary.
type CompanySummary struct {
	Name       string `json:"name"`
	Industry   string `json:"industry"`
	Size       string `json:"size"`
	Location   string `json:"location"`
	LeadsCount int    `json:"leads_count"`
}

// Summary is the global view over everything persisted.
type Summary struct {
	TotalCompanies int              `json:"total_companies"`
	TotalLeads     int              `json:"total_leads"`
	Companies      []CompanySummary `json:"companies"`
	IndexStats     index.Stats      `json:"vector_store"`
	CollectedAt    time.Time        `json:"collected_at"`
}

// SessionCompany is one task row of a session summary.
type SessionCompany struct {
	Name       string           `json:"name"`
	TaskID     string           `json:"task_id"`
	Status     model.TaskStatus `json:"status"`
	Progress   int              `json:"progress"`
	Message    string           `json:"message"`
	LeadsCount int              `json:"leads_count"`
}

// SessionSummary rolls up the tasks of one session.
type SessionSummary struct {
	Session      scheduler.Session `json:"session"`
	StatusCounts map[string]int    `json:"status_counts"`
	MeanProgress float64           `json:"mean_progress"`
	TotalLeads   int               `json:"total_leads"`
	Companies    []SessionCompany  `json:"companies"`
}

// Aggregator composes summaries from the store, the index and the
// scheduler's sessions. Nothing is cached.
type Aggregator struct {
	store    ResultReader
	index    IndexStatter
	sessions SessionSource
}

// NewAggregator creates an Aggregator. sessions may be nil when only the
// global summary is needed.
func NewAggregator(st ResultReader, idx IndexStatter, sessions SessionSource) *Aggregator {
	return &Aggregator{store: st, index: idx, sessions: sessions}
}

// Summary returns totals and one row per stored company.
func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	companies, err := a.store.ListCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list companies")
	}
	counts, err := a.store.LeadCounts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: lead counts")
	}

	sum := &Summary{
		TotalCompanies: len(companies),
		Companies:      make([]CompanySummary, 0, len(companies)),
		IndexStats:     a.index.Stats(ctx),
		CollectedAt:    time.Now().UTC(),
	}
	for _, c := range companies {
		n := counts[model.FoldName(c.Name)]
		sum.TotalLeads += n
		sum.Companies = append(sum.Companies, CompanySummary{
			Name:       c.Name,
			Industry:   c.Industry,
			Size:       c.Size,
			Location:   c.Location,
			LeadsCount: n,
		})
	}
	return sum, nil
}

// Session returns the rollup for one session. The boolean is false when the
// session id is unknown.
func (a *Aggregator) Session(ctx context.Context, id string) (*SessionSummary, bool, error) {
	if a.sessions == nil {
		return nil, false, nil
	}
	sess, ok := a.sessions.GetSession(id)
	if !ok {
		return nil, false, nil
	}

	counts, err := a.store.LeadCounts(ctx)
	if err != nil {
		return nil, true, eris.Wrap(err, "monitoring: lead counts")
	}

	tasks := a.sessions.SessionTasks(id)
	out := &SessionSummary{
		Session:      sess,
		StatusCounts: make(map[string]int),
		Companies:    make([]SessionCompany, 0, len(tasks)),
	}
	var progress int
	for _, t := range tasks {
		out.StatusCounts[string(t.Status)]++
		progress += t.Progress

		n := 0
		if t.Status == model.TaskCompleted {
			n = counts[model.FoldName(t.CompanyName)]
		}
		out.TotalLeads += n
		out.Companies = append(out.Companies, SessionCompany{
			Name:       t.CompanyName,
			TaskID:     t.ID,
			Status:     t.Status,
			Progress:   t.Progress,
			Message:    t.Message,
			LeadsCount: n,
		})
	}
	if len(tasks) > 0 {
		out.MeanProgress = float64(progress) / float64(len(tasks))
	}
	return out, true, nil
}
