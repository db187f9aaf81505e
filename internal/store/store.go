package store

import (
	"context"

	"github.com/sells-group/competitor-research/internal/model"
)

// TaskFilter specifies criteria for listing durable task status rows.
type TaskFilter struct {
	Status    model.TaskStatus `json:"status,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}

// Store defines the persistence interface for researched companies, leads,
// task status history and index documents.
//
// Companies are keyed by the folded company name and leads by
// (folded lead name, folded company name), so saving the same research twice
// overwrites rather than duplicates. Absent rows are reported as nil, nil.
type Store interface {
	// Companies
	SaveCompany(ctx context.Context, p *model.CompanyProfile) error
	GetCompany(ctx context.Context, name string) (*model.CompanyProfile, error)
	ListCompanies(ctx context.Context) ([]model.CompanyProfile, error)

	// Leads
	SaveLeads(ctx context.Context, leads []model.LeadProfile) (int, error)
	GetLeadsByCompany(ctx context.Context, company string) ([]model.LeadProfile, error)
	// LeadCounts maps folded company names to their stored lead count.
	LeadCounts(ctx context.Context) (map[string]int, error)

	// Task status
	UpsertTaskStatus(ctx context.Context, t model.Task) error
	ListTaskStatuses(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// Index documents
	UpsertDocument(ctx context.Context, doc model.Document) error
	CountDocuments(ctx context.Context, collection string) (int, error)
	SearchDocuments(ctx context.Context, collection, query string, limit int) ([]model.Document, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// dedupeLeads drops nameless leads and collapses leads sharing a storage
// key, keeping the last occurrence in first-seen position.
func dedupeLeads(leads []model.LeadProfile) []model.LeadProfile {
	type key struct{ name, company string }
	pos := make(map[key]int, len(leads))
	out := make([]model.LeadProfile, 0, len(leads))
	for _, l := range leads {
		if model.FoldName(l.Name) == "" {
			continue
		}
		k := key{model.FoldName(l.Name), model.FoldName(l.Company)}
		if i, ok := pos[k]; ok {
			out[i] = l
			continue
		}
		pos[k] = len(out)
		out = append(out, l)
	}
	return out
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
