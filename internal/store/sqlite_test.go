package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

// --- Companies ---

func TestSQLite_Company_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SaveCompany(ctx, &model.CompanyProfile{
		Name:           "Acme Corp",
		Industry:       "Manufacturing",
		EmployeesCount: 250,
		Source:         model.SourceApollo,
	})
	require.NoError(t, err)

	got, err := st.GetCompany(ctx, "  ACME   corp ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "Manufacturing", got.Industry)
	assert.Equal(t, 250, got.EmployeesCount)
	assert.Equal(t, model.SourceApollo, got.Source)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_Company_Absent(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCompany(context.Background(), "Nobody Inc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Company_UpsertDoesNotDuplicate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveCompany(ctx, &model.CompanyProfile{Name: "Zeta", Industry: "Technology"}))
	require.NoError(t, st.SaveCompany(ctx, &model.CompanyProfile{Name: "zeta", Industry: "Fintech"}))

	all, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "zeta", all[0].Name)
	assert.Equal(t, "Fintech", all[0].Industry)
}

func TestSQLite_Company_NameRequired(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveCompany(context.Background(), &model.CompanyProfile{Name: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name required")
	assert.Error(t, st.SaveCompany(context.Background(), nil))
}

func TestSQLite_ListCompanies_Ordered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, n := range []string{"Gamma", "alpha", "Beta"} {
		require.NoError(t, st.SaveCompany(ctx, &model.CompanyProfile{Name: n}))
	}

	all, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"alpha", "Beta", "Gamma"}, names)
}

// --- Leads ---

func TestSQLite_Leads_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SaveLeads(ctx, []model.LeadProfile{
		{Name: "Ada Lovelace", Company: "Acme", Title: "CTO", Department: "Engineering"},
		{Name: "Alan Turing", Company: "Acme", Title: "VP Research"},
		{Name: "Grace Hopper", Company: "Beta", Title: "CEO"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	leads, err := st.GetLeadsByCompany(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Ada Lovelace", leads[0].Name)
	assert.Equal(t, "Engineering", leads[0].Department)
	assert.Equal(t, "Alan Turing", leads[1].Name)
}

func TestSQLite_Leads_ReRunDoesNotDuplicate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	batch := []model.LeadProfile{
		{Name: "Ada Lovelace", Company: "Acme", Title: "CTO"},
		{Name: "ada lovelace", Company: "acme", Title: "CEO"},
	}
	n, err := st.SaveLeads(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.SaveLeads(ctx, batch)
	require.NoError(t, err)

	leads, err := st.GetLeadsByCompany(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "CEO", leads[0].Title)
}

func TestSQLite_Leads_EmptyAndNameless(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SaveLeads(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = st.SaveLeads(ctx, []model.LeadProfile{{Name: "", Company: "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	leads, err := st.GetLeadsByCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.NotNil(t, leads)
	assert.Empty(t, leads)
}

func TestSQLite_LeadCounts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveLeads(ctx, []model.LeadProfile{
		{Name: "A", Company: "Acme"},
		{Name: "B", Company: "Acme"},
		{Name: "C", Company: "Beta Labs"},
	})
	require.NoError(t, err)

	counts, err := st.LeadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"acme": 2, "beta labs": 1}, counts)
}

// --- Task status ---

func TestSQLite_TaskStatus_UpsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Minute)

	task := model.Task{
		ID: "t1", SessionID: "s1", CompanyName: "Acme", Kind: model.TaskKindResearch,
		Status: model.TaskRunning, Progress: 10, Message: "starting", CreatedAt: created,
	}
	require.NoError(t, st.UpsertTaskStatus(ctx, task))

	task.Status = model.TaskCompleted
	task.Progress = 100
	task.Message = "done"
	require.NoError(t, st.UpsertTaskStatus(ctx, task))

	require.NoError(t, st.UpsertTaskStatus(ctx, model.Task{
		ID: "t2", SessionID: "s2", CompanyName: "Beta", Kind: model.TaskKindResearch,
		Status: model.TaskFailed, Message: "boom", CreatedAt: created.Add(time.Second),
	}))

	all, err := st.ListTaskStatuses(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t2", all[0].ID)

	done, err := st.ListTaskStatuses(ctx, TaskFilter{Status: model.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 100, done[0].Progress)
	assert.Equal(t, "done", done[0].Message)
	assert.Equal(t, "Acme", done[0].CompanyName)

	bySession, err := st.ListTaskStatuses(ctx, TaskFilter{SessionID: "s2", Limit: 5})
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, model.TaskFailed, bySession[0].Status)
}

// --- Documents ---

func TestSQLite_Documents(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	docs := []model.Document{
		{ID: "company_acme", Collection: "c", Kind: model.DocumentCompany, Company: "Acme", Content: "Company: Acme. Industry: Robotics."},
		{ID: "lead_acme_ada", Collection: "c", Kind: model.DocumentLead, Company: "Acme", Content: "Lead: Ada. Title: CTO."},
		{ID: "company_other", Collection: "other", Kind: model.DocumentCompany, Company: "Other", Content: "Company: Other. Industry: Robotics."},
	}
	for _, d := range docs {
		require.NoError(t, st.UpsertDocument(ctx, d))
	}
	require.NoError(t, st.UpsertDocument(ctx, docs[0]))

	n, err := st.CountDocuments(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := st.SearchDocuments(ctx, "c", "robotics", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "company_acme", hits[0].ID)

	none, err := st.SearchDocuments(ctx, "c", "nothing-matches", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
