package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/pkg/apollo"
)

// --- Profile source mock ---

type mockProfileSource struct {
	mock.Mock
	name string
}

func (m *mockProfileSource) Name() string { return m.name }

func (m *mockProfileSource) FetchProfile(ctx context.Context, company string) (*model.CompanyProfile, error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompanyProfile), args.Error(1)
}

// --- Lead source mock ---

type mockLeadSource struct {
	mock.Mock
	name string
}

func (m *mockLeadSource) Name() string { return m.name }

func (m *mockLeadSource) FetchLeads(ctx context.Context, company string, limit int) ([]model.LeadProfile, error) {
	args := m.Called(ctx, company, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadProfile), args.Error(1)
}

// --- Apollo client mock ---

type mockApollo struct {
	mock.Mock
}

func (m *mockApollo) SearchOrganizations(ctx context.Context, name string, perPage int) ([]apollo.Organization, error) {
	args := m.Called(ctx, name, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apollo.Organization), args.Error(1)
}

func (m *mockApollo) SearchPeople(ctx context.Context, organization string, perPage int) ([]apollo.Person, error) {
	args := m.Called(ctx, organization, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apollo.Person), args.Error(1)
}

// --- Saver mock ---

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SaveCompany(ctx context.Context, p *model.CompanyProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockSaver) SaveLeads(ctx context.Context, leads []model.LeadProfile) (int, error) {
	args := m.Called(ctx, leads)
	return args.Int(0), args.Error(1)
}

// --- Indexer mock ---

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) IndexCompany(ctx context.Context, p *model.CompanyProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockIndexer) IndexLeads(ctx context.Context, leads []model.LeadProfile) error {
	return m.Called(ctx, leads).Error(0)
}

// --- Tracker ---

type update struct {
	Status   model.TaskStatus
	Progress int
	Message  string
}

// recordingTracker keeps every update in call order.
type recordingTracker struct {
	mu      sync.Mutex
	updates []update
}

func (r *recordingTracker) Update(_ context.Context, _ string, status model.TaskStatus, progress int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update{status, progress, message})
	return nil
}

func (r *recordingTracker) last() update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func (r *recordingTracker) progress() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Progress
	}
	return out
}
