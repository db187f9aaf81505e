package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/model"
)

func TestProfileChain_FirstSourceWins(t *testing.T) {
	primary := &mockProfileSource{name: "apollo"}
	secondary := &mockProfileSource{name: "generated"}
	primary.On("FetchProfile", mock.Anything, "Acme").Return(&model.CompanyProfile{Name: "Acme"}, nil)

	p, err := NewProfileChain(primary, secondary).Fetch(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Name)
	secondary.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
}

func TestProfileChain_FallsBackOnAbsentAndError(t *testing.T) {
	absent := &mockProfileSource{name: "apollo"}
	failing := &mockProfileSource{name: "generated"}
	absent.On("FetchProfile", mock.Anything, "Zeta").Return(nil, nil)
	failing.On("FetchProfile", mock.Anything, "Zeta").Return(nil, errors.New("bad json"))

	p, err := NewProfileChain(absent, failing, StubProfiles{}).Fetch(context.Background(), "Zeta")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.SourceStub, p.Source)
	assert.Equal(t, "Technology", p.Industry)
	assert.Equal(t, "AI-generated profile for Zeta", p.Description)
	absent.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestProfileChain_AllFail(t *testing.T) {
	failing := &mockProfileSource{name: "apollo"}
	failing.On("FetchProfile", mock.Anything, "Acme").Return(nil, errors.New("503"))

	_, err := NewProfileChain(failing).Fetch(context.Background(), "Acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Contains(t, err.Error(), "503")
}

func TestProfileChain_NoFallbackOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &mockProfileSource{name: "apollo"}
	next := &mockProfileSource{name: "generated"}
	primary.On("FetchProfile", mock.Anything, "Acme").
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	_, err := NewProfileChain(primary, next, StubProfiles{}).Fetch(ctx, "Acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	next.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
}

func TestLeadChain_FallsBackOnEmpty(t *testing.T) {
	primary := &mockLeadSource{name: "apollo"}
	primary.On("FetchLeads", mock.Anything, "Acme", 5).Return([]model.LeadProfile{}, nil)

	leads, err := NewLeadChain(primary, NewSyntheticSource(NewSyntheticLeads(15))).
		Fetch(context.Background(), "Acme", 5)
	require.NoError(t, err)
	assert.Len(t, leads, 5)
	assert.Equal(t, model.SourceSynthetic, leads[0].Source)
}

func TestLeadChain_FallsBackOnError(t *testing.T) {
	primary := &mockLeadSource{name: "apollo"}
	primary.On("FetchLeads", mock.Anything, "Acme", 3).Return(nil, errors.New("timeout"))

	leads, err := NewLeadChain(primary, NewSyntheticSource(NewSyntheticLeads(15))).
		Fetch(context.Background(), "Acme", 3)
	require.NoError(t, err)
	assert.Len(t, leads, 3)
}

func TestLeadChain_EmptyIsNotAnError(t *testing.T) {
	primary := &mockLeadSource{name: "apollo"}
	primary.On("FetchLeads", mock.Anything, "Acme", 3).Return(nil, errors.New("down"))

	leads, err := NewLeadChain(primary).Fetch(context.Background(), "Acme", 3)
	require.NoError(t, err)
	assert.NotNil(t, leads)
	assert.Empty(t, leads)
}

func TestLeadChain_TruncatesToLimit(t *testing.T) {
	primary := &mockLeadSource{name: "apollo"}
	primary.On("FetchLeads", mock.Anything, "Acme", 2).Return([]model.LeadProfile{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}, nil)

	leads, err := NewLeadChain(primary).Fetch(context.Background(), "Acme", 2)
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

func TestLeadChain_ZeroLimit(t *testing.T) {
	primary := &mockLeadSource{name: "apollo"}

	leads, err := NewLeadChain(primary).Fetch(context.Background(), "Acme", 0)
	require.NoError(t, err)
	assert.Empty(t, leads)
	primary.AssertNotCalled(t, "FetchLeads", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeadChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLeadChain(NewSyntheticSource(NewSyntheticLeads(15))).Fetch(ctx, "Acme", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
