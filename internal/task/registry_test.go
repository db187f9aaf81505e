package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/model"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) UpsertTaskStatus(ctx context.Context, t model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	created := r.Create(ctx, "sess-1", "Acme", model.TaskKindResearch)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.TaskPending, created.Status)
	assert.Equal(t, 0, created.Progress)
	assert.Equal(t, "Acme", created.CompanyName)

	got, ok := r.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_UpdateLifecycle(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)

	steps := []struct {
		status   model.TaskStatus
		progress int
		message  string
	}{
		{model.TaskRunning, 10, "starting research for Acme"},
		{model.TaskRunning, 30, "profile saved"},
		{model.TaskRunning, 60, "saved 3 leads"},
		{model.TaskCompleted, 100, "research completed"},
	}
	for _, s := range steps {
		require.NoError(t, r.Update(ctx, tk.ID, s.status, s.progress, s.message))
		got, _ := r.Get(tk.ID)
		assert.Equal(t, s.status, got.Status)
		assert.Equal(t, s.progress, got.Progress)
		assert.Equal(t, s.message, got.Message)
	}
}

func TestRegistry_ProgressNeverDecreasesWhileRunning(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)

	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 60, "leads"))
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 30, "late report"))

	got, _ := r.Get(tk.ID)
	assert.Equal(t, 60, got.Progress)
	assert.Equal(t, "late report", got.Message)
}

func TestRegistry_FailureKeepsLastCheckpoint(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)

	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 30, "profile saved"))
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskFailed, 100, "error: db down"))

	got, _ := r.Get(tk.ID)
	assert.Equal(t, model.TaskFailed, got.Status)
	assert.Equal(t, 30, got.Progress)
}

func TestRegistry_TerminalIsImmutable(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)

	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 10, "start"))
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskCompleted, 100, "done"))

	err := r.Update(ctx, tk.ID, model.TaskRunning, 10, "again")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	got, _ := r.Get(tk.ID)
	assert.Equal(t, model.TaskCompleted, got.Status)
}

func TestRegistry_PendingCanFailDirectly(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)

	require.NoError(t, r.Update(ctx, tk.ID, model.TaskFailed, 0, "cancelled: context canceled"))
	got, _ := r.Get(tk.ID)
	assert.Equal(t, model.TaskFailed, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestRegistry_UpdateUnknownID(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Update(context.Background(), "nope", model.TaskRunning, 10, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, r.List())
}

func TestRegistry_ListOrder(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	a := r.Create(ctx, "s1", "A", model.TaskKindResearch)
	b := r.Create(ctx, "s2", "B", model.TaskKindResearch)
	c := r.Create(ctx, "s1", "C", model.TaskKindResearch)

	all := r.List()
	require.Len(t, all, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	s1 := r.ListBySession("s1")
	require.Len(t, s1, 2)
	assert.Equal(t, "A", s1[0].CompanyName)
	assert.Equal(t, "C", s1[1].CompanyName)
	assert.Empty(t, r.ListBySession("nope"))
}

func TestRegistry_PersistsEveryChange(t *testing.T) {
	w := new(mockWriter)
	w.On("UpsertTaskStatus", mock.Anything, mock.AnythingOfType("model.Task")).Return(nil)

	r := NewRegistry(w)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 10, "start"))

	w.AssertNumberOfCalls(t, "UpsertTaskStatus", 2)
}

func TestRegistry_WriterErrorIsNotFatal(t *testing.T) {
	w := new(mockWriter)
	w.On("UpsertTaskStatus", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	r := NewRegistry(w)
	ctx := context.Background()
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskRunning, 10, "start"))

	got, _ := r.Get(tk.ID)
	assert.Equal(t, model.TaskRunning, got.Status)
}

func TestRegistry_PersistSurvivesCancelledContext(t *testing.T) {
	w := new(mockWriter)
	w.On("UpsertTaskStatus", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil)

	r := NewRegistry(w)
	ctx, cancel := context.WithCancel(context.Background())
	tk := r.Create(ctx, "", "Acme", model.TaskKindResearch)
	cancel()
	require.NoError(t, r.Update(ctx, tk.ID, model.TaskFailed, 0, "cancelled"))

	w.AssertNumberOfCalls(t, "UpsertTaskStatus", 2)
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := r.Create(ctx, "", fmt.Sprintf("Co %d", i), model.TaskKindResearch)
			for p := 10; p <= 60; p += 10 {
				_ = r.Update(ctx, tk.ID, model.TaskRunning, p, "step")
			}
			_ = r.Update(ctx, tk.ID, model.TaskCompleted, 100, "done")
		}()
	}
	wg.Wait()

	all := r.List()
	require.Len(t, all, 20)
	for _, tk := range all {
		assert.Equal(t, model.TaskCompleted, tk.Status)
		assert.Equal(t, 100, tk.Progress)
	}
}

func TestMultiWriter(t *testing.T) {
	ok1 := new(mockWriter)
	ok1.On("UpsertTaskStatus", mock.Anything, mock.Anything).Return(nil)
	bad := new(mockWriter)
	bad.On("UpsertTaskStatus", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	ok2 := new(mockWriter)
	ok2.On("UpsertTaskStatus", mock.Anything, mock.Anything).Return(nil)

	mw := MultiWriter{ok1, nil, bad, ok2}
	err := mw.UpsertTaskStatus(context.Background(), model.Task{ID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")

	ok1.AssertNumberOfCalls(t, "UpsertTaskStatus", 1)
	ok2.AssertNumberOfCalls(t, "UpsertTaskStatus", 1)
}
