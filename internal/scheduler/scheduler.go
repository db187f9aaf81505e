// Package scheduler fans research out over discovered competitors. Every
// workflow, whether launched by a session or run on its own, passes through
// one shared admission gate so the number of concurrently running
// workflows never exceeds the configured width.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/pipeline"
	"github.com/sells-group/competitor-research/internal/task"
)

// Defaults applied by New when Config leaves a field at zero.
const (
	DefaultMaxConcurrentWorkflows = 5
	DefaultMaxCandidates          = 10
	DefaultCandidateCap           = 50
)

// ErrEmptyCompany is returned when a seed or company name is blank.
var ErrEmptyCompany = eris.New("scheduler: company name is required")

// Discoverer returns competitor names for a seed company.
type Discoverer interface {
	Discover(ctx context.Context, seed string, limit int) []string
}

// Runner executes one research workflow for a registered task.
type Runner interface {
	Run(ctx context.Context, t model.Task) (*pipeline.Result, error)
}

// Reader reads persisted research results back.
type Reader interface {
	GetCompany(ctx context.Context, name string) (*model.CompanyProfile, error)
	GetLeadsByCompany(ctx context.Context, company string) ([]model.LeadProfile, error)
}

// Config tunes a Scheduler.
type Config struct {
	MaxConcurrentWorkflows int
	DefaultMaxCandidates   int
	// MaxCandidates caps any requested candidate count.
	MaxCandidates int
	// SessionTimeout bounds a whole session. Zero means no deadline.
	SessionTimeout time.Duration
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionDiscovering SessionStatus = "discovering"
	SessionRunning     SessionStatus = "running"
	SessionCompleted   SessionStatus = "completed"
)

// Session is one discovery plus the research tasks it spawned.
type Session struct {
	ID            string        `json:"session_id"`
	Seed          string        `json:"seed_company"`
	MaxCandidates int           `json:"max_candidates"`
	Status        SessionStatus `json:"status"`
	Candidates    []string      `json:"candidates"`
	TaskIDs       []string      `json:"task_ids"`
	CreatedAt     time.Time     `json:"created_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
}

// SingleResult is the outcome of RunSingleSync.
type SingleResult struct {
	Task       model.Task            `json:"task"`
	Profile    *model.CompanyProfile `json:"company"`
	Leads      []model.LeadProfile   `json:"leads"`
	TotalLeads int                   `json:"total_leads"`
}

// Scheduler owns the admission gate and the session table.
type Scheduler struct {
	discovery Discoverer
	runner    Runner
	tasks     *task.Registry
	reader    Reader
	cfg       Config
	gate      *semaphore.Weighted

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a Scheduler.
func New(discovery Discoverer, runner Runner, tasks *task.Registry, reader Reader, cfg Config) *Scheduler {
	if cfg.MaxConcurrentWorkflows <= 0 {
		cfg.MaxConcurrentWorkflows = DefaultMaxConcurrentWorkflows
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultCandidateCap
	}
	if cfg.DefaultMaxCandidates <= 0 {
		cfg.DefaultMaxCandidates = DefaultMaxCandidates
	}
	cfg.DefaultMaxCandidates = min(cfg.DefaultMaxCandidates, cfg.MaxCandidates)
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		discovery: discovery,
		runner:    runner,
		tasks:     tasks,
		reader:    reader,
		cfg:       cfg,
		gate:      semaphore.NewWeighted(int64(cfg.MaxConcurrentWorkflows)),
		sessions:  make(map[string]*Session),
		base:      base,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Discover returns up to maxCandidates competitor names for seed without
// scheduling any research.
func (s *Scheduler) Discover(ctx context.Context, seed string, maxCandidates int) ([]string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, ErrEmptyCompany
	}
	names := s.discovery.Discover(ctx, seed, s.candidateLimit(maxCandidates))
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// LaunchSession discovers competitors of seed, registers one task per
// candidate and runs them through the gate. It returns once every task is
// terminal.
func (s *Scheduler) LaunchSession(ctx context.Context, seed string, maxCandidates int) (Session, error) {
	sess, err := s.newSession(seed, maxCandidates)
	if err != nil {
		return Session{}, err
	}
	s.runSession(ctx, sess.ID)
	snap, _ := s.GetSession(sess.ID)
	return snap, nil
}

// LaunchAsync registers a session and runs it in the background. The
// returned snapshot carries the session id; poll GetSession for progress.
func (s *Scheduler) LaunchAsync(seed string, maxCandidates int) (Session, error) {
	sess, err := s.newSession(seed, maxCandidates)
	if err != nil {
		return Session{}, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSession(s.base, sess.ID)
	}()
	return sess, nil
}

// RunSingleSync researches one company through the gate and reads the
// persisted results back. On workflow failure the result still carries the
// failed task alongside the error.
func (s *Scheduler) RunSingleSync(ctx context.Context, company string) (*SingleResult, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, ErrEmptyCompany
	}

	t := s.tasks.Create(ctx, "", company, model.TaskKindResearch)
	metrics.TasksCreated.Inc()

	runErr := s.runTask(ctx, t)
	final, _ := s.tasks.Get(t.ID)
	res := &SingleResult{Task: final, Leads: []model.LeadProfile{}}
	if runErr != nil {
		return res, eris.Wrapf(runErr, "scheduler: research %s", company)
	}

	profile, err := s.reader.GetCompany(ctx, company)
	if err != nil {
		return res, eris.Wrap(err, "scheduler: read company")
	}
	leads, err := s.reader.GetLeadsByCompany(ctx, company)
	if err != nil {
		return res, eris.Wrap(err, "scheduler: read leads")
	}
	res.Profile = profile
	res.Leads = leads
	res.TotalLeads = len(leads)
	return res, nil
}

// GetTask returns the task with the given id.
func (s *Scheduler) GetTask(id string) (model.Task, bool) {
	return s.tasks.Get(id)
}

// ListTasks returns every task in creation order.
func (s *Scheduler) ListTasks() []model.Task {
	return s.tasks.List()
}

// SessionTasks returns the tasks spawned by one session.
func (s *Scheduler) SessionTasks(id string) []model.Task {
	return s.tasks.ListBySession(id)
}

// GetSession returns a snapshot of the session with the given id.
func (s *Scheduler) GetSession(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// ListSessions returns snapshots of every session in launch order.
func (s *Scheduler) ListSessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].snapshot())
	}
	return out
}

// Close cancels background sessions and waits for them to finish.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) newSession(seed string, maxCandidates int) (Session, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return Session{}, ErrEmptyCompany
	}
	sess := &Session{
		ID:            uuid.NewString(),
		Seed:          seed,
		MaxCandidates: s.candidateLimit(maxCandidates),
		Status:        SessionDiscovering,
		Candidates:    []string{},
		TaskIDs:       []string{},
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	snap := sess.snapshot()
	s.mu.Unlock()

	metrics.SessionsLaunched.Inc()
	return snap, nil
}

func (s *Scheduler) runSession(ctx context.Context, id string) {
	s.mu.RLock()
	seed, limit := s.sessions[id].Seed, s.sessions[id].MaxCandidates
	s.mu.RUnlock()

	if s.cfg.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SessionTimeout)
		defer cancel()
	}

	ctx, span := metrics.Tracer().Start(ctx, "research.session",
		trace.WithAttributes(
			attribute.String("session_id", id),
			attribute.String("seed", seed),
		),
	)
	defer span.End()

	log := zap.L().With(zap.String("session_id", id), zap.String("seed", seed))
	start := time.Now()

	names := s.discovery.Discover(ctx, seed, limit)
	log.Info("discovery complete", zap.Int("candidates", len(names)))

	tasks := make([]model.Task, 0, len(names))
	ids := make([]string, 0, len(names))
	for _, name := range names {
		t := s.tasks.Create(ctx, id, name, model.TaskKindResearch)
		tasks = append(tasks, t)
		ids = append(ids, t.ID)
	}
	metrics.TasksCreated.Add(float64(len(tasks)))

	s.mu.Lock()
	s.sessions[id].Candidates = append([]string{}, names...)
	s.sessions[id].TaskIDs = ids
	s.sessions[id].Status = SessionRunning
	s.mu.Unlock()

	// task failures are recorded in the registry and never cancel siblings
	var g errgroup.Group
	for _, t := range tasks {
		g.Go(func() error {
			if err := s.runTask(ctx, t); err != nil {
				log.Warn("research task failed",
					zap.String("task_id", t.ID),
					zap.String("company", t.CompanyName),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	finished := s.now().UTC()
	s.mu.Lock()
	s.sessions[id].Status = SessionCompleted
	s.sessions[id].FinishedAt = &finished
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("tasks", len(tasks)))
	log.Info("session complete",
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// runTask waits for a gate slot and runs the workflow. A task whose context
// ends while it is queued goes straight from pending to failed.
func (s *Scheduler) runTask(ctx context.Context, t model.Task) error {
	waitStart := time.Now()
	if err := s.gate.Acquire(ctx, 1); err != nil {
		if uerr := s.tasks.Update(ctx, t.ID, model.TaskFailed, 0, "cancelled: "+err.Error()); uerr != nil {
			zap.L().Warn("failed to update status", zap.String("task_id", t.ID), zap.Error(uerr))
		}
		metrics.TasksFinished.WithLabelValues(string(model.TaskFailed)).Inc()
		return eris.Wrap(err, "scheduler: waiting for slot")
	}
	metrics.GateWaitSeconds.Observe(time.Since(waitStart).Seconds())
	metrics.WorkflowsInFlight.Inc()
	defer func() {
		metrics.WorkflowsInFlight.Dec()
		s.gate.Release(1)
	}()

	_, err := s.runner.Run(ctx, t)
	return err
}

func (s *Scheduler) candidateLimit(n int) int {
	if n <= 0 {
		return s.cfg.DefaultMaxCandidates
	}
	return min(n, s.cfg.MaxCandidates)
}

func (s *Session) snapshot() Session {
	out := *s
	out.Candidates = append([]string{}, s.Candidates...)
	out.TaskIDs = append([]string{}, s.TaskIDs...)
	if s.FinishedAt != nil {
		f := *s.FinishedAt
		out.FinishedAt = &f
	}
	return out
}
