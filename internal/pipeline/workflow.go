// Package pipeline drives one research workflow: acquire a company profile
// and its leads through fallback chains, persist them, and index them while
// reporting fixed progress checkpoints.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/model"
)

// Progress checkpoints reported as the workflow advances.
const (
	ProgressStarted   = 10
	ProgressProfile   = 30
	ProgressLeads     = 60
	ProgressCompleted = 100
)

// DefaultMaxLeads is the lead request size when none is configured.
const DefaultMaxLeads = 20

// Tracker receives task progress. task.Registry implements it.
type Tracker interface {
	Update(ctx context.Context, id string, status model.TaskStatus, progress int, message string) error
}

// Saver persists research results as idempotent upserts.
type Saver interface {
	SaveCompany(ctx context.Context, p *model.CompanyProfile) error
	SaveLeads(ctx context.Context, leads []model.LeadProfile) (int, error)
}

// Indexer makes research results searchable.
type Indexer interface {
	IndexCompany(ctx context.Context, p *model.CompanyProfile) error
	IndexLeads(ctx context.Context, leads []model.LeadProfile) error
}

// Config tunes a Workflow.
type Config struct {
	MaxLeads int
	// Timeout bounds a single workflow run. Zero means no deadline.
	Timeout time.Duration
}

// Result is what one workflow run produced.
type Result struct {
	Profile *model.CompanyProfile
	Leads   []model.LeadProfile
}

// Workflow researches one company at a time. It is safe for concurrent use
// when its collaborators are.
type Workflow struct {
	profiles *ProfileChain
	leads    *LeadChain
	saver    Saver
	index    Indexer
	tracker  Tracker
	cfg      Config
}

// NewWorkflow creates a Workflow with all dependencies.
func NewWorkflow(profiles *ProfileChain, leads *LeadChain, saver Saver, index Indexer, tracker Tracker, cfg Config) *Workflow {
	if cfg.MaxLeads <= 0 {
		cfg.MaxLeads = DefaultMaxLeads
	}
	return &Workflow{
		profiles: profiles,
		leads:    leads,
		saver:    saver,
		index:    index,
		tracker:  tracker,
		cfg:      cfg,
	}
}

// Run executes the workflow for task. The task always ends terminal: on
// error it is marked failed at its last checkpoint, and panics are recovered
// into failures.
func (w *Workflow) Run(ctx context.Context, task model.Task) (res *Result, err error) {
	log := zap.L().With(
		zap.String("task_id", task.ID),
		zap.String("session_id", task.SessionID),
		zap.String("company", task.CompanyName),
	)
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}
	ctx, span := metrics.Tracer().Start(ctx, "research.workflow")
	defer span.End()
	span.SetAttributes(attribute.String("company", task.CompanyName), attribute.String("task_id", task.ID))

	start := time.Now()
	checkpoint := 0
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: panic: %v", r)
			res = nil
		}
		status := model.TaskCompleted
		if err != nil {
			status = model.TaskFailed
			w.fail(ctx, log, task.ID, checkpoint, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.TasksFinished.WithLabelValues(string(status)).Inc()
		metrics.WorkflowDurationSeconds.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
	}()

	w.report(ctx, log, task.ID, model.TaskRunning, ProgressStarted, "Starting research for "+task.CompanyName)
	checkpoint = ProgressStarted
	log.Info("pipeline: starting research")

	profile, err := w.profiles.Fetch(ctx, task.CompanyName)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch profile")
	}
	// profiles are stored under the researched name so leads and lookups join
	if profile.Name != task.CompanyName {
		log.Debug("pipeline: source returned a different company name", zap.String("source_name", profile.Name))
		profile.Name = task.CompanyName
	}
	if err := w.saver.SaveCompany(ctx, profile); err != nil {
		return nil, eris.Wrap(err, "pipeline: save company")
	}
	w.report(ctx, log, task.ID, model.TaskRunning, ProgressProfile, "Company data saved")
	checkpoint = ProgressProfile
	span.AddEvent("profile", trace.WithAttributes(attribute.String("source", string(profile.Source))))

	leads, err := w.leads.Fetch(ctx, task.CompanyName, w.cfg.MaxLeads)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch leads")
	}
	msg := "No leads found"
	if len(leads) > 0 {
		n, err := w.saver.SaveLeads(ctx, leads)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: save leads")
		}
		msg = fmt.Sprintf("Saved %d leads", n)
	}
	w.report(ctx, log, task.ID, model.TaskRunning, ProgressLeads, msg)
	checkpoint = ProgressLeads

	w.indexResults(ctx, log, profile, leads)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: index")
	}

	w.report(ctx, log, task.ID, model.TaskCompleted, ProgressCompleted, "Research completed successfully")
	log.Info("pipeline: research complete",
		zap.String("profile_source", string(profile.Source)),
		zap.Int("leads", len(leads)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Result{Profile: profile, Leads: leads}, nil
}

// indexResults indexes the profile and leads. Index failures are logged and
// counted but do not fail the workflow: the data is already persisted.
func (w *Workflow) indexResults(ctx context.Context, log *zap.Logger, profile *model.CompanyProfile, leads []model.LeadProfile) {
	if err := w.index.IndexCompany(ctx, profile); err != nil {
		metrics.IndexErrors.Inc()
		log.Warn("pipeline: index company failed", zap.Error(err))
	}
	if len(leads) == 0 {
		return
	}
	if err := w.index.IndexLeads(ctx, leads); err != nil {
		metrics.IndexErrors.Inc()
		log.Warn("pipeline: index leads failed", zap.Error(err))
	}
}

func (w *Workflow) report(ctx context.Context, log *zap.Logger, id string, status model.TaskStatus, progress int, msg string) {
	if err := w.tracker.Update(ctx, id, status, progress, msg); err != nil {
		log.Warn("pipeline: failed to update task", zap.Int("progress", progress), zap.Error(err))
	}
}

func (w *Workflow) fail(ctx context.Context, log *zap.Logger, id string, checkpoint int, err error) {
	msg := "Error: " + err.Error()
	if ctx.Err() != nil {
		msg = "cancelled: " + ctx.Err().Error()
	}
	log.Error("pipeline: research failed", zap.Int("checkpoint", checkpoint), zap.Error(err))
	if uerr := w.tracker.Update(context.WithoutCancel(ctx), id, model.TaskFailed, checkpoint, msg); uerr != nil {
		log.Warn("pipeline: failed to mark task failed", zap.Error(uerr))
	}
}
