// Package api exposes the research engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/model"
	"github.com/sells-group/competitor-research/internal/monitoring"
	"github.com/sells-group/competitor-research/internal/scheduler"
)

const (
	defaultSearchLimit = 20
	healthTimeout      = 3 * time.Second
)

// Scheduler is the slice of the scheduler the handlers drive.
type Scheduler interface {
	Discover(ctx context.Context, seed string, maxCandidates int) ([]string, error)
	LaunchAsync(seed string, maxCandidates int) (scheduler.Session, error)
	RunSingleSync(ctx context.Context, company string) (*scheduler.SingleResult, error)
	GetTask(id string) (model.Task, bool)
	ListTasks() []model.Task
	ListSessions() []scheduler.Session
}

// Summarizer produces the global and per-session rollups.
type Summarizer interface {
	Summary(ctx context.Context) (*monitoring.Summary, error)
	Session(ctx context.Context, id string) (*monitoring.SessionSummary, bool, error)
}

// Results reads persisted research.
type Results interface {
	ListCompanies(ctx context.Context) ([]model.CompanyProfile, error)
	GetCompany(ctx context.Context, name string) (*model.CompanyProfile, error)
	GetLeadsByCompany(ctx context.Context, company string) ([]model.LeadProfile, error)
	Ping(ctx context.Context) error
}

// Searcher runs text queries over indexed documents.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.Document, error)
}

// Handler serves the research REST API.
type Handler struct {
	sched   Scheduler
	summary Summarizer
	results Results
	search  Searcher
	// circuits reports upstream breaker states on /health when set.
	circuits func() map[string]string
}

// Option configures a Handler.
type Option func(*Handler)

// WithCircuitStates exposes upstream circuit breaker states on /health.
func WithCircuitStates(fn func() map[string]string) Option {
	return func(h *Handler) { h.circuits = fn }
}

// NewHandler creates a Handler.
func NewHandler(sched Scheduler, summary Summarizer, results Results, search Searcher, opts ...Option) *Handler {
	h := &Handler{sched: sched, summary: summary, results: results, search: search}
	for _, o := range opts {
		o(h)
	}
	return h
}

// CompetitorRequest is the body of the discover and launch endpoints.
type CompetitorRequest struct {
	SeedCompany    string `json:"seed_company"`
	MaxCompetitors int    `json:"max_competitors"`
}

// CompanyRequest is the body of the single company research endpoint.
type CompanyRequest struct {
	CompanyName string `json:"company_name"`
}

// Discover handles POST /api/competitors/discover.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	var req CompetitorRequest
	if !decode(w, r, &req) {
		return
	}
	names, err := h.sched.Discover(r.Context(), req.SeedCompany, req.MaxCompetitors)
	if errors.Is(err, scheduler.ErrEmptyCompany) {
		writeError(w, http.StatusBadRequest, "field 'seed_company' is required")
		return
	}
	if err != nil {
		internalError(w, "discover competitors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"competitors": names,
		"total_found": len(names),
	})
}

// Launch handles POST /api/research/launch. The session runs in the
// background; poll GET /api/sessions/{id}.
func (h *Handler) Launch(w http.ResponseWriter, r *http.Request) {
	var req CompetitorRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.sched.LaunchAsync(req.SeedCompany, req.MaxCompetitors)
	if errors.Is(err, scheduler.ErrEmptyCompany) {
		writeError(w, http.StatusBadRequest, "field 'seed_company' is required")
		return
	}
	if err != nil {
		internalError(w, "launch research", err)
		return
	}
	zap.L().Info("research session launched",
		zap.String("session_id", sess.ID),
		zap.String("seed", sess.Seed),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": sess.ID,
		"message":    "Research launched for " + sess.Seed,
		"status":     "started",
	})
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.sched.ListSessions()
	if sessions == nil {
		sessions = []scheduler.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// Session handles GET /api/sessions/{id}.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sum, ok, err := h.summary.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		internalError(w, "session summary", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ResearchCompany handles POST /api/company/research.
func (h *Handler) ResearchCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.sched.RunSingleSync(r.Context(), req.CompanyName)
	if errors.Is(err, scheduler.ErrEmptyCompany) {
		writeError(w, http.StatusBadRequest, "field 'company_name' is required")
		return
	}
	if err != nil {
		zap.L().Error("company research failed", zap.String("company", req.CompanyName), zap.Error(err))
		body := map[string]any{"error": "research failed"}
		if res != nil {
			body["task"] = res.Task
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"company":     res.Profile,
		"leads":       res.Leads,
		"total_found": res.TotalLeads,
		"task":        res.Task,
	})
}

// ListTasks handles GET /api/agents/status.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.sched.ListTasks()
	body := map[string]any{"agents": tasks}
	if sum, err := h.summary.Summary(r.Context()); err == nil {
		body["summary"] = sum
	} else {
		zap.L().Warn("summary unavailable for status listing", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, body)
}

// GetTask handles GET /api/agents/status/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := h.sched.GetTask(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListCompanies handles GET /api/companies.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.results.ListCompanies(r.Context())
	if err != nil {
		internalError(w, "list companies", err)
		return
	}
	if companies == nil {
		companies = []model.CompanyProfile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companies": companies,
		"total":     len(companies),
	})
}

// CompanyLeads handles GET /api/companies/{name}/leads.
func (h *Handler) CompanyLeads(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	company, err := h.results.GetCompany(r.Context(), name)
	if err != nil {
		internalError(w, "get company", err)
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	leads, err := h.results.GetLeadsByCompany(r.Context(), name)
	if err != nil {
		internalError(w, "get leads", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"company":     company,
		"leads":       leads,
		"total_leads": len(leads),
	})
}

// Search handles GET /api/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "query parameter 'limit' must be a positive integer")
			return
		}
		limit = n
	}
	docs, err := h.search.Search(r.Context(), q, limit)
	if err != nil {
		internalError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": docs,
		"total":   len(docs),
	})
}

// Summary handles GET /api/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summary.Summary(r.Context())
	if err != nil {
		internalError(w, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := map[string]any{"status": "healthy"}
	code := http.StatusOK
	if err := h.results.Ping(ctx); err != nil {
		zap.L().Warn("api: store ping failed", zap.Error(err))
		body["status"] = "unhealthy"
		body["error"] = "store unreachable"
		code = http.StatusServiceUnavailable
	}
	if h.circuits != nil {
		body["circuits"] = h.circuits()
	}
	writeJSON(w, code, body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("api: "+op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
