package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/model"
)

// ErrNoSource is returned when every link of a fallback chain failed or
// came back empty.
var ErrNoSource = eris.New("pipeline: no source produced a result")

// ProfileSource acquires a company profile. A nil profile with a nil error
// means the source has no record for the company.
type ProfileSource interface {
	Name() string
	FetchProfile(ctx context.Context, company string) (*model.CompanyProfile, error)
}

// LeadSource acquires up to limit leads for a company.
type LeadSource interface {
	Name() string
	FetchLeads(ctx context.Context, company string, limit int) ([]model.LeadProfile, error)
}

type link[T any] struct {
	name  string
	fetch func(ctx context.Context) (T, error)
}

// fallback tries links in order and returns the first usable result along
// with the name of the link that produced it. Errors and unusable results
// move on to the next link. Cancellation stops the chain immediately.
func fallback[T any](ctx context.Context, chain string, links []link[T], usable func(T) bool) (T, string, error) {
	var zero T
	var lastErr error
	for _, l := range links {
		if err := ctx.Err(); err != nil {
			return zero, "", eris.Wrapf(err, "pipeline: %s chain cancelled", chain)
		}
		v, err := l.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return zero, "", eris.Wrapf(ctx.Err(), "pipeline: %s chain cancelled", chain)
			}
			metrics.SourceErrors.WithLabelValues(chain, l.name).Inc()
			zap.L().Debug("pipeline: source failed, trying next",
				zap.String("chain", chain),
				zap.String("source", l.name),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if usable(v) {
			metrics.SourceUsed.WithLabelValues(chain, l.name).Inc()
			return v, l.name, nil
		}
	}
	if lastErr != nil {
		return zero, "", eris.Wrapf(ErrNoSource, "last error: %v", lastErr)
	}
	return zero, "", ErrNoSource
}

// ProfileChain tries profile sources in priority order.
type ProfileChain struct {
	sources []ProfileSource
}

// NewProfileChain creates a ProfileChain. Sources are tried in order; the
// first non-nil profile wins.
func NewProfileChain(sources ...ProfileSource) *ProfileChain {
	return &ProfileChain{sources: sources}
}

// Fetch returns the first profile any source produces.
func (c *ProfileChain) Fetch(ctx context.Context, company string) (*model.CompanyProfile, error) {
	links := make([]link[*model.CompanyProfile], len(c.sources))
	for i, s := range c.sources {
		links[i] = link[*model.CompanyProfile]{
			name:  s.Name(),
			fetch: func(ctx context.Context) (*model.CompanyProfile, error) { return s.FetchProfile(ctx, company) },
		}
	}
	p, _, err := fallback(ctx, "profile", links, func(p *model.CompanyProfile) bool { return p != nil })
	return p, err
}

// LeadChain tries lead sources in priority order.
type LeadChain struct {
	sources []LeadSource
}

// NewLeadChain creates a LeadChain. Sources are tried in order; the first
// non-empty lead list wins.
func NewLeadChain(sources ...LeadSource) *LeadChain {
	return &LeadChain{sources: sources}
}

// Fetch returns the first non-empty lead list. When every source fails or
// comes back empty the result is an empty list, not an error; only
// cancellation is reported.
func (c *LeadChain) Fetch(ctx context.Context, company string, limit int) ([]model.LeadProfile, error) {
	if limit <= 0 {
		return []model.LeadProfile{}, nil
	}
	links := make([]link[[]model.LeadProfile], len(c.sources))
	for i, s := range c.sources {
		links[i] = link[[]model.LeadProfile]{
			name:  s.Name(),
			fetch: func(ctx context.Context) ([]model.LeadProfile, error) { return s.FetchLeads(ctx, company, limit) },
		}
	}
	leads, _, err := fallback(ctx, "leads", links, func(l []model.LeadProfile) bool { return len(l) > 0 })
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return []model.LeadProfile{}, nil
	}
	if len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}
