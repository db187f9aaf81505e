package discovery

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitor-research/internal/llm"
	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/model"
)

// MaxLimit is the largest target count Candidates honors; larger requests
// are clamped to it.
const MaxLimit = 500

// Config tunes the discovery pipeline.
type Config struct {
	// GenerationBatchSize caps how many names one generation call asks for.
	GenerationBatchSize int
	// VerifyConcurrency bounds parallel verification calls.
	VerifyConcurrency int
}

func (c Config) withDefaults() Config {
	if c.GenerationBatchSize <= 0 {
		c.GenerationBatchSize = 10
	}
	if c.VerifyConcurrency <= 0 {
		c.VerifyConcurrency = 4
	}
	return c
}

// Pipeline discovers competitors for a seed company.
type Pipeline struct {
	llm       llm.Completer
	validator *Validator
	cfg       Config
}

// NewPipeline creates a Pipeline. A nil validator uses DefaultValidator.
func NewPipeline(completer llm.Completer, validator *Validator, cfg Config) *Pipeline {
	if validator == nil {
		validator = DefaultValidator()
	}
	return &Pipeline{llm: completer, validator: validator, cfg: cfg.withDefaults()}
}

// Discover returns up to limit distinct competitor names for seed, best first.
// It never fails: every collaborator error degrades to fewer candidates.
func (p *Pipeline) Discover(ctx context.Context, seed string, limit int) []string {
	ranked := p.Candidates(ctx, seed, limit)
	names := make([]string, len(ranked))
	for i, c := range ranked {
		names[i] = c.Name
	}
	return names
}

// Candidates runs every phase and returns the ranked candidate records.
func (p *Pipeline) Candidates(ctx context.Context, seed string, limit int) []Candidate {
	seed = strings.TrimSpace(seed)
	log := zap.L().With(zap.String("seed", seed), zap.Int("limit", limit))
	if len([]rune(seed)) < 2 || limit <= 0 {
		log.Warn("discovery: invalid seed or target count")
		return []Candidate{}
	}
	if limit > MaxLimit {
		log.Warn("discovery: target count clamped", zap.Int("max", MaxLimit))
		limit = MaxLimit
	}

	ctx, span := metrics.Tracer().Start(ctx, "discovery")
	defer span.End()
	span.SetAttributes(attribute.String("seed", seed), attribute.Int("limit", limit))

	description := p.describe(ctx, seed)
	generated := p.generate(ctx, seed, description, 2*limit)
	valid := p.validate(generated, seed)
	checked := p.crossValidate(ctx, seed, valid)
	kept := filter(checked)
	ranked := rank(kept, limit)

	metrics.DiscoveryCandidates.WithLabelValues("generated").Add(float64(len(generated)))
	metrics.DiscoveryCandidates.WithLabelValues("validated").Add(float64(len(valid)))
	metrics.DiscoveryCandidates.WithLabelValues("verified").Add(float64(len(checked)))
	metrics.DiscoveryCandidates.WithLabelValues("returned").Add(float64(len(ranked)))
	span.SetAttributes(attribute.Int("returned", len(ranked)))

	log.Info("discovery complete",
		zap.Int("generated", len(generated)),
		zap.Int("validated", len(valid)),
		zap.Int("verified", len(checked)),
		zap.Int("returned", len(ranked)),
	)
	return ranked
}

// describe asks for a short factual description of the seed.
func (p *Pipeline) describe(ctx context.Context, seed string) string {
	out, err := p.llm.Complete(ctx, contextRequest(seed))
	metrics.LLMCalls.WithLabelValues("context", metrics.Outcome(err)).Inc()
	if err != nil || strings.TrimSpace(out) == "" {
		zap.L().Debug("discovery: context call failed, using fallback", zap.String("seed", seed), zap.Error(err))
		return fallbackContext(seed)
	}
	return out
}

// generate requests count candidates, split into sub-calls of at most
// GenerationBatchSize names. Later sub-calls are told which names earlier
// ones produced.
func (p *Pipeline) generate(ctx context.Context, seed, description string, count int) []Candidate {
	var all []Candidate
	var seen []string
	for remaining := count; remaining > 0; remaining -= p.cfg.GenerationBatchSize {
		if ctx.Err() != nil {
			break
		}
		n := min(remaining, p.cfg.GenerationBatchSize)
		out, err := p.llm.Complete(ctx, generationRequest(seed, description, n, seen))
		metrics.LLMCalls.WithLabelValues("generate", metrics.Outcome(err)).Inc()
		if err != nil {
			zap.L().Warn("discovery: generation call failed", zap.String("seed", seed), zap.Error(err))
			continue
		}

		batch, ok := parseStructured(out)
		if !ok {
			batch = parseText(out)
		}
		for _, c := range batch {
			seen = append(seen, c.Name)
		}
		all = append(all, batch...)
	}
	return all
}

func (p *Pipeline) validate(in []Candidate, seed string) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if reason := p.validator.Check(c.Name, seed); reason != "" {
			metrics.DiscoveryRejected.WithLabelValues(reason).Inc()
			continue
		}
		out = append(out, c)
	}
	return out
}

// crossValidate asks whether each candidate really competes with seed.
// Verified candidates gain VerifyBonus; unverified ones survive only with
// confidence above KeepUnverifiedAbove. Input order is preserved.
func (p *Pipeline) crossValidate(ctx context.Context, seed string, in []Candidate) []Candidate {
	results := make([]Candidate, len(in))
	keep := make([]bool, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.VerifyConcurrency)
	for i, c := range in {
		g.Go(func() error {
			ok := p.verify(gctx, seed, c.Name)
			results[i] = c.verified(ok)
			keep[i] = ok || c.Confidence > KeepUnverifiedAbove
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Candidate, 0, len(in))
	for i := range results {
		if keep[i] {
			out = append(out, results[i])
		}
	}
	return out
}

func (p *Pipeline) verify(ctx context.Context, seed, name string) bool {
	out, err := p.llm.Complete(ctx, verifyRequest(seed, name))
	metrics.LLMCalls.WithLabelValues("verify", metrics.Outcome(err)).Inc()
	if err != nil {
		zap.L().Debug("discovery: verification failed", zap.String("candidate", name), zap.Error(err))
		return false
	}
	return strings.Contains(strings.ToUpper(out), "YES")
}

// filter drops candidates under their confidence floor, then removes
// case-insensitive duplicates keeping the first occurrence.
func filter(in []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if c.Confidence < c.floor() {
			continue
		}
		key := model.FoldName(c.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// rank sorts by confidence descending, keeping input order on ties, and
// truncates to limit.
func rank(in []Candidate, limit int) []Candidate {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
