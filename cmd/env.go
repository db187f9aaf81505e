package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/competitor-research/internal/discovery"
	"github.com/sells-group/competitor-research/internal/index"
	"github.com/sells-group/competitor-research/internal/llm"
	"github.com/sells-group/competitor-research/internal/metrics"
	"github.com/sells-group/competitor-research/internal/monitoring"
	"github.com/sells-group/competitor-research/internal/pipeline"
	"github.com/sells-group/competitor-research/internal/resilience"
	"github.com/sells-group/competitor-research/internal/scheduler"
	"github.com/sells-group/competitor-research/internal/store"
	"github.com/sells-group/competitor-research/internal/task"
	anthropicpkg "github.com/sells-group/competitor-research/pkg/anthropic"
	"github.com/sells-group/competitor-research/pkg/apollo"
	"github.com/sells-group/competitor-research/pkg/openrouter"
)

// researchEnv holds the store, registry, index and scheduler needed by the
// discover/launch/research/serve commands.
type researchEnv struct {
	Store      store.Store
	Tasks      *task.Registry
	Index      *index.DocumentIndex
	Scheduler  *scheduler.Scheduler
	Aggregator *monitoring.Aggregator
	// Breakers guards the Apollo client; nil when no key is configured.
	Breakers *resilience.ServiceBreakers

	closers []func()
}

// Close stops background sessions and releases resources.
func (e *researchEnv) Close() {
	if e.Scheduler != nil {
		e.Scheduler.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store without migrating it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "research.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates store config, opens and migrates the store.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCompleter builds the rate limited generative text client for the
// configured provider.
func initCompleter() (llm.Completer, error) {
	var c llm.Completer
	switch cfg.LLM.Provider {
	case "anthropic":
		c = llm.NewAnthropic(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	case "openrouter":
		client := openrouter.NewClient(cfg.OpenRouter.Key,
			openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
			openrouter.WithModel(cfg.OpenRouter.Model),
		)
		c = llm.NewOpenRouter(client, cfg.OpenRouter.Model)
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
	return llm.NewRateLimited(c, cfg.LLM.RequestsPerSecond, cfg.LLM.Burst), nil
}

// initValidator loads validator rules from discovery.rules_path when set.
func initValidator() (*discovery.Validator, error) {
	if cfg.Discovery.RulesPath == "" {
		return discovery.DefaultValidator(), nil
	}
	rules, err := discovery.LoadRules(cfg.Discovery.RulesPath)
	if err != nil {
		return nil, err
	}
	return discovery.NewValidator(rules)
}

// initStatusWriter persists task status to the store and, when configured,
// mirrors it into Redis. The returned func closes the Redis client.
func initStatusWriter(st store.Store) (task.StatusWriter, func()) {
	if cfg.Status.RedisAddr == "" {
		return st, func() {}
	}
	client := task.NewRedisClient(cfg.Status.RedisAddr)
	ttl := time.Duration(cfg.Status.TTLHours) * time.Hour
	zap.L().Info("task status mirrored to redis", zap.String("addr", cfg.Status.RedisAddr))
	return task.MultiWriter{st, task.NewRedisWriter(client, ttl)}, func() { _ = client.Close() }
}

// initSources builds the profile and lead fallback chains. Without an
// Apollo key the chains start at the generative and synthetic links and no
// breakers are returned.
func initSources(completer llm.Completer) (*pipeline.ProfileChain, *pipeline.LeadChain, *resilience.ServiceBreakers) {
	profiles := []pipeline.ProfileSource{}
	leads := []pipeline.LeadSource{}
	var breakers *resilience.ServiceBreakers

	if cfg.Apollo.Key != "" {
		opts := []apollo.Option{
			apollo.WithBaseURL(cfg.Apollo.BaseURL),
			apollo.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Apollo.TimeoutSecs) * time.Second}),
		}
		if cfg.Apollo.RequestsPerSecond > 0 {
			opts = append(opts, apollo.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Apollo.RequestsPerSecond), 1)))
		}
		client := apollo.NewClient(cfg.Apollo.Key, opts...)
		breakerCfg := resilience.NewBreakerConfig(cfg.Apollo.CircuitFailureThreshold, cfg.Apollo.CircuitResetSecs)
		breakerCfg.OnStateChange = func(service string, _, to resilience.CircuitState) {
			metrics.CircuitTransitions.WithLabelValues(service, to.String()).Inc()
		}
		breakers = resilience.NewServiceBreakers(breakerCfg)
		profiles = append(profiles, pipeline.NewApolloProfiles(client, breakers))
		leads = append(leads, pipeline.NewApolloLeads(client, breakers))
	} else {
		zap.L().Debug("RESEARCH_APOLLO_KEY not set, using generated profiles and synthetic leads")
	}

	profiles = append(profiles, pipeline.NewGeneratedProfiles(completer), pipeline.StubProfiles{})
	leads = append(leads, pipeline.NewSyntheticSource(pipeline.NewSyntheticLeads(cfg.Research.SyntheticLeadCap)))

	return pipeline.NewProfileChain(profiles...), pipeline.NewLeadChain(leads...), breakers
}

// initResearch sets up the store, generative client, sources, registry and
// scheduler. Callers should defer env.Close().
func initResearch(ctx context.Context, mode string) (*researchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &researchEnv{Store: st}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	completer, err := initCompleter()
	if err != nil {
		env.Close()
		return nil, err
	}

	validator, err := initValidator()
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load discovery rules")
	}

	writer, closeWriter := initStatusWriter(st)
	env.closers = append(env.closers, closeWriter)

	env.Tasks = task.NewRegistry(writer)
	env.Index = index.New(st, cfg.Index.CollectionName)

	profiles, leads, breakers := initSources(completer)
	env.Breakers = breakers
	workflow := pipeline.NewWorkflow(profiles, leads, st, env.Index, env.Tasks, pipeline.Config{
		MaxLeads: cfg.Research.MaxLeads,
		Timeout:  time.Duration(cfg.Research.WorkflowTimeoutSecs) * time.Second,
	})

	finder := discovery.NewPipeline(completer, validator, discovery.Config{
		GenerationBatchSize: cfg.Discovery.GenerationBatchSize,
		VerifyConcurrency:   cfg.Discovery.VerifyConcurrency,
	})

	env.Scheduler = scheduler.New(finder, workflow, env.Tasks, st, scheduler.Config{
		MaxConcurrentWorkflows: cfg.Scheduler.MaxConcurrentWorkflows,
		DefaultMaxCandidates:   cfg.Discovery.DefaultMaxCandidates,
		MaxCandidates:          cfg.Discovery.MaxCandidates,
		SessionTimeout:         time.Duration(cfg.Scheduler.SessionTimeoutSecs) * time.Second,
	})
	env.Aggregator = monitoring.NewAggregator(st, env.Index, env.Scheduler)

	zap.L().Info("research environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm", cfg.LLM.Provider),
		zap.Bool("apollo", cfg.Apollo.Key != ""),
		zap.Int("max_concurrent_workflows", cfg.Scheduler.MaxConcurrentWorkflows),
	)

	return env, nil
}
