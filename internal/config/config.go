package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxCandidatesLimit matches the discovery pipeline's own clamp.
const maxCandidatesLimit = 500

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Status     StatusConfig     `yaml:"status" mapstructure:"status"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Tracing    TracingConfig    `yaml:"tracing" mapstructure:"tracing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig selects the generative text provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ApolloConfig holds Apollo API settings and its circuit breaker tuning.
type ApolloConfig struct {
	Key                     string  `yaml:"key" mapstructure:"key"`
	BaseURL                 string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond       float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// DiscoveryConfig tunes competitor discovery.
type DiscoveryConfig struct {
	RulesPath            string `yaml:"rules_path" mapstructure:"rules_path"`
	GenerationBatchSize  int    `yaml:"generation_batch_size" mapstructure:"generation_batch_size"`
	VerifyConcurrency    int    `yaml:"verify_concurrency" mapstructure:"verify_concurrency"`
	DefaultMaxCandidates int    `yaml:"default_max_candidates" mapstructure:"default_max_candidates"`
	MaxCandidates        int    `yaml:"max_candidates" mapstructure:"max_candidates"`
}

// ResearchConfig tunes the per-company workflow.
type ResearchConfig struct {
	MaxLeads            int `yaml:"max_leads" mapstructure:"max_leads"`
	SyntheticLeadCap    int `yaml:"synthetic_lead_cap" mapstructure:"synthetic_lead_cap"`
	WorkflowTimeoutSecs int `yaml:"workflow_timeout_secs" mapstructure:"workflow_timeout_secs"`
}

// SchedulerConfig tunes the admission gate.
type SchedulerConfig struct {
	MaxConcurrentWorkflows int `yaml:"max_concurrent_workflows" mapstructure:"max_concurrent_workflows"`
	SessionTimeoutSecs     int `yaml:"session_timeout_secs" mapstructure:"session_timeout_secs"`
}

// IndexConfig names the search collection.
type IndexConfig struct {
	CollectionName string `yaml:"collection_name" mapstructure:"collection_name"`
}

// StatusConfig configures the optional Redis task status mirror.
type StatusConfig struct {
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTLHours  int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// MonitoringConfig configures the background task health checker.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StuckAfterMins       int     `yaml:"stuck_after_mins" mapstructure:"stuck_after_mins"`
}

// TracingConfig configures the OTLP trace exporter. An empty endpoint
// disables export.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "research.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("openrouter.key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "anthropic/claude-3.5-sonnet")
	v.SetDefault("apollo.key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io/v1")
	v.SetDefault("apollo.requests_per_second", 1.0)
	v.SetDefault("apollo.timeout_secs", 30)
	v.SetDefault("apollo.circuit_failure_threshold", 5)
	v.SetDefault("apollo.circuit_reset_secs", 60)
	v.SetDefault("discovery.rules_path", "")
	v.SetDefault("discovery.generation_batch_size", 10)
	v.SetDefault("discovery.verify_concurrency", 4)
	v.SetDefault("discovery.default_max_candidates", 10)
	v.SetDefault("discovery.max_candidates", 50)
	v.SetDefault("research.max_leads", 20)
	v.SetDefault("research.synthetic_lead_cap", 15)
	v.SetDefault("research.workflow_timeout_secs", 0)
	v.SetDefault("scheduler.max_concurrent_workflows", 5)
	v.SetDefault("scheduler.session_timeout_secs", 0)
	v.SetDefault("index.collection_name", "leads_and_companies")
	v.SetDefault("status.redis_addr", "")
	v.SetDefault("status.ttl_hours", 24)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 0)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.stuck_after_mins", 30)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "competitor-research")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by mode: "store" (database only),
// "research" (database and a generative text provider) or "serve"
// (research plus a listen port).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store", "research", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode == "research" || mode == "serve" {
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "openrouter":
			if c.OpenRouter.Key == "" {
				errs = append(errs, "openrouter.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("llm.provider %q is not anthropic or openrouter", c.LLM.Provider))
		}
		if c.Scheduler.MaxConcurrentWorkflows < 1 || c.Scheduler.MaxConcurrentWorkflows > 50 {
			errs = append(errs, "scheduler.max_concurrent_workflows must be between 1 and 50")
		}
		if c.Research.MaxLeads < 0 {
			errs = append(errs, "research.max_leads must be >= 0")
		}
		if c.Discovery.MaxCandidates < 1 || c.Discovery.MaxCandidates > maxCandidatesLimit {
			errs = append(errs, fmt.Sprintf("discovery.max_candidates must be between 1 and %d", maxCandidatesLimit))
		} else if c.Discovery.DefaultMaxCandidates > c.Discovery.MaxCandidates {
			errs = append(errs, "discovery.default_max_candidates must not exceed discovery.max_candidates")
		}
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
