package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-research/internal/config"
	"github.com/sells-group/competitor-research/internal/llm"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"discover", "launch", "research", "serve", "summary", "tasks"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "competitor-research", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDiscoverCommand_Flags(t *testing.T) {
	seed := discoverCmd.Flags().Lookup("seed")
	require.NotNil(t, seed, "discover command should have --seed flag")

	limit := discoverCmd.Flags().Lookup("max")
	require.NotNil(t, limit)
	assert.Equal(t, "10", limit.DefValue)
}

func TestLaunchCommand_Flags(t *testing.T) {
	require.NotNil(t, launchCmd.Flags().Lookup("seed"))
	limit := launchCmd.Flags().Lookup("max")
	require.NotNil(t, limit)
	assert.Equal(t, "10", limit.DefValue)
}

func TestResearchCommand_Flags(t *testing.T) {
	require.NotNil(t, researchCmd.Flags().Lookup("company"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestTasksCommand_Flags(t *testing.T) {
	for _, name := range []string{"status", "session", "limit"} {
		assert.NotNil(t, tasksCmd.Flags().Lookup(name), "tasks should have --%s flag", name)
	}
	assert.Equal(t, "50", tasksCmd.Flags().Lookup("limit").DefValue)
}

func TestSummaryCommand_Flags(t *testing.T) {
	flag := summaryCmd.Flags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

// withConfig swaps the package config for the duration of a test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "research.db"),
	}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.Migrate(context.Background()))
}

func TestInitStore_UnknownDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestOpenStore_RequiresDatabaseURL(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite"}})

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestInitCompleter(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "anthropic", provider: "anthropic"},
		{name: "openrouter", provider: "openrouter"},
		{name: "unknown", provider: "gemini", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfig(t, &config.Config{
				LLM:        config.LLMConfig{Provider: tt.provider, RequestsPerSecond: 5, Burst: 1},
				Anthropic:  config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001"},
				OpenRouter: config.OpenRouterConfig{Key: "or-test", BaseURL: "http://localhost", Model: "x/model"},
			})

			c, err := initCompleter()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported llm provider")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &llm.RateLimited{}, c)
		})
	}
}

func TestInitValidator_Default(t *testing.T) {
	withConfig(t, &config.Config{})

	v, err := initValidator()
	require.NoError(t, err)
	assert.False(t, v.Valid("Competitor A", "Acme"))
	assert.True(t, v.Valid("Globex", "Acme"))
}

func TestInitValidator_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validator:\n  max_words: 1\n"), 0o600))
	withConfig(t, &config.Config{Discovery: config.DiscoveryConfig{RulesPath: path}})

	v, err := initValidator()
	require.NoError(t, err)
	assert.True(t, v.Valid("Globex", "Acme"))
	assert.False(t, v.Valid("Globex Corporation", "Acme"))
}

func TestInitValidator_MissingFile(t *testing.T) {
	withConfig(t, &config.Config{Discovery: config.DiscoveryConfig{
		RulesPath: filepath.Join(t.TempDir(), "missing.yaml"),
	}})

	_, err := initValidator()
	require.Error(t, err)
}

func TestInitStatusWriter_StoreOnly(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "research.db"),
	}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	w, closeFn := initStatusWriter(st)
	defer closeFn()
	assert.Equal(t, st, w)
}

func TestInitSources_WithoutApollo(t *testing.T) {
	withConfig(t, &config.Config{Research: config.ResearchConfig{SyntheticLeadCap: 15}})

	profiles, leads, breakers := initSources(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", nil
	}))
	assert.NotNil(t, profiles)
	assert.NotNil(t, leads)
	assert.Nil(t, breakers)
}

func TestInitSources_WithApolloReturnsBreakers(t *testing.T) {
	withConfig(t, &config.Config{
		Apollo: config.ApolloConfig{
			Key:                     "key",
			BaseURL:                 "http://127.0.0.1:1",
			TimeoutSecs:             1,
			CircuitFailureThreshold: 3,
			CircuitResetSecs:        30,
		},
		Research: config.ResearchConfig{SyntheticLeadCap: 15},
	})

	profiles, leads, breakers := initSources(llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		return "", nil
	}))
	assert.NotNil(t, profiles)
	assert.NotNil(t, leads)
	require.NotNil(t, breakers)
	assert.Empty(t, breakers.States())
}
