package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/config"
	"github.com/sells-group/competitor-research/internal/metrics"
)

var (
	cfg            *config.Config
	shutdownTracer = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "competitor-research",
	Short: "Competitor discovery and lead research engine",
	Long:  "Discovers competitors of a seed company, then researches each one concurrently: company profile, leads, persistence and search indexing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables win.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		shutdown, err := metrics.InitTracer(cmd.Context(), cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			zap.L().Warn("tracing disabled", zap.Error(err))
			return nil
		}
		shutdownTracer = shutdown

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTracer()
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
