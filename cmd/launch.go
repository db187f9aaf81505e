package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Discover competitors and research each one",
	Long:  "Runs discovery for --seed, then researches every competitor concurrently up to scheduler.max_concurrent_workflows. Blocks until every task is terminal.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		seed, _ := cmd.Flags().GetString("seed")
		limit, _ := cmd.Flags().GetInt("max")

		env, err := initResearch(ctx, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Scheduler.LaunchSession(ctx, seed, limit)
		if err != nil {
			return eris.Wrap(err, "launch")
		}

		tasks := env.Scheduler.SessionTasks(sess.ID)
		zap.L().Info("session finished",
			zap.String("session_id", sess.ID),
			zap.Int("tasks", len(tasks)),
		)

		if len(tasks) == 0 {
			fmt.Fprintln(os.Stderr, "No competitors found.")
			return nil
		}
		formatTasksList(os.Stdout, tasks)
		return nil
	},
}

func init() {
	launchCmd.Flags().String("seed", "", "seed company name")
	launchCmd.Flags().Int("max", 10, "maximum number of competitors to research")
	_ = launchCmd.MarkFlagRequired("seed")
	rootCmd.AddCommand(launchCmd)
}
