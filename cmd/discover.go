package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover competitors of a seed company",
	Long:  "Asks the generative model for competitors of --seed, filters placeholders, cross-validates and prints the ranked names. Nothing is researched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		seed, _ := cmd.Flags().GetString("seed")
		limit, _ := cmd.Flags().GetInt("max")

		env, err := initResearch(ctx, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		names, err := env.Scheduler.Discover(ctx, seed, limit)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		if len(names) == 0 {
			fmt.Fprintln(os.Stderr, "No competitors found.")
			return nil
		}
		formatNames(os.Stdout, names)
		return nil
	},
}

func init() {
	discoverCmd.Flags().String("seed", "", "seed company name")
	discoverCmd.Flags().Int("max", 10, "maximum number of competitors")
	_ = discoverCmd.MarkFlagRequired("seed")
	rootCmd.AddCommand(discoverCmd)
}

// formatNames writes a numbered list of names to out.
func formatNames(out io.Writer, names []string) {
	for i, n := range names {
		_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, n)
	}
}
