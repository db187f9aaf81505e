package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a single company",
	Long:  "Runs one research workflow for --company and prints the stored profile and leads as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")

		env, err := initResearch(ctx, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Scheduler.RunSingleSync(ctx, company)
		if err != nil {
			return eris.Wrap(err, "research")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	researchCmd.Flags().String("company", "", "company name to research")
	_ = researchCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(researchCmd)
}
