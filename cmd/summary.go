package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/competitor-research/internal/index"
	"github.com/sells-group/competitor-research/internal/monitoring"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize researched companies and leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		agg := monitoring.NewAggregator(st, index.New(st, cfg.Index.CollectionName), nil)
		sum, err := agg.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "summary")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}
		formatSummary(os.Stdout, sum)
		return nil
	},
}

func init() {
	summaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}

// formatSummary writes totals and one row per company to out.
func formatSummary(out io.Writer, sum *monitoring.Summary) {
	_, _ = fmt.Fprintf(out, "Companies: %d\n", sum.TotalCompanies)
	_, _ = fmt.Fprintf(out, "Leads:     %d\n", sum.TotalLeads)
	_, _ = fmt.Fprintf(out, "Index:     %s (%d documents)\n\n", sum.IndexStats.CollectionName, sum.IndexStats.TotalDocuments)

	if len(sum.Companies) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tINDUSTRY\tSIZE\tLOCATION\tLEADS")
	_, _ = fmt.Fprintln(w, "-------\t--------\t----\t--------\t-----")
	for _, c := range sum.Companies {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			truncate(c.Name, 30), c.Industry, c.Size, truncate(c.Location, 30), c.LeadsCount)
	}
	_ = w.Flush()
}
