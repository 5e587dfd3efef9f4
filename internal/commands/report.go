package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/report"
	"github.com/bankfeed-dev/bankfeed/internal/store"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

func newReportCommand(root *rootOptions) *cobra.Command {
	now := time.Now()
	var year, month, top int
	var includeTransfers bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a month of stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts, err := cfg.ClassifierOptions()
			if err != nil {
				return err
			}
			opts.IncludeTransfers = includeTransfers

			db, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			txns, err := db.Month(cmd.Context(), year, time.Month(month))
			if err != nil {
				return err
			}

			return runReport(cmd, txns, year, time.Month(month), top, opts)
		},
	}

	cmd.Flags().IntVar(&year, "year", now.Year(), "report year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "report month (1-12)")
	cmd.Flags().IntVar(&top, "top", 10, "number of top merchants to show")
	cmd.Flags().BoolVar(&includeTransfers, "include-transfers", false, "count transfers as regular spending")

	return cmd
}

func runReport(cmd *cobra.Command, txns []model.Transaction, year int, month time.Month, top int, opts transfer.Options) error {
	sum, err := report.Summarize(txns, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d\n", month, year)
	fmt.Fprintf(out, "  Income:    %s\n", sum.Income.StringFixed(2))
	fmt.Fprintf(out, "  Spending:  %s\n", sum.Spending.StringFixed(2))
	fmt.Fprintf(out, "  Net:       %s\n", sum.Net.StringFixed(2))
	fmt.Fprintf(out, "  Transactions: %d (transfers set aside: %d)\n", sum.Count, sum.Transfers)

	if top > 0 {
		merchants, err := report.TopMerchants(txns, top, opts)
		if err != nil {
			return err
		}
		if len(merchants) > 0 {
			fmt.Fprintf(out, "\nTop merchants:\n")
			for i, m := range merchants {
				fmt.Fprintf(out, "  %2d. %-40s %10s  (%d)\n", i+1, m.Description, m.Total.StringFixed(2), m.Count)
			}
		}
	}
	return nil
}
