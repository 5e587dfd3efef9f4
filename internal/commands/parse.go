package commands

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/export"
	"github.com/bankfeed-dev/bankfeed/internal/logger"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/parser"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

func newParseCommand(root *rootOptions) *cobra.Command {
	var format string
	var output string
	var workers int
	var save bool

	cmd := &cobra.Command{
		Use:   "parse <file-or-directory>...",
		Short: "Normalize bank CSV exports",
		Long: `Parse one or more bank CSV exports, or directories of them, into
the normalized transaction format. Files no parser recognizes are
reported and skipped; they never abort the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(root.level(cfg))

			if workers <= 0 {
				workers = cfg.Watch.Workers
			}
			registry := parser.DefaultRegistry(cfg.Directory())

			var results []parser.FileResult
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return fmt.Errorf("stat %s: %w", arg, err)
				}
				if info.IsDir() {
					dirResults, err := registry.ParseDirectory(cmd.Context(), arg, workers)
					if err != nil {
						return err
					}
					results = append(results, dirResults...)
				} else {
					results = append(results, registry.ParseFile(arg))
				}
			}

			var txns []model.Transaction
			var rowErrors int
			for _, res := range results {
				switch {
				case res.Err != nil:
					log.Error().Str("file", res.Path).Err(res.Err).Msg("parse failed")
				case !res.Matched:
					log.Warn().Str("file", res.Path).Msg("no parser matched")
				default:
					for _, re := range res.RowErrors {
						log.Warn().Str("file", res.Path).Int("line", re.Line).Str("reason", re.Reason).Msg("row skipped")
					}
					rowErrors += len(res.RowErrors)
					txns = append(txns, res.Transactions...)
					log.Info().
						Str("file", res.Path).
						Str("bank", string(res.Bank)).
						Int("transactions", len(res.Transactions)).
						Msg("parsed")
				}
			}

			sort.Slice(txns, func(i, j int) bool {
				if !txns[i].Date.Equal(txns[j].Date) {
					return txns[i].Date.Before(txns[j].Date)
				}
				return txns[i].ID < txns[j].ID
			})

			if save {
				db, err := store.Open(cfg.Database.Path)
				if err != nil {
					return err
				}
				defer db.Close()

				saved, err := db.SaveTransactions(cmd.Context(), txns)
				if err != nil {
					return err
				}
				log.Info().Int("inserted", saved.Inserted).Int("skipped", saved.Skipped).Msg("saved to database")
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			if err := writeTransactions(out, format, txns); err != nil {
				return err
			}

			log.Info().Int("total", len(txns)).Int("row_errors", rowErrors).Msg("done")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file parsers (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "also save transactions to the database")

	return cmd
}

func writeTransactions(w io.Writer, format string, txns []model.Transaction) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, txns)
	case "json":
		return export.WriteJSON(w, txns)
	default:
		return fmt.Errorf("unknown format %q, want csv or json", format)
	}
}
