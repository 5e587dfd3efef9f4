package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/logger"
	"github.com/bankfeed-dev/bankfeed/internal/parser"
	"github.com/bankfeed-dev/bankfeed/internal/store"
	"github.com/bankfeed-dev/bankfeed/internal/watcher"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and import bank exports as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(root.level(cfg))

			db, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := parser.DefaultRegistry(cfg.Directory())
			w := watcher.New(registry, db, watcher.Options{
				Dir:          cfg.Watch.Dir,
				ProcessedDir: cfg.Watch.ProcessedDir,
				FailedDir:    cfg.Watch.FailedDir,
				PollInterval: cfg.Watch.PollInterval(),
				MaxRetries:   cfg.Watch.MaxRetries,
			}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = w.Run(ctx)
			if ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return nil
			}
			return err
		},
	}
}
