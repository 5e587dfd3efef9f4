// Package commands wires the bankfeed CLI together.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/buildinfo"
	"github.com/bankfeed-dev/bankfeed/internal/config"
)

// rootOptions carries the persistent flags down to subcommands.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "bankfeed",
		Short:   "Normalize and reconcile bank CSV exports",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine; it is a local convenience.
			_ = godotenv.Load()
			if opts.configPath == "" {
				opts.configPath = os.Getenv("BANKFEED_CONFIG")
			}
			if opts.configPath == "" {
				opts.configPath = config.DefaultFileName
			}
			if opts.logLevel == "" {
				opts.logLevel = os.Getenv("BANKFEED_LOG_LEVEL")
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to bankfeed.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newParseCommand(opts))
	rootCmd.AddCommand(newReportCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))

	return rootCmd
}

// loadConfig reads the configured bankfeed.yaml, falling back to
// defaults when the default file does not exist.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && o.configPath == config.DefaultFileName {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// level resolves the effective log level, flag over config.
func (o *rootOptions) level(cfg *config.Config) string {
	if o.logLevel != "" {
		return o.logLevel
	}
	return cfg.Logging.Level
}
