package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtm0/obscheck/internal/config"
	"github.com/rtm0/obscheck/internal/logger"
)

var (
	configPath string
	verbosity  int
	quiet      bool
	jsonLogs   bool

	cfg *config.Config
	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "obscheck",
	Short: "Check observation files before they are archived",
	Long: `obscheck validates gridded observation files (netCDF) against the
archive schema and remembers failures by file content, so unchanged bad
files are reported again without being re-scanned.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = logger.New(verbosity, quiet, jsonLogs)
		if err != nil {
			return errors.Wrap(err, "initialize logger")
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log.Debugw("Loaded configuration", "cache", cfg.Cache.Path, "units", cfg.Check.Units)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/obscheck/config.toml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print nothing but fatal errors")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "log as JSON")

	rootCmd.AddCommand(reportCmd, cacheCmd, fixturesCmd, configCmd)
}

func main() {
	err := rootCmd.Execute()
	if log != nil {
		log.Sync()
	}
	if err == nil {
		return
	}
	if !errors.Is(err, errFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
	}
	os.Exit(1)
}
