package main

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/rtm0/obscheck/internal/check"
	"github.com/rtm0/obscheck/internal/checksum"
	"github.com/rtm0/obscheck/internal/config"
	"github.com/rtm0/obscheck/internal/errdb"
	"github.com/rtm0/obscheck/internal/fixtures"
	"github.com/rtm0/obscheck/internal/report"
	"github.com/rtm0/obscheck/internal/validate"
)

// errFailed signals that some file did not pass; the details were already
// printed.
var errFailed = errors.New("validation failed")

var (
	clearCache  bool
	concurrency int

	fixtureYear      int
	fixtureFreq      string
	fixtureRoot      string
	fixtureOverwrite bool

	configOverwrite bool
)

var reportCmd = &cobra.Command{
	Use:   "report DATASET FILE...",
	Short: "Check files of a dataset and report errors",
	Long: `Check every FILE belonging to DATASET. A file belongs to the dataset when
its name matches "DATASET*.nc". FILE arguments may be glob patterns,
including "**".`,
	Example: `  obscheck report valid tests/check_obs/valid-1D-2020.nc
  obscheck report incomplete 'data/**/incomplete-*.nc' --clear-cache`,
	Args: cobra.MinimumNArgs(2),
	RunE: runReport,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the error cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached error",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return errdb.Open(cfg.Cache.Path, log).Clear()
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show FILE...",
	Short: "Print the cached errors of files and whether they may be uploaded",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := errdb.Open(cfg.Cache.Path, log)
		hasher := checksum.New()
		out := cmd.OutOrStdout()
		for _, path := range args {
			digest, err := hasher.Sum(path)
			if err != nil {
				return err
			}
			n, err := store.Count(digest)
			if err != nil {
				return err
			}
			gate := "clear"
			if n > 0 {
				gate = "blocked"
			}
			fmt.Fprintf(out, "%s %s (%d cached, %s)\n", path, digest, n, gate)
			if n == 0 {
				continue
			}
			records, err := store.Read(digest)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(out, "  %s\n", r)
			}
		}
		return nil
	},
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Write sample observation files, valid and broken",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := fixtures.ParseFreq(fixtureFreq)
		if err != nil {
			return err
		}
		written, err := fixtures.WriteAll(fixtureRoot, fixtureYear, freq, fixtureOverwrite)
		for _, path := range written {
			log.Infow("Wrote fixture", "path", path)
		}
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	// No configuration is needed to write one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.WriteDefault(path, configOverwrite); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&clearCache, "clear-cache", false, "delete the whole error cache before checking")
	reportCmd.Flags().IntVar(&concurrency, "concurrency", 0, "files checked at once (default from config)")

	cacheCmd.AddCommand(cacheClearCmd, cacheShowCmd)

	fixturesCmd.Flags().IntVar(&fixtureYear, "year", 2020, "year covered by the samples")
	fixturesCmd.Flags().StringVar(&fixtureFreq, "freq", string(fixtures.Daily), "sampling frequency: 1D or 1H")
	fixturesCmd.Flags().StringVar(&fixtureRoot, "root", "tests/check_obs", "output directory")
	fixturesCmd.Flags().BoolVarP(&fixtureOverwrite, "overwrite", "O", false, "replace existing files")

	configInitCmd.Flags().BoolVar(&configOverwrite, "overwrite", false, "replace an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	pattern, err := validate.NewPattern(args[0])
	if err != nil {
		return err
	}
	paths, err := expand(args[1:])
	if err != nil {
		return err
	}
	policy, err := cfg.UnitPolicy()
	if err != nil {
		return err
	}
	workers := cfg.Check.Concurrency
	if concurrency > 0 {
		workers = concurrency
	}

	hasher := checksum.New()
	v := validate.New(
		check.Default(policy),
		errdb.Open(cfg.Cache.Path, log),
		log,
		validate.WithConcurrency(workers),
		validate.WithHasher(hasher),
	)
	results, err := v.Run(pattern, paths, clearCache)
	log.Debugw("Finished run", "files", len(results), "repeated", hasher.Hits())
	report.New(cmd.OutOrStdout(), quiet).Results(results)
	if err != nil {
		return err
	}
	if validate.Failed(results) > 0 {
		return errFailed
	}
	return nil
}

// expand resolves glob arguments in order. Plain paths and patterns without
// matches are kept as given so they are reported individually.
func expand(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			paths = append(paths, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", arg)
		}
		if len(matches) == 0 {
			paths = append(paths, arg)
			continue
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
