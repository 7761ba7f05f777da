// Package main provides the peerdoi CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mecatools/peerdoi/internal/config"
	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/mecatools/peerdoi/internal/doi"
	"github.com/mecatools/peerdoi/internal/eeb"
	"github.com/mecatools/peerdoi/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "peerdoi",
	Short: "Create DOIs for the peer reviews in MECA archives",
	Long: `peerdoi creates Crossref DOIs for the peer reviews and author replies
packaged in MECA (Manuscript Exchange Common Approach) archives.

Core features:
  - Inspect MECA archives (manuscript metadata, review process)
  - Batch pipeline: register archives, deposit DOIs, prune processed files
  - Generate, verify and send Crossref peer review depositions
  - Manage a pool of pre-registered DOIs

Configuration is read from environment variables, optionally via a .env
file. All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustLoadConfig loads the deposition configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading configuration: %v", err)
	}
	return cfg
}

// mustLogger builds the configured logger. The caller is responsible for
// calling the returned close function.
func mustLogger(cfg *config.Config) (*slog.Logger, func() error) {
	logger, closeLog, err := cfg.Logger()
	if err != nil {
		exitWithError(ExitConfigError, "opening log file: %v", err)
	}
	return logger, closeLog
}

// mustOpenBatchDB opens the batch database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenBatchDB(cfg *config.Config) *store.DB {
	db, err := store.Open(cfg.DBFile)
	if err != nil {
		exitWithError(ExitError, "opening batch database: %v", err)
	}
	return db
}

// mustOpenPool opens the DOI pool database, exits on error.
// The caller is responsible for calling Close() on the returned pool.
func mustOpenPool(path string) *doi.Pool {
	pool, err := doi.OpenPool(path)
	if err != nil {
		exitWithError(ExitError, "opening DOI database: %v", err)
	}
	return pool
}

// newEEBClient builds the verification client, honoring the API URL
// override from the configuration.
func newEEBClient(cfg *config.Config) *eeb.Client {
	if cfg.EEBAPIURL != "" {
		return eeb.NewClient(eeb.WithBaseURL(cfg.EEBAPIURL))
	}
	return eeb.NewClient()
}

// generateConfig maps the loaded configuration to the deposition generator.
func generateConfig(cfg *config.Config) crossref.GenerateConfig {
	return crossref.GenerateConfig{
		DepositorName:                  cfg.DepositorName,
		DepositorEmail:                 cfg.DepositorEmail,
		Registrant:                     cfg.RegistrantName,
		InstitutionName:                cfg.InstitutionName,
		ReviewTitleTemplate:            cfg.ReviewTitleTemplate,
		ReviewResourceURLTemplate:      cfg.ReviewResourceURLTemplate,
		AuthorReplyTitleTemplate:       cfg.AuthorReplyTitleTemplate,
		AuthorReplyResourceURLTemplate: cfg.AuthorReplyResourceURLTemplate,
	}
}

// parseDate parses a --after/--before flag value. An empty value yields
// the fallback.
func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want e.g. 2022-04-01", value)
}
