package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/batch"
	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/mecatools/peerdoi/internal/doi"
	"github.com/mecatools/peerdoi/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	batchDepositOutputDir   string
	batchDepositNoDryRun    bool
	batchDepositRetryFailed bool
	batchDepositAfter       string
	batchDepositBefore      string
)

// BatchDepositResult is the response for the batch deposit command.
type BatchDepositResult struct {
	ID     string `json:"id"`
	DryRun bool   `json:"dry_run"`

	GenerationFailed   []string `json:"deposition_generation_failed,omitempty"`
	DoisAlreadyPresent []string `json:"dois_already_present,omitempty"`
	VerificationFailed []string `json:"deposition_verification_failed,omitempty"`
	Succeeded          []string `json:"deposition_succeeded,omitempty"`
	Failed             []string `json:"deposition_failed,omitempty"`
}

func init() {
	batchCmd.AddCommand(batchDepositCmd)
	batchDepositCmd.Flags().StringVarP(&batchDepositOutputDir, "output-dir", "o", "", "Directory to which information about deposited articles is written (required)")
	batchDepositCmd.Flags().BoolVar(&batchDepositNoDryRun, "no-dry-run", false, "Actually create DOIs and update the database")
	batchDepositCmd.Flags().BoolVar(&batchDepositRetryFailed, "retry-failed", false, "Retry archives whose previous deposition attempt failed instead of unattempted ones")
	batchDepositCmd.Flags().StringVarP(&batchDepositAfter, "after", "a", "", "Only archives received after this date (e.g. 2022-04-01)")
	batchDepositCmd.Flags().StringVarP(&batchDepositBefore, "before", "b", "", "Only archives received before this date (e.g. 2022-10-01)")
	batchDepositCmd.MarkFlagRequired("output-dir")
}

var batchDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Create DOIs for registered MECA archives",
	Long: `Create DOIs for MECA archives registered in the batch database.

Selects the archives that have reviews and a preprint DOI and no deposition
attempt yet (or, with --retry-failed, whose last attempt failed). For each
one a Crossref deposition is generated, verified against the platform
hosting the reviews, and sent to the Crossref API. Every attempt is
recorded in the batch database and information about each successfully
deposited article is written to a file under --output-dir/deposited/.

Crossref processes depositions asynchronously and reports the outcome by
email to the configured depositor address, so a succeeded attempt means
the deposition was accepted, not that the DOIs exist yet.

NOTE: by default no DOIs are created and the database is not updated.
Pass --no-dry-run to actually deposit.

Example:
  peerdoi batch deposit -o processed/ --no-dry-run`,
	Args: cobra.NoArgs,
	RunE: runBatchDeposit,
}

func runBatchDeposit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger, closeLog := mustLogger(cfg)
	defer closeLog()

	db := mustOpenBatchDB(cfg)
	defer db.Close()

	after, err := parseDate(batchDepositAfter, time.Time{})
	if err != nil {
		exitWithError(ExitError, "--after: %v", err)
	}
	before, err := parseDate(batchDepositBefore, time.Now())
	if err != nil {
		exitWithError(ExitError, "--before: %v", err)
	}

	var files []*store.ParsedFile
	if batchDepositRetryFailed {
		files, err = db.FilesToRetryDeposition(after, before)
	} else {
		files, err = db.FilesReadyForDeposition(after, before)
	}
	if err != nil {
		exitWithError(ExitError, "selecting files: %v", err)
	}

	dryRun := !batchDepositNoDryRun
	depositor := batch.Depositor{
		DB:       db,
		EEB:      newEEBClient(cfg),
		Crossref: crossref.NewClient(cfg.CrossrefDepositionURL, cfg.CrossrefUsername, cfg.CrossrefPassword),
		Config:   generateConfig(cfg),
		DryRun:   dryRun,
		Logger:   logger,
	}
	if dryRun {
		// random DOIs, nothing is claimed from the pool
		depositor.Generator = doi.NewRandom(cfg.DOITemplate)
	} else {
		pool := mustOpenPool(cfg.DOIDBFile)
		defer pool.Close()
		depositor.Generator = pool
	}

	attempts, deposited, err := batch.Deposit(cmd.Context(), files, depositor)
	if err != nil {
		exitWithError(ExitError, "depositing: %v", err)
	}

	runID := uuid.NewString()
	result := BatchDepositResult{ID: runID, DryRun: dryRun}
	for i, attempt := range attempts {
		name := parsedFileName(files[i])
		switch attempt.Status {
		case store.AttemptGenerationFailed:
			result.GenerationFailed = append(result.GenerationFailed, name)
		case store.AttemptDoisAlreadyPresent:
			result.DoisAlreadyPresent = append(result.DoisAlreadyPresent, name)
		case store.AttemptVerificationFailed:
			result.VerificationFailed = append(result.VerificationFailed, name)
		case store.AttemptSucceeded:
			result.Succeeded = append(result.Succeeded, name)
		default:
			result.Failed = append(result.Failed, name)
		}
	}

	if len(deposited) > 0 {
		if err := writeDepositedArticles(batchDepositOutputDir, runID, deposited); err != nil {
			exitWithError(ExitError, "writing deposited articles: %v", err)
		}
	}

	if humanOutput {
		fmt.Printf("Run %s (dry run: %t): %d files selected\n", result.ID, result.DryRun, len(files))
		printGroupHuman("Generation failed", result.GenerationFailed)
		printGroupHuman("DOIs already present", result.DoisAlreadyPresent)
		printGroupHuman("Verification failed", result.VerificationFailed)
		printGroupHuman("Succeeded", result.Succeeded)
		printGroupHuman("Failed", result.Failed)
	} else {
		outputJSON(result)
	}

	return nil
}

// writeDepositedArticles records the articles whose DOIs were deposited in
// --output-dir/deposited/<run-id>.yml.
func writeDepositedArticles(outputDir, runID string, articles []article.Article) error {
	dir := filepath.Join(outputDir, "deposited")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(articles)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, runID+".yml"), data, 0o644)
}
