package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var batchPruneNoDryRun bool

// BatchPruneResult is the response for the batch prune command.
type BatchPruneResult struct {
	DryRun  bool     `json:"dry_run"`
	Deleted []string `json:"deleted,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

func init() {
	batchCmd.AddCommand(batchPruneCmd)
	batchPruneCmd.Flags().BoolVar(&batchPruneNoDryRun, "no-dry-run", false, "Actually delete the archive files")
}

var batchPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archive files that are no longer needed",
	Long: `Delete MECA archive files that are no longer needed for deposition.

Every archive is fully parsed during batch parse and everything needed for
DOI creation is stored in the batch database, so the file on disk can be
deleted afterwards. This command deletes every registered file that still
exists on disk.

NOTE: by default no files are deleted. Pass --no-dry-run to actually
delete.`,
	Args: cobra.NoArgs,
	RunE: runBatchPrune,
}

func runBatchPrune(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger, closeLog := mustLogger(cfg)
	defer closeLog()

	db := mustOpenBatchDB(cfg)
	defer db.Close()

	paths, err := db.ParsedFilePaths()
	if err != nil {
		exitWithError(ExitError, "listing registered files: %v", err)
	}

	var toDelete []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			toDelete = append(toDelete, path)
		}
	}
	sort.Strings(toDelete)

	dryRun := !batchPruneNoDryRun
	result := BatchPruneResult{DryRun: dryRun}
	for _, path := range toDelete {
		if dryRun {
			result.Deleted = append(result.Deleted, path)
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("pruning failed", slog.String("path", path), slog.String("error", err.Error()))
			result.Failed = append(result.Failed, path)
			continue
		}
		result.Deleted = append(result.Deleted, path)
	}

	if humanOutput {
		fmt.Printf("Dry run: %t\n", result.DryRun)
		printGroupHuman("Deleted", result.Deleted)
		printGroupHuman("Failed", result.Failed)
	} else {
		outputJSON(result)
	}

	return nil
}
