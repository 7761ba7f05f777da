package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mecatools/peerdoi/internal/batch"
	"github.com/spf13/cobra"
)

var batchParseOutputDir string

// BatchParseResult is the response for the batch parse command.
type BatchParseResult struct {
	ID string `json:"id"`
	ParsedFileGroups
}

func init() {
	batchCmd.AddCommand(batchParseCmd)
	batchParseCmd.Flags().StringVarP(&batchParseOutputDir, "output-dir", "o", "", "Directory to which processed files are archived (required)")
	batchParseCmd.MarkFlagRequired("output-dir")
}

var batchParseCmd = &cobra.Command{
	Use:   "parse <input-dir>",
	Short: "Register incoming MECA archives in the batch database",
	Long: `Register incoming MECA archives in the batch database.

Moves all files in the input directory to a new parsed/<id>/ folder within
--output-dir, tries to parse them as MECA archives, and registers every
file in the batch database. The files are grouped by status in the output:
invalid files, archives without reviews or without a preprint DOI, archives
whose preprint DOI is already registered, and archives ready for deposition.

Example:
  peerdoi batch parse incoming/ -o processed/`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchParse,
}

func runBatchParse(cmd *cobra.Command, args []string) error {
	inputDir := args[0]

	cfg := mustLoadConfig()
	logger, closeLog := mustLogger(cfg)
	defer closeLog()

	db := mustOpenBatchDB(cfg)
	defer db.Close()

	runID := uuid.NewString()
	archiveDir := filepath.Join(batchParseOutputDir, "parsed", runID)
	if err := os.MkdirAll(filepath.Dir(archiveDir), 0o755); err != nil {
		exitWithError(ExitError, "creating %s: %v", filepath.Dir(archiveDir), err)
	}
	if err := os.Rename(inputDir, archiveDir); err != nil {
		exitWithError(ExitError, "moving input files: %v", err)
	}
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		exitWithError(ExitError, "recreating %s: %v", inputDir, err)
	}

	var inputFiles []string
	err := filepath.WalkDir(archiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			inputFiles = append(inputFiles, path)
		}
		return nil
	})
	if err != nil {
		exitWithError(ExitError, "listing input files: %v", err)
	}

	parsed, err := batch.Parse(inputFiles, db, batch.ParseOptions{
		PreprintDOIMetaName: cfg.PreprintDOIMetaName,
		Logger:              logger,
	})
	if err != nil {
		exitWithError(ExitError, "registering files: %v", err)
	}

	result := BatchParseResult{
		ID:               runID,
		ParsedFileGroups: groupParsedFiles(parsed),
	}

	if humanOutput {
		fmt.Printf("Run %s: parsed %d files, archived to %s\n", result.ID, len(parsed), archiveDir)
		printParsedFileGroupsHuman(result.ParsedFileGroups)
	} else {
		outputJSON(result)
	}

	return nil
}
