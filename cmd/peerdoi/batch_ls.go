package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	batchLsAfter  string
	batchLsBefore string
)

func init() {
	batchCmd.AddCommand(batchLsCmd)
	batchLsCmd.Flags().StringVarP(&batchLsAfter, "after", "a", "", "Only files received after this date")
	batchLsCmd.Flags().StringVarP(&batchLsBefore, "before", "b", "", "Only files received before this date")
}

var batchLsCmd = &cobra.Command{
	Use:    "ls",
	Short:  "List files in the batch database",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runBatchLs,
}

func runBatchLs(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenBatchDB(cfg)
	defer db.Close()

	after, err := parseDate(batchLsAfter, time.Time{})
	if err != nil {
		exitWithError(ExitError, "--after: %v", err)
	}
	before, err := parseDate(batchLsBefore, time.Now())
	if err != nil {
		exitWithError(ExitError, "--before: %v", err)
	}

	files, err := db.ParsedFilesBetween(after, before)
	if err != nil {
		exitWithError(ExitError, "listing files: %v", err)
	}

	groups := groupParsedFiles(files)
	if humanOutput {
		printParsedFileGroupsHuman(groups)
	} else {
		outputJSON(groups)
	}

	return nil
}
