package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DoisInfoResult is the response for the dois info command.
type DoisInfoResult struct {
	DBFile string `json:"db_file"`
	Total  int    `json:"total"`
	Free   int    `json:"free"`
}

func init() {
	doisCmd.AddCommand(doisInfoCmd)
}

var doisInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show how many DOIs the DOI database holds",
	Long:  `Show how many DOIs the DOI database holds in total and how many are still unclaimed.`,
	Args:  cobra.NoArgs,
	RunE:  runDoisInfo,
}

func runDoisInfo(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	pool := mustOpenPool(cfg.DOIDBFile)
	defer pool.Close()

	stats, err := pool.Stats()
	if err != nil {
		exitWithError(ExitError, "reading DOI database: %v", err)
	}

	result := DoisInfoResult{DBFile: cfg.DOIDBFile, Total: stats.Total, Free: stats.Free}
	if humanOutput {
		fmt.Printf("%s:\n  total DOIs: %d\n  free DOIs:  %d\n", result.DBFile, result.Total, result.Free)
	} else {
		outputJSON(result)
	}

	return nil
}
