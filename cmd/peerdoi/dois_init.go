package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DoisInitResult is the response for the dois init command.
type DoisInitResult struct {
	DBFile string `json:"db_file"`
}

func init() {
	doisCmd.AddCommand(doisInitCmd)
}

var doisInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty DOI database",
	Long: `Create the DOI database configured in DOI_DB_FILE with an empty pool.

Running init on an existing database is harmless, the pool is kept as is.`,
	Args: cobra.NoArgs,
	RunE: runDoisInit,
}

func runDoisInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	pool := mustOpenPool(cfg.DOIDBFile)
	defer pool.Close()

	result := DoisInitResult{DBFile: cfg.DOIDBFile}
	if humanOutput {
		fmt.Printf("Initialized DOI database at %q\n", result.DBFile)
	} else {
		outputJSON(result)
	}

	return nil
}
