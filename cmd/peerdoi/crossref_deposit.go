package main

import (
	"os"

	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/spf13/cobra"
)

var crossrefDepositOutput string

func init() {
	crossrefCmd.AddCommand(crossrefDepositCmd)
	crossrefDepositCmd.Flags().StringVarP(&crossrefDepositOutput, "output", "o", "-", "Write the Crossref API response here instead of stdout")
}

var crossrefDepositCmd = &cobra.Command{
	Use:   "deposit <deposition-file>",
	Short: "Send a deposition file to the Crossref API",
	Long: `Send a deposition file to the Crossref API.

Crossref processes depositions asynchronously; the outcome is reported by
email to the configured depositor address. A successful command only means
the file was accepted for processing.

Example:
  peerdoi crossref deposit deposition.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runCrossrefDeposit,
}

func runCrossrefDeposit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	deposition, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "reading deposition file: %v", err)
	}

	client := crossref.NewClient(cfg.CrossrefDepositionURL, cfg.CrossrefUsername, cfg.CrossrefPassword)
	response, err := client.Deposit(cmd.Context(), string(deposition))
	if err != nil {
		exitWithError(ExitError, "depositing: %v", err)
	}

	if err := writeOutput(crossrefDepositOutput, response); err != nil {
		exitWithError(ExitError, "writing response: %v", err)
	}
	return nil
}
