package main

import (
	"fmt"
	"os"

	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/spf13/cobra"
)

func init() {
	crossrefCmd.AddCommand(crossrefVerifyCmd)
}

var crossrefVerifyCmd = &cobra.Command{
	Use:   "verify <deposition-file>",
	Short: "Verify a deposition file against the platform hosting the reviews",
	Long: `Verify that the DOIs in a deposition file can be created.

Checks, for every preprint in the deposition, that the hosting platform
carries exactly the reviews and author replies the deposition wants to
register DOIs for, and that none of them already has a DOI.

Example:
  peerdoi crossref verify deposition.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runCrossrefVerify,
}

func runCrossrefVerify(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	deposition, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "reading deposition file: %v", err)
	}

	results, err := crossref.Verify(cmd.Context(), string(deposition), newEEBClient(cfg))
	if err != nil {
		exitWithError(ExitDataError, "verifying deposition: %v", err)
	}

	if humanOutput {
		for _, result := range results {
			status := "ok"
			if !result.OK() {
				status = result.Error
			}
			fmt.Printf("%s: %s\n", result.PreprintDOI, status)
		}
	} else {
		outputJSON(results)
	}

	return nil
}
