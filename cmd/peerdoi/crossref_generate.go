package main

import (
	"time"

	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/spf13/cobra"
)

var (
	crossrefGenerateOutput      string
	crossrefGeneratePreprintDOI string
)

func init() {
	crossrefCmd.AddCommand(crossrefGenerateCmd)
	crossrefGenerateCmd.Flags().StringVarP(&crossrefGenerateOutput, "output", "o", "-", "Write the deposition file here instead of stdout")
	crossrefGenerateCmd.Flags().StringVar(&crossrefGeneratePreprintDOI, "preprint-doi", "", "Override the preprint DOI from the archive metadata")
}

var crossrefGenerateCmd = &cobra.Command{
	Use:   "generate <archive>",
	Short: "Generate a deposition file for the reviews in a MECA archive",
	Long: `Generate a Crossref deposition file for the reviews in a MECA archive.

Parses the given archive, reserves a DOI from the DOI database for every
review and author reply, and writes the resulting deposition XML.

Example:
  peerdoi crossref generate archives/manuscript.zip -o deposition.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runCrossrefGenerate,
}

func runCrossrefGenerate(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	manuscript := mustParseArchive(args[0])

	pool := mustOpenPool(cfg.DOIDBFile)
	defer pool.Close()

	a, err := article.AssignDOIs(manuscript, time.Now(), pool, article.AssignOptions{
		PreprintDOI: crossrefGeneratePreprintDOI,
	})
	if err != nil {
		exitWithError(ExitDataError, "assigning DOIs: %v", err)
	}

	deposition, err := crossref.Generate([]article.Article{*a}, generateConfig(cfg))
	if err != nil {
		exitWithError(ExitDataError, "generating deposition: %v", err)
	}

	if err := writeOutput(crossrefGenerateOutput, deposition); err != nil {
		exitWithError(ExitError, "writing deposition: %v", err)
	}
	return nil
}
