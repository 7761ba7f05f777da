package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/meca"
	"github.com/spf13/cobra"
)

var mecaCmd = &cobra.Command{
	Use:   "meca",
	Short: "Inspect MECA archives",
	Long: `Commands for inspecting MECA (Manuscript Exchange Common Approach)
archives: the manuscript metadata and the peer review process they package.

These commands only read the given archive, they never touch the batch
database or any external service.`,
}

func init() {
	// Load .env if present (for PREPRINT_DOI_META_NAME)
	_ = godotenv.Load()

	rootCmd.AddCommand(mecaCmd)
}

// mustParseArchive parses the archive at the given path, exits on error.
func mustParseArchive(path string) *article.Manuscript {
	manuscript, err := meca.ParseManuscript(path, meca.Options{
		PreprintDOIMetaName: os.Getenv("PREPRINT_DOI_META_NAME"),
	})
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %v", path, err)
	}
	return manuscript
}
