package main

import (
	"fmt"

	"github.com/mecatools/peerdoi/internal/store"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch pipeline for registering archives and depositing DOIs",
	Long: `Commands for the two-stage batch pipeline.

"batch parse" registers incoming MECA archives in the batch database,
"batch deposit" creates DOIs for the registered archives that are ready,
and "batch prune" deletes archive files that are no longer needed.

All commands output JSON by default for agent consumption.
Use --human flag for human-readable output.`,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// parsedFileName identifies a parsed file in command output, appending the
// preprint DOI when one was found.
func parsedFileName(file *store.ParsedFile) string {
	if file.DOI != "" {
		return file.Path + "|" + file.DOI
	}
	return file.Path
}

// ParsedFileGroups groups parsed files by what keeps them from, or makes
// them ready for, deposition.
type ParsedFileGroups struct {
	Invalid            []string `json:"invalid,omitempty"`
	NoReviews          []string `json:"no_reviews,omitempty"`
	NoPreprintDOI      []string `json:"no_preprint_doi,omitempty"`
	Duplicate          []string `json:"duplicate,omitempty"`
	ReadyForDeposition []string `json:"ready_for_deposition,omitempty"`
}

func groupParsedFiles(files []*store.ParsedFile) ParsedFileGroups {
	var groups ParsedFileGroups
	for _, file := range files {
		name := parsedFileName(file)
		switch file.Status {
		case store.StatusInvalid:
			groups.Invalid = append(groups.Invalid, name)
		case store.StatusNoReviews:
			groups.NoReviews = append(groups.NoReviews, name)
		case store.StatusNoDOI:
			groups.NoPreprintDOI = append(groups.NoPreprintDOI, name)
		case store.StatusDuplicate:
			groups.Duplicate = append(groups.Duplicate, name)
		default:
			groups.ReadyForDeposition = append(groups.ReadyForDeposition, name)
		}
	}
	return groups
}

// printGroupHuman prints one group of file names under a header, skipping
// empty groups.
func printGroupHuman(header string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", header, len(names))
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func printParsedFileGroupsHuman(groups ParsedFileGroups) {
	printGroupHuman("Invalid", groups.Invalid)
	printGroupHuman("No reviews", groups.NoReviews)
	printGroupHuman("No preprint DOI", groups.NoPreprintDOI)
	printGroupHuman("Duplicate", groups.Duplicate)
	printGroupHuman("Ready for deposition", groups.ReadyForDeposition)
}
