package main

import (
	"fmt"
	"strings"

	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/meca"
	"github.com/mecatools/peerdoi/internal/pdfdoi"
	"github.com/spf13/cobra"
)

var mecaInfoScanPDF bool

// MecaInfoResult is the response for the meca info command.
type MecaInfoResult struct {
	Title             string `json:"title"`
	DOI               string `json:"doi"`
	Authors           string `json:"authors"`
	PreprintDOI       string `json:"preprint_doi,omitempty"`
	PreprintDOISource string `json:"preprint_doi_source,omitempty"`
	Journal           string `json:"journal,omitempty"`
	ReviewProcess     string `json:"review_process,omitempty"`
}

func init() {
	mecaCmd.AddCommand(mecaInfoCmd)
	mecaInfoCmd.Flags().BoolVar(&mecaInfoScanPDF, "scan-pdf", false, "Scan bundled PDFs for a preprint DOI when the metadata has none")
}

var mecaInfoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Show basic information about the manuscript in a MECA archive",
	Long: `Show basic information about the manuscript in a MECA archive.

Parses the given archive and prints the authors, journal, title, any DOIs,
and a summary of the peer review process of the manuscript.

Example:
  peerdoi meca info archives/manuscript.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runMecaInfo,
}

func runMecaInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	manuscript := mustParseArchive(path)

	result := MecaInfoResult{
		Title:       truncateString(manuscript.Title, TruncateLen),
		DOI:         manuscript.DOI,
		Authors:     formatContributors(manuscript.Authors),
		PreprintDOI: manuscript.PreprintDOI,
		Journal:     manuscript.Journal,
	}
	if result.PreprintDOI == "" && mecaInfoScanPDF {
		if doi := scanArchivePDFs(path); doi != "" {
			result.PreprintDOI = doi
			result.PreprintDOISource = "pdf"
		}
	}
	if manuscript.ReviewProcess != nil {
		result.ReviewProcess = summarizeReviewProcess(manuscript)
	}

	if humanOutput {
		fmt.Printf("Title:   %s\n", result.Title)
		fmt.Printf("DOI:     %s\n", result.DOI)
		fmt.Printf("Authors: %s\n", result.Authors)
		if result.PreprintDOI != "" {
			source := ""
			if result.PreprintDOISource != "" {
				source = fmt.Sprintf(" (from %s)", result.PreprintDOISource)
			}
			fmt.Printf("Preprint DOI: %s%s\n", result.PreprintDOI, source)
		}
		if result.Journal != "" {
			fmt.Printf("Journal: %s\n", result.Journal)
		}
		if result.ReviewProcess != "" {
			fmt.Printf("Review process: %s\n", result.ReviewProcess)
		}
	} else {
		outputJSON(result)
	}

	return nil
}

// summarizeReviewProcess describes the review process in one line, e.g.
// "2 revision rounds, 5 reviews, 1 author reply".
func summarizeReviewProcess(m *article.Manuscript) string {
	numRounds := len(m.ReviewProcess)
	numReviews := 0
	numReplies := 0
	for _, round := range m.ReviewProcess {
		numReviews += len(round.Reviews)
		if round.AuthorReply != nil {
			numReplies++
		}
	}

	replies := fmt.Sprintf("%d author replies", numReplies)
	if numReplies == 1 {
		replies = "1 author reply"
	}
	return fmt.Sprintf("%s, %s, %s",
		plural(numRounds, "revision round"), plural(numReviews, "review"), replies)
}

// scanArchivePDFs looks for a DOI in the PDF attachments of the archive.
// Returns the first DOI found, or "" when the archive is unreadable or
// carries none.
func scanArchivePDFs(path string) string {
	archive, err := meca.Open(path)
	if err != nil {
		return ""
	}
	for _, file := range archive.Files() {
		if file.MediaType != "application/pdf" && !strings.HasSuffix(file.Name, ".pdf") {
			continue
		}
		data, err := archive.ReadFile(file)
		if err != nil {
			continue
		}
		if doi, err := pdfdoi.ExtractDOI(data); err == nil && doi != "" {
			return doi
		}
	}
	return ""
}

// plural appends "s" to word unless n is 1.
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
