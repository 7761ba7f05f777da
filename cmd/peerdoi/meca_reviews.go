package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReviewInfo describes one referee report in the meca reviews output.
type ReviewInfo struct {
	RunningNumber string `json:"running_number"`
	Contributors  string `json:"contributors"`
	Summary       string `json:"summary,omitempty"`
}

// AuthorReplyInfo describes the author reply of a revision round.
type AuthorReplyInfo struct {
	Contributors string `json:"contributors"`
}

// RevisionRoundInfo is one revision round in the meca reviews output.
type RevisionRoundInfo struct {
	RevisionID  string           `json:"revision_id"`
	Reviews     []ReviewInfo     `json:"reviews"`
	AuthorReply *AuthorReplyInfo `json:"author_reply,omitempty"`
}

// MecaReviewsResult is the response for the meca reviews command.
type MecaReviewsResult struct {
	RevisionRounds []RevisionRoundInfo `json:"revision_rounds"`
}

func init() {
	mecaCmd.AddCommand(mecaReviewsCmd)
}

var mecaReviewsCmd = &cobra.Command{
	Use:   "reviews <archive>",
	Short: "Show the review process of the manuscript in a MECA archive",
	Long: `Show the review process of the manuscript in a MECA archive.

Parses the given archive and prints the contributors and a text summary of
every review and author reply, grouped by revision round.

Example:
  peerdoi meca reviews archives/manuscript.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runMecaReviews,
}

func runMecaReviews(cmd *cobra.Command, args []string) error {
	manuscript := mustParseArchive(args[0])

	result := MecaReviewsResult{RevisionRounds: []RevisionRoundInfo{}}
	for _, round := range manuscript.ReviewProcess {
		info := RevisionRoundInfo{RevisionID: round.RevisionID, Reviews: []ReviewInfo{}}
		for _, review := range round.Reviews {
			info.Reviews = append(info.Reviews, ReviewInfo{
				RunningNumber: review.RunningNumber,
				Contributors:  formatContributors(review.Authors),
				Summary:       reviewSummary(review.Text),
			})
		}
		if round.AuthorReply != nil {
			info.AuthorReply = &AuthorReplyInfo{
				Contributors: formatContributors(round.AuthorReply.Authors),
			}
		}
		result.RevisionRounds = append(result.RevisionRounds, info)
	}

	if humanOutput {
		for _, round := range result.RevisionRounds {
			fmt.Printf("Revision round %s\n", round.RevisionID)
			for _, review := range round.Reviews {
				fmt.Printf("  Review %s: %s\n", review.RunningNumber, review.Contributors)
				if review.Summary != "" {
					fmt.Printf("    %s\n", review.Summary)
				}
			}
			if round.AuthorReply != nil {
				fmt.Printf("  Author Reply: %s\n", round.AuthorReply.Contributors)
			}
		}
	} else {
		outputJSON(result)
	}

	return nil
}
