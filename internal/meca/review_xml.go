package meca

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mecatools/peerdoi/internal/article"
)

// reviewGroupXML is the canonical mapping of a review-metadata file:
// one version element per revision round, each holding review elements.
type reviewGroupXML struct {
	XMLName  xml.Name     `xml:"review-group"`
	Versions []versionXML `xml:"version"`
}

type versionXML struct {
	Revision string      `xml:"revision,attr"`
	Reviews  []reviewXML `xml:"review"`
}

type reviewXML struct {
	ContribGroup *contribGroupXML `xml:"contrib-group"`
	History      *historyXML      `xml:"history"`
	ReviewItems  []reviewItemXML  `xml:"review-item-group>review-item"`
}

type historyXML struct {
	Dates []historyDateXML `xml:"date"`
}

type historyDateXML struct {
	DateType string `xml:"date-type,attr"`
	Year     string `xml:"year"`
	Month    string `xml:"month"`
	Day      string `xml:"day"`
}

type reviewItemXML struct {
	Question reviewItemQuestionXML `xml:"review-item-question"`
	Response reviewItemResponseXML `xml:"review-item-response"`
}

type reviewItemQuestionXML struct {
	Title    richText `xml:"title"`
	AltTitle richText `xml:"alt-title"`
}

type reviewItemResponseXML struct {
	Text richText `xml:"text"`
}

// assignedDate returns the date the review was assigned to the referee.
// A review without history or without an assigned date yields the zero
// time, which sorts it before every dated review. A date that is present
// but not numeric is an error.
func (r *reviewXML) assignedDate() (time.Time, error) {
	if r.History == nil {
		return time.Time{}, nil
	}
	for _, date := range r.History.Dates {
		if date.DateType != "assigned" {
			continue
		}
		year, err := strconv.Atoi(normalizeText(date.Year))
		if err != nil {
			return time.Time{}, fmt.Errorf("assigned date: bad year %q", date.Year)
		}
		month, err := strconv.Atoi(normalizeText(date.Month))
		if err != nil {
			return time.Time{}, fmt.Errorf("assigned date: bad month %q", date.Month)
		}
		day, err := strconv.Atoi(normalizeText(date.Day))
		if err != nil {
			return time.Time{}, fmt.Errorf("assigned date: bad day %q", date.Day)
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, nil
}

// text pairs each review item's question title with its response text.
// The alt-title stands in when the question has no title; items without a
// usable title or without response text are skipped.
func (r *reviewXML) text() map[string]string {
	text := make(map[string]string)
	for _, item := range r.ReviewItems {
		title := item.Question.Title.String()
		if title == "" {
			title = item.Question.AltTitle.String()
		}
		response := item.Response.Text.String()
		if title == "" || response == "" {
			continue
		}
		text[title] = response
	}
	return text
}

// buildReviewProcess turns parsed review metadata into ordered revision
// rounds. Within a round, reviews are stably sorted by their assigned date
// and numbered 1..N in that order. A round has an author reply iff the
// manifest lists exactly one "Response to Reviewers" attachment whose
// version equals the round's revision id; the reply is attributed to the
// manuscript authors.
func buildReviewProcess(
	reviewGroup *reviewGroupXML,
	manuscriptAuthors []article.Author,
	authorReplies []File,
) ([]article.RevisionRound, error) {
	// A non-nil empty result distinguishes "review metadata with zero
	// rounds" from "no review metadata at all".
	rounds := []article.RevisionRound{}
	for _, version := range reviewGroup.Versions {
		round := article.RevisionRound{RevisionID: version.Revision}

		type datedReview struct {
			xml      reviewXML
			assigned time.Time
		}
		dated := make([]datedReview, 0, len(version.Reviews))
		for _, review := range version.Reviews {
			assigned, err := review.assignedDate()
			if err != nil {
				return nil, fmt.Errorf("revision %s: %w", version.Revision, err)
			}
			dated = append(dated, datedReview{xml: review, assigned: assigned})
		}
		sort.SliceStable(dated, func(i, j int) bool {
			return dated[i].assigned.Before(dated[j].assigned)
		})

		for i, review := range dated {
			round.Reviews = append(round.Reviews, article.Review{
				Work: article.Work{
					Authors: review.xml.ContribGroup.contributors("reviewer"),
					Text:    review.xml.text(),
				},
				RunningNumber: strconv.Itoa(i + 1),
			})
		}

		replies := filesWithVersion(authorReplies, version.Revision)
		switch len(replies) {
		case 0:
			// no reply in this round
		case 1:
			round.AuthorReply = &article.AuthorReply{
				Work: article.Work{
					Authors: manuscriptAuthors,
					Text:    map[string]string{},
				},
			}
		default:
			return nil, fmt.Errorf("revision %s: %d author-reply attachments, want at most one",
				version.Revision, len(replies))
		}

		rounds = append(rounds, round)
	}
	return rounds, nil
}

func filesWithVersion(files []File, version string) []File {
	var matching []File
	for _, f := range files {
		if f.Version == version {
			matching = append(matching, f)
		}
	}
	return matching
}
