package article

import (
	"errors"
	"fmt"
	"time"
)

// Preconditions for DOI assignment.
var (
	// ErrNoPreprintDOI indicates the manuscript has no preprint DOI and none
	// was supplied as an override.
	ErrNoPreprintDOI = errors.New("no preprint DOI found in the given manuscript")

	// ErrNoReviews indicates the manuscript has no review process to
	// deposit DOIs for.
	ErrNoReviews = errors.New("no reviews found in the given manuscript")
)

// Generator reserves a DOI for the resource identified by the given
// descriptor. Implementations range from ephemeral random generation for
// dry runs to durable allocation from a pre-provisioned pool.
type Generator interface {
	Reserve(resource string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(resource string) (string, error)

// Reserve calls f.
func (f GeneratorFunc) Reserve(resource string) (string, error) {
	return f(resource)
}

// AssignOptions modify how AssignDOIs resolves the article DOI.
type AssignOptions struct {
	// PreprintDOI overrides the manuscript's embedded preprint DOI.
	PreprintDOI string
}

// ReviewDescriptor is the stable string under which a DOI for the given
// review position is requested. Re-running assignment for the same
// manuscript, revision and position always requests the same descriptor.
func ReviewDescriptor(articleDOI, revisionID, runningNumber string) string {
	return fmt.Sprintf("%s - %s - %s", articleDOI, revisionID, runningNumber)
}

// AuthorReplyDescriptor is the stable string under which a DOI for the
// author reply of the given revision round is requested.
func AuthorReplyDescriptor(articleDOI, revisionID string) string {
	return fmt.Sprintf("%s - %s - author reply", articleDOI, revisionID)
}

// AssignDOIs derives a deposition-ready Article from a Manuscript by
// reserving a DOI for every review and author reply through the given
// generator. The article DOI is the override from opts when set, else the
// manuscript's preprint DOI.
//
// Returns ErrNoPreprintDOI when neither is available and ErrNoReviews when
// the manuscript has a nil or empty review process. The only side effect is
// through the injected generator.
func AssignDOIs(m *Manuscript, publicationDate time.Time, gen Generator, opts AssignOptions) (*Article, error) {
	articleDOI := opts.PreprintDOI
	if articleDOI == "" {
		articleDOI = m.PreprintDOI
	}
	if articleDOI == "" {
		return nil, ErrNoPreprintDOI
	}
	if len(m.ReviewProcess) == 0 {
		return nil, ErrNoReviews
	}

	reviewProcess := make([]RevisionRound, 0, len(m.ReviewProcess))
	for _, round := range m.ReviewProcess {
		assigned := RevisionRound{RevisionID: round.RevisionID}

		for _, review := range round.Reviews {
			doi, err := gen.Reserve(ReviewDescriptor(articleDOI, round.RevisionID, review.RunningNumber))
			if err != nil {
				return nil, fmt.Errorf("reserving DOI for review %s of revision %s: %w",
					review.RunningNumber, round.RevisionID, err)
			}
			review.DOI = doi
			assigned.Reviews = append(assigned.Reviews, review)
		}

		if round.AuthorReply != nil {
			doi, err := gen.Reserve(AuthorReplyDescriptor(articleDOI, round.RevisionID))
			if err != nil {
				return nil, fmt.Errorf("reserving DOI for author reply of revision %s: %w",
					round.RevisionID, err)
			}
			reply := *round.AuthorReply
			reply.DOI = doi
			assigned.AuthorReply = &reply
		}

		reviewProcess = append(reviewProcess, assigned)
	}

	return &Article{
		DOI:             articleDOI,
		Title:           m.Title,
		PublicationDate: publicationDate,
		ReviewProcess:   reviewProcess,
	}, nil
}
