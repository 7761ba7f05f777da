package crossref

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mecatools/peerdoi/internal/eeb"
)

// VerificationResult is the outcome of checking one preprint's share of a
// deposition file against the platform hosting the reviews.
type VerificationResult struct {
	// PreprintDOI is the article the deposition wants to register review
	// DOIs for.
	PreprintDOI string `json:"preprint_doi"`

	// Checked is false when the platform lookup itself failed; the
	// comparison fields are meaningless then.
	Checked bool `json:"checked"`

	// AllReviewsPresent reports whether the platform hosts exactly as many
	// reviews as the deposition wants to register DOIs for.
	AllReviewsPresent bool `json:"all_reviews_present"`

	// AuthorReplyMatches reports whether deposition and platform agree on
	// the presence of an author reply.
	AuthorReplyMatches bool `json:"author_reply_matches"`

	// NoDOIsAssigned reports whether none of the hosted reviews and replies
	// already carries a DOI.
	NoDOIsAssigned bool `json:"no_dois_assigned"`

	Error string `json:"error,omitempty"`
}

// OK reports whether the verification passed.
func (r VerificationResult) OK() bool {
	return r.Error == ""
}

// Verify checks the DOIs a deposition file wants to create against the
// hosting platform: every review and reply must be present there, in the
// same number, and none may already have a DOI. One result is returned per
// preprint DOI found in the deposition.
func Verify(ctx context.Context, deposition string, client *eeb.Client) ([]VerificationResult, error) {
	groups, order, err := groupByPreprintDOI(deposition)
	if err != nil {
		return nil, err
	}

	var results []VerificationResult
	for _, preprintDOI := range order {
		results = append(results, verifyPreprint(ctx, preprintDOI, groups[preprintDOI], client))
	}
	return results, nil
}

// depositionGroup collects one preprint's share of a deposition file.
type depositionGroup struct {
	numReviews     int
	hasAuthorReply bool
}

func groupByPreprintDOI(deposition string) (map[string]*depositionGroup, []string, error) {
	var batch parsedBatchXML
	decoder := xml.NewDecoder(strings.NewReader(deposition))
	if err := decoder.Decode(&batch); err != nil {
		return nil, nil, fmt.Errorf("parsing deposition: %w", err)
	}

	groups := map[string]*depositionGroup{}
	var order []string
	for _, review := range batch.PeerReviews {
		var reviewed []string
		for _, item := range review.RelatedItems {
			if item.Relation.RelationshipType == "isReviewOf" {
				reviewed = append(reviewed, strings.TrimSpace(item.Relation.Value))
			}
		}
		if len(reviewed) != 1 {
			return nil, nil, fmt.Errorf("peer review has %d isReviewOf relations, want exactly one", len(reviewed))
		}
		preprintDOI := reviewed[0]

		group := groups[preprintDOI]
		if group == nil {
			group = &depositionGroup{}
			groups[preprintDOI] = group
			order = append(order, preprintDOI)
		}

		switch review.Type {
		case "referee-report":
			group.numReviews++
		case "author-comment":
			if group.hasAuthorReply {
				return nil, nil, fmt.Errorf("multiple author replies for preprint %s", preprintDOI)
			}
			group.hasAuthorReply = true
		default:
			return nil, nil, fmt.Errorf("unexpected peer review type %q", review.Type)
		}
	}
	return groups, order, nil
}

func verifyPreprint(ctx context.Context, preprintDOI string, group *depositionGroup, client *eeb.Client) VerificationResult {
	result := VerificationResult{PreprintDOI: preprintDOI}

	articles, err := client.Articles(ctx, preprintDOI)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(articles) != 1 {
		result.Error = fmt.Sprintf("received %d results for preprint DOI %s, want exactly one", len(articles), preprintDOI)
		return result
	}
	hosted := articles[0].ReviewProcess
	if hosted == nil {
		result.Error = fmt.Sprintf("no review process hosted for preprint DOI %s", preprintDOI)
		return result
	}

	result.Checked = true
	result.AllReviewsPresent = len(hosted.Reviews) == group.numReviews
	result.AuthorReplyMatches = (hosted.Response != nil) == group.hasAuthorReply

	result.NoDOIsAssigned = true
	for _, review := range hosted.Reviews {
		if review.DOI != "" {
			result.NoDOIsAssigned = false
		}
	}
	if hosted.Response != nil && hosted.Response.DOI != "" {
		result.NoDOIsAssigned = false
	}

	if !result.AllReviewsPresent || !result.AuthorReplyMatches || !result.NoDOIsAssigned {
		msg := fmt.Sprintf("deposition wants to create DOIs for %d reviews", group.numReviews)
		if group.hasAuthorReply {
			msg += " and an author reply"
		}
		msg += fmt.Sprintf(" but the platform hosts %d reviews", len(hosted.Reviews))
		if hosted.Response != nil {
			msg += " and an author reply"
		} else {
			msg += " and no author reply"
		}
		if !result.NoDOIsAssigned {
			msg += " with DOIs already assigned"
		}
		result.Error = msg
	}
	return result
}

// Parse-side types for reading a deposition back. Tags omit namespaces so
// they match the prefixed elements the serializer emits.

type parsedBatchXML struct {
	XMLName     xml.Name            `xml:"doi_batch"`
	PeerReviews []parsedPeerReview  `xml:"body>peer_review"`
}

type parsedPeerReview struct {
	Type         string              `xml:"type,attr"`
	RelatedItems []parsedRelatedItem `xml:"program>related_item"`
	DOI          string              `xml:"doi_data>doi"`
}

type parsedRelatedItem struct {
	Relation parsedRelation `xml:"inter_work_relation"`
}

type parsedRelation struct {
	RelationshipType string `xml:"relationship-type,attr"`
	Value            string `xml:",chardata"`
}
