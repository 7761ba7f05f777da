// Package crossref generates Crossref peer review depositions from
// articles, verifies them against the platform hosting the reviews, and
// sends them to the Crossref deposition API.
package crossref

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mecatools/peerdoi/internal/article"
)

// schemaVersion is the Crossref metadata schema the depositions conform to.
const schemaVersion = "5.3.1"

// GenerateConfig carries the depositor identity and the templates used for
// the landing page URLs and titles of the deposited items.
//
// Title templates substitute $article_title and $review_number; resource
// URL templates substitute $article_doi, $revision and $running_number.
type GenerateConfig struct {
	DepositorName   string
	DepositorEmail  string
	Registrant      string
	InstitutionName string

	ReviewTitleTemplate            string
	ReviewResourceURLTemplate      string
	AuthorReplyTitleTemplate       string
	AuthorReplyResourceURLTemplate string
}

// ErrNoReviews is returned by Generate when the articles carry no reviews.
var ErrNoReviews = errors.New("articles don't contain any reviews")

// overridable in tests for stable batch IDs
var timeNow = time.Now

// Generate builds a doi_batch deposition XML registering DOIs for every
// review and author reply of the given articles.
func Generate(articles []article.Article, cfg GenerateConfig) (string, error) {
	numReviews := 0
	for _, a := range articles {
		for _, round := range a.ReviewProcess {
			numReviews += len(round.Reviews)
		}
	}
	if numReviews == 0 {
		return "", ErrNoReviews
	}

	timestamp := timeNow().UnixNano()
	batch := doiBatchXML{
		Xmlns:    "http://www.crossref.org/schema/" + schemaVersion,
		XmlnsRel: "http://www.crossref.org/relations.xsd",
		XmlnsXsi: "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: "http://www.crossref.org/schema/" + schemaVersion +
			" http://www.crossref.org/schemas/crossref" + schemaVersion + ".xsd",
		Version: schemaVersion,
		Head: headXML{
			DoiBatchID: fmt.Sprintf("rc.%d", timestamp),
			Timestamp:  timestamp,
			Depositor: depositorXML{
				DepositorName: cfg.DepositorName,
				EmailAddress:  cfg.DepositorEmail,
			},
			Registrant: cfg.Registrant,
		},
	}

	for _, a := range articles {
		reviews, err := peerReviews(&a, cfg)
		if err != nil {
			return "", err
		}
		batch.Body.PeerReviews = append(batch.Body.PeerReviews, reviews...)
	}

	data, err := xml.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing deposition: %w", err)
	}
	return string(data), nil
}

// peerReviews builds the peer_review elements of one article: all reviews
// as referee reports and each round's author reply as an author comment
// linked to the reviews it replies to.
func peerReviews(a *article.Article, cfg GenerateConfig) ([]peerReviewXML, error) {
	isReviewOf := relatedItemXML{
		InterWorkRelation: interWorkRelationXML{
			RelationshipType: "isReviewOf",
			IdentifierType:   "doi",
			Value:            a.DOI,
		},
	}
	reviewDate := reviewDateXML{
		Month: fmt.Sprintf("%02d", int(a.PublicationDate.Month())),
		Day:   fmt.Sprintf("%02d", a.PublicationDate.Day()),
		Year:  strconv.Itoa(a.PublicationDate.Year()),
	}
	institution := &institutionXML{InstitutionName: cfg.InstitutionName}

	var elements []peerReviewXML
	for revision, round := range a.ReviewProcess {
		for i, review := range round.Reviews {
			runningNumber := strconv.Itoa(i + 1)
			elements = append(elements, peerReviewXML{
				Language:      "en",
				RevisionRound: strconv.Itoa(revision),
				Type:          "referee-report",
				Stage:         "pre-publication",
				Contributors: contributorsXML{
					Anonymous: &anonymousXML{Sequence: "first", ContributorRole: "author"},
				},
				Titles: titlesXML{Title: expand(cfg.ReviewTitleTemplate, map[string]string{
					"article_title": a.Title,
					"review_number": runningNumber,
				})},
				ReviewDate:    reviewDate,
				Institution:   institution,
				RunningNumber: runningNumber,
				Program:       programXML{RelatedItems: []relatedItemXML{isReviewOf}},
				DoiData: doiDataXML{
					DOI: review.DOI,
					Resource: expand(cfg.ReviewResourceURLTemplate, map[string]string{
						"article_doi":    a.DOI,
						"revision":       strconv.Itoa(revision),
						"running_number": runningNumber,
					}),
				},
			})
		}

		if round.AuthorReply == nil {
			continue
		}
		relations := []relatedItemXML{isReviewOf}
		for _, review := range round.Reviews {
			relations = append(relations, relatedItemXML{
				InterWorkRelation: interWorkRelationXML{
					RelationshipType: "isReplyTo",
					IdentifierType:   "doi",
					Value:            review.DOI,
				},
			})
		}
		elements = append(elements, peerReviewXML{
			Language:      "en",
			RevisionRound: strconv.Itoa(revision),
			Type:          "author-comment",
			Stage:         "pre-publication",
			Contributors:  contributors(round.AuthorReply.Authors),
			Titles: titlesXML{Title: expand(cfg.AuthorReplyTitleTemplate, map[string]string{
				"article_title": a.Title,
			})},
			ReviewDate:    reviewDate,
			Institution:   institution,
			RunningNumber: "Author Reply",
			Program:       programXML{RelatedItems: relations},
			DoiData: doiDataXML{
				DOI: round.AuthorReply.DOI,
				Resource: expand(cfg.AuthorReplyResourceURLTemplate, map[string]string{
					"article_doi": a.DOI,
					"revision":    strconv.Itoa(revision),
				}),
			},
		})
	}
	return elements, nil
}

// contributors renders authors as person_name elements. The first author
// gets sequence "first", everyone else "additional".
func contributors(authors []article.Author) contributorsXML {
	var names []personNameXML
	for i, author := range authors {
		sequence := "additional"
		if i == 0 {
			sequence = "first"
		}
		name := personNameXML{
			Sequence:        sequence,
			ContributorRole: "author",
			GivenName:       author.GivenName,
			Surname:         author.Surname,
		}
		if len(author.Institutions) > 0 {
			affiliations := &affiliationsXML{}
			for _, inst := range author.Institutions {
				affiliations.Institutions = append(affiliations.Institutions, institutionElement(inst))
			}
			name.Affiliations = affiliations
		}
		if author.Orcid != nil {
			name.Orcid = &orcidXML{
				Authenticated: strconv.FormatBool(author.Orcid.IsAuthenticated),
				Value:         author.Orcid.ID,
			}
		}
		names = append(names, name)
	}
	return contributorsXML{PersonNames: names}
}

// institutionElement renders an affiliation. City and country are joined
// into the institution_place; entries shorter than two characters are
// treated as noise and dropped.
func institutionElement(inst article.Institution) institutionXML {
	city := inst.City
	if len(city) < 2 {
		city = ""
	}
	country := inst.Country
	if len(country) < 2 {
		country = ""
	}
	place := city
	switch {
	case city != "" && country != "":
		place = city + ", " + country
	case country != "":
		place = country
	}
	return institutionXML{
		InstitutionName:       inst.Name,
		InstitutionDepartment: inst.Department,
		InstitutionPlace:      place,
	}
}

func expand(template string, vars map[string]string) string {
	return os.Expand(template, func(name string) string {
		return vars[name]
	})
}

// Serialization types for the doi_batch deposition. The rel: prefix is
// emitted literally; the matching xmlns:rel declaration sits on the root.

type doiBatchXML struct {
	XMLName        xml.Name `xml:"doi_batch"`
	Xmlns          string   `xml:"xmlns,attr"`
	XmlnsRel       string   `xml:"xmlns:rel,attr"`
	XmlnsXsi       string   `xml:"xmlns:xsi,attr"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr"`
	Version        string   `xml:"version,attr"`
	Head           headXML  `xml:"head"`
	Body           bodyXML  `xml:"body"`
}

type headXML struct {
	DoiBatchID string       `xml:"doi_batch_id"`
	Timestamp  int64        `xml:"timestamp"`
	Depositor  depositorXML `xml:"depositor"`
	Registrant string       `xml:"registrant"`
}

type depositorXML struct {
	DepositorName string `xml:"depositor_name"`
	EmailAddress  string `xml:"email_address"`
}

type bodyXML struct {
	PeerReviews []peerReviewXML `xml:"peer_review"`
}

type peerReviewXML struct {
	Language      string          `xml:"language,attr"`
	RevisionRound string          `xml:"revision-round,attr"`
	Stage         string          `xml:"stage,attr"`
	Type          string          `xml:"type,attr"`
	Contributors  contributorsXML `xml:"contributors"`
	Titles        titlesXML       `xml:"titles"`
	ReviewDate    reviewDateXML   `xml:"review_date"`
	Institution   *institutionXML `xml:"institution,omitempty"`
	RunningNumber string          `xml:"running_number"`
	Program       programXML      `xml:"rel:program"`
	DoiData       doiDataXML      `xml:"doi_data"`
}

type contributorsXML struct {
	Anonymous   *anonymousXML   `xml:"anonymous,omitempty"`
	PersonNames []personNameXML `xml:"person_name"`
}

type anonymousXML struct {
	Sequence        string `xml:"sequence,attr"`
	ContributorRole string `xml:"contributor_role,attr"`
}

type personNameXML struct {
	Sequence        string           `xml:"sequence,attr"`
	ContributorRole string           `xml:"contributor_role,attr"`
	GivenName       string           `xml:"given_name,omitempty"`
	Surname         string           `xml:"surname"`
	Affiliations    *affiliationsXML `xml:"affiliations,omitempty"`
	Orcid           *orcidXML        `xml:"ORCID,omitempty"`
}

type affiliationsXML struct {
	Institutions []institutionXML `xml:"institution"`
}

type institutionXML struct {
	InstitutionName       string `xml:"institution_name,omitempty"`
	InstitutionDepartment string `xml:"institution_department,omitempty"`
	InstitutionPlace      string `xml:"institution_place,omitempty"`
}

type titlesXML struct {
	Title string `xml:"title"`
}

type reviewDateXML struct {
	Month string `xml:"month"`
	Day   string `xml:"day"`
	Year  string `xml:"year"`
}

type orcidXML struct {
	Authenticated string `xml:"authenticated,attr"`
	Value         string `xml:",chardata"`
}

type programXML struct {
	RelatedItems []relatedItemXML `xml:"rel:related_item"`
}

type relatedItemXML struct {
	InterWorkRelation interWorkRelationXML `xml:"rel:inter_work_relation"`
}

type interWorkRelationXML struct {
	RelationshipType string `xml:"relationship-type,attr"`
	IdentifierType   string `xml:"identifier-type,attr"`
	Value            string `xml:",chardata"`
}

type doiDataXML struct {
	DOI      string `xml:"doi"`
	Resource string `xml:"resource"`
}
