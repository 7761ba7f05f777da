// Package article defines the normalized model for a manuscript and its
// peer-review history, plus the transformation that assigns DOIs to every
// review and author reply.
package article

import "time"

// Orcid is the ORCID identifier of an author.
type Orcid struct {
	// ID is the identifier itself, usually a URL to an ORCID page.
	ID string `json:"id" yaml:"id"`

	// IsAuthenticated reports whether the ORCID service verified that this
	// ORCID belongs to the author, as opposed to the author just typing it in.
	IsAuthenticated bool `json:"is_authenticated" yaml:"is_authenticated"`
}

// Institution is an institution an author is affiliated with.
// Only the name is required.
type Institution struct {
	Name       string `json:"name" yaml:"name"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
	City       string `json:"city,omitempty" yaml:"city,omitempty"`
	Country    string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Author is an author of a scholarly work. Authors are value objects:
// two authors with the same fields are the same author.
type Author struct {
	GivenName string `json:"given_name" yaml:"given_name"`
	Surname   string `json:"surname" yaml:"surname"`

	// Orcid is nil when the source metadata carries no ORCID for this author.
	Orcid *Orcid `json:"orcid,omitempty" yaml:"orcid,omitempty"`

	Institutions []Institution `json:"institutions,omitempty" yaml:"institutions,omitempty"`

	IsCorresponding bool `json:"is_corresponding" yaml:"is_corresponding"`
}

// Work is the shared shape of an article, a referee report, and an author
// reply: a set of authors and free-text sections keyed by section title.
// An empty author list means the work is anonymous.
type Work struct {
	Authors []Author `json:"authors" yaml:"authors"`

	// Text maps section titles ("abstract", "Significance (Required)", ...)
	// to their content. Keys are unique; insertion order is irrelevant.
	Text map[string]string `json:"text" yaml:"text"`
}

// Review is a referee report within a revision round.
type Review struct {
	Work `yaml:",inline"`

	// RunningNumber is the 1-based position of this report within its
	// revision round, derived by sorting reports by their assigned date.
	// Referee reports are usually anonymous, so the running number is how
	// authors identify which report they are replying to.
	RunningNumber string `json:"running_number" yaml:"running_number"`

	// DOI is empty until assigned by AssignDOIs.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// AuthorReply is the reply by the article authors to the reviews of one
// revision round. It is attributed to the manuscript authors collectively.
type AuthorReply struct {
	Work `yaml:",inline"`

	// DOI is empty until assigned by AssignDOIs.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// RevisionRound is one cycle of peer review: an ordered list of referee
// reports and at most one author reply.
type RevisionRound struct {
	// RevisionID is taken from the archive manifest's version attribute.
	// It is unique within one manuscript but not globally.
	RevisionID string `json:"revision_id" yaml:"revision_id"`

	Reviews []Review `json:"reviews" yaml:"reviews"`

	// AuthorReply is nil when this round has no reply.
	AuthorReply *AuthorReply `json:"author_reply,omitempty" yaml:"author_reply,omitempty"`
}

// Manuscript is the article packaged in a MECA archive, as parsed.
// It is created once per archive parse and never mutated afterwards.
type Manuscript struct {
	Work `yaml:",inline"`

	// DOI is the manuscript's own DOI, registered by the source journal.
	DOI string `json:"doi" yaml:"doi"`

	Title string `json:"title" yaml:"title"`

	// PreprintDOI is the DOI of the preprint this manuscript's review
	// process is about. Empty when the archive carries none; a preprint DOI
	// is required for deposition.
	PreprintDOI string `json:"preprint_doi,omitempty" yaml:"preprint_doi,omitempty"`

	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// ReviewProcess is nil when the archive contained no review metadata at
	// all, which is distinct from an empty list of rounds.
	ReviewProcess []RevisionRound `json:"review_process,omitempty" yaml:"review_process,omitempty"`
}

// Article is a manuscript whose reviews and replies all carry DOIs, ready
// for deposition. Its DOI is the preprint DOI the reviews are about.
// An Article is derived from exactly one Manuscript and never mutated;
// a new deposition attempt constructs a new Article.
type Article struct {
	DOI   string `json:"doi" yaml:"doi"`
	Title string `json:"title" yaml:"title"`

	// PublicationDate is the date under which the reviews and replies are
	// registered as published.
	PublicationDate time.Time `json:"publication_date" yaml:"publication_date"`

	ReviewProcess []RevisionRound `json:"review_process" yaml:"review_process"`
}
