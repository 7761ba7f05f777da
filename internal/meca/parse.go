package meca

import (
	"errors"
	"fmt"

	"github.com/mecatools/peerdoi/internal/article"
)

// DefaultPreprintDOIMetaName is the custom-meta field name under which the
// source platform records the DOI of the preprint a manuscript is based on.
// The lookup is string-exact; see Options.PreprintDOIMetaName.
const DefaultPreprintDOIMetaName = "Pre-existing BioRxiv Preprint DOI"

// Options adjust how ParseManuscript reads an archive.
type Options struct {
	// PreprintDOIMetaName overrides the custom-meta field name that carries
	// the preprint DOI. Empty means DefaultPreprintDOIMetaName. The match is
	// exact by design: the field name is vendor-specific and silently
	// loosening it would risk picking up unrelated metadata.
	PreprintDOIMetaName string
}

// ParseManuscript reads the MECA archive at the given path into a
// Manuscript. A missing or unparsable article-metadata file is fatal and
// reported as an ArchiveError. Missing review metadata is not an error:
// the manuscript's review process is nil then.
func ParseManuscript(path string, opts Options) (*article.Manuscript, error) {
	archive, err := Open(path)
	if err != nil {
		return nil, err
	}
	return parseManuscript(archive, opts)
}

func parseManuscript(archive *Archive, opts Options) (*article.Manuscript, error) {
	fail := func(err error) (*article.Manuscript, error) {
		var archiveErr *ArchiveError
		if errors.As(err, &archiveErr) {
			return nil, err
		}
		return nil, &ArchiveError{Path: archive.Path(), Err: err}
	}

	var articleDoc articleXML
	if err := archive.DecodeFileXML(TypeArticleMetadata, "", &articleDoc); err != nil {
		return fail(fmt.Errorf("article metadata: %w", err))
	}
	meta := &articleDoc.Front.ArticleMeta

	doi := meta.articleID("doi")
	if doi == "" {
		return fail(errors.New("article metadata: no article-id of type doi"))
	}
	title := meta.TitleGroup.ArticleTitle.String()
	if title == "" {
		return fail(errors.New("article metadata: no article title"))
	}

	authors := meta.ContribGroup.contributors("author")

	preprintMetaName := opts.PreprintDOIMetaName
	if preprintMetaName == "" {
		preprintMetaName = DefaultPreprintDOIMetaName
	}

	reviewProcess, err := parseReviewProcess(archive, authors)
	if err != nil {
		return fail(err)
	}

	text := map[string]string{}
	if meta.Abstract != nil {
		text["abstract"] = meta.Abstract.String()
	}

	return &article.Manuscript{
		Work: article.Work{
			Authors: authors,
			Text:    text,
		},
		DOI:           doi,
		Title:         title,
		PreprintDOI:   meta.customMetaValue(preprintMetaName),
		Journal:       articleDoc.Front.JournalMeta.JournalTitle.String(),
		ReviewProcess: reviewProcess,
	}, nil
}

// parseReviewProcess builds the revision rounds from the archive's review
// metadata. It returns nil rounds (and no error) when the archive has no
// review-metadata file: "no review information" is distinct from "zero
// rounds".
func parseReviewProcess(archive *Archive, manuscriptAuthors []article.Author) ([]article.RevisionRound, error) {
	var reviewGroup reviewGroupXML
	if err := archive.DecodeFileXML(TypeReviewMetadata, "", &reviewGroup); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("review metadata: %w", err)
	}

	authorReplies := archive.FilesOfType(TypeAuthorReply, "")
	rounds, err := buildReviewProcess(&reviewGroup, manuscriptAuthors, authorReplies)
	if err != nil {
		return nil, fmt.Errorf("review metadata: %w", err)
	}
	return rounds, nil
}
