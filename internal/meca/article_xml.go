package meca

import (
	"encoding/xml"

	"github.com/mecatools/peerdoi/internal/article"
)

// articleXML is the canonical mapping of a JATS article-metadata file,
// reduced to the elements this tool reads.
type articleXML struct {
	XMLName xml.Name `xml:"article"`
	Front   frontXML `xml:"front"`
}

type frontXML struct {
	JournalMeta journalMetaXML `xml:"journal-meta"`
	ArticleMeta articleMetaXML `xml:"article-meta"`
}

type journalMetaXML struct {
	JournalTitle richText `xml:"journal-title-group>journal-title"`
}

type articleMetaXML struct {
	ArticleIDs   []articleIDXML   `xml:"article-id"`
	TitleGroup   titleGroupXML    `xml:"title-group"`
	ContribGroup *contribGroupXML `xml:"contrib-group"`
	Abstract     *richText        `xml:"abstract"`
	CustomMeta   []customMetaXML  `xml:"custom-meta-group>custom-meta"`
}

type articleIDXML struct {
	PubIDType string `xml:"pub-id-type,attr"`
	Value     string `xml:",chardata"`
}

type titleGroupXML struct {
	ArticleTitle richText `xml:"article-title"`
}

type customMetaXML struct {
	Name  richText `xml:"meta-name"`
	Value richText `xml:"meta-value"`
}

// contribGroupXML holds contributors and the affiliations they point into.
// It appears in article metadata (authors) and in review metadata (reviewers).
type contribGroupXML struct {
	Contribs []contribXML `xml:"contrib"`
	Affs     []affXML     `xml:"aff"`
}

type contribXML struct {
	ContribType string         `xml:"contrib-type,attr"`
	Corresp     string         `xml:"corresp,attr"`
	ContribIDs  []contribIDXML `xml:"contrib-id"`
	Name        nameXML        `xml:"name"`
	Xrefs       []xrefXML      `xml:"xref"`
}

type contribIDXML struct {
	Type        string `xml:"contrib-id-type,attr"`
	SpecificUse string `xml:"specific-use,attr"`
	Value       string `xml:",chardata"`
}

type nameXML struct {
	Surname    richText `xml:"surname"`
	GivenNames richText `xml:"given-names"`
}

type xrefXML struct {
	RefType string `xml:"ref-type,attr"`
	RID     string `xml:"rid,attr"`
}

type affXML struct {
	ID           string              `xml:"id,attr"`
	Institutions []affInstitutionXML `xml:"institution"`
	City         richText            `xml:"city"`
	Country      richText            `xml:"country"`
}

type affInstitutionXML struct {
	ContentType string `xml:"content-type,attr"`
	Value       string `xml:",chardata"`
}

// articleID returns the text of the article-id element with the given
// pub-id-type attribute, or "" when absent.
func (m *articleMetaXML) articleID(pubIDType string) string {
	for _, id := range m.ArticleIDs {
		if id.PubIDType == pubIDType {
			return normalizeText(id.Value)
		}
	}
	return ""
}

// customMetaValue returns the value of the custom-meta entry whose name
// matches exactly, or "" when absent. The match is deliberately
// string-exact: the sentinel names are load-bearing for the archive
// corpus this tool processes.
func (m *articleMetaXML) customMetaValue(name string) string {
	for _, meta := range m.CustomMeta {
		if meta.Name.String() == name {
			return meta.Value.String()
		}
	}
	return ""
}

// contributors extracts all contributors of the given type as Authors,
// resolving affiliations through their aff cross-references.
func (cg *contribGroupXML) contributors(contribType string) []article.Author {
	if cg == nil {
		return nil
	}

	var authors []article.Author
	for _, contrib := range cg.Contribs {
		if contrib.ContribType != contribType {
			continue
		}
		authors = append(authors, article.Author{
			GivenName:       contrib.Name.GivenNames.String(),
			Surname:         contrib.Name.Surname.String(),
			Orcid:           contrib.orcid(),
			Institutions:    cg.institutionsFor(contrib),
			IsCorresponding: contrib.Corresp == "yes",
		})
	}
	return authors
}

// orcid returns the contributor's ORCID, or nil when none is listed.
func (c *contribXML) orcid() *article.Orcid {
	for _, id := range c.ContribIDs {
		if id.Type != "orcid" {
			continue
		}
		return &article.Orcid{
			ID:              normalizeText(id.Value),
			IsAuthenticated: id.SpecificUse == "authenticated",
		}
	}
	return nil
}

// institutionsFor resolves the contributor's aff cross-references into
// institutions. Contributors without a resolvable affiliation get none.
func (cg *contribGroupXML) institutionsFor(contrib contribXML) []article.Institution {
	var institutions []article.Institution
	for _, xref := range contrib.Xrefs {
		if xref.RefType != "aff" || xref.RID == "" {
			continue
		}
		for _, aff := range cg.Affs {
			if aff.ID != xref.RID {
				continue
			}
			if inst, ok := aff.institution(); ok {
				institutions = append(institutions, inst)
			}
		}
	}
	return institutions
}

// institution builds the Institution described by this aff element.
// The first institution entry without a content-type is the name; an entry
// typed "dept" is the department.
func (a *affXML) institution() (article.Institution, bool) {
	inst := article.Institution{
		City:    a.City.String(),
		Country: a.Country.String(),
	}
	for _, entry := range a.Institutions {
		value := normalizeText(entry.Value)
		if value == "" {
			continue
		}
		switch entry.ContentType {
		case "dept":
			if inst.Department == "" {
				inst.Department = value
			}
		default:
			if inst.Name == "" {
				inst.Name = value
			}
		}
	}
	if inst.Name == "" {
		return article.Institution{}, false
	}
	return inst, true
}
