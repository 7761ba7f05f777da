package meca

import (
	"encoding/xml"
	"html"
	"strings"
)

// richText collects the text content of an element including all nested
// markup, the way a reader would see it. Tags are dropped, character data
// is concatenated, remaining entity references are resolved, and the result
// is trimmed of surrounding whitespace.
type richText string

func (t *richText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := token.(type) {
		case xml.CharData:
			sb.Write(tok)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	*t = richText(normalizeText(sb.String()))
	return nil
}

func (t richText) String() string {
	return string(t)
}

// normalizeText resolves entity references that survived XML decoding and
// strips surrounding whitespace.
func normalizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
