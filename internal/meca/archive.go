// Package meca reads Manuscript Exchange Common Approach (MECA) archives.
//
// A MECA archive is a ZIP file that must contain a manifest indexing every
// bundled file by type, and through it a file with article metadata. It can
// additionally contain review metadata and author-reply attachments.
// ParseManuscript is the main entrypoint; it parses an archive into the
// normalized article.Manuscript model.
package meca

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Manifest item types of interest. AuthorReply attachments are specific to
// archives exported from eJP.
const (
	TypeArticleMetadata = "article-metadata"
	TypeReviewMetadata  = "review-metadata"
	TypeAuthorReply     = "Response to Reviewers"
)

const manifestFilename = "manifest.xml"

// File is an entry of the archive manifest, one per bundled file.
type File struct {
	ID        string
	Name      string // path of the file within the archive
	MediaType string
	Type      string
	Version   string
}

// Archive gives access to the files of a MECA archive through its manifest.
// The ZIP file is re-opened for every read, so an Archive holds no open
// file handles between calls.
type Archive struct {
	path  string
	files []File
}

// Open reads the manifest of the MECA archive at the given path.
// Returns an ArchiveError wrapping ErrBadZip or ErrMissingManifest when the
// file is not a ZIP or carries no manifest.
func Open(path string) (*Archive, error) {
	a := &Archive{path: path}

	data, err := a.readEntry(manifestFilename)
	if err != nil {
		return nil, err
	}

	var manifest manifestXML
	if err := decodeXML(data, &manifest); err != nil {
		return nil, &ArchiveError{Path: path, Err: fmt.Errorf("parsing manifest: %w", err)}
	}

	for _, item := range manifest.Items {
		file := File{
			ID:      item.ID,
			Type:    item.Type,
			Version: item.Version,
		}
		if len(item.Instances) > 0 {
			file.Name = item.Instances[0].Href
			file.MediaType = item.Instances[0].MediaType
		}
		a.files = append(a.files, file)
	}

	return a, nil
}

// Path returns the path of the underlying ZIP file.
func (a *Archive) Path() string {
	return a.path
}

// Files returns all manifest entries in manifest order.
func (a *Archive) Files() []File {
	return append([]File(nil), a.files...)
}

// FilesOfType returns all manifest entries of the given type, in manifest
// order. An empty version matches any version.
func (a *Archive) FilesOfType(fileType string, version string) []File {
	var files []File
	for _, f := range a.files {
		if f.Type != fileType {
			continue
		}
		if version != "" && f.Version != version {
			continue
		}
		files = append(files, f)
	}
	return files
}

// FileOfType returns the single manifest entry of the given type.
// Returns ErrFileNotFound or ErrMultipleFiles when the manifest lists zero
// or more than one matching entry.
func (a *Archive) FileOfType(fileType string, version string) (File, error) {
	files := a.FilesOfType(fileType, version)
	switch len(files) {
	case 0:
		return File{}, fmt.Errorf("%w: type %q version %q", ErrFileNotFound, fileType, version)
	case 1:
		return files[0], nil
	default:
		return File{}, fmt.Errorf("%w: type %q version %q", ErrMultipleFiles, fileType, version)
	}
}

// ReadFile returns the content of the given manifest entry.
func (a *Archive) ReadFile(file File) ([]byte, error) {
	return a.readEntry(file.Name)
}

// DecodeFileXML finds the single file of the given type and decodes its
// XML content into v.
func (a *Archive) DecodeFileXML(fileType string, version string, v any) error {
	file, err := a.FileOfType(fileType, version)
	if err != nil {
		return err
	}
	data, err := a.ReadFile(file)
	if err != nil {
		return err
	}
	if err := decodeXML(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", file.Name, err)
	}
	return nil
}

// readEntry opens the ZIP archive and reads the named entry.
func (a *Archive) readEntry(name string) ([]byte, error) {
	zr, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, &ArchiveError{Path: a.path, Err: fmt.Errorf("%w: %v", ErrBadZip, err)}
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.Name != name {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, &ArchiveError{Path: a.path, Err: fmt.Errorf("opening %s: %w", name, err)}
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &ArchiveError{Path: a.path, Err: fmt.Errorf("reading %s: %w", name, err)}
		}
		return data, nil
	}

	if name == manifestFilename {
		return nil, &ArchiveError{Path: a.path, Err: ErrMissingManifest}
	}
	return nil, &ArchiveError{Path: a.path, Err: fmt.Errorf("%w: %s", ErrFileNotFound, name)}
}

// manifestXML is the canonical mapping of a MECA manifest file.
type manifestXML struct {
	XMLName xml.Name          `xml:"manifest"`
	Items   []manifestItemXML `xml:"item"`
}

type manifestItemXML struct {
	ID        string                `xml:"id,attr"`
	Type      string                `xml:"type,attr"`
	Version   string                `xml:"version,attr"`
	Instances []manifestInstanceXML `xml:"instance"`
}

type manifestInstanceXML struct {
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// decodeXML parses data into v. The decoder is non-strict and resolves
// HTML entity references, which MECA metadata files use liberally.
func decodeXML(data []byte, v any) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}
