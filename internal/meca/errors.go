package meca

import (
	"errors"
	"fmt"
)

// Common errors returned when reading a MECA archive.
var (
	// ErrBadZip indicates the file is not a readable ZIP archive.
	ErrBadZip = errors.New("bad zip file")

	// ErrMissingManifest indicates the archive has no manifest file.
	ErrMissingManifest = errors.New("missing manifest file")

	// ErrFileNotFound indicates the manifest lists no file of the requested type.
	ErrFileNotFound = errors.New("no file of requested type")

	// ErrMultipleFiles indicates the manifest lists more than one file where
	// exactly one was expected.
	ErrMultipleFiles = errors.New("multiple files of requested type")
)

// ArchiveError describes why a file could not be processed as a MECA archive.
// It is fatal for that one archive, never for a whole batch.
type ArchiveError struct {
	Path string // the archive file
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("not a valid MECA archive %q: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// IsArchiveError reports whether err stems from an unusable archive.
func IsArchiveError(err error) bool {
	var archiveErr *ArchiveError
	return errors.As(err, &archiveErr)
}
