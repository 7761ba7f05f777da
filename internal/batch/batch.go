// Package batch drives the two-stage pipeline: registering incoming
// archives in the batch database, and depositing DOIs for the registered
// archives that are ready.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/mecatools/peerdoi/internal/article"
	"github.com/mecatools/peerdoi/internal/crossref"
	"github.com/mecatools/peerdoi/internal/eeb"
	"github.com/mecatools/peerdoi/internal/meca"
	"github.com/mecatools/peerdoi/internal/store"
)

// ParseOptions adjust the parse stage.
type ParseOptions struct {
	// PreprintDOIMetaName is passed through to the archive parser.
	PreprintDOIMetaName string

	Logger *slog.Logger
}

// Parse registers all given files as potential MECA archives in the batch
// database. Every file gets a record: unparsable files are stored as
// invalid, parsable ones are classified by whether they carry a preprint
// DOI, reviews, and a DOI not seen before. A failure on one file never
// affects the others.
func Parse(files []string, db *store.DB, opts ParseOptions) ([]*store.ParsedFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	parsed := make([]*store.ParsedFile, 0, len(sorted))
	for _, path := range sorted {
		parsed = append(parsed, parseOne(path, db, opts, logger))
	}
	if err := db.InsertParsedFiles(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func parseOne(path string, db *store.DB, opts ParseOptions, logger *slog.Logger) *store.ParsedFile {
	result := &store.ParsedFile{Path: path, ReceivedAt: receivedAt(path)}

	manuscript, err := meca.ParseManuscript(path, meca.Options{
		PreprintDOIMetaName: opts.PreprintDOIMetaName,
	})
	if err != nil {
		logger.Info("invalid MECA archive", slog.String("path", path), slog.String("error", err.Error()))
		result.Status = store.StatusInvalid
		return result
	}

	result.Manuscript = manuscript
	result.DOI = manuscript.PreprintDOI
	switch {
	case result.DOI == "":
		result.Status = store.StatusNoDOI
	case len(manuscript.ReviewProcess) == 0:
		result.Status = store.StatusNoReviews
	default:
		known, err := db.ParsedFilesWithDOI(result.DOI)
		if err != nil {
			logger.Warn("duplicate check failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		if len(known) > 0 {
			result.Status = store.StatusDuplicate
		} else {
			result.Status = store.StatusValid
		}
	}
	return result
}

// receivedAt is the file's modification time, the closest thing to the
// time the archive arrived.
func receivedAt(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}

// Depositor bundles the collaborators of the deposit stage.
type Depositor struct {
	DB        *store.DB
	Generator article.Generator
	EEB       *eeb.Client
	Crossref  *crossref.Client
	Config    crossref.GenerateConfig

	// DryRun skips the Crossref upload and the database writes.
	DryRun bool

	Logger *slog.Logger
}

// Deposit tries to deposit DOIs for each given parsed file. For every file
// a deposition is generated, verified against the platform hosting the
// reviews, and sent to Crossref. The outcome of each attempt is recorded
// in the batch database unless DryRun is set. Files fail independently:
// one bad archive never blocks the rest of the run.
//
// Returns all attempts and the articles whose DOIs were actually deposited.
func Deposit(ctx context.Context, files []*store.ParsedFile, d Depositor) ([]*store.DepositionAttempt, []article.Article, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, file := range files {
		if file.ID == 0 || file.Manuscript == nil ||
			file.Manuscript.PreprintDOI == "" || len(file.Manuscript.ReviewProcess) == 0 {
			return nil, nil, fmt.Errorf("file %q is not ready for deposition", file.Path)
		}
	}

	var (
		attempts  []*store.DepositionAttempt
		deposited []article.Article
	)
	for _, file := range files {
		attempt := &store.DepositionAttempt{
			ParsedFileID: file.ID,
			AttemptedAt:  time.Now(),
		}
		attempts = append(attempts, attempt)

		a, err := article.AssignDOIs(file.Manuscript, file.ReceivedAt, d.Generator, article.AssignOptions{})
		if err == nil {
			attempt.Deposition, err = crossref.Generate([]article.Article{*a}, d.Config)
		}
		if err != nil {
			logger.Warn("generating deposition failed",
				slog.String("path", file.Path), slog.String("error", err.Error()))
			attempt.Status = store.AttemptGenerationFailed
			continue
		}

		result := verifyDeposition(ctx, attempt.Deposition, d.EEB, file.Path)
		if !result.OK() {
			if result.Checked && !result.NoDOIsAssigned {
				attempt.Status = store.AttemptDoisAlreadyPresent
				logger.Info("DOIs already present",
					slog.String("path", file.Path), slog.String("error", result.Error))
			} else {
				attempt.Status = store.AttemptVerificationFailed
				logger.Warn("verification failed",
					slog.String("path", file.Path), slog.String("error", result.Error))
			}
			continue
		}

		if d.DryRun {
			attempt.Status = store.AttemptSucceeded
			continue
		}

		if _, err := d.Crossref.Deposit(ctx, attempt.Deposition); err != nil {
			logger.Warn("deposition failed",
				slog.String("path", file.Path), slog.String("error", err.Error()))
			attempt.Status = store.AttemptFailed
			continue
		}
		attempt.Status = store.AttemptSucceeded
		deposited = append(deposited, *a)
		logger.Info("deposited",
			slog.String("path", file.Path), slog.String("doi", a.DOI))
	}

	if !d.DryRun {
		if err := d.DB.InsertDepositionAttempts(attempts); err != nil {
			return nil, nil, err
		}
	}
	return attempts, deposited, nil
}

// verifyDeposition wraps crossref.Verify so that a failure to verify is an
// attempt outcome, not a run-aborting error.
func verifyDeposition(ctx context.Context, deposition string, client *eeb.Client, path string) crossref.VerificationResult {
	results, err := crossref.Verify(ctx, deposition, client)
	if err != nil {
		return crossref.VerificationResult{PreprintDOI: path, Error: err.Error()}
	}
	if len(results) != 1 {
		return crossref.VerificationResult{
			PreprintDOI: path,
			Error:       fmt.Sprintf("deposition covers %d preprints, want exactly one", len(results)),
		}
	}
	return results[0]
}
