// Package store keeps records of parsed archives and deposition attempts
// in a sqlite database. Manuscripts are serialized to YAML for storage, so
// the archive file itself is not needed once it has been parsed.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/mecatools/peerdoi/internal/article"
)

// ParsedStatus classifies a parsed file's fitness for deposition.
type ParsedStatus string

const (
	// StatusInvalid marks files that could not be parsed as MECA archives.
	StatusInvalid ParsedStatus = "invalid"
	// StatusNoDOI marks archives without a preprint DOI.
	StatusNoDOI ParsedStatus = "no-doi"
	// StatusNoReviews marks archives without reviews or author replies.
	StatusNoReviews ParsedStatus = "no-reviews"
	// StatusDuplicate marks archives whose preprint DOI is already known.
	StatusDuplicate ParsedStatus = "duplicate"
	// StatusValid marks archives that are ready for deposition.
	StatusValid ParsedStatus = "valid"
)

// AttemptStatus classifies the outcome of a deposition attempt.
type AttemptStatus string

const (
	AttemptGenerationFailed   AttemptStatus = "generation-failed"
	AttemptDoisAlreadyPresent AttemptStatus = "dois-already-present"
	AttemptVerificationFailed AttemptStatus = "verification-failed"
	AttemptFailed             AttemptStatus = "failed"
	AttemptSucceeded          AttemptStatus = "succeeded"
)

// ParsedFile is a file that was registered as a potential MECA archive.
type ParsedFile struct {
	ID int64 `json:"id"`

	// Path the file resided under when it was parsed. It is not guaranteed
	// to still be there.
	Path string `json:"path"`

	// ReceivedAt is when the file arrived, taken from its modification time.
	ReceivedAt time.Time `json:"received_at"`

	// Manuscript is nil when parsing the file as a MECA archive failed.
	Manuscript *article.Manuscript `json:"manuscript,omitempty"`

	// DOI is the preprint DOI the archive's reviews belong to, if any.
	DOI string `json:"doi,omitempty"`

	Status ParsedStatus `json:"status"`
}

// DepositionAttempt records one try at depositing DOIs for a parsed file.
type DepositionAttempt struct {
	ID           int64         `json:"id"`
	ParsedFileID int64         `json:"parsed_file_id"`
	Deposition   string        `json:"deposition,omitempty"`
	AttemptedAt  time.Time     `json:"attempted_at"`
	Status       AttemptStatus `json:"status"`
}

// DB is the batch database.
type DB struct {
	db *sql.DB
}

// Open opens the batch database at the given path, creating the schema if
// needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening batch database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS parsed_file (
  id INTEGER PRIMARY KEY,
  path TEXT NOT NULL,
  received_at TIMESTAMP NOT NULL,
  manuscript TEXT,
  doi TEXT,
  status TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS deposition_attempt (
  id INTEGER PRIMARY KEY,
  id_parsed_file INTEGER NOT NULL,
  deposition TEXT,
  attempted_at TIMESTAMP NOT NULL,
  status TEXT NOT NULL,
  FOREIGN KEY(id_parsed_file) REFERENCES parsed_file(id)
)`,
	}
	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing batch database: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertParsedFiles stores the given files and backfills their IDs.
func (d *DB) InsertParsedFiles(files []*ParsedFile) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("inserting parsed files: %w", err)
	}
	defer tx.Rollback()

	for _, file := range files {
		manuscript, err := marshalManuscript(file.Manuscript)
		if err != nil {
			return fmt.Errorf("serializing manuscript for %q: %w", file.Path, err)
		}
		result, err := tx.Exec(
			`INSERT INTO parsed_file (path, received_at, manuscript, doi, status) VALUES (?, ?, ?, ?, ?)`,
			file.Path, formatTime(file.ReceivedAt), manuscript, file.DOI, string(file.Status),
		)
		if err != nil {
			return fmt.Errorf("inserting parsed file %q: %w", file.Path, err)
		}
		file.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("inserting parsed file %q: %w", file.Path, err)
		}
	}
	return tx.Commit()
}

// InsertDepositionAttempts stores the given attempts and backfills their IDs.
func (d *DB) InsertDepositionAttempts(attempts []*DepositionAttempt) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("inserting deposition attempts: %w", err)
	}
	defer tx.Rollback()

	for _, attempt := range attempts {
		result, err := tx.Exec(
			`INSERT INTO deposition_attempt (id_parsed_file, deposition, attempted_at, status) VALUES (?, ?, ?, ?)`,
			attempt.ParsedFileID, attempt.Deposition, formatTime(attempt.AttemptedAt), string(attempt.Status),
		)
		if err != nil {
			return fmt.Errorf("inserting deposition attempt for file %d: %w", attempt.ParsedFileID, err)
		}
		attempt.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("inserting deposition attempt for file %d: %w", attempt.ParsedFileID, err)
		}
	}
	return tx.Commit()
}

const selectParsedFile = `SELECT p.id, p.path, p.received_at, p.manuscript, p.doi, p.status FROM parsed_file AS p `

// ParsedFilesBetween fetches all parsed files received between the given
// times, ordered by ID.
func (d *DB) ParsedFilesBetween(after, before time.Time) ([]*ParsedFile, error) {
	return d.queryParsedFiles(
		selectParsedFile+`WHERE p.received_at > ? AND p.received_at < ? ORDER BY p.id`,
		formatTime(after), formatTime(before),
	)
}

// ParsedFilesWithDOI fetches all parsed files recorded under the given
// preprint DOI.
func (d *DB) ParsedFilesWithDOI(doi string) ([]*ParsedFile, error) {
	return d.queryParsedFiles(selectParsedFile+`WHERE p.doi = ? ORDER BY p.id`, doi)
}

// FilesReadyForDeposition fetches valid parsed files without any deposition
// attempt, received between the given times.
func (d *DB) FilesReadyForDeposition(after, before time.Time) ([]*ParsedFile, error) {
	return d.queryParsedFiles(
		selectParsedFile+`WHERE p.received_at > ? AND p.received_at < ?
  AND p.status = ?
  AND p.id NOT IN (SELECT id_parsed_file FROM deposition_attempt)
ORDER BY p.id`,
		formatTime(after), formatTime(before), string(StatusValid),
	)
}

// FilesToRetryDeposition fetches parsed files whose most recent deposition
// attempt failed or could not be verified, received between the given times.
func (d *DB) FilesToRetryDeposition(after, before time.Time) ([]*ParsedFile, error) {
	return d.queryParsedFiles(
		selectParsedFile+`WHERE p.received_at > ? AND p.received_at < ?
  AND p.id IN (
    SELECT id_parsed_file FROM (
      SELECT id_parsed_file, MAX(attempted_at), status
      FROM deposition_attempt
      GROUP BY id_parsed_file
    ) WHERE status IN (?, ?)
  )
ORDER BY p.id`,
		formatTime(after), formatTime(before),
		string(AttemptFailed), string(AttemptVerificationFailed),
	)
}

// ParsedFilePaths returns the paths of all registered files.
func (d *DB) ParsedFilePaths() ([]string, error) {
	rows, err := d.db.Query(`SELECT path FROM parsed_file ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("fetching file paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// DepositionAttemptsForFile fetches all attempts recorded for the given
// parsed file, oldest first.
func (d *DB) DepositionAttemptsForFile(parsedFileID int64) ([]*DepositionAttempt, error) {
	rows, err := d.db.Query(
		`SELECT id, id_parsed_file, deposition, attempted_at, status FROM deposition_attempt WHERE id_parsed_file = ? ORDER BY id`,
		parsedFileID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching deposition attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*DepositionAttempt
	for rows.Next() {
		var (
			attempt     DepositionAttempt
			deposition  sql.NullString
			attemptedAt string
			status      string
		)
		if err := rows.Scan(&attempt.ID, &attempt.ParsedFileID, &deposition, &attemptedAt, &status); err != nil {
			return nil, err
		}
		attempt.Deposition = deposition.String
		attempt.Status = AttemptStatus(status)
		attempt.AttemptedAt, err = parseTime(attemptedAt)
		if err != nil {
			return nil, fmt.Errorf("deposition attempt %d: %w", attempt.ID, err)
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, rows.Err()
}

func (d *DB) queryParsedFiles(query string, args ...any) ([]*ParsedFile, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching parsed files: %w", err)
	}
	defer rows.Close()

	var files []*ParsedFile
	for rows.Next() {
		var (
			file       ParsedFile
			receivedAt string
			manuscript sql.NullString
			doi        sql.NullString
			status     string
		)
		if err := rows.Scan(&file.ID, &file.Path, &receivedAt, &manuscript, &doi, &status); err != nil {
			return nil, err
		}
		file.DOI = doi.String
		file.Status = ParsedStatus(status)
		file.ReceivedAt, err = parseTime(receivedAt)
		if err != nil {
			return nil, fmt.Errorf("parsed file %d: %w", file.ID, err)
		}
		file.Manuscript, err = unmarshalManuscript(manuscript)
		if err != nil {
			return nil, fmt.Errorf("parsed file %d: %w", file.ID, err)
		}
		files = append(files, &file)
	}
	return files, rows.Err()
}

func marshalManuscript(m *article.Manuscript) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalManuscript(s sql.NullString) (*article.Manuscript, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m article.Manuscript
	if err := yaml.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("deserializing manuscript: %w", err)
	}
	return &m, nil
}

// Timestamps are stored as RFC 3339 strings so that lexicographic SQL
// comparisons order them chronologically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
