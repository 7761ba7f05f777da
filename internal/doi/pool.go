package doi

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrPoolExhausted is returned by Pool.Reserve when every DOI in the pool
// has been claimed.
var ErrPoolExhausted = errors.New("no free DOIs left in the pool")

// claimRetries bounds how often Reserve retries after losing a claim race.
const claimRetries = 10

// Pool hands out DOIs from a fixed, pre-registered set kept in a sqlite
// database. Each DOI is claimed at most once: a claim atomically records
// the resource descriptor it was reserved for, so re-running a deposition
// against the same pool never reuses a DOI.
type Pool struct {
	db *sql.DB
}

// OpenPool opens the pool database at the given path, creating the schema
// if needed.
func OpenPool(path string) (*Pool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening DOI pool: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	pool := &Pool{db: db}
	if err := pool.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return pool, nil
}

func (p *Pool) ensureSchema() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS dois (
  doi TEXT PRIMARY KEY,
  resource TEXT,
  claimed_at TIMESTAMP
)`)
	if err != nil {
		return fmt.Errorf("initializing DOI pool: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Add registers the given DOIs as free pool members. Adding a DOI that is
// already in the pool is an error and aborts the whole batch.
func (p *Pool) Add(dois []string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("adding DOIs: %w", err)
	}
	defer tx.Rollback()

	for _, doi := range dois {
		if _, err := tx.Exec(`INSERT INTO dois (doi) VALUES (?)`, doi); err != nil {
			return fmt.Errorf("adding DOI %q: %w", doi, err)
		}
	}
	return tx.Commit()
}

// Reserve claims a free DOI for the given resource descriptor. The claim is
// atomic: the UPDATE only succeeds while the DOI is still unclaimed, so two
// concurrent reservations can never receive the same DOI. Returns
// ErrPoolExhausted when no free DOI is left.
func (p *Pool) Reserve(resource string) (string, error) {
	if resource == "" {
		return "", errors.New("reserving DOI: empty resource descriptor")
	}

	for try := 0; try < claimRetries; try++ {
		var doi string
		err := p.db.QueryRow(`SELECT doi FROM dois WHERE resource IS NULL LIMIT 1`).Scan(&doi)
		if err == sql.ErrNoRows {
			return "", ErrPoolExhausted
		}
		if err != nil {
			return "", fmt.Errorf("reserving DOI: %w", err)
		}

		result, err := p.db.Exec(
			`UPDATE dois SET resource = ?, claimed_at = ? WHERE doi = ? AND resource IS NULL`,
			resource, time.Now().UTC().Format(time.RFC3339), doi,
		)
		if err != nil {
			return "", fmt.Errorf("claiming DOI %q: %w", doi, err)
		}
		claimed, err := result.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("claiming DOI %q: %w", doi, err)
		}
		if claimed == 1 {
			return doi, nil
		}
		// lost the race for this DOI, pick another
	}
	return "", fmt.Errorf("reserving DOI: gave up after %d contended claims", claimRetries)
}

// Stats reports how many DOIs the pool holds and how many are still free.
type Stats struct {
	Total int `json:"total"`
	Free  int `json:"free"`
}

func (p *Pool) Stats() (Stats, error) {
	var stats Stats
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM dois`).Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("counting DOIs: %w", err)
	}
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM dois WHERE resource IS NULL`).Scan(&stats.Free); err != nil {
		return Stats{}, fmt.Errorf("counting free DOIs: %w", err)
	}
	return stats, nil
}
