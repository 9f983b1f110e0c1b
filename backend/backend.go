// Package backend persists chain state to a SQLite checkpoint file. The
// file format itself is SQLite's problem; this package only knows how to
// reset a run, append (step, walker) samples, and read positions back for
// resume and best-fit extraction.
package backend

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // database/sql driver
)

const (
	metaTable  = "run_meta"
	chainTable = "chain"
)

// Meta describes the run a checkpoint file belongs to.
type Meta struct {
	NWalkers int
	Ndim     int
	FitKeys  []string
}

// Backend is a single-process chain store. Concurrent walker goroutines may
// append; writes are serialized behind a mutex and a single connection.
type Backend struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (or creates) a checkpoint file and ensures the schema exists.
func Open(path string) (*Backend, error) {
	if path == "" {
		return nil, errors.Errorf("A backend file path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not open backend file %s", path)
	}
	// A single connection avoids SQLite "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "Could not connect to backend file %s", path)
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS ` + metaTable + ` (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			n_walkers INTEGER NOT NULL,
			ndim INTEGER NOT NULL,
			fit_keys TEXT NOT NULL,
			created TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ` + chainTable + ` (
			step INTEGER NOT NULL,
			walker INTEGER NOT NULL,
			lnprob REAL NOT NULL,
			theta TEXT NOT NULL,
			PRIMARY KEY (step, walker)
		);`,
	}
	for _, q := range schemas {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "Could not create backend schema in %s", path)
		}
	}

	return &Backend{db: db, path: path}, nil
}

// Path returns the checkpoint file path.
func (b *Backend) Path() string {
	return b.path
}

// Close closes the underlying connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Reset drops all stored samples and records fresh run metadata.
func (b *Backend) Reset(nWalkers, ndim int, fitKeys []string) error {
	if nWalkers < 1 || ndim < 1 {
		return errors.Errorf("Invalid run shape: %d walkers, %d dims", nWalkers, ndim)
	}
	if len(fitKeys) != ndim {
		return errors.Errorf("Fit key count %d != ndim %d", len(fitKeys), ndim)
	}

	keysJSON, err := json.Marshal(fitKeys)
	if err != nil {
		return errors.Wrap(err, "Could not encode fit keys")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.Exec(`DELETE FROM ` + chainTable); err != nil {
		return errors.Wrap(err, "Could not clear chain table")
	}
	if _, err := b.db.Exec(`DELETE FROM ` + metaTable); err != nil {
		return errors.Wrap(err, "Could not clear meta table")
	}

	_, err = b.db.Exec(
		`INSERT INTO `+metaTable+` (id, n_walkers, ndim, fit_keys, created) VALUES (1, ?, ?, ?, ?)`,
		nWalkers, ndim, string(keysJSON), time.Now().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "Could not write run metadata")
}

// Meta reads the stored run metadata. A file that has never been reset has
// none and can not be resumed.
func (b *Backend) Meta() (*Meta, error) {
	var m Meta
	var keysJSON string

	row := b.db.QueryRow(`SELECT n_walkers, ndim, fit_keys FROM ` + metaTable + ` WHERE id = 1`)
	if err := row.Scan(&m.NWalkers, &m.Ndim, &keysJSON); err != nil {
		return nil, errors.Wrapf(err, "Backend %s has no run metadata", b.path)
	}

	if err := json.Unmarshal([]byte(keysJSON), &m.FitKeys); err != nil {
		return nil, errors.Wrap(err, "Could not decode stored fit keys")
	}
	return &m, nil
}

// Append stores one walker position for one step.
func (b *Backend) Append(step, walker int, theta []float64, lnprob float64) error {
	thetaJSON, err := json.Marshal(theta)
	if err != nil {
		return errors.Wrap(err, "Could not encode position")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.db.Exec(
		`INSERT INTO `+chainTable+` (step, walker, lnprob, theta) VALUES (?, ?, ?, ?)`,
		step, walker, lnprob, string(thetaJSON),
	)
	return errors.Wrapf(err, "Could not append step %d walker %d", step, walker)
}

// Steps returns the number of stored steps.
func (b *Backend) Steps() (int, error) {
	var steps sql.NullInt64
	row := b.db.QueryRow(`SELECT MAX(step) FROM ` + chainTable)
	if err := row.Scan(&steps); err != nil {
		return 0, errors.Wrap(err, "Could not count stored steps")
	}

	if !steps.Valid {
		return 0, nil // empty chain
	}
	return int(steps.Int64) + 1, nil
}

// LastPositions returns the newest stored position of every walker, indexed
// by walker, for use as resume starting points.
func (b *Backend) LastPositions() ([][]float64, error) {
	meta, err := b.Meta()
	if err != nil {
		return nil, err
	}

	steps, err := b.Steps()
	if err != nil {
		return nil, err
	}
	if steps < 1 {
		return nil, errors.Errorf("Backend %s holds no samples to resume from", b.path)
	}

	rows, err := b.db.Query(`SELECT walker, theta FROM `+chainTable+` WHERE step = ?`, steps-1)
	if err != nil {
		return nil, errors.Wrap(err, "Could not read last positions")
	}
	defer rows.Close()

	pos := make([][]float64, meta.NWalkers)
	for rows.Next() {
		var walker int
		var thetaJSON string
		if err := rows.Scan(&walker, &thetaJSON); err != nil {
			return nil, errors.Wrap(err, "Could not scan last position")
		}
		if walker < 0 || walker >= meta.NWalkers {
			return nil, errors.Errorf("Stored walker index %d out of range for %d walkers", walker, meta.NWalkers)
		}

		var theta []float64
		if err := json.Unmarshal([]byte(thetaJSON), &theta); err != nil {
			return nil, errors.Wrapf(err, "Could not decode position for walker %d", walker)
		}
		pos[walker] = theta
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Error iterating last positions")
	}

	for w, p := range pos {
		if p == nil {
			return nil, errors.Errorf("Walker %d has no stored position at step %d", w, steps-1)
		}
	}
	return pos, nil
}

// FlatChain returns every stored position ordered by (step, walker) - the
// flattened chain the best-fit extractor scans.
func (b *Backend) FlatChain() ([][]float64, error) {
	rows, err := b.db.Query(`SELECT theta FROM ` + chainTable + ` ORDER BY step, walker`)
	if err != nil {
		return nil, errors.Wrap(err, "Could not read flat chain")
	}
	defer rows.Close()

	var flat [][]float64
	for rows.Next() {
		var thetaJSON string
		if err := rows.Scan(&thetaJSON); err != nil {
			return nil, errors.Wrap(err, "Could not scan chain row")
		}

		var theta []float64
		if err := json.Unmarshal([]byte(thetaJSON), &theta); err != nil {
			return nil, errors.Wrap(err, "Could not decode chain row")
		}
		flat = append(flat, theta)
	}
	return flat, errors.Wrap(rows.Err(), "Error iterating flat chain")
}

// FlatLogProb returns the stored log-probabilities in the same order as
// FlatChain.
func (b *Backend) FlatLogProb() ([]float64, error) {
	rows, err := b.db.Query(`SELECT lnprob FROM ` + chainTable + ` ORDER BY step, walker`)
	if err != nil {
		return nil, errors.Wrap(err, "Could not read log probabilities")
	}
	defer rows.Close()

	var flat []float64
	for rows.Next() {
		var lnp float64
		if err := rows.Scan(&lnp); err != nil {
			return nil, errors.Wrap(err, "Could not scan log probability")
		}
		flat = append(flat, lnp)
	}
	return flat, errors.Wrap(rows.Err(), "Error iterating log probabilities")
}
