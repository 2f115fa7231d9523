// Package journal keeps a SQLite log of every published pulse: one row per
// pulse with its charge and event statistics, not the event arrays.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"neutrons/internal/monitoring"
)

var logf = monitoring.Prefixed("journal:")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("journal closed")

// Entry is one journaled pulse.
type Entry struct {
	RunID        string
	PulseID      uint64
	Published    time.Time
	ProtonCharge float64
	Events       int
	TOFMean      float64
}

// Journal is a Sink that appends pulses to a SQLite database. Rows are keyed
// by (run id, pulse id), so a pulse can be journaled only once per run.
type Journal struct {
	db    *sql.DB
	runID string
	now   func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the database at path, migrates it to the latest
// schema and journals pulses under runID.
func Open(path, runID string) (*Journal, error) {
	// _pragma parameters are applied by the driver on every new connection,
	// so debug readers get their own connections and never queue behind Update
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}

	return &Journal{db: db, runID: runID, now: time.Now}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m is not closed: that would close db as well

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger routes migrate output to the diagnostic logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	logf("migrate: "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Update journals one published pulse.
func (j *Journal) Update(pulseID uint64, protonCharge float64, tof, pixel []uint32) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}

	var sum uint64
	for _, v := range tof {
		sum += uint64(v)
	}
	var mean float64
	if len(tof) > 0 {
		mean = float64(sum) / float64(len(tof))
	}

	_, err := j.db.Exec(
		`INSERT INTO pulses (run_id, pulse_id, published_ns, proton_charge, events, tof_mean)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, int64(pulseID), j.now().UnixNano(), protonCharge, len(tof), mean,
	)
	if err != nil {
		return fmt.Errorf("journal pulse %d: %w", pulseID, err)
	}
	return nil
}

// Count returns the number of pulses journaled for this run.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pulses WHERE run_id = ?`, j.runID).Scan(&n)
	return n, err
}

// Recent returns up to n entries of this run, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, pulse_id, published_ns, proton_charge, events, tof_mean
		 FROM pulses WHERE run_id = ? ORDER BY pulse_id DESC LIMIT ?`, j.runID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var id, ns int64
		if err := rows.Scan(&e.RunID, &id, &ns, &e.ProtonCharge, &e.Events, &e.TOFMean); err != nil {
			return nil, err
		}
		e.PulseID = uint64(id)
		e.Published = time.Unix(0, ns)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DB exposes the underlying database for read-only debugging tools.
func (j *Journal) DB() *sql.DB { return j.db }

// RunID is the run the journal writes under.
func (j *Journal) RunID() string { return j.runID }

// Close stops journaling and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
