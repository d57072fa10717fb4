// Package corpus stores round-trip results so that failures can be
// reviewed after a batch run or while watching a directory.
//
// The store runs on SQLite by default and on PostgreSQL or MySQL when a DSN
// is configured. Statements are written with ? placeholders and rebound for
// drivers that number their parameters.
package corpus

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver (pure Go, no CGO required)

	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Store persists round-trip results.
type Store struct {
	mu          sync.RWMutex
	db          *sql.DB
	driver      string
	path        string
	maxEntries  int
	truncatePct int
	seq         uint64 // incremented on each recorded entry
}

// Entry is one recorded round-trip result.
type Entry struct {
	ID         int64
	Label      string // file path or REPL marker
	Kind       string // ruby or sexp
	Source     string // input text as read
	Tree       string // s-expression of the input tree
	Rendered   string // renderer output
	Equivalent bool
	Reason     string // first difference or error message when not equivalent
	CheckedAt  time.Time
}

// Config holds store settings.
type Config struct {
	Driver      string // sqlite (default), postgres or mysql
	Path        string // SQLite database file
	DSN         string // connection string for postgres and mysql
	MaxEntries  int    // entries kept before the oldest are dropped (default 10000)
	TruncatePct int    // percentage dropped when the cap is reached (default 25)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver:      DriverSQLite,
		MaxEntries:  10000,
		TruncatePct: 25,
	}
}

// Open connects to the configured database and creates the schema.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var dsn string
	switch driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, uerrors.New("DB-0002", map[string]any{"Operation": "open", "Reason": "no database path"})
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating corpus directory: %w", err)
		}
		// WAL mode lets the watcher write while the CLI reads
		dsn = cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case DriverPostgres, DriverMySQL:
		if cfg.DSN == "" {
			return nil, uerrors.New("DB-0002", map[string]any{"Operation": "open", "Reason": "no dsn configured"})
		}
		dsn = cfg.DSN
	default:
		return nil, uerrors.New("DB-0001", map[string]any{"Driver": driver})
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to corpus database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	s := &Store{
		db:          db,
		driver:      driver,
		path:        cfg.Path,
		maxEntries:  cfg.MaxEntries,
		truncatePct: cfg.TruncatePct,
	}
	if s.maxEntries <= 0 {
		s.maxEntries = 10000
	}
	if s.truncatePct <= 0 || s.truncatePct > 100 {
		s.truncatePct = 25
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating corpus schema: %w", err)
	}
	return s, nil
}

// schemas holds the DDL for each driver. Columns are kept to types all three
// accept: times as RFC 3339 text, the verdict as an integer.
var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			tree TEXT NOT NULL,
			rendered TEXT NOT NULL,
			equivalent INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			checked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_label ON results(label)`,
		`CREATE INDEX IF NOT EXISTS idx_results_equivalent ON results(equivalent)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS results (
			id BIGSERIAL PRIMARY KEY,
			label TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			tree TEXT NOT NULL,
			rendered TEXT NOT NULL,
			equivalent INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			checked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_label ON results(label)`,
		`CREATE INDEX IF NOT EXISTS idx_results_equivalent ON results(equivalent)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS results (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			label VARCHAR(768) NOT NULL,
			kind VARCHAR(16) NOT NULL DEFAULT '',
			source MEDIUMTEXT NOT NULL,
			tree MEDIUMTEXT NOT NULL,
			rendered MEDIUMTEXT NOT NULL,
			equivalent INT NOT NULL,
			reason TEXT NOT NULL,
			checked_at VARCHAR(40) NOT NULL,
			INDEX idx_results_label (label),
			INDEX idx_results_equivalent (equivalent)
		)`,
	},
}

func (s *Store) createSchema() error {
	for _, stmt := range schemas[s.driver] {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Rebind rewrites ? placeholders into the form driver expects. PostgreSQL
// numbers its parameters; the other drivers take ? as is.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' {
			inQuote = !inQuote
		}
		if ch == '?' && !inQuote {
			n++
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(Rebind(s.driver, query), args...)
}

func (s *Store) query(query string, args ...any) (*sql.Rows, error) {
	return s.db.Query(Rebind(s.driver, query), args...)
}

func (s *Store) queryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(Rebind(s.driver, query), args...)
}

// Record writes an entry. A zero CheckedAt is set to the current time.
func (s *Store) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.maybeTruncate(); err != nil {
		return dbError("truncate", err)
	}

	if e.CheckedAt.IsZero() {
		e.CheckedAt = time.Now()
	}
	equivalent := 0
	if e.Equivalent {
		equivalent = 1
	}

	_, err := s.exec(`
		INSERT INTO results (label, kind, source, tree, rendered, equivalent, reason, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Label, e.Kind, e.Source, e.Tree, e.Rendered, equivalent, e.Reason,
		e.CheckedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return dbError("insert", err)
	}
	s.seq++
	return nil
}

// Seq returns a counter that increases with every recorded entry.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

const selectColumns = `SELECT id, label, kind, source, tree, rendered, equivalent, reason, checked_at FROM results`

// Entries returns the most recent entries, newest first, optionally for a
// single label. A limit of zero or less means 1000.
func (s *Store) Entries(label string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}
	if label == "" {
		return s.scan(s.query(selectColumns+` ORDER BY id DESC LIMIT ?`, limit))
	}
	return s.scan(s.query(selectColumns+` WHERE label = ? ORDER BY id DESC LIMIT ?`, label, limit))
}

// Failures returns the most recent non-equivalent entries, newest first.
func (s *Store) Failures(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 1000
	}
	return s.scan(s.query(selectColumns+` WHERE equivalent = 0 ORDER BY id DESC LIMIT ?`, limit))
}

func (s *Store) scan(rows *sql.Rows, err error) ([]Entry, error) {
	if err != nil {
		return nil, dbError("query", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var equivalent int
		var ts string
		if err := rows.Scan(&e.ID, &e.Label, &e.Kind, &e.Source, &e.Tree, &e.Rendered, &equivalent, &e.Reason, &ts); err != nil {
			return nil, dbError("scan", err)
		}
		e.Equivalent = equivalent != 0
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.CheckedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("query", err)
	}
	return entries, nil
}

// Count returns the number of entries, optionally for a single label.
func (s *Store) Count(label string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var err error
	if label == "" {
		err = s.queryRow("SELECT COUNT(*) FROM results").Scan(&count)
	} else {
		err = s.queryRow("SELECT COUNT(*) FROM results WHERE label = ?", label).Scan(&count)
	}
	if err != nil {
		return 0, dbError("count", err)
	}
	return count, nil
}

// Clear removes entries, optionally for a single label.
func (s *Store) Clear(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if label == "" {
		_, err = s.exec("DELETE FROM results")
	} else {
		_, err = s.exec("DELETE FROM results WHERE label = ?", label)
	}
	if err != nil {
		return dbError("clear", err)
	}
	return nil
}

// maybeTruncate drops the oldest entries once the cap is reached.
// Must be called with lock held.
func (s *Store) maybeTruncate() error {
	var total int
	if err := s.queryRow("SELECT COUNT(*) FROM results").Scan(&total); err != nil {
		return err
	}
	if total < s.maxEntries {
		return nil
	}

	deleteCount := (total * s.truncatePct) / 100
	if deleteCount == 0 {
		deleteCount = 1
	}

	// MySQL rejects LIMIT inside IN (...), so find the cut-off id first
	var cutoff int64
	err := s.queryRow("SELECT id FROM results ORDER BY id ASC LIMIT 1 OFFSET ?", deleteCount-1).Scan(&cutoff)
	if err != nil {
		return err
	}
	_, err = s.exec("DELETE FROM results WHERE id <= ?", cutoff)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the SQLite database file, or "" for a server database.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

func dbError(operation string, err error) error {
	return uerrors.New("DB-0002", map[string]any{"Operation": operation, "Reason": err.Error()})
}
