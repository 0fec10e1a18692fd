package store

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"
	"time"

	"modernc.org/sqlite"
)

const (
	// MemoryPath selects a volatile in-process database.
	MemoryPath = ":memory:"

	BackendSQLite = "sqlite"

	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute

	casefoldFunc = "casefold"
)

func init() {
	// lower() in SQLite only folds ASCII; titles here are mostly Portuguese.
	if err := sqlite.RegisterDeterministicScalarFunction(casefoldFunc, 1, casefold); err != nil {
		panic(fmt.Sprintf("register %s: %v", casefoldFunc, err))
	}
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	memory bool
	now    func() time.Time
}

// Open opens the SQLite database at path and applies pending migrations.
// Path MemoryPath opens a private in-memory database that lives as long as
// the Store.
func Open(path string) (*Store, error) {
	memory := strings.TrimSpace(path) == MemoryPath
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, Unavailable("open database", err)
	}

	configurePool(db, memory)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, Unavailable("open database", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, Unavailable("migrate", err)
	}

	return &Store{db: db, path: path, memory: memory, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the raw handle for migration inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func configurePool(db *sql.DB, memory bool) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	if memory {
		// Dropping the only connection would drop the database with it.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	db.SetConnMaxLifetime(connMaxLifetime)
}

func sqliteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}

	query := url.Values{}
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	query.Add("_pragma", "foreign_keys(1)")
	if path == MemoryPath {
		return "file::memory:?" + query.Encode(), nil
	}
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(NORMAL)")

	u := url.URL{Scheme: "file", Path: path, RawQuery: query.Encode()}
	return u.String(), nil
}

func casefold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	default:
		return foldCase(fmt.Sprint(v)), nil
	}
}
