// Package store is Nautilus's embedded persistence layer: one SQLite
// database holding the gravity, access_log, and mirrors tables (spec §3),
// opened in WAL mode with a multi-second busy timeout exactly as the
// teacher's internal/store/local_core.go opens its own database. Components
// above this package (gravity, chambers, doors, mirrors) borrow a *Store for
// the duration of one operation; none of them own a connection.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"nautilus/internal/errs"
	"nautilus/internal/logging"
)

const (
	busyTimeoutMS  = 5000
	maxTxnRetries  = 5
	retryBaseDelay = 20 * time.Millisecond
)

// Store is Nautilus's single-writer, many-reader embedded database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open creates the database file and schema if absent, enables WAL mode for
// concurrent readers, and sets a busy timeout so writers queued behind a
// competing writer fail slowly instead of immediately.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	log := logging.Get(logging.CategoryStore)
	log.Info("opening store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errs.WrapPath(errs.StoreUnavailable, "failed to create state directory", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.WrapPath(errs.StoreUnavailable, "failed to open database", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS)); err != nil {
		log.Warn("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Warn("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Warn("failed to set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("store ready at %s", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Size returns the on-disk size of the database file in bytes. Returns 0 for
// an in-memory store.
func (s *Store) Size() int64 {
	if s.dbPath == ":memory:" {
		return 0
	}
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Query runs a read-only statement and returns the resulting rows. Callers
// must close the returned rows.
func (s *Store) Query(query string, args ...interface{}) (*sql.Rows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, classifyErr(err)
	}
	return rows, nil
}

// QueryRow runs a read-only statement expected to return at most one row.
func (s *Store) QueryRow(query string, args ...interface{}) *sql.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.QueryRow(query, args...)
}

// Execute runs one write statement atomically, retrying on transient
// "database is locked" failures up to a bounded count before surfacing
// StoreUnavailable.
func (s *Store) Execute(query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := s.withRetry(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		var execErr error
		result, execErr = s.db.Exec(query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteMany runs the same statement once per row of args, inside a single
// transaction so the batch is atomic.
func (s *Store) ExecuteMany(query string, argSets [][]interface{}) error {
	return s.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, args := range argSets {
			if _, err := stmt.Exec(args...); err != nil {
				return err
			}
		}
		return nil
	})
}

// Transaction runs fn within a serializable write transaction, retrying the
// whole transaction on transient busy failures up to a bounded count.
func (s *Store) Transaction(fn func(tx *sql.Tx) error) error {
	return s.withRetry(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// withRetry runs op, retrying with a short backoff while the failure looks
// like a transient SQLite lock contention, up to maxTxnRetries attempts,
// then wraps whatever remains as StoreUnavailable.
func (s *Store) withRetry(op func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isBusyErr(lastErr) {
			return classifyErr(lastErr)
		}
		time.Sleep(retryBaseDelay * time.Duration(attempt+1))
	}
	return errs.Wrap(errs.StoreUnavailable, "store busy after retries", lastErr)
}

func isBusyErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// classifyErr maps a raw sqlite3 error onto Nautilus's error kinds.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt") {
		return errs.Wrap(errs.StoreCorrupt, "database integrity failure", err)
	}
	if isBusyErr(err) {
		return errs.Wrap(errs.StoreUnavailable, "store busy", err)
	}
	return err
}
