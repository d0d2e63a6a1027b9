// Package errdb persists check failures keyed by file content digest.
//
// Every operation opens the SQLite file, does its work inside a transaction
// when it writes, and closes the handle before returning. No handle is shared
// between operations, so concurrent callers only contend on SQLite's own file
// locking.
package errdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rtm0/obscheck/internal/check"
)

// ErrStorage marks failures of the backing store. They are not recoverable:
// callers abort the run.
var ErrStorage = errors.New("error store failure")

// SQLiteBusyTimeoutMS is how long a writer waits for a concurrent lock.
const SQLiteBusyTimeoutMS = 5000

const createTable = `
CREATE TABLE IF NOT EXISTS errors (
	file_hash  TEXT NOT NULL,
	check_name TEXT NOT NULL,
	error_msg  TEXT NOT NULL,
	UNIQUE(file_hash, check_name, error_msg)
);`

const insertError = `
INSERT OR IGNORE INTO errors (file_hash, check_name, error_msg)
VALUES (?, ?, ?);`

const selectErrors = `
SELECT check_name, error_msg
FROM errors
WHERE file_hash = ?
ORDER BY rowid;`

const countErrors = `SELECT COUNT(*) FROM errors WHERE file_hash = ?;`

// Opener returns a fresh database handle. It exists so tests can substitute
// a mocked driver.
type Opener func(path string) (*sql.DB, error)

// Store is the on-disk error cache.
type Store struct {
	path   string
	logger *zap.SugaredLogger
	open   Opener
}

// Open returns a Store backed by the SQLite file at path. Nothing is touched
// on disk until the first operation.
func Open(path string, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{path: path, logger: logger, open: openSQLite}
}

// WithOpener replaces how the store obtains database handles.
func (s *Store) WithOpener(open Opener) *Store {
	s.open = open
	return s
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", SQLiteBusyTimeoutMS)); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func storageErr(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrStorage)
}

// withDB runs fn on a newly opened handle and always closes it.
func (s *Store) withDB(fn func(db *sql.DB) error) error {
	db, err := s.open(s.path)
	if err != nil {
		return storageErr(err, "open %s", s.path)
	}
	defer db.Close()
	return fn(db)
}

// withTx runs fn inside a transaction on a newly opened handle, committing on
// success and rolling back otherwise.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	return s.withDB(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return storageErr(err, "begin transaction")
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return storageErr(err, "commit")
		}
		return nil
	})
}

// Init creates the parent directory, the database file and the errors table
// when they do not exist yet.
func (s *Store) Init() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return storageErr(err, "create cache directory")
		}
	}
	return s.withDB(func(db *sql.DB) error {
		if _, err := db.Exec(createTable); err != nil {
			return storageErr(err, "create errors table")
		}
		return nil
	})
}

// Insert stores one record. Storing an identical record twice is a no-op.
func (s *Store) Insert(digest, checkName, message string) error {
	return s.Save(digest, []check.Record{{Check: checkName, Message: message}})
}

// Save stores records for digest in one transaction, ignoring duplicates.
func (s *Store) Save(digest string, records []check.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.Init(); err != nil {
		return err
	}
	err := s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertError)
		if err != nil {
			return storageErr(err, "prepare insert")
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.Exec(digest, r.Check, r.Message); err != nil {
				return storageErr(err, "insert %s/%s", r.Check, r.Message)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debugw("Stored errors", "digest", digest, "count", len(records))
	return nil
}

// Read returns every record stored for digest, in insertion order. A store
// that was never created reads as empty and is left untouched.
func (s *Store) Read(digest string) ([]check.Record, error) {
	var records []check.Record
	err := s.withExisting(func(db *sql.DB) error {
		rows, err := db.Query(selectErrors, digest)
		if err != nil {
			return storageErr(err, "query errors")
		}
		defer rows.Close()
		for rows.Next() {
			var r check.Record
			if err := rows.Scan(&r.Check, &r.Message); err != nil {
				return storageErr(err, "scan error row")
			}
			records = append(records, r)
		}
		if err := rows.Err(); err != nil {
			return storageErr(err, "iterate error rows")
		}
		return nil
	})
	return records, err
}

// Count returns the number of records stored for digest. Zero means the
// content is clear for upload.
func (s *Store) Count(digest string) (int, error) {
	var n int
	err := s.withExisting(func(db *sql.DB) error {
		if err := db.QueryRow(countErrors, digest).Scan(&n); err != nil {
			return storageErr(err, "count errors")
		}
		return nil
	})
	return n, err
}

// withExisting runs a lookup on one handle when the database file exists,
// creating the table first in the same session if it is missing.
func (s *Store) withExisting(fn func(db *sql.DB) error) error {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErr(err, "stat %s", s.path)
	}
	return s.withDB(func(db *sql.DB) error {
		if _, err := db.Exec(createTable); err != nil {
			return storageErr(err, "create errors table")
		}
		return fn(db)
	})
}

// Clear deletes the whole store. A store that was never created is not an
// error.
func (s *Store) Clear() error {
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm", s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return storageErr(err, "remove %s", p)
		}
	}
	s.logger.Infow("Cleared error cache", "path", s.path)
	return nil
}
