package errdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rtm0/obscheck/internal/check"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "cache", "errors.sqlite"), zaptest.NewLogger(t).Sugar())
}

func TestInit(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Init())
	_, err := os.Stat(s.Path())
	require.NoError(t, err)

	// Idempotent on an existing database.
	require.NoError(t, s.Init())
}

func TestReadEmpty(t *testing.T) {
	s := newStore(t)
	records, err := s.Read("abc")
	require.NoError(t, err)
	assert.Empty(t, records)

	n, err := s.Count("abc")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertIdempotent(t *testing.T) {
	s := newStore(t)
	for _, msg := range []string{"error 1", "error 2", "error 3", "error 3", "error 2", "error 1"} {
		require.NoError(t, s.Insert("digest", "test_read_errors", msg))
	}

	records, err := s.Read("digest")
	require.NoError(t, err)
	assert.Equal(t, []check.Record{
		{Check: "test_read_errors", Message: "error 1"},
		{Check: "test_read_errors", Message: "error 2"},
		{Check: "test_read_errors", Message: "error 3"},
	}, records)

	n, err := s.Count("digest")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSaveKeyedByDigest(t *testing.T) {
	s := newStore(t)
	recs := []check.Record{
		{Check: "time_checker", Message: "not a full year"},
		{Check: "data_checker", Message: "missing obs found"},
	}
	require.NoError(t, s.Save("one", recs))
	require.NoError(t, s.Save("one", recs))
	require.NoError(t, s.Save("two", recs[:1]))
	require.NoError(t, s.Save("three", nil))

	got, err := s.Read("one")
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	got, err = s.Read("two")
	require.NoError(t, err)
	assert.Equal(t, recs[:1], got)

	got, err = s.Read("three")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSameMessageDifferentCheck(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Insert("d", "a", "msg"))
	require.NoError(t, s.Insert("d", "b", "msg"))

	n, err := s.Count("d")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClear(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Insert("digest", "time_checker", "different years"))
	require.NoError(t, s.Clear())

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	records, err := s.Read("digest")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Clearing a store that does not exist is fine.
	require.NoError(t, Open(filepath.Join(t.TempDir(), "none.sqlite"), nil).Clear())
}

func TestOpenFailure(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Init())
	s.WithOpener(func(string) (*sql.DB, error) {
		return nil, errors.New("disk on fire")
	})

	_, err := s.Read("digest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "disk on fire")

	err = s.Insert("digest", "c", "m")
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestReadMissingStore(t *testing.T) {
	opened := 0
	s := newStore(t).WithOpener(func(path string) (*sql.DB, error) {
		opened++
		return openSQLite(path)
	})

	records, err := s.Read("digest")
	require.NoError(t, err)
	assert.Empty(t, records)
	n, err := s.Count("digest")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Zero(t, opened)
	_, err = os.Stat(filepath.Dir(s.Path()))
	assert.True(t, os.IsNotExist(err), "lookups must not create the cache directory")
}

func TestReadUsesOneHandle(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Insert("digest", "time_checker", "not a full year"))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS errors")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT check_name, error_msg")).
		WithArgs("digest").
		WillReturnRows(sqlmock.NewRows([]string{"check_name", "error_msg"}).
			AddRow("time_checker", "not a full year"))
	mock.ExpectClose()

	opened := 0
	s.WithOpener(func(string) (*sql.DB, error) {
		opened++
		return db, nil
	})
	records, err := s.Read("digest")
	require.NoError(t, err)
	assert.Equal(t, []check.Record{{Check: "time_checker", Message: "not a full year"}}, records)
	assert.Equal(t, 1, opened)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadTableMissing(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o644))

	n, err := s.Count("digest")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateTableFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS errors")).
		WillReturnError(errors.New("read-only file system"))
	mock.ExpectClose()

	s := newStore(t).WithOpener(func(string) (*sql.DB, error) { return db, nil })
	err = s.Init()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRollsBack(t *testing.T) {
	initDB, initMock, err := sqlmock.New()
	require.NoError(t, err)
	initMock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS errors")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	initMock.ExpectClose()

	txDB, txMock, err := sqlmock.New()
	require.NoError(t, err)
	txMock.ExpectBegin()
	prep := txMock.ExpectPrepare(regexp.QuoteMeta("INSERT OR IGNORE INTO errors"))
	prep.ExpectExec().WithArgs("digest", "c", "m").WillReturnError(errors.New("database is locked"))
	txMock.ExpectRollback()
	txMock.ExpectClose()

	handles := []*sql.DB{initDB, txDB}
	s := newStore(t).WithOpener(func(string) (*sql.DB, error) {
		db := handles[0]
		handles = handles[1:]
		return db, nil
	})

	err = s.Insert("digest", "c", "m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.NoError(t, initMock.ExpectationsWereMet())
	assert.NoError(t, txMock.ExpectationsWereMet())
}
