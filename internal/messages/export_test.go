package messages

import (
	"database/sql"
	"testing"
	"time"
)

// SetClock replaces the store clock for the duration of a test.
func SetClock(t testing.TB, now func() time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = now
	t.Cleanup(func() { timeNow = prev })
}

// FailWrites makes collection writes to paths accepted by match fail
// with err for the duration of a test.
func FailWrites(t testing.TB, match func(path string) bool, err error) {
	t.Helper()
	prev := writeFile
	writeFile = func(path string, data []byte) error {
		if match(path) {
			return err
		}
		return prev(path, data)
	}
	t.Cleanup(func() { writeFile = prev })
}

// DB exposes the internal *sql.DB for test helpers in messages_test.
// This file only compiles during `go test`.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
