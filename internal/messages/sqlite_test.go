package messages_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/rs/zerolog"
)

func TestSQLiteStore_CreatesDBFileInWALMode(t *testing.T) {
	dir := t.TempDir()
	s, err := messages.NewSQLiteStore(dir, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, messages.SQLiteFile)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestSQLiteStore_IdempotentReopen(t *testing.T) {
	newFakeClock(t)
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := messages.NewSQLiteStore(dir, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	created := mustCreate(t, s1, "alice", "bob", "persisted", "low")
	s1.Close()

	s2, err := messages.NewSQLiteStore(dir, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.List(ctx, "bob", messages.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages after reopen, want 1", len(got))
	}
	m := got[0]
	if m.ID != created.ID || m.Priority != messages.PriorityLow || !m.Timestamp.Equal(created.Timestamp) {
		t.Errorf("reopened message = %+v, want %+v", m, created)
	}
}

func TestSQLiteStore_InboxesAreIsolated(t *testing.T) {
	newFakeClock(t)
	s, err := messages.NewSQLiteStore(t.TempDir(), zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	mustCreate(t, s, "alice", "bob", "for bob", "")
	mustCreate(t, s, "alice", "carol", "for carol", "")

	if _, err := s.List(ctx, "bob", messages.ListOptions{MarkAsRead: true}); err != nil {
		t.Fatalf("List: %v", err)
	}
	st, err := s.Stats(ctx, "carol")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Unread != 1 {
		t.Errorf("carol unread = %d, want 1 after reading bob", st.Unread)
	}
}
