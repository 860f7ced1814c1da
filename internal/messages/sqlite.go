package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name under the storage root.
const SQLiteFile = "messages.db"

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timestampLayout is fixed-width so stored timestamps compare lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a single SQLite database. Each mutating
// operation is one IMMEDIATE transaction, which is the per-recipient critical
// section: SQLite serializes writers across processes.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
	obs Observer
}

// NewSQLiteStore opens (creating if needed) root/messages.db with WAL mode
// and runs migrations.
func NewSQLiteStore(root string, log zerolog.Logger, obs Observer) (*SQLiteStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("messages: create data dir: %w", err)
	}

	dbPath := filepath.Join(root, SQLiteFile)
	db, err := openDB("sqlite", "file:"+dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("messages: open database: %w", err)
	}
	// One connection keeps pragmas in effect and serializes writers in-process.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("messages: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:  db,
		log: log.With().Str("component", "sqlitestore").Logger(),
		obs: observerOrNop(obs),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messages: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			recipient     TEXT    NOT NULL,
			id            TEXT    NOT NULL,
			sender        TEXT    NOT NULL,
			body          TEXT    NOT NULL,
			priority      TEXT    NOT NULL DEFAULT 'medium',
			created_at    TEXT    NOT NULL,
			context_files TEXT    NOT NULL DEFAULT '[]',
			read          INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (recipient, id)
		);

		CREATE TABLE IF NOT EXISTS archived_messages (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient     TEXT    NOT NULL,
			id            TEXT    NOT NULL,
			sender        TEXT    NOT NULL,
			body          TEXT    NOT NULL,
			priority      TEXT    NOT NULL,
			created_at    TEXT    NOT NULL,
			context_files TEXT    NOT NULL DEFAULT '[]',
			read          INTEGER NOT NULL DEFAULT 1,
			archived_at   TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(recipient, read);
		CREATE INDEX IF NOT EXISTS idx_archived_recipient ON archived_messages(recipient, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new message; a duplicate id for the recipient violates
// the primary key and surfaces as ErrDuplicateID.
func (s *SQLiteStore) Create(ctx context.Context, in NewMessage) (*Message, error) {
	msg, err := in.build(timeNow())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.observe("create", time.Now())

	files, err := json.Marshal(msg.ContextFiles)
	if err != nil {
		return nil, storageErr("encoding context files", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (recipient, id, sender, body, priority, created_at, context_files, read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		msg.To, msg.ID, msg.From, msg.Body, string(msg.Priority), formatTimestamp(msg.Timestamp), string(files),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s already exists in %s's inbox", ErrDuplicateID, msg.ID, msg.To)
		}
		return nil, storageErr("inserting message", err)
	}

	s.obs.Created(msg)
	s.log.Debug().Str("id", msg.ID).Str("from", msg.From).Str("to", msg.To).
		Str("priority", string(msg.Priority)).Msg("message created")
	return msg, nil
}

// List returns the agent's messages in triage order.
func (s *SQLiteStore) List(ctx context.Context, agent string, opts ListOptions) ([]Message, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return nil, err
	}
	if opts, err = validateListOptions(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.observe("list", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	inbox, err := queryMessages(ctx, tx,
		`SELECT id, sender, recipient, body, priority, created_at, context_files, read
		 FROM messages WHERE recipient = ?`, agent)
	if err != nil {
		return nil, err
	}

	idx := selectMessages(inbox, opts)
	result := pick(inbox, idx)
	if !opts.MarkAsRead {
		return result, nil
	}

	changed := 0
	for i := range result {
		if result[i].Read {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE messages SET read = 1 WHERE recipient = ? AND id = ?", agent, result[i].ID,
		); err != nil {
			return nil, storageErr("marking message read", err)
		}
		result[i].Read = true
		changed++
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing read marks", err)
	}
	s.obs.MarkedRead(changed)
	return result, nil
}

// Archive moves read messages older than olderThanDays to archived_messages
// in one transaction.
func (s *SQLiteStore) Archive(ctx context.Context, agent string, olderThanDays int) (int, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return 0, err
	}
	if err := validateDays(olderThanDays); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer s.observe("archive", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	read, err := queryMessages(ctx, tx,
		`SELECT id, sender, recipient, body, priority, created_at, context_files, read
		 FROM messages WHERE recipient = ? AND read = 1`, agent)
	if err != nil {
		return 0, err
	}
	Sort(read)

	now := timeNow()
	toArchive, _ := partition(read, Cutoff(now, olderThanDays))
	for _, m := range toArchive {
		files, err := json.Marshal(m.ContextFiles)
		if err != nil {
			return 0, storageErr("encoding context files", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO archived_messages (recipient, id, sender, body, priority, created_at, context_files, read, archived_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			agent, m.ID, m.From, m.Body, string(m.Priority), formatTimestamp(m.Timestamp), string(files), formatTimestamp(now),
		); err != nil {
			return 0, storageErr("archiving message", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM messages WHERE recipient = ? AND id = ?", agent, m.ID,
		); err != nil {
			return 0, storageErr("removing archived message", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("committing archive", err)
	}

	s.obs.Archived(len(toArchive))
	return len(toArchive), nil
}

// Archived returns the agent's archive in archive order.
func (s *SQLiteStore) Archived(ctx context.Context, agent string) ([]Message, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return nil, err
	}
	return queryMessages(ctx, s.db,
		`SELECT id, sender, recipient, body, priority, created_at, context_files, read
		 FROM archived_messages WHERE recipient = ? ORDER BY seq`, agent)
}

// Stats summarizes the agent's inbox and archive.
func (s *SQLiteStore) Stats(ctx context.Context, agent string) (InboxStats, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return InboxStats{}, err
	}
	inbox, err := queryMessages(ctx, s.db,
		`SELECT id, sender, recipient, body, priority, created_at, context_files, read
		 FROM messages WHERE recipient = ?`, agent)
	if err != nil {
		return InboxStats{}, err
	}
	var archived int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM archived_messages WHERE recipient = ?", agent,
	).Scan(&archived); err != nil {
		return InboxStats{}, storageErr("counting archive", err)
	}
	return computeStats(agent, inbox, archived), nil
}

func (s *SQLiteStore) observe(op string, start time.Time) {
	s.obs.Observe(op, time.Since(start))
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryMessages(ctx context.Context, q queryer, query string, args ...any) ([]Message, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying messages", err)
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		var (
			m            Message
			priority, ts string
			files        string
			read         int
		)
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Body, &priority, &ts, &files, &read); err != nil {
			return nil, storageErr("scanning message", err)
		}
		m.Priority = Priority(priority)
		m.Read = read != 0
		if m.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, storageErr("parsing message "+m.ID, err)
		}
		if err := json.Unmarshal([]byte(files), &m.ContextFiles); err != nil {
			return nil, storageErr("parsing context files of "+m.ID, err)
		}
		m.normalize()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("reading messages", err)
	}
	return msgs, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
