package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HendryAvila/agent-relay/internal/filelock"
	"github.com/rs/zerolog"
)

const (
	// ArchiveDir is the subdirectory of the storage root holding archives.
	ArchiveDir = "archive"
	// LocksDir is the subdirectory of the storage root holding lock files.
	LocksDir = ".locks"
	// collectionExt is the extension of inbox and archive files.
	collectionExt = ".json"
)

// FileStore implements Store with one JSON file per recipient inbox and one
// per recipient archive:
//
//	<root>/<agent>.json
//	<root>/archive/<agent>.json
//
// Files are always replaced whole via a temp file and rename, never patched
// in place.
type FileStore struct {
	root string
	log  zerolog.Logger
	obs  Observer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a filesystem-backed store rooted at root, creating
// the directory layout if needed.
func NewFileStore(root string, log zerolog.Logger, obs Observer) (*FileStore, error) {
	for _, dir := range []string{root, filepath.Join(root, ArchiveDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating messages directory: %w", err)
		}
	}
	return &FileStore{
		root:  root,
		log:   log.With().Str("component", "filestore").Logger(),
		obs:   observerOrNop(obs),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the storage root.
func (fs *FileStore) Root() string { return fs.root }

// InboxPath returns the path of an agent's active inbox.
func (fs *FileStore) InboxPath(agent string) string {
	return filepath.Join(fs.root, agent+collectionExt)
}

// ArchivePath returns the path of an agent's archive.
func (fs *FileStore) ArchivePath(agent string) string {
	return filepath.Join(fs.root, ArchiveDir, agent+collectionExt)
}

func (fs *FileStore) lockPath(agent string) string {
	return filepath.Join(fs.root, LocksDir, agent+".lock")
}

// Create appends a new message to the recipient's inbox.
func (fs *FileStore) Create(ctx context.Context, in NewMessage) (*Message, error) {
	msg, err := in.build(timeNow())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer fs.observe("create", time.Now())

	err = fs.withRecipient(msg.To, func() error {
		inbox, err := readCollection(fs.InboxPath(msg.To))
		if err != nil {
			return err
		}
		for _, m := range inbox {
			if m.ID == msg.ID {
				return fmt.Errorf("%w: %s already exists in %s's inbox", ErrDuplicateID, msg.ID, msg.To)
			}
		}
		return writeCollection(fs.InboxPath(msg.To), append(inbox, *msg))
	})
	if err != nil {
		return nil, err
	}

	fs.obs.Created(msg)
	fs.log.Debug().Str("id", msg.ID).Str("from", msg.From).Str("to", msg.To).
		Str("priority", string(msg.Priority)).Msg("message created")
	return msg, nil
}

// List returns the agent's messages in triage order.
func (fs *FileStore) List(ctx context.Context, agent string, opts ListOptions) ([]Message, error) {
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
	defer fs.observe("list", time.Now())

	if !opts.MarkAsRead {
		inbox, err := readCollection(fs.InboxPath(agent))
		if err != nil {
			return nil, err
		}
		return pick(inbox, selectMessages(inbox, opts)), nil
	}

	var result []Message
	err = fs.withRecipient(agent, func() error {
		inbox, err := readCollection(fs.InboxPath(agent))
		if err != nil {
			return err
		}
		idx := selectMessages(inbox, opts)
		changed := 0
		for _, i := range idx {
			if !inbox[i].Read {
				inbox[i].Read = true
				changed++
			}
		}
		if changed > 0 {
			if err := writeCollection(fs.InboxPath(agent), inbox); err != nil {
				return err
			}
		}
		result = pick(inbox, idx)
		fs.obs.MarkedRead(changed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Archive moves read messages older than olderThanDays to the archive.
// The archive is written first; if the inbox write then fails the archive
// is restored, so a failed call leaves both collections unchanged.
func (fs *FileStore) Archive(ctx context.Context, agent string, olderThanDays int) (int, error) {
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
	defer fs.observe("archive", time.Now())

	moved := 0
	err = fs.withRecipient(agent, func() error {
		inbox, err := readCollection(fs.InboxPath(agent))
		if err != nil {
			return err
		}
		toArchive, keep := partition(inbox, Cutoff(timeNow(), olderThanDays))
		if len(toArchive) == 0 {
			return nil
		}

		archivePath := fs.ArchivePath(agent)
		previous, err := os.ReadFile(archivePath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return storageErr("reading archive", err)
		}
		archived, err := decodeCollection(previous)
		if err != nil {
			return storageErr("parsing archive "+archivePath, err)
		}

		if err := writeCollection(archivePath, append(archived, toArchive...)); err != nil {
			return err
		}
		if err := writeCollection(fs.InboxPath(agent), keep); err != nil {
			if rbErr := restore(archivePath, previous); rbErr != nil {
				fs.log.Error().Err(rbErr).Str("agent", agent).Msg("restoring archive after failed inbox write")
			}
			return err
		}
		moved = len(toArchive)
		return nil
	})
	if err != nil {
		return 0, err
	}

	fs.obs.Archived(moved)
	if moved > 0 {
		fs.log.Debug().Str("agent", agent).Int("archived", moved).Msg("messages archived")
	}
	return moved, nil
}

// Archived returns the agent's archive collection in archive order.
func (fs *FileStore) Archived(ctx context.Context, agent string) ([]Message, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readCollection(fs.ArchivePath(agent))
}

// Stats summarizes the agent's inbox and archive.
func (fs *FileStore) Stats(ctx context.Context, agent string) (InboxStats, error) {
	agent, err := ValidateIdentity("agent_name", agent)
	if err != nil {
		return InboxStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return InboxStats{}, err
	}
	inbox, err := readCollection(fs.InboxPath(agent))
	if err != nil {
		return InboxStats{}, err
	}
	archived, err := readCollection(fs.ArchivePath(agent))
	if err != nil {
		return InboxStats{}, err
	}
	return computeStats(agent, inbox, len(archived)), nil
}

// Close is a no-op; the file store holds no open handles between calls.
func (fs *FileStore) Close() error { return nil }

// withRecipient runs fn inside the agent's critical section: an in-process
// mutex plus an advisory file lock shared with other relay processes.
func (fs *FileStore) withRecipient(agent string, fn func() error) error {
	mu := fs.recipientMutex(agent)
	mu.Lock()
	defer mu.Unlock()

	lock, err := filelock.Acquire(fs.lockPath(agent))
	if err != nil {
		return storageErr("locking inbox", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			fs.log.Warn().Err(err).Str("agent", agent).Msg("releasing inbox lock")
		}
	}()

	return fn()
}

func (fs *FileStore) recipientMutex(agent string) *sync.Mutex {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	mu, ok := fs.locks[agent]
	if !ok {
		mu = &sync.Mutex{}
		fs.locks[agent] = mu
	}
	return mu
}

func (fs *FileStore) observe(op string, start time.Time) {
	fs.obs.Observe(op, time.Since(start))
}

// --- Collection I/O ---

// readCollection loads a collection. A missing file is an empty collection;
// a corrupt one is a storage failure and is left untouched.
func readCollection(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Message{}, nil
		}
		return nil, storageErr("reading "+path, err)
	}
	msgs, err := decodeCollection(data)
	if err != nil {
		return nil, storageErr("parsing "+path, err)
	}
	return msgs, nil
}

func decodeCollection(data []byte) ([]Message, error) {
	msgs := []Message{}
	if len(data) == 0 {
		return msgs, nil
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// writeCollection replaces a collection atomically: the new content is
// written and synced to a temp file in the same directory, then renamed
// over the old file.
func writeCollection(path string, msgs []Message) error {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return storageErr("encoding collection", err)
	}
	if err := writeFile(path, data); err != nil {
		return storageErr("writing "+path, err)
	}
	return nil
}

// writeFile is a package-level var so tests can fail individual writes.
var writeFile = replaceFile

func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// restore puts a collection file back to previous content; nil content
// means the file did not exist.
func restore(path string, previous []byte) error {
	if previous == nil {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return replaceFile(path, previous)
}

func pick(msgs []Message, idx []int) []Message {
	out := make([]Message, len(idx))
	for i, j := range idx {
		out[i] = msgs[j]
	}
	return out
}
