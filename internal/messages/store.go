package messages

import (
	"context"
	"time"
)

// Store defines the persistence interface for recipient inboxes.
// Abstracted so the request handler can run against either backend.
type Store interface {
	// Create validates and appends a message to the recipient's inbox,
	// creating the inbox if absent. It persists before returning.
	Create(ctx context.Context, in NewMessage) (*Message, error)
	// List returns the agent's messages in triage order, marking them read
	// when opts.MarkAsRead is set.
	List(ctx context.Context, agent string, opts ListOptions) ([]Message, error)
	// Archive moves read messages older than the given number of days into
	// the agent's archive and returns how many moved.
	Archive(ctx context.Context, agent string, olderThanDays int) (int, error)
	// Archived returns the agent's archive collection.
	Archived(ctx context.Context, agent string) ([]Message, error)
	// Stats summarizes the agent's inbox and archive.
	Stats(ctx context.Context, agent string) (InboxStats, error)
	Close() error
}

// Observer receives successful store mutations. The relay uses it for
// metrics; it must not block.
type Observer interface {
	Created(m *Message)
	MarkedRead(n int)
	Archived(n int)
	Observe(op string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) Created(*Message)              {}
func (nopObserver) MarkedRead(int)                {}
func (nopObserver) Archived(int)                  {}
func (nopObserver) Observe(string, time.Duration) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
