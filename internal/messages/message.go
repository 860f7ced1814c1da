// Package messages implements the per-recipient inbox store.
//
// Every recipient owns one active inbox and one archive. Each operation is a
// fresh read-modify-write cycle against durable storage; there is no in-memory
// state between calls. Mutations of a recipient's collections happen inside a
// per-recipient critical section so concurrent writers never lose each
// other's changes.
package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// --- Priority enum ---

// Priority is the urgency of a message.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityRank orders priorities for triage; lower sorts first.
var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Priorities lists the accepted values in triage order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority validates a priority. The empty string means medium.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityMedium, nil
	}
	if _, ok := priorityRank[p]; !ok {
		return "", invalidArg("priority", "%q is not a priority: must be one of: high, medium, low", s)
	}
	return p, nil
}

// --- Errors ---

var (
	// ErrInvalidArgument marks input rejected before any storage access.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorage marks an I/O failure reading or writing a collection.
	// The collection is left as it was before the operation.
	ErrStorage = errors.New("storage failure")
	// ErrDuplicateID marks a generated id that already exists in the inbox.
	ErrDuplicateID = errors.New("duplicate message id")
)

// ArgumentError names the field that failed validation.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

func invalidArg(field, format string, args ...any) error {
	return &ArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func storageErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, action, err)
}

// --- Message ---

// Message is one addressed note. It is immutable once created except for
// the one-way Read transition.
type Message struct {
	ID           string    `json:"id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Body         string    `json:"message"`
	Priority     Priority  `json:"priority"`
	Timestamp    time.Time `json:"timestamp"`
	ContextFiles []string  `json:"context_files"`
	Read         bool      `json:"read"`
}

// legacyTimestampLayouts are zone-less ISO-8601 forms written by earlier
// relays; they are read as local time.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts records written by earlier relays: missing priority
// means medium, missing context_files means none, and timestamps may lack a
// zone offset.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var raw struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message(raw.plain)

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("message %q: %w", m.ID, err)
	}
	m.Timestamp = ts
	m.normalize()
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range legacyTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (m *Message) normalize() {
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if m.ContextFiles == nil {
		m.ContextFiles = []string{}
	}
}

// NewMessage holds the caller-supplied fields of a message to create.
type NewMessage struct {
	From         string
	To           string
	Body         string
	Priority     string
	ContextFiles []string
}

// build validates the input and stamps id and timestamp.
func (n NewMessage) build(now time.Time) (*Message, error) {
	from := n.From
	if strings.TrimSpace(from) == "" {
		return nil, invalidArg("from_agent", "must be a non-empty agent name")
	}
	to, err := ValidateIdentity("to_agent", n.To)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(n.Body) == "" {
		return nil, invalidArg("message", "must be non-empty text")
	}
	priority, err := ParsePriority(n.Priority)
	if err != nil {
		return nil, err
	}

	// Paths are kept verbatim; blank entries carry nothing.
	files := make([]string, 0, len(n.ContextFiles))
	for _, f := range n.ContextFiles {
		if strings.TrimSpace(f) != "" {
			files = append(files, f)
		}
	}

	now = now.UTC()
	return &Message{
		ID:           NewID(now, strings.TrimSpace(from)),
		From:         from,
		To:           to,
		Body:         n.Body,
		Priority:     priority,
		Timestamp:    now,
		ContextFiles: files,
		Read:         false,
	}, nil
}

// idFragmentLen is how much of the sender name an id carries.
const idFragmentLen = 8

// NewID derives a message id from the creation time and the sender. Ids sort
// lexically by creation time and stay readable in an inbox file.
func NewID(ts time.Time, from string) string {
	frag := from
	if r := []rune(frag); len(r) > idFragmentLen {
		frag = string(r[:idFragmentLen])
	}
	return fmt.Sprintf("msg-%s-%s", ts.UTC().Format("20060102-150405.000000000"), frag)
}

// ValidateIdentity checks that an agent name can key a collection. Names are
// free-form but must be usable as a single path segment.
func ValidateIdentity(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", invalidArg(field, "must be a non-empty agent name")
	case name == "." || name == "..":
		return "", invalidArg(field, "%q is not a valid agent name", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return "", invalidArg(field, "%q is not a valid agent name (must not contain path separators)", name)
	}
	return name, nil
}
