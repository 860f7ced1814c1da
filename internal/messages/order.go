package messages

import (
	"sort"
	"time"
)

// ListOptions filters and controls a List call.
type ListOptions struct {
	// Priority keeps only messages of this priority when non-empty.
	Priority Priority
	// IncludeRead returns already-read messages too.
	IncludeRead bool
	// MarkAsRead flips every returned message to read before returning.
	MarkAsRead bool
}

// Less reports whether a sorts before b in triage order: higher priority
// first, then oldest first, then by id (which embeds creation order).
func Less(a, b Message) bool {
	ra, rb := rank(a.Priority), rank(b.Priority)
	if ra != rb {
		return ra < rb
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func rank(p Priority) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityMedium]
}

// Sort orders messages in place in triage order.
func Sort(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return Less(msgs[i], msgs[j]) })
}

// selectMessages returns the indexes of msgs matching opts, in triage order.
func selectMessages(msgs []Message, opts ListOptions) []int {
	var idx []int
	for i, m := range msgs {
		if m.Read && !opts.IncludeRead {
			continue
		}
		if opts.Priority != "" && m.Priority != opts.Priority {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return Less(msgs[idx[a]], msgs[idx[b]]) })
	return idx
}

// validateListOptions rejects a malformed priority filter.
func validateListOptions(opts ListOptions) (ListOptions, error) {
	if opts.Priority == "" {
		return opts, nil
	}
	p, err := ParsePriority(string(opts.Priority))
	if err != nil {
		return opts, invalidArg("priority_filter", "%q is not a priority: must be one of: high, medium, low", opts.Priority)
	}
	opts.Priority = p
	return opts, nil
}

// Cutoff returns the archive threshold for olderThanDays relative to now.
// Calendar arithmetic keeps very large day counts in the past.
func Cutoff(now time.Time, olderThanDays int) time.Time {
	return now.AddDate(0, 0, -olderThanDays)
}

// archivable reports whether m may move to the archive. Unread messages
// never move; messages without a timestamp cannot be aged and stay.
func archivable(m Message, cutoff time.Time) bool {
	return m.Read && !m.Timestamp.IsZero() && m.Timestamp.Before(cutoff)
}

// partition splits msgs into those to archive and those to keep, preserving
// order in both.
func partition(msgs []Message, cutoff time.Time) (archive, keep []Message) {
	keep = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if archivable(m, cutoff) {
			archive = append(archive, m)
		} else {
			keep = append(keep, m)
		}
	}
	return archive, keep
}

// InboxStats summarizes one recipient's collections.
type InboxStats struct {
	Agent    string           `json:"agent"`
	Total    int              `json:"total"`
	Unread   int              `json:"unread"`
	ByUnread map[Priority]int `json:"unread_by_priority"`
	Archived int              `json:"archived"`
}

func computeStats(agent string, inbox []Message, archived int) InboxStats {
	st := InboxStats{
		Agent:    agent,
		Total:    len(inbox),
		ByUnread: map[Priority]int{PriorityHigh: 0, PriorityMedium: 0, PriorityLow: 0},
		Archived: archived,
	}
	for _, m := range inbox {
		if !m.Read {
			st.Unread++
			st.ByUnread[m.Priority]++
		}
	}
	return st
}

func validateDays(days int) error {
	if days < 0 {
		return invalidArg("older_than_days", "%d is negative: must be a non-negative integer", days)
	}
	return nil
}
