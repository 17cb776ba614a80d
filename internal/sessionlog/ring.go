package sessionlog

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity bounds the entries kept by a Ring.
const DefaultCapacity = 200

// Entry is one captured record.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	// Source is the slog group, or the bracketed tag at the start of the
	// message ("WARN-CONFIG" for "[WARN-CONFIG] ...").
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newEntry(record slog.Record, group string) Entry {
	entry := Entry{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Source:    group,
	}
	if entry.Source == "" {
		entry.Source = messageTag(record.Message)
	}
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "error" {
			entry.Error = attr.Value.String()
			return false
		}
		return true
	})
	return entry
}

func messageTag(msg string) string {
	if !strings.HasPrefix(msg, "[") {
		return ""
	}
	end := strings.IndexByte(msg, ']')
	if end <= 1 {
		return ""
	}
	return msg[1:end]
}

// Ring keeps the most recent entries in arrival order.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	size    int
	seq     uint64
}

// NewRing returns a ring holding up to capacity entries. A non-positive
// capacity uses DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Append stores entry with the next sequence number, evicting the oldest
// entry when full, and returns the stored entry.
func (r *Ring) Append(entry Entry) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	entry.Seq = r.seq
	r.entries[(r.head+r.size)%len(r.entries)] = entry
	if r.size < len(r.entries) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.entries)
	}
	return entry
}

// Entries returns a copy, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.size)
	for i := range r.size {
		out[i] = r.entries[(r.head+i)%len(r.entries)]
	}
	return out
}

// Clear drops every entry. Sequence numbers keep increasing.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.head, r.size = 0, 0
}
