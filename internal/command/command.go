// Package command defines the wire-level data model shared by every
// component of the cluster: client commands, log entries, and the
// append-only log they live in.
package command

import "fmt"

// Kind identifies the operation a Command applies to the state machine.
type Kind string

const (
	NOOP     Kind = "NOOP"
	ADD      Kind = "ADD"
	SUBTRACT Kind = "SUBTRACT"
	MULTIPLY Kind = "MULTIPLY"
	DIVIDE   Kind = "DIVIDE"
)

// Command is a single client-issued operation. Two commands are equal iff
// all three fields match. ID is client-assigned and monotonically
// increasing per client.
type Command struct {
	ID    uint64 `json:"id"`
	Kind  Kind   `json:"kind"`
	Value int64  `json:"value"`
}

// Equal reports whether c and other carry the same id, kind, and value.
func (c Command) Equal(other Command) bool {
	return c.ID == other.ID && c.Kind == other.Kind && c.Value == other.Value
}

func (c Command) String() string {
	return fmt.Sprintf("Command(id=%d, kind=%s, value=%d)", c.ID, c.Kind, c.Value)
}

// noopCommand is the zero-value command carried by sentinel and filler
// entries. Its ID is 0, which is how the replica distinguishes "no
// pending client command" from a real one (see Replica.becomeProposerLocked).
var noopCommand = Command{ID: 0, Kind: NOOP, Value: 0}

// LogEntry is a single position in the replicated log.
type LogEntry struct {
	Term      uint64  `json:"term"`
	Command   Command `json:"command"`
	CreatorID string  `json:"creatorId"`
	Index     uint64  `json:"index"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("LogEntry(term=%d, command=%s, creator=%s, index=%d)", e.Term, e.Command, e.CreatorID, e.Index)
}

// Sentinel returns the fixed entry 0 of every log: a term-0 NOOP with no
// creator.
func Sentinel() LogEntry {
	return LogEntry{Term: 0, Command: noopCommand, CreatorID: "", Index: 0}
}

// Filler returns a term-0 NOOP entry used to keep a merged promoted-entries
// suffix contiguous (spec §4.2 step 3).
func Filler(creatorID string, index uint64) LogEntry {
	return LogEntry{Term: 0, Command: noopCommand, CreatorID: creatorID, Index: index}
}

// Log is an ordered, never-sparse sequence of entries. Entry 0 is always
// the sentinel and log[i].Index == i is an invariant maintained by every
// mutator below.
type Log struct {
	entries []LogEntry
}

// NewLog returns a Log containing only the sentinel entry.
func NewLog() *Log {
	return &Log{entries: []LogEntry{Sentinel()}}
}

// Len returns the number of entries, including the sentinel.
func (l *Log) Len() int {
	return len(l.entries)
}

// LastIndex returns the index of the final entry.
func (l *Log) LastIndex() uint64 {
	return uint64(len(l.entries) - 1)
}

// At returns the entry at index i. It panics if i is out of range; callers
// are expected to have checked Len() first, as every call site in this
// repository does.
func (l *Log) At(i uint64) LogEntry {
	return l.entries[i]
}

// Entries returns a copy of the entries at and after from, inclusive.
// Returns an empty (non-nil) slice if from is past the end.
func (l *Log) Entries(from uint64) []LogEntry {
	if from >= uint64(len(l.entries)) {
		return []LogEntry{}
	}
	out := make([]LogEntry, len(l.entries)-int(from))
	copy(out, l.entries[from:])
	return out
}

// Append adds a single entry. The caller must set its Index to Len().
func (l *Log) Append(e LogEntry) {
	l.entries = append(l.entries, e)
}

// AppendMany appends entries in order.
func (l *Log) AppendMany(es []LogEntry) {
	l.entries = append(l.entries, es...)
}

// Truncate drops entries from index i (inclusive) onward. i must be >= 1;
// the sentinel is never truncated.
func (l *Log) Truncate(i uint64) {
	if i == 0 {
		i = 1
	}
	if i >= uint64(len(l.entries)) {
		return
	}
	l.entries = l.entries[:i]
}
