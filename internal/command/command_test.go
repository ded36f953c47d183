package command

import "testing"

func TestSentinelIsZeroNoop(t *testing.T) {
	s := Sentinel()
	if s.Term != 0 || s.Index != 0 || s.Command.Kind != NOOP || s.Command.ID != 0 {
		t.Fatalf("unexpected sentinel: %+v", s)
	}
}

func TestCommandEqual(t *testing.T) {
	a := Command{ID: 1, Kind: ADD, Value: 5}
	b := Command{ID: 1, Kind: ADD, Value: 5}
	c := Command{ID: 1, Kind: ADD, Value: 6}
	if !a.Equal(b) {
		t.Fatalf("expected %v == %v", a, b)
	}
	if a.Equal(c) {
		t.Fatalf("expected %v != %v", a, c)
	}
}

func TestLogStartsWithSentinel(t *testing.T) {
	l := NewLog()
	if l.Len() != 1 {
		t.Fatalf("expected length 1, got %d", l.Len())
	}
	if l.At(0) != Sentinel() {
		t.Fatalf("expected entry 0 to be the sentinel")
	}
	if l.LastIndex() != 0 {
		t.Fatalf("expected last index 0, got %d", l.LastIndex())
	}
}

func TestLogAppendAndTruncate(t *testing.T) {
	l := NewLog()
	l.Append(LogEntry{Term: 1, Command: Command{ID: 1, Kind: ADD, Value: 5}, CreatorID: "n1", Index: 1})
	l.Append(LogEntry{Term: 1, Command: Command{ID: 2, Kind: ADD, Value: 2}, CreatorID: "n1", Index: 2})
	if l.Len() != 3 {
		t.Fatalf("expected length 3, got %d", l.Len())
	}

	l.Truncate(2)
	if l.Len() != 2 {
		t.Fatalf("expected length 2 after truncate(2), got %d", l.Len())
	}
	if l.LastIndex() != 1 {
		t.Fatalf("expected last index 1, got %d", l.LastIndex())
	}
}

func TestLogTruncateNeverDropsSentinel(t *testing.T) {
	l := NewLog()
	l.Append(LogEntry{Term: 1, Index: 1})
	l.Truncate(0)
	if l.Len() != 1 {
		t.Fatalf("expected truncate(0) to clamp to 1, got length %d", l.Len())
	}
}

func TestLogEntriesFromPastEndIsEmptyNotNil(t *testing.T) {
	l := NewLog()
	entries := l.Entries(5)
	if entries == nil {
		t.Fatalf("expected non-nil empty slice")
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries, got %d", len(entries))
	}
}

func TestLogAppendManyPreservesOrder(t *testing.T) {
	l := NewLog()
	l.AppendMany([]LogEntry{
		{Term: 1, Index: 1, Command: Command{ID: 1, Kind: ADD, Value: 1}},
		{Term: 1, Index: 2, Command: Command{ID: 2, Kind: ADD, Value: 2}},
	})
	got := l.Entries(1)
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
