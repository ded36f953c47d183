package paxos

import (
	"testing"

	"github.com/cihadozcan/ahc-paxos/internal/command"
)

func testReplica(id string, ordinal, clusterSize int) *Replica {
	return NewReplica(Config{
		ID:          id,
		Ordinal:     ordinal,
		Peers:       []string{"n1", "n2", "n3"},
		ClusterSize: clusterSize,
		Transport:   &fakeTransport{},
	})
}

func TestMergePromotedEntriesEmptyIsNoop(t *testing.T) {
	r := testReplica("n1", 1, 3)
	r.promotedEntries = []command.LogEntry{{Index: 1, Term: 1}}
	r.mergePromotedEntriesLocked(nil)
	if len(r.promotedEntries) != 1 {
		t.Fatalf("expected promotedEntries untouched, got %+v", r.promotedEntries)
	}
}

func TestMergePromotedEntriesFillsGaps(t *testing.T) {
	r := testReplica("n1", 1, 3)
	r.mergePromotedEntriesLocked([]command.LogEntry{
		{Index: 1, Term: 1, CreatorID: "n2"},
		{Index: 3, Term: 1, CreatorID: "n2"},
	})
	if len(r.promotedEntries) != 3 {
		t.Fatalf("expected a filler at index 2, got %+v", r.promotedEntries)
	}
	if r.promotedEntries[1].Index != 2 || r.promotedEntries[1].Command.Kind != command.NOOP {
		t.Fatalf("expected NOOP filler at index 2, got %+v", r.promotedEntries[1])
	}
	if r.promotedEntries[1].CreatorID != "n1" {
		t.Fatalf("expected filler creator to be self, got %q", r.promotedEntries[1].CreatorID)
	}
}

func TestMergePromotedEntriesKeepsHigherTermOnConflict(t *testing.T) {
	r := testReplica("n1", 1, 3)
	r.promotedEntries = []command.LogEntry{{Index: 1, Term: 1, CreatorID: "n1"}}
	r.mergePromotedEntriesLocked([]command.LogEntry{{Index: 1, Term: 2, CreatorID: "n2"}})
	if len(r.promotedEntries) != 1 {
		t.Fatalf("expected one surviving entry, got %+v", r.promotedEntries)
	}
	if r.promotedEntries[0].Term != 2 || r.promotedEntries[0].CreatorID != "n2" {
		t.Fatalf("expected the higher-term entry to win, got %+v", r.promotedEntries[0])
	}
}

func TestMergePromotedEntriesTieBreaksByCreatorID(t *testing.T) {
	r := testReplica("n1", 1, 3)
	r.promotedEntries = []command.LogEntry{{Index: 1, Term: 2, CreatorID: "n1"}}
	r.mergePromotedEntriesLocked([]command.LogEntry{{Index: 1, Term: 2, CreatorID: "n2"}})
	if r.promotedEntries[0].CreatorID != "n2" {
		t.Fatalf("expected the higher creator id to win a term tie, got %+v", r.promotedEntries[0])
	}

	r2 := testReplica("n1", 1, 3)
	r2.promotedEntries = []command.LogEntry{{Index: 1, Term: 2, CreatorID: "n3"}}
	r2.mergePromotedEntriesLocked([]command.LogEntry{{Index: 1, Term: 2, CreatorID: "n2"}})
	if r2.promotedEntries[0].CreatorID != "n3" {
		t.Fatalf("expected the already-higher creator id to survive, got %+v", r2.promotedEntries[0])
	}
}

func TestMergePromotedEntriesAccumulatesAcrossCalls(t *testing.T) {
	r := testReplica("n1", 1, 3)
	r.mergePromotedEntriesLocked([]command.LogEntry{{Index: 1, Term: 1, CreatorID: "n2"}})
	r.mergePromotedEntriesLocked([]command.LogEntry{{Index: 2, Term: 1, CreatorID: "n3"}})
	if len(r.promotedEntries) != 2 {
		t.Fatalf("expected entries from both calls to accumulate, got %+v", r.promotedEntries)
	}
}
