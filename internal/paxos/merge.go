package paxos

import (
	"sort"

	"github.com/cihadozcan/ahc-paxos/internal/command"
)

// mergePromotedEntriesLocked reconciles a newly received promise suffix
// into promotedEntries (spec.md §4.2). It is the safety-critical step of
// leader election: the merged suffix is what the candidate will replicate
// once it becomes leader.
//
// Algorithm: concatenate the current promotedEntries with the incoming
// entries, stable-sort by index, then collapse same-index runs keeping the
// highest term; on a term tie the entry with the higher creator id wins,
// which makes the outcome deterministic regardless of arrival order. Finally fill
// any index gap between surviving slots with a NOOP filler so the suffix
// stays contiguous.
func (r *Replica) mergePromotedEntriesLocked(entries []command.LogEntry) {
	if len(entries) == 0 {
		return
	}

	combined := make([]command.LogEntry, 0, len(r.promotedEntries)+len(entries))
	combined = append(combined, r.promotedEntries...)
	combined = append(combined, entries...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Index < combined[j].Index
	})

	collapsed := make([]command.LogEntry, 0, len(combined))
	for _, e := range combined {
		n := len(collapsed)
		if n == 0 || collapsed[n-1].Index != e.Index {
			collapsed = append(collapsed, e)
			continue
		}
		cur := collapsed[n-1]
		switch {
		case e.Term > cur.Term:
			collapsed[n-1] = e
		case e.Term == cur.Term && e.CreatorID > cur.CreatorID:
			// Deterministic tie-break: higher peer id ordering wins,
			// independent of which arrived first (spec.md §4.2 step 2).
			collapsed[n-1] = e
		}
	}

	if len(collapsed) == 0 {
		r.promotedEntries = collapsed
		return
	}

	filled := make([]command.LogEntry, 0, len(collapsed))
	filled = append(filled, collapsed[0])
	for i := 1; i < len(collapsed); i++ {
		prevIndex := filled[len(filled)-1].Index
		for gap := prevIndex + 1; gap < collapsed[i].Index; gap++ {
			filled = append(filled, command.Filler(r.id, gap))
		}
		filled = append(filled, collapsed[i])
	}

	r.promotedEntries = filled
}
