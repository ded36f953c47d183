package paxos

import "github.com/cihadozcan/ahc-paxos/internal/command"

// broadcastHeartbeatLocked sends the nil-entries PROPOSE variant to every
// peer (spec.md §4.5, §4.6). Used both on becoming leader and on every
// subsequent tick while PROPOSER.
func (r *Replica) broadcastHeartbeatLocked() {
	for _, peer := range r.peerIDs() {
		r.transport.SendPeer(Envelope{
			Header: Header{Type: TypePropose, From: r.id, To: peer},
			Propose: &ProposePayload{
				Term:         r.currentTerm,
				PrevLogIndex: r.commitIndex,
				PrevLogTerm:  r.termAtLocked(r.commitIndex),
				Entries:      nil,
				LeaderCommit: r.commitIndex,
			},
		})
	}
	r.logger.LogHeartbeatSent(r.currentTerm, len(r.peers))
}

// sendProposeToPeerLocked replicates the log tail starting at
// nextIndex[peer], re-terming every entry to currentTerm in a copy so the
// leader's own stored log entries are never mutated by transmission (the
// source mutates entries in place when proposing; this keeps the log the
// single owner of its own entries' terms).
func (r *Replica) sendProposeToPeerLocked(peer string) {
	next := r.nextIndex[peer]
	if next == 0 {
		next = 1
	}
	prevLogIndex := next - 1
	entries := r.log.Entries(next)
	retermed := make([]command.LogEntry, len(entries))
	for i, e := range entries {
		e.Term = r.currentTerm
		retermed[i] = e
	}

	r.transport.SendPeer(Envelope{
		Header: Header{Type: TypePropose, From: r.id, To: peer},
		Propose: &ProposePayload{
			Term:         r.currentTerm,
			PrevLogIndex: prevLogIndex,
			PrevLogTerm:  r.termAtLocked(prevLogIndex),
			Entries:      retermed,
			LeaderCommit: r.commitIndex,
		},
	})
}

func (r *Replica) sendProposeToPeersLocked() {
	for _, peer := range r.peerIDs() {
		r.sendProposeToPeerLocked(peer)
	}
}

func (r *Replica) termAtLocked(index uint64) uint64 {
	if index >= uint64(r.log.Len()) {
		return 0
	}
	return r.log.At(index).Term
}

// handleProposeLocked implements PROPOSE receipt for any role (spec.md
// §4.5). The conflict scan walks every overlapping index between the
// incoming entries and the local log rather than stopping after the first
// one, since checking a single offset can miss a later mismatch and leave
// divergent entries coexisting at the same index.
func (r *Replica) handleProposeLocked(env Envelope) {
	p := env.Propose
	if p == nil {
		r.logger.Invariant("PROPOSE envelope missing payload", r.role, r.currentTerm, TypePropose)
		return
	}
	if p.IsHeartbeat() {
		r.handleHeartbeatLocked(env)
		return
	}

	r.resetTimerLocked()
	r.logger.LogAppendEntries(env.Header.From, p.Term, p.PrevLogIndex, len(p.Entries))

	if p.Term < r.currentTerm {
		r.replyAcceptLocked(env.Header.From, false, p.PrevLogIndex)
		return
	}
	r.becomeFollowerLocked(p.Term)

	if uint64(r.log.Len()) < p.PrevLogIndex+1 || r.termAtLocked(p.PrevLogIndex) != p.PrevLogTerm {
		r.replyAcceptLocked(env.Header.From, false, p.PrevLogIndex)
		return
	}

	overlap := uint64(r.log.Len()) - 1 - p.PrevLogIndex
	if overlap > uint64(len(p.Entries)) {
		overlap = uint64(len(p.Entries))
	}
	conflictAt := -1
	for i := uint64(0); i < overlap; i++ {
		localIndex := p.PrevLogIndex + 1 + i
		if r.log.At(localIndex).Term != p.Entries[i].Term {
			conflictAt = int(i)
			break
		}
	}
	switch {
	case conflictAt >= 0:
		r.log.Truncate(p.PrevLogIndex + 1 + uint64(conflictAt))
		r.log.AppendMany(p.Entries[conflictAt:])
	case uint64(len(p.Entries)) > overlap:
		r.log.AppendMany(p.Entries[overlap:])
	}

	index := p.PrevLogIndex + uint64(len(p.Entries))
	r.replyAcceptLocked(env.Header.From, true, index)
	r.applyAsFollowerLocked(p.LeaderCommit)
}

func (r *Replica) replyAcceptLocked(to string, success bool, index uint64) {
	r.transport.SendPeer(Envelope{
		Header: Header{Type: TypeAccept, From: r.id, To: to},
		Accept: &AcceptPayload{Success: success, Term: r.currentTerm, Index: index},
	})
}

// handleHeartbeatLocked implements the nil-entries PROPOSE variant at a
// non-leader (spec.md §4.6). A higher term always demotes the receiver to
// FOLLOWER and runs apply-as-follower with the leader's commit index.
func (r *Replica) handleHeartbeatLocked(env Envelope) {
	p := env.Propose
	r.resetTimerLocked()
	r.logger.LogHeartbeatReceived(env.Header.From, p.Term)
	if p.Term > r.currentTerm {
		r.becomeFollowerLocked(p.Term)
	}
	if p.Term >= r.currentTerm {
		r.applyAsFollowerLocked(p.LeaderCommit)
	}
}

// handleAcceptLocked implements ACCEPT receipt, meaningful only to the
// current PROPOSER. The fix required here (spec.md §9): match_index and
// next_index are derived from the index the follower itself already
// computed as prevLogIndex+len(entries), never recomputed from the
// leader's own, possibly since-mutated, promotedEntries length.
func (r *Replica) handleAcceptLocked(env Envelope) {
	if r.role != Proposer {
		return
	}
	a := env.Accept
	if a == nil {
		r.logger.Invariant("ACCEPT envelope missing payload", r.role, r.currentTerm, TypeAccept)
		return
	}
	sender := env.Header.From

	if a.Success {
		if a.Index == r.matchIndex[sender] {
			return // stale duplicate of an already-recorded accept
		}
		r.matchIndex[sender] = a.Index
		r.nextIndex[sender] = a.Index + 1
		r.commitEntriesLocked()
		return
	}

	if a.Term > r.currentTerm {
		r.becomeFollowerLocked(a.Term)
		return
	}

	next := r.nextIndex[sender]
	if next > 1 {
		r.nextIndex[sender] = next - 1
	}
	r.sendProposeToPeerLocked(sender)
}
