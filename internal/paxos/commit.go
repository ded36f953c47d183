package paxos

import "github.com/cihadozcan/ahc-paxos/internal/command"

// commitEntriesLocked implements the leader's commit advancement (spec.md
// §4.7). Only entries created under the current term may advance
// commit_index directly; every index up to the end of the log is checked,
// so older-term entries below a committed current-term entry are committed
// along with it.
func (r *Replica) commitEntriesLocked() {
	lastCommitted := r.commitIndex
	for i := r.commitIndex + 1; i < uint64(r.log.Len()); i++ {
		if r.log.At(i).Term != r.currentTerm {
			continue
		}
		count := 1 // self
		for _, peer := range r.peerIDs() {
			if r.matchIndex[peer] >= i {
				count++
			}
		}
		if count >= r.quorum() {
			r.commitIndex = i
			r.logger.LogCommit(i, r.currentTerm)
		}
	}
	if r.commitIndex > lastCommitted {
		r.applyStepLocked()
		// The recovery suffix merged during the last election has now been
		// fully superseded by genuinely committed entries; drop it so a
		// later client request's index computation reflects only the
		// still-uncommitted tail, not stale recovery bookkeeping.
		r.promotedEntries = nil
	}
}

// applyStepLocked executes every committed-but-unapplied command against
// the state machine (spec.md §4.7). When the leader catches its own
// lastApplied up to the tail of the log, it broadcasts a heartbeat and
// emits exactly one client response for the command it just applied.
func (r *Replica) applyStepLocked() {
	for i := r.lastApplied + 1; i <= r.commitIndex; i++ {
		entry := r.log.At(i)
		r.applyCommandLocked(entry.Command)
		r.lastApplied = i
		r.logger.LogApply(i, entry.Command)
	}

	if r.role == Proposer && r.lastApplied == uint64(r.log.Len())-1 {
		r.broadcastHeartbeatLocked()
		if r.log.At(r.lastApplied).Command.ID != 0 {
			r.sendClientResponseLocked()
		}
	}
}

// applyCommandLocked folds a single command into state_machine_value.
// MULTIPLY and DIVIDE are reserved: spec.md §4.7 lists them but the
// original never implements either.
func (r *Replica) applyCommandLocked(cmd command.Command) {
	switch cmd.Kind {
	case command.ADD:
		r.stateMachineValue += cmd.Value
	case command.SUBTRACT:
		r.stateMachineValue -= cmd.Value
	case command.NOOP:
		// no-op filler or sentinel
	case command.MULTIPLY, command.DIVIDE:
		r.logger.Warn("command kind %s is reserved and not applied", cmd.Kind)
	}
}

// applyAsFollowerLocked implements the non-leader commit/apply path driven
// by a leader's advertised commit index (spec.md §4.5, §4.7).
func (r *Replica) applyAsFollowerLocked(leaderCommit uint64) {
	newCommitIndex := minUint64(leaderCommit, uint64(r.log.Len())-1)
	if newCommitIndex <= r.commitIndex {
		return
	}
	r.commitIndex = newCommitIndex
	r.applyStepLocked()
}

// sendClientResponseLocked emits the response for the most recently applied
// command (spec.md §4.7). The leader sends at most one response per
// committed client command; a retransmitted duplicate is answered again
// with the same success response, relying on the client to detect the
// repeat by comparing command identity.
func (r *Replica) sendClientResponseLocked() {
	entry := r.log.At(r.lastApplied)
	r.transport.SendDown(Envelope{
		Header:         Header{Type: TypeClientResponse, From: r.id},
		ClientResponse: &ClientResponsePayload{Success: true, Command: entry.Command},
	})
}

// handleClientRequestLocked implements CLIENT_REQUEST receipt (spec.md
// §4.5). Only a PROPOSER acts; any other role silently drops the request,
// relying on the client's own retry loop to eventually reach the leader.
func (r *Replica) handleClientRequestLocked(env Envelope) {
	if r.role != Proposer {
		return
	}
	cmd := env.ClientRequest
	if cmd == nil {
		r.logger.Invariant("CLIENT_REQUEST envelope missing payload", r.role, r.currentTerm, TypeClientRequest)
		return
	}

	// A retransmit of the most recently applied command is answered again
	// rather than appended a second time.
	if last := r.log.At(r.lastApplied).Command; last.ID != 0 && last.ID == cmd.ID {
		r.sendClientResponseLocked()
		return
	}

	index := r.commitIndex + uint64(len(r.promotedEntries)) + 1
	entry := command.LogEntry{Term: r.currentTerm, Command: *cmd, CreatorID: r.id, Index: index}
	r.log.Append(entry)
	r.promotedEntries = append(r.promotedEntries, entry)

	r.sendProposeToPeersLocked()
}
