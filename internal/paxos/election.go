package paxos

import "time"

// sendPrepareToPeersLocked starts (or restarts) an election: bump the term
// by the cluster size, record self as the first promise, snapshot the
// uncommitted suffix as the initial promoted-entries candidate, and
// broadcast PREPARE to every peer (spec.md §4.3, §4.4).
func (r *Replica) sendPrepareToPeersLocked() {
	r.resetTimerLocked()
	r.setRoleLocked(Candidate)
	r.currentTerm += uint64(r.clusterSize)
	term := r.currentTerm
	r.promisedTerm = &term
	r.promisesReceived = map[string]struct{}{r.id: {}}
	r.promotedEntries = r.log.Entries(r.commitIndex + 1)
	r.electionStartedAt = time.Now()

	r.logger.LogElectionStart(r.currentTerm)
	r.stats.ElectionStarted(r.currentTerm)

	commitIndex := r.commitIndex
	for _, peer := range r.peerIDs() {
		r.transport.SendPeer(Envelope{
			Header: Header{Type: TypePrepare, From: r.id, To: peer},
			Prepare: &PreparePayload{
				Term:                term,
				ProposerID:          r.id,
				ProposerCommitIndex: commitIndex,
			},
		})
	}
}

// handlePrepareLocked implements PREPARE receipt for any role (spec.md
// §4.4). A promise is granted only for a term strictly greater than both
// the term currently being served and the highest term already promised.
func (r *Replica) handlePrepareLocked(env Envelope) {
	p := env.Prepare
	if p == nil {
		r.logger.Invariant("PREPARE envelope missing payload", r.role, r.currentTerm, TypePrepare)
		return
	}

	grant := p.Term > r.currentTerm && (r.promisedTerm == nil || p.Term > *r.promisedTerm)
	if !grant {
		r.logger.LogVoteDenied(p.ProposerID, p.Term, "term not strictly greater than current/promised")
		r.transport.SendPeer(Envelope{
			Header:  Header{Type: TypePromise, From: r.id, To: p.ProposerID},
			Promise: &PromisePayload{VoteGranted: false, Term: r.currentTerm},
		})
		return
	}

	r.setRoleLocked(Acceptor)
	term := p.Term
	r.promisedTerm = &term
	r.currentTerm = maxUint64(r.currentTerm, p.Term)
	r.resetTimerLocked()
	r.logger.LogVoteGranted(p.ProposerID, p.Term)

	entries := r.log.Entries(p.ProposerCommitIndex + 1)
	r.transport.SendPeer(Envelope{
		Header: Header{Type: TypePromise, From: r.id, To: p.ProposerID},
		Promise: &PromisePayload{
			VoteGranted: true,
			Term:        r.currentTerm,
			Entries:     entries,
		},
	})
}

// handlePromiseLocked implements PROMISE receipt. It is meaningful only to
// a CANDIDATE collecting votes for the election it started; any other role
// ignores it silently, since a delayed promise can arrive after the
// election already resolved one way or another.
func (r *Replica) handlePromiseLocked(env Envelope) {
	if r.role != Candidate {
		return
	}
	p := env.Promise
	if p == nil {
		r.logger.Invariant("PROMISE envelope missing payload", r.role, r.currentTerm, TypePromise)
		return
	}
	if !p.VoteGranted {
		if p.Term > r.currentTerm {
			r.becomeFollowerLocked(p.Term)
		}
		return
	}

	sender := env.Header.From
	r.promisesReceived[sender] = struct{}{}
	r.mergePromotedEntriesLocked(p.Entries)

	if len(r.promisesReceived) > r.clusterSize/2 {
		r.becomeProposerLocked()
	}
}

// handleTickLocked implements the Clock collaborator's periodic tick
// (spec.md §4.6). Behavior depends entirely on the current role.
func (r *Replica) handleTickLocked() {
	switch r.role {
	case Proposer:
		r.broadcastHeartbeatLocked()
	case Follower:
		if r.isTimedOutLocked() && r.promisedTerm == nil {
			r.setRoleLocked(Candidate)
			r.sendPrepareToPeersLocked()
		}
	case Candidate:
		if r.isTimedOutLocked() {
			r.logger.LogElectionTimeout()
			r.sendPrepareToPeersLocked()
		}
	case Acceptor:
		// A tick alone never moves an ACCEPTOR; it waits for a
		// higher-term PREPARE or PROPOSE to reclassify it.
	}
}

// becomeProposerLocked transitions to PROPOSER once a strict majority of
// promises has been collected (or, for the seed leader at startup, once
// chosen deterministically; see Start). It initializes per-peer replication
// state, broadcasts an immediate heartbeat, and re-emits a response for any
// carried-over pending client command (spec.md §4.5).
func (r *Replica) becomeProposerLocked() {
	r.setRoleLocked(Proposer)
	r.promisedTerm = nil

	// Install the reconciled recovery suffix as the authoritative log tail:
	// promotedEntries may contain entries collected from promisers that
	// this node never had locally (spec.md §4.2, §8 scenario 4), so they
	// must become part of the log itself before they can be replicated via
	// the normal propose path.
	r.log.Truncate(r.commitIndex + 1)
	r.log.AppendMany(r.promotedEntries)

	if !r.electionStartedAt.IsZero() {
		r.stats.LeaderElected(r.currentTerm, time.Since(r.electionStartedAt))
		r.logger.LogElectionWon(r.currentTerm, len(r.promisesReceived), r.quorum())
		r.electionStartedAt = time.Time{}
	}

	for _, peer := range r.peerIDs() {
		r.nextIndex[peer] = r.commitIndex + 1
		r.matchIndex[peer] = 0
	}

	r.broadcastHeartbeatLocked()

	if r.lastApplied < uint64(r.log.Len()) && r.log.At(r.lastApplied).Command.ID != 0 {
		r.sendClientResponseLocked()
	}
}
