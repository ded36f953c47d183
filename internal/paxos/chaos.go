package paxos

import "time"

// handleSleepTriggerLocked implements the chaos fault-injection event
// (spec.md §4.8). It is the only deliberate suspension point in the core:
// the blocking sleep below holds the replica's single goroutine, so inbound
// events queue on the buffered channel and are processed in order once the
// node resumes as FOLLOWER.
func (r *Replica) handleSleepTriggerLocked(env Envelope) {
	p := env.SleepTrigger
	if p == nil {
		r.logger.Invariant("SLEEP_TRIGGER envelope missing payload", r.role, r.currentTerm, TypeSleepTrigger)
		return
	}

	targeted := false
	for _, id := range p.TargetIDs {
		if id == r.id {
			targeted = true
			break
		}
	}
	if !targeted {
		return
	}

	if r.role == Proposer && !p.SleepLeader {
		peer := r.chooseRandomNonLeaderPeerLocked(p.TargetIDs)
		if peer == "" {
			return
		}
		r.transport.SendPeer(Envelope{
			Header:       Header{Type: TypeSleepTrigger, From: r.id, To: peer},
			SleepTrigger: p,
		})
		return
	}

	r.logger.Warn("sleeping for %s on chaos trigger", p.TimeToSleep)
	r.sleeping = true
	r.mu.Unlock()
	time.Sleep(p.TimeToSleep)
	r.mu.Lock()
	r.sleeping = false
	r.becomeFollowerLocked(r.currentTerm)
}

// chooseRandomNonLeaderPeerLocked picks one peer id not already present in
// excluded (spec.md §4.8: "forward to one randomly chosen non-leader peer
// not already in target_ids").
func (r *Replica) chooseRandomNonLeaderPeerLocked(excluded []string) string {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}

	candidates := make([]string, 0, len(r.peers))
	for _, peer := range r.peers {
		if _, skip := excludedSet[peer]; !skip {
			candidates = append(candidates, peer)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[int(randomUint32())%len(candidates)]
}
