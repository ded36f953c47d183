// Package clock provides the monotonic tick source described in spec.md
// §2 and §6: a periodic "tick" event delivered to a replica at
// HEARTBEAT_IN_MS granularity, driving both heartbeat emission at a
// PROPOSER and timeout detection everywhere else.
package clock

import (
	"sync"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// Ticker drives a single replica's inbox with periodic HEARTBEAT
// envelopes. It is the out-of-scope Clock/Timer collaborator; the replica
// itself decides what a tick means for its current role.
type Ticker struct {
	nodeID string
	period time.Duration
	inbox  paxos.Inbox

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a Ticker that delivers to inbox every period.
func New(nodeID string, period time.Duration, inbox paxos.Inbox) *Ticker {
	return &Ticker{
		nodeID: nodeID,
		period: period,
		inbox:  inbox,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the ticker on its own goroutine until Stop is called.
func (t *Ticker) Start() {
	go t.run()
}

func (t *Ticker) run() {
	defer close(t.done)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.inbox.Deliver(paxos.Envelope{
				Header: paxos.Header{Type: paxos.TypeHeartbeatTick, From: "clock", To: t.nodeID},
			})
		}
	}
}

// Stop halts the ticker and waits for its goroutine to exit.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}
