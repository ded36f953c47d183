// Package chaos provides the fault-injection ("sleep trigger") generator
// described in spec.md §2, §4.8 and §6: periodically it selects a handful
// of node ids and broadcasts a pause request to every replica, each of
// which checks whether its own id was targeted.
package chaos

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// Config carries the tunables from spec.md §6: SleepInterval default 2s,
// SleepTime default 1s, SleepLeader default false, Targets default 1.
type Config struct {
	NodeIDs      []string
	SleepInterval time.Duration
	SleepTime     time.Duration
	SleepLeader   bool
	Targets       int
}

// Source periodically emits a SLEEP_TRIGGER envelope to every replica.
type Source struct {
	cfg    Config
	inboxes map[string]paxos.Inbox

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a Source that broadcasts to every inbox in inboxes.
func New(cfg Config, inboxes map[string]paxos.Inbox) *Source {
	return &Source{
		cfg:     cfg,
		inboxes: inboxes,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the source on its own goroutine until Stop is called.
func (s *Source) Start() {
	go s.run()
}

func (s *Source) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.SleepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.fire()
		}
	}
}

func (s *Source) fire() {
	targets := sample(s.cfg.NodeIDs, s.cfg.Targets)
	env := paxos.Envelope{
		Header: paxos.Header{Type: paxos.TypeSleepTrigger, From: "chaos"},
		SleepTrigger: &paxos.SleepTriggerPayload{
			TargetIDs:   targets,
			SleepLeader: s.cfg.SleepLeader,
			TimeToSleep: s.cfg.SleepTime,
		},
	}
	for _, inbox := range s.inboxes {
		inbox.Deliver(env)
	}
}

// Stop halts the source and waits for its goroutine to exit.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// sample draws n distinct ids from ids without replacement, using
// crypto/rand for the same reason util.go in the paxos package does.
func sample(ids []string, n int) []string {
	if n >= len(ids) {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}
	pool := make([]string, len(ids))
	copy(pool, ids)
	out := make([]string, 0, n)
	for i := 0; i < n && len(pool) > 0; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
		if err != nil {
			break
		}
		j := idx.Int64()
		out = append(out, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return out
}
