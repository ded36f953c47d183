package transport

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// Memory is an in-process Transport that models the lossy, unordered
// network described in spec.md §2 and §6: delivery is asynchronous
// (dispatched on its own goroutine per message) and may be dropped
// entirely, with a configurable probability. It never blocks the caller.
// This is the reimplementation of the "simulated lossy network" idea the
// xapon-raft labrpc package describes in prose, since that package itself
// has no real module path to import.
type Memory struct {
	mu    sync.RWMutex
	boxes map[string]paxos.Inbox

	downMu sync.RWMutex
	down   paxos.Inbox

	// DropProbability, in [0,1], is the chance any single send is
	// silently dropped. Zero means a perfectly reliable network.
	DropProbability float64

	// Latency, if non-zero, delays each delivery by a random duration in
	// [0, Latency) to exercise reordering.
	Latency time.Duration
}

// NewMemory returns a reliable, zero-latency Memory transport. Callers
// tune DropProbability/Latency directly for chaos-style tests.
func NewMemory() *Memory {
	return &Memory{boxes: make(map[string]paxos.Inbox)}
}

// Register associates id with the Inbox that should receive envelopes
// addressed to it. Call once per replica before traffic starts.
func (m *Memory) Register(id string, inbox paxos.Inbox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boxes[id] = inbox
}

// RegisterClient sets the single down-link inbox used by SendDown.
func (m *Memory) RegisterClient(inbox paxos.Inbox) {
	m.downMu.Lock()
	defer m.downMu.Unlock()
	m.down = inbox
}

// SendPeer implements paxos.Transport. An empty To broadcasts to every
// registered id except From.
func (m *Memory) SendPeer(env paxos.Envelope) {
	stampSeq(&env)
	if env.Header.To != "" {
		m.deliverAsync(env.Header.To, env)
		return
	}
	m.mu.RLock()
	targets := make([]string, 0, len(m.boxes))
	for id := range m.boxes {
		if id != env.Header.From {
			targets = append(targets, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range targets {
		m.deliverAsync(id, env)
	}
}

// SendDown implements paxos.Transport.
func (m *Memory) SendDown(env paxos.Envelope) {
	stampSeq(&env)
	m.downMu.RLock()
	inbox := m.down
	m.downMu.RUnlock()
	if inbox == nil {
		return
	}
	go m.deliver(inbox, env)
}

func (m *Memory) deliverAsync(id string, env paxos.Envelope) {
	m.mu.RLock()
	inbox, ok := m.boxes[id]
	m.mu.RUnlock()
	if !ok {
		return // unreachable peer: drop, per Transport's best-effort contract
	}
	go m.deliver(inbox, env)
}

func (m *Memory) deliver(inbox paxos.Inbox, env paxos.Envelope) {
	if m.shouldDrop() {
		return
	}
	if m.Latency > 0 {
		time.Sleep(randDuration(m.Latency))
	}
	inbox.Deliver(env)
}

func (m *Memory) shouldDrop() bool {
	if m.DropProbability <= 0 {
		return false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return false
	}
	return float64(n.Int64())/1_000_000 < m.DropProbability
}

func randDuration(max time.Duration) time.Duration {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
