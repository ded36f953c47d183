// Package paxos implements the per-node replica state machine of a
// replicated, leader-based consensus engine in the Multi-Paxos family: role
// transitions, the prepare/promise election phase, the propose/accept
// replication phase, commit advancement, and state-machine application.
package paxos

import (
	"fmt"
	"sync"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/command"
)

// StatsSink receives fire-and-forget notifications about election activity.
// It is an out-of-scope collaborator (spec.md §9, "Global mutable state"):
// the core never depends on it for correctness, and a nil StatsSink is
// always safe to call through.
type StatsSink interface {
	ElectionStarted(term uint64)
	LeaderElected(term uint64, electionDuration time.Duration)
}

type noopStats struct{}

func (noopStats) ElectionStarted(uint64)                 {}
func (noopStats) LeaderElected(uint64, time.Duration) {}

// Config carries the tunables every Replica needs at construction time,
// mirroring the enumerated configuration of spec.md §6.
type Config struct {
	ID            string
	Ordinal       int
	Peers         []string
	ClusterSize   int
	Timeout       time.Duration
	HeartbeatTick time.Duration
	Transport     Transport
	Logger        *Logger
	Stats         StatsSink
}

// Replica is the per-node consensus state machine described in spec.md §3
// and §4.1. All mutable state is touched with mu held, from the single
// goroutine run by Start (and, for the seed leader, once by Start itself);
// mu exists for the handful of accessors (GetState-style) that outside
// code may call concurrently.
type Replica struct {
	mu sync.RWMutex

	id          string
	ordinal     int
	peers       []string
	clusterSize int

	role         Role
	currentTerm  uint64
	promisedTerm *uint64

	log               *command.Log
	commitIndex       uint64
	lastApplied       uint64
	stateMachineValue int64

	lastTimerReset time.Time
	timeout        time.Duration

	nextIndex        map[string]uint64
	matchIndex       map[string]uint64
	promisesReceived map[string]struct{}
	promotedEntries  []command.LogEntry

	electionStartedAt time.Time

	transport Transport
	logger    *Logger
	stats     StatsSink

	inbox    chan Envelope
	shutdown chan struct{}
	done     chan struct{}

	sleeping bool
}

// NewReplica builds a Replica in its initial FOLLOWER state with
// current_term seeded to its ordinal (spec.md §3, §4.3).
func NewReplica(cfg Config) *Replica {
	stats := cfg.Stats
	if stats == nil {
		stats = noopStats{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger(cfg.ID, LevelInfo)
	}
	r := &Replica{
		id:               cfg.ID,
		ordinal:          cfg.Ordinal,
		peers:            cfg.Peers,
		clusterSize:      cfg.ClusterSize,
		role:             Follower,
		currentTerm:      uint64(cfg.Ordinal),
		promisedTerm:     nil,
		log:              command.NewLog(),
		commitIndex:      0,
		lastApplied:      0,
		lastTimerReset:   time.Time{},
		timeout:          cfg.Timeout,
		nextIndex:        make(map[string]uint64),
		matchIndex:       make(map[string]uint64),
		promisesReceived: make(map[string]struct{}),
		transport:        cfg.Transport,
		logger:           logger,
		stats:            stats,
		inbox:            make(chan Envelope, 256),
		shutdown:         make(chan struct{}),
		done:             make(chan struct{}),
	}
	return r
}

// ID returns the replica's node id.
func (r *Replica) ID() string { return r.id }

// Deliver implements Inbox. It never blocks the caller: the channel is
// generously buffered, and a full inbox drops the envelope, matching the
// "transport drops are invisible to the core" contract (spec.md §7.3).
func (r *Replica) Deliver(env Envelope) {
	select {
	case r.inbox <- env:
	default:
		r.logger.Warn("inbox full, dropping %s from %s", env.Header.Type, env.Header.From)
	}
}

// Start launches the replica's single event-processing goroutine. The
// replica with the highest ordinal seeds a PROPOSER transition immediately,
// per spec.md §4.1, to shorten the first election in deterministic test
// topologies.
func (r *Replica) Start() {
	r.mu.Lock()
	r.lastTimerReset = time.Now()
	seedsLeader := r.ordinal == r.clusterSize
	r.mu.Unlock()

	go r.run()

	if seedsLeader {
		r.mu.Lock()
		r.becomeProposerLocked()
		r.mu.Unlock()
	}
}

// Shutdown stops the event loop and waits for it to exit.
func (r *Replica) Shutdown() {
	close(r.shutdown)
	<-r.done
}

func (r *Replica) run() {
	defer close(r.done)
	for {
		select {
		case <-r.shutdown:
			return
		case env := <-r.inbox:
			r.handle(env)
		}
	}
}

func (r *Replica) handle(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch env.Header.Type {
	case TypePrepare:
		r.handlePrepareLocked(env)
	case TypePromise:
		r.handlePromiseLocked(env)
	case TypePropose:
		r.handleProposeLocked(env)
	case TypeAccept:
		r.handleAcceptLocked(env)
	case TypeClientRequest:
		r.handleClientRequestLocked(env)
	case TypeHeartbeatTick:
		r.handleTickLocked()
	case TypeSleepTrigger:
		r.handleSleepTriggerLocked(env)
	default:
		r.logger.Invariant("unrecognized message type", r.role, r.currentTerm, env.Header.Type)
	}
}

// quorum returns the strict majority count for the cluster size.
func (r *Replica) quorum() int {
	return r.clusterSize/2 + 1
}

func (r *Replica) resetTimerLocked() {
	r.lastTimerReset = time.Now()
}

func (r *Replica) isTimedOutLocked() bool {
	return time.Since(r.lastTimerReset) > r.timeout
}

func (r *Replica) setRoleLocked(newRole Role) {
	if r.role == newRole {
		return
	}
	old := r.role
	r.role = newRole
	r.logger.LogStateChange(old, newRole, r.currentTerm)
}

// becomeFollowerLocked adopts the given term (which must be >= currentTerm)
// and reverts to FOLLOWER, clearing any leader/candidate-only state.
func (r *Replica) becomeFollowerLocked(term uint64) {
	if term > r.currentTerm {
		r.logger.LogStepDown(r.currentTerm, term)
		r.currentTerm = term
	}
	r.setRoleLocked(Follower)
	r.promisedTerm = nil
	r.promisesReceived = make(map[string]struct{})
	r.promotedEntries = nil
	r.resetTimerLocked()
}

func (r *Replica) peerIDs() []string {
	return r.peers
}

// Snapshot is a point-in-time, read-only copy of observable replica state,
// safe for concurrent use by tests and external inspection (e.g. a status
// endpoint).
type Snapshot struct {
	ID                string
	Role              Role
	CurrentTerm       uint64
	CommitIndex       uint64
	LastApplied       uint64
	StateMachineValue int64
	Log               []command.LogEntry
}

// State returns a Snapshot of the replica's current observable state.
func (r *Replica) State() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		ID:                r.id,
		Role:              r.role,
		CurrentTerm:       r.currentTerm,
		CommitIndex:       r.commitIndex,
		LastApplied:       r.lastApplied,
		StateMachineValue: r.stateMachineValue,
		Log:               r.log.Entries(0),
	}
}

// String supports %s formatting in log lines and panics.
func (r *Replica) String() string {
	return fmt.Sprintf("Replica(%s)", r.id)
}
