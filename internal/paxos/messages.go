package paxos

import (
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/command"
)

// MessageType tags the payload carried by an Envelope. Handlers switch on
// this field exhaustively instead of relying on dynamic type checks (see
// spec.md §9, "Dynamic message dispatch").
type MessageType string

const (
	TypePrepare        MessageType = "PREPARE"
	TypePromise        MessageType = "PROMISE"
	TypePropose        MessageType = "PROPOSE"
	TypeAccept         MessageType = "ACCEPT"
	TypeClientRequest  MessageType = "CLIENT_REQUEST"
	TypeClientResponse MessageType = "CLIENT_RESPONSE"
	TypeHeartbeatTick  MessageType = "HEARTBEAT"
	TypeSleepTrigger   MessageType = "SLEEP_TRIGGER"
)

// Header is the envelope every peer message carries (spec.md §6). Seq is an
// opaque trace identifier, not used by the protocol itself.
type Header struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
	To   string       `json:"to"` // empty means broadcast to all peers
	Seq  string      `json:"seq"`
}

// PreparePayload is the PREPARE broadcast sent by a candidate.
type PreparePayload struct {
	Term                uint64 `json:"term"`
	ProposerID          string `json:"proposerId"`
	ProposerCommitIndex uint64 `json:"proposerCommitIndex"`
}

// PromisePayload is the PROMISE reply a peer unicasts to a candidate.
type PromisePayload struct {
	VoteGranted bool                `json:"voteGranted"`
	Term        uint64              `json:"term"`
	Entries     []command.LogEntry  `json:"entries"`
}

// ProposePayload carries a log-replication request. A nil Entries slice is
// the heartbeat-carrying variant (spec.md §4.6); a non-nil, possibly empty,
// slice is a normal propose.
type ProposePayload struct {
	Term         uint64             `json:"term"`
	PrevLogIndex uint64             `json:"prevLogIndex"`
	PrevLogTerm  uint64             `json:"prevLogTerm"`
	Entries      []command.LogEntry `json:"entries"`
	LeaderCommit uint64             `json:"leaderCommit"`
}

// IsHeartbeat reports whether this propose doubles as a heartbeat.
func (p *ProposePayload) IsHeartbeat() bool {
	return p.Entries == nil
}

// AcceptPayload is the reply to a PROPOSE.
type AcceptPayload struct {
	Success bool   `json:"success"`
	Term    uint64 `json:"term"`
	Index   uint64 `json:"index"`
}

// ClientResponsePayload is sent down to the client collaborator once a
// client command has been committed and applied.
type ClientResponsePayload struct {
	Success bool            `json:"success"`
	Command command.Command `json:"command"`
}

// SleepTriggerPayload is the chaos event described in spec.md §4.8.
type SleepTriggerPayload struct {
	TargetIDs   []string      `json:"targetIds"`
	SleepLeader bool          `json:"sleepLeader"`
	TimeToSleep time.Duration `json:"timeToSleep"`
}

// Envelope is the single message shape flowing through a Replica's event
// loop: peer RPCs, client requests/responses, clock ticks, and chaos
// triggers all arrive as one. Exactly one payload field is populated,
// selected by Header.Type.
type Envelope struct {
	Header Header `json:"header"`

	Prepare        *PreparePayload        `json:"prepare,omitempty"`
	Promise        *PromisePayload        `json:"promise,omitempty"`
	Propose        *ProposePayload        `json:"propose,omitempty"`
	Accept         *AcceptPayload         `json:"accept,omitempty"`
	ClientRequest  *command.Command       `json:"clientRequest,omitempty"`
	ClientResponse *ClientResponsePayload `json:"clientResponse,omitempty"`
	SleepTrigger   *SleepTriggerPayload   `json:"sleepTrigger,omitempty"`
}
