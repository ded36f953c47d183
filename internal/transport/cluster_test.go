package transport

import (
	"fmt"
	"testing"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/clock"
	"github.com/cihadozcan/ahc-paxos/internal/command"
	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// testCluster wires N Replicas together over a shared Memory transport and
// drives each with its own heartbeat Ticker, mirroring the teacher's
// createTestCluster/countLeaders integration-test style.
type testCluster struct {
	mem      *Memory
	replicas []*paxos.Replica
	tickers  []*clock.Ticker
}

func newTestCluster(n int, heartbeat, timeout time.Duration) *testCluster {
	mem := NewMemory()
	tc := &testCluster{mem: mem}

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("n%d", i+1)
	}

	for i, id := range ids {
		peers := make([]string, 0, n-1)
		for _, other := range ids {
			if other != id {
				peers = append(peers, other)
			}
		}
		r := paxos.NewReplica(paxos.Config{
			ID:          id,
			Ordinal:     i + 1,
			Peers:       peers,
			ClusterSize: n,
			Timeout:     timeout,
			Transport:   mem,
		})
		mem.Register(id, r)
		tc.replicas = append(tc.replicas, r)
	}
	return tc
}

func (tc *testCluster) start() {
	for _, r := range tc.replicas {
		r.Start()
	}
	for _, r := range tc.replicas {
		t := clock.New(r.ID(), 20*time.Millisecond, r)
		t.Start()
		tc.tickers = append(tc.tickers, t)
	}
}

func (tc *testCluster) shutdown() {
	for _, t := range tc.tickers {
		t.Stop()
	}
	for _, r := range tc.replicas {
		r.Shutdown()
	}
}

func (tc *testCluster) leader() *paxos.Replica {
	for _, r := range tc.replicas {
		if r.State().Role == paxos.Proposer {
			return r
		}
	}
	return nil
}

func (tc *testCluster) countLeaders() int {
	n := 0
	for _, r := range tc.replicas {
		if r.State().Role == paxos.Proposer {
			n++
		}
	}
	return n
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// Scenario 1 (spec.md §8): single-leader steady state. N=5, client issues
// ADD 10 then SUBTRACT 3; every replica converges on state_machine_value=7
// at identical log indices.
func TestClusterSingleLeaderSteadyState(t *testing.T) {
	tc := newTestCluster(5, 20*time.Millisecond, 300*time.Millisecond)
	tc.start()
	defer tc.shutdown()

	if !waitForCondition(t, time.Second, func() bool { return tc.countLeaders() == 1 }) {
		t.Fatalf("expected exactly one leader, got %d", tc.countLeaders())
	}
	leader := tc.leader()

	add := command.Command{ID: 1, Kind: command.ADD, Value: 10}
	leader.Deliver(paxos.Envelope{
		Header:        paxos.Header{Type: paxos.TypeClientRequest, From: "client"},
		ClientRequest: &add,
	})
	if !waitForCondition(t, time.Second, func() bool { return leader.State().StateMachineValue == 10 }) {
		t.Fatalf("expected leader state_machine_value=10 after ADD 10, got %d", leader.State().StateMachineValue)
	}

	sub := command.Command{ID: 2, Kind: command.SUBTRACT, Value: 3}
	leader.Deliver(paxos.Envelope{
		Header:        paxos.Header{Type: paxos.TypeClientRequest, From: "client"},
		ClientRequest: &sub,
	})

	for _, r := range tc.replicas {
		r := r
		if !waitForCondition(t, time.Second, func() bool { return r.State().StateMachineValue == 7 }) {
			t.Fatalf("expected %s to converge on 7, got %d", r.ID(), r.State().StateMachineValue)
		}
	}

	var want []command.LogEntry
	for i, r := range tc.replicas {
		got := r.State().Log
		if want == nil {
			want = got
			continue
		}
		if len(got) != len(want) {
			t.Fatalf("replica %d log length diverges: %d vs %d", i, len(got), len(want))
		}
		for idx := range want {
			if got[idx].Term != want[idx].Term || !got[idx].Command.Equal(want[idx].Command) {
				t.Fatalf("replica %d diverges at index %d: %+v vs %+v", i, idx, got[idx], want[idx])
			}
		}
	}
}

// Scenario 2 (spec.md §8): leader step-down. The leader receives a PROPOSE
// carrying a strictly higher term, steps down to FOLLOWER, and keeps its
// log intact.
func TestClusterLeaderStepsDownOnHigherTermPropose(t *testing.T) {
	tc := newTestCluster(3, 20*time.Millisecond, 300*time.Millisecond)
	tc.start()
	defer tc.shutdown()

	if !waitForCondition(t, time.Second, func() bool { return tc.countLeaders() == 1 }) {
		t.Fatalf("expected exactly one leader")
	}
	leader := tc.leader()
	before := leader.State()

	leader.Deliver(paxos.Envelope{
		Header: paxos.Header{Type: paxos.TypePropose, From: "outsider"},
		Propose: &paxos.ProposePayload{
			Term:         before.CurrentTerm + 1,
			PrevLogIndex: before.CommitIndex,
			PrevLogTerm:  0,
			Entries:      []command.LogEntry{},
			LeaderCommit: before.CommitIndex,
		},
	})

	if !waitForCondition(t, time.Second, func() bool { return leader.State().Role == paxos.Follower }) {
		t.Fatalf("expected leader to step down to Follower, got %s", leader.State().Role)
	}
	after := leader.State()
	if len(after.Log) != len(before.Log) {
		t.Fatalf("expected log preserved across step-down, before=%d after=%d", len(before.Log), len(after.Log))
	}
	if after.CurrentTerm < before.CurrentTerm+1 {
		t.Fatalf("expected term adopted from the higher-term propose, got %d", after.CurrentTerm)
	}
}

// A resend of the command the leader applied last is answered again with a
// CLIENT_RESPONSE instead of being appended as a new log entry, so the
// state machine applies it only once. See
// TestBecomeProposerResendsCarriedOverResponse (internal/paxos) for the
// response a new leader re-emits on a leadership change.
func TestClusterRepeatedClientRequestIsNotReapplied(t *testing.T) {
	tc := newTestCluster(3, 20*time.Millisecond, 300*time.Millisecond)
	tc.start()
	defer tc.shutdown()

	if !waitForCondition(t, time.Second, func() bool { return tc.countLeaders() == 1 }) {
		t.Fatalf("expected exactly one leader")
	}
	leader := tc.leader()

	cmd := command.Command{ID: 1, Kind: command.ADD, Value: 10}
	leader.Deliver(paxos.Envelope{
		Header:        paxos.Header{Type: paxos.TypeClientRequest, From: "client"},
		ClientRequest: &cmd,
	})
	if !waitForCondition(t, time.Second, func() bool { return leader.State().StateMachineValue == 10 }) {
		t.Fatalf("expected state_machine_value=10 after the first ADD 10")
	}

	// Retransmit: the command id matches the leader's last applied entry,
	// so it is answered again and must not move state_machine_value.
	leader.Deliver(paxos.Envelope{
		Header:        paxos.Header{Type: paxos.TypeClientRequest, From: "client"},
		ClientRequest: &cmd,
	})
	time.Sleep(100 * time.Millisecond)
	if leader.State().StateMachineValue != 10 {
		t.Fatalf("expected 10 after a retransmitted ADD 10 is answered without a second apply, got %d", leader.State().StateMachineValue)
	}
}
