// Package client provides the workload-generating Client collaborator
// described in spec.md §2 and §6, mirroring the retry semantics of the
// original client_node.py: it tracks exactly one pending command and
// either advances past it on a matching success response, or re-sends the
// same pending command unchanged on anything else.
package client

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/cihadozcan/ahc-paxos/internal/command"
	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// Transport is the minimal up link the Client needs: send a request to
// whichever replica is currently addressed. Responses arrive through
// Client.Deliver, not through this interface.
type Transport interface {
	SendUp(env paxos.Envelope)
}

// Client issues CLIENT_REQUEST commands and consumes CLIENT_RESPONSEs,
// waiting RequestInterval between successfully applied commands.
type Client struct {
	id              string
	transport       Transport
	requestInterval time.Duration

	mu          sync.Mutex
	lastCommand command.Command

	inbox chan paxos.Envelope
	stop  chan struct{}
	done  chan struct{}
}

// New builds a Client seeded with the same first command the original
// issues: Command{ID: 1, Kind: ADD, Value: 33}.
func New(id string, transport Transport, requestInterval time.Duration) *Client {
	return &Client{
		id:              id,
		transport:       transport,
		requestInterval: requestInterval,
		lastCommand:     command.Command{ID: 1, Kind: command.ADD, Value: 33},
		inbox:           make(chan paxos.Envelope, 16),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// SetTransport wires the send-side transport after construction, for
// callers that must build the transport's own down-inbox (this Client)
// before the transport itself exists.
func (c *Client) SetTransport(t Transport) {
	c.transport = t
}

// Deliver implements paxos.Inbox: the leader's CLIENT_RESPONSE arrives
// here.
func (c *Client) Deliver(env paxos.Envelope) {
	select {
	case c.inbox <- env:
	default:
	}
}

// Start sends the initial request and then reacts to responses until Stop.
func (c *Client) Start() {
	go c.run()
}

func (c *Client) run() {
	defer close(c.done)
	c.sendCurrent()
	for {
		select {
		case <-c.stop:
			return
		case env := <-c.inbox:
			c.handleResponse(env)
		}
	}
}

func (c *Client) sendCurrent() {
	c.mu.Lock()
	cmd := c.lastCommand
	c.mu.Unlock()
	c.transport.SendUp(paxos.Envelope{
		Header:        paxos.Header{Type: paxos.TypeClientRequest, From: c.id},
		ClientRequest: &cmd,
	})
}

// handleResponse implements the exact branch from client_node.py's
// on_client_response: a response matching the still-pending command
// advances to a freshly generated next command after sleeping
// requestInterval; anything else (failure, or a response for a command
// that is no longer the pending one) re-sends the same pending command
// unchanged.
func (c *Client) handleResponse(env paxos.Envelope) {
	p := env.ClientResponse
	if p == nil {
		return
	}

	c.mu.Lock()
	matches := p.Success && p.Command.Equal(c.lastCommand)
	if matches {
		c.lastCommand = generateNext(c.lastCommand)
	}
	c.mu.Unlock()

	if matches {
		time.Sleep(c.requestInterval)
	}
	c.sendCurrent()
}

// generateNext mirrors generate_command: a random value in [-100,100]
// becomes ADD when zero or positive, SUBTRACT (of the absolute value) when negative,
// with the id incremented by one from the previous command.
func generateNext(prev command.Command) command.Command {
	value := randomInRange(-100, 100)
	kind := command.ADD
	magnitude := value
	if value < 0 {
		kind = command.SUBTRACT
		magnitude = -value
	}
	return command.Command{ID: prev.ID + 1, Kind: kind, Value: magnitude}
}

func randomInRange(min, max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0
	}
	return min + n.Int64()
}

// Stop halts the client and waits for its goroutine to exit.
func (c *Client) Stop() {
	close(c.stop)
	<-c.done
}
