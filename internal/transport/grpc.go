// Package transport provides the out-of-scope Transport collaborator
// (spec.md §2, §6) in two flavors: an in-process Memory transport for
// deterministic tests, and a real gRPC transport for running replicas as
// separate processes.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cihadozcan/ahc-paxos/internal/paxos"
)

// Ack is the empty response every peer RPC returns; grpc requires a
// response message even for a fire-and-forget delivery.
type Ack struct{}

// peerServer is implemented by anything that can accept a delivered
// envelope over the wire.
type peerServer interface {
	Deliver(ctx context.Context, env *paxos.Envelope) (*Ack, error)
}

var peerServiceDesc = grpc.ServiceDesc{
	ServiceName: "paxos.Peer",
	HandlerType: (*peerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/transport/grpc.go",
}

func deliverHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(paxos.Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(peerServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/paxos.Peer/Deliver"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(peerServer).Deliver(ctx, req.(*paxos.Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPC is a Transport backed by real gRPC connections to every peer
// address and a local gRPC server accepting inbound deliveries (grounded
// on the teacher's raft/rpc_client.go and raft/rpc_server.go structure,
// adapted to a hand-registered service descriptor since no compiled
// protobuf stubs are available; see codec.go).
type GRPC struct {
	selfID    string
	addresses map[string]string
	inbox     paxos.Inbox
	downInbox paxos.Inbox

	server *grpc.Server

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn

	dialTimeout time.Duration
}

// NewGRPC builds a GRPC transport. addresses maps every peer id (including
// self, ignored) to its "host:port" listen address. down is the inbox that
// receives CLIENT_RESPONSE envelopes sent via SendDown (nil if this node
// has no attached client).
func NewGRPC(selfID string, addresses map[string]string, inbox paxos.Inbox, down paxos.Inbox) *GRPC {
	return &GRPC{
		selfID:      selfID,
		addresses:   addresses,
		inbox:       inbox,
		downInbox:   down,
		conns:       make(map[string]*grpc.ClientConn),
		dialTimeout: 2 * time.Second,
	}
}

// Deliver implements peerServer: it is invoked by the gRPC runtime on the
// server side for every inbound Deliver RPC.
func (g *GRPC) Deliver(ctx context.Context, env *paxos.Envelope) (*Ack, error) {
	if env.Header.Type == paxos.TypeClientResponse {
		if g.downInbox != nil {
			g.downInbox.Deliver(*env)
		}
		return &Ack{}, nil
	}
	g.inbox.Deliver(*env)
	return &Ack{}, nil
}

// newServer constructs the grpc.Server with the JSON codec forced, so no
// protobuf codec registration is required.
func (g *GRPC) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	srv.RegisterService(&peerServiceDesc, g)
	g.server = srv
	return srv
}

// Server returns the underlying grpc.Server, constructing it on first use.
// cmd/node calls this to obtain something it can hand to net.Listener-based
// Serve.
func (g *GRPC) Server() *grpc.Server {
	if g.server == nil {
		return g.newServer()
	}
	return g.server
}

// Stop gracefully stops the server and closes all client connections.
func (g *GRPC) Stop() {
	if g.server != nil {
		g.server.GracefulStop()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, conn := range g.conns {
		conn.Close()
	}
}

func (g *GRPC) connFor(peer string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if conn, ok := g.conns[peer]; ok {
		return conn, nil
	}
	addr, ok := g.addresses[peer]
	if !ok {
		return nil, fmt.Errorf("transport: no address registered for peer %q", peer)
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	g.conns[peer] = conn
	return conn, nil
}

func (g *GRPC) deliverTo(peer string, env paxos.Envelope) {
	conn, err := g.connFor(peer)
	if err != nil {
		return // unreachable peer: drop, per Transport's best-effort contract
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.dialTimeout)
	defer cancel()
	out := new(Ack)
	_ = conn.Invoke(ctx, "/paxos.Peer/Deliver", &env, out, grpc.ForceCodec(jsonCodec{}))
}

// SendPeer implements paxos.Transport. An empty To broadcasts to every
// known peer other than self.
func (g *GRPC) SendPeer(env paxos.Envelope) {
	stampSeq(&env)
	if env.Header.To != "" {
		go g.deliverTo(env.Header.To, env)
		return
	}
	for peer := range g.addresses {
		if peer == g.selfID {
			continue
		}
		go g.deliverTo(peer, env)
	}
}

// SendDown implements paxos.Transport by delivering to the client's own
// listen address, registered in addresses under the reserved id "client".
func (g *GRPC) SendDown(env paxos.Envelope) {
	stampSeq(&env)
	if addr, ok := g.addresses["client"]; ok {
		go g.deliverToAddr(addr, env)
	}
}

func (g *GRPC) deliverToAddr(addr string, env paxos.Envelope) {
	g.mu.Lock()
	conn, ok := g.conns[addr]
	if !ok {
		var err error
		conn, err = grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			g.mu.Unlock()
			return
		}
		g.conns[addr] = conn
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), g.dialTimeout)
	defer cancel()
	out := new(Ack)
	_ = conn.Invoke(ctx, "/paxos.Peer/Deliver", &env, out, grpc.ForceCodec(jsonCodec{}))
}
