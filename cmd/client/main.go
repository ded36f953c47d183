// Command client runs the workload-generating Client collaborator against
// a running cluster: it broadcasts its pending command to every node
// (only the current PROPOSER acts on it) and listens for the matching
// CLIENT_RESPONSE on its own gRPC server.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cihadozcan/ahc-paxos/internal/client"
	"github.com/cihadozcan/ahc-paxos/internal/config"
	"github.com/cihadozcan/ahc-paxos/internal/paxos"
	"github.com/cihadozcan/ahc-paxos/internal/transport"
)

// upAdapter exposes transport.GRPC's broadcast-capable SendPeer as the
// narrow client.Transport interface the Client collaborator depends on.
type upAdapter struct{ gt *transport.GRPC }

func (u upAdapter) SendUp(env paxos.Envelope) { u.gt.SendPeer(env) }

func main() {
	configPath := flag.String("config", "topology.yaml", "path to the cluster topology file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	addr, ok := cfg.Nodes["client"]
	if !ok {
		log.Fatalf("topology file has no \"client\" entry for this process's own listen address")
	}

	c := client.New("client", nil, cfg.ClientInterval())
	gt := transport.NewGRPC("client", cfg.Nodes, nil, c)
	c.SetTransport(upAdapter{gt: gt})

	server := gt.Server()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listening on %s: %v", addr, err)
	}
	go func() {
		if err := server.Serve(lis); err != nil {
			log.Printf("grpc server stopped: %v", err)
		}
	}()
	defer gt.Stop()

	c.Start()
	defer c.Stop()

	log.Printf("client listening on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("client shutting down")
}
