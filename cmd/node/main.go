// Command node bootstraps a single replica process: it loads the cluster
// topology, starts the gRPC peer server, and wires the Clock and (optional)
// Prometheus Statistics collaborators before blocking until terminated.
package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cihadozcan/ahc-paxos/internal/clock"
	"github.com/cihadozcan/ahc-paxos/internal/config"
	"github.com/cihadozcan/ahc-paxos/internal/paxos"
	"github.com/cihadozcan/ahc-paxos/internal/registry"
	"github.com/cihadozcan/ahc-paxos/internal/stats"
	"github.com/cihadozcan/ahc-paxos/internal/transport"
)

func main() {
	id := flag.String("id", "", "this node's id, e.g. PaxosNode_1")
	ordinal := flag.Int("ordinal", 0, "this node's 1..N ordinal")
	configPath := flag.String("config", "topology.yaml", "path to the cluster topology file")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on, empty disables")
	flag.Parse()

	if *id == "" || *ordinal == 0 {
		log.Fatalf("both -id and -ordinal are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	reg := registry.New()
	for nodeID, nodeAddr := range cfg.Nodes {
		if err := reg.Register(nodeID, nodeAddr); err != nil {
			log.Fatalf("building registry: %v", err)
		}
	}

	addr, err := reg.Get(*id)
	if err != nil {
		log.Fatalf("node id %q not present in topology file", *id)
	}

	peers := make([]string, 0, reg.Count())
	for _, p := range reg.PeerIDs(*id) {
		if p != "client" {
			peers = append(peers, p)
		}
	}

	logger := paxos.NewLogger(*id, paxos.LevelInfo)

	var sink paxos.StatsSink
	if *metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		sink = stats.NewCollector(promReg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
			log.Printf("serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	replica := paxos.NewReplica(paxos.Config{
		ID:          *id,
		Ordinal:     *ordinal,
		Peers:       peers,
		ClusterSize: cfg.ClusterSize,
		Timeout:     cfg.Timeout(),
		Logger:      logger,
		Stats:       sink,
	})

	gt := transport.NewGRPC(*id, reg.Addresses(), replica, nil)
	server := gt.Server()
	lis, err := net.Listen("tcp", addr.Address)
	if err != nil {
		log.Fatalf("listening on %s: %v", addr.Address, err)
	}
	go func() {
		if err := server.Serve(lis); err != nil {
			log.Printf("grpc server stopped: %v", err)
		}
	}()
	defer gt.Stop()

	replica.Start()
	defer replica.Shutdown()

	ticker := clock.New(*id, cfg.HeartbeatTick(), replica)
	ticker.Start()
	defer ticker.Stop()

	log.Printf("%s listening on %s (ordinal %d of %d)", *id, addr.Address, *ordinal, cfg.ClusterSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("%s shutting down", *id)
}
