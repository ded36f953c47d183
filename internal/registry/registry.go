// Package registry implements the flat id-to-address directory described
// in spec.md §9 ("Cyclic references"): peers are represented by their
// string ids in a map, never by a direct reference to another replica's
// state. It replaces the teacher's node_registry.go, dropping the
// consistent-hash key routing that registry served in a sharded key-value
// store — cluster membership and sharding are explicit Non-goals here.
package registry

import (
	"fmt"
	"sync"
	"time"
)

// Node is one entry in the directory: an id and the address a Transport
// should dial to reach it.
type Node struct {
	ID      string
	Address string
	AddedAt time.Time
}

// Registry tracks every node's address, keyed by id.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

// Register adds id at address. It returns an error if id is already
// registered, since re-registration under a new address during a run
// would silently break in-flight routing.
func (r *Registry) Register(id, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("registry: node %s already registered", id)
	}
	r.nodes[id] = &Node{ID: id, Address: address, AddedAt: time.Now()}
	return nil
}

// Unregister removes id from the directory.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[id]; !exists {
		return fmt.Errorf("registry: node %s not found", id)
	}
	delete(r.nodes, id)
	return nil
}

// Get returns the node registered under id.
func (r *Registry) Get(id string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, exists := r.nodes[id]
	if !exists {
		return nil, fmt.Errorf("registry: node %s not found", id)
	}
	return node, nil
}

// All returns every registered node.
func (r *Registry) All() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		out = append(out, node)
	}
	return out
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Addresses returns a copy of the id -> address map, the shape a
// Transport's dial table needs directly.
func (r *Registry) Addresses() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.nodes))
	for id, node := range r.nodes {
		out[id] = node.Address
	}
	return out
}

// PeerIDs returns every registered id except self, the shape a Replica's
// Peers field needs directly.
func (r *Registry) PeerIDs(self string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
