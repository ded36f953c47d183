package registry

import "testing"

func TestRegisterAndGet(t *testing.T) {
	r := New()
	if err := r.Register("n1", "localhost:9001"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	node, err := r.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if node.Address != "localhost:9001" {
		t.Fatalf("expected address localhost:9001, got %q", node.Address)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	if err := r.Register("n1", "localhost:9001"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("n1", "localhost:9999"); err == nil {
		t.Fatalf("expected an error re-registering an existing id")
	}
}

func TestUnregisterRemovesNode(t *testing.T) {
	r := New()
	_ = r.Register("n1", "localhost:9001")
	if err := r.Unregister("n1"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, err := r.Get("n1"); err == nil {
		t.Fatalf("expected Get to fail after Unregister")
	}
}

func TestUnregisterUnknownFails(t *testing.T) {
	r := New()
	if err := r.Unregister("ghost"); err == nil {
		t.Fatalf("expected an error unregistering an unknown id")
	}
}

func TestGetUnknownFails(t *testing.T) {
	r := New()
	if _, err := r.Get("ghost"); err == nil {
		t.Fatalf("expected an error for an unknown id")
	}
}

func TestAllAndCount(t *testing.T) {
	r := New()
	_ = r.Register("n1", "localhost:9001")
	_ = r.Register("n2", "localhost:9002")
	if r.Count() != 2 {
		t.Fatalf("expected count 2, got %d", r.Count())
	}
	if len(r.All()) != 2 {
		t.Fatalf("expected 2 nodes from All(), got %d", len(r.All()))
	}
}

func TestAddresses(t *testing.T) {
	r := New()
	_ = r.Register("n1", "localhost:9001")
	_ = r.Register("n2", "localhost:9002")
	addrs := r.Addresses()
	if addrs["n1"] != "localhost:9001" || addrs["n2"] != "localhost:9002" {
		t.Fatalf("unexpected addresses map: %+v", addrs)
	}
}

func TestPeerIDsExcludesSelf(t *testing.T) {
	r := New()
	_ = r.Register("n1", "localhost:9001")
	_ = r.Register("n2", "localhost:9002")
	_ = r.Register("n3", "localhost:9003")

	peers := r.PeerIDs("n2")
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	for _, p := range peers {
		if p == "n2" {
			t.Fatalf("expected self excluded from PeerIDs, got %+v", peers)
		}
	}
}
