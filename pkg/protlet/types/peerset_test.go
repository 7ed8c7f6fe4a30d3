package types

import "testing"

func TestPeerSet_SortedOrder(t *testing.T) {
	p := NewPeerSet(NewIdentity("carol"), NewIdentity("alice"), NewIdentity("bob"))
	var order []string
	p.ForEach(func(id Identity) {
		order = append(order, id.String())
	})
	want := []string{"alice", "bob", "carol"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("position %d: got %s, want %s", i, order[i], name)
		}
	}
}

func TestPeerSet_Copy(t *testing.T) {
	p := NewPeerSet(NewIdentity("alice"), NewIdentity("bob"))
	p.SetId(NewIdentity("bob"), 42)
	p.SetCompleted(NewIdentity("bob"))

	cp := p.Copy()
	if !cp.Equal(p) {
		t.Fatal("Copy should preserve identity membership")
	}
	if cp.FindPeerId(NewIdentity("bob")) != InvalidProtletID {
		t.Fatal("Copy should reset remote ids")
	}
	if cp.FindCompletionStatus(NewIdentity("bob")) {
		t.Fatal("Copy should reset completion flags")
	}
}

func TestPeerSet_CheckAndSetIdOnce(t *testing.T) {
	p := NewPeerSet(NewIdentity("alice"), NewIdentity("bob"))
	if !p.CheckAndSetId(NewIdentity("bob"), 7) {
		t.Fatal("first CheckAndSetId should succeed")
	}
	if p.CheckAndSetId(NewIdentity("bob"), 8) {
		t.Fatal("second CheckAndSetId for the same peer should fail")
	}
	if p.FindPeerId(NewIdentity("bob")) != 7 {
		t.Fatal("remote id should be unchanged by the rejected second assignment")
	}
}

func TestPeerSet_CheckAllComplete(t *testing.T) {
	p := NewPeerSet(NewIdentity("alice"), NewIdentity("bob"), NewIdentity("carol"))
	if p.CheckAllComplete() {
		t.Fatal("fresh PeerSet should not be complete")
	}
	p.SetCompleted(NewIdentity("alice"))
	p.SetCompleted(NewIdentity("bob"))
	if p.CheckAllComplete() {
		t.Fatal("should still be incomplete with one peer outstanding")
	}
	p.SetCompleted(NewIdentity("carol"))
	if !p.CheckAllComplete() {
		t.Fatal("expected all peers complete")
	}
}
