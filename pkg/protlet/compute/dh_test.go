package compute_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-protlet/protlet/pkg/protlet/compute"
	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/internal/linktest"
	"github.com/go-protlet/protlet/pkg/protlet/types"
	"go.uber.org/goleak"
)

func TestDiffieHellman_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	alice := types.NewIdentity("alice")
	bob := types.NewIdentity("bob")
	peers := types.NewPeerSet(alice, bob)

	sinkA := linktest.New(alice)
	sinkB := linktest.New(bob)
	linktest.Connect(sinkA, sinkB)
	defer sinkA.Close()
	defer sinkB.Close()

	dhA := compute.NewDiffieHellman()
	dhB := compute.NewDiffieHellman()

	var wg sync.WaitGroup
	var okA, okB bool
	wg.Add(2)
	go func() {
		defer wg.Done()
		okA = core.Run(alice, peers.Copy(), dhA, sinkA, linktest.DiscardLogger{})
	}()
	go func() {
		defer wg.Done()
		okB = core.Run(bob, peers.Copy(), dhB, sinkB, linktest.DiscardLogger{})
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("diffie-hellman run timed out")
	}

	if !okA || !okB {
		t.Fatalf("expected both runs to complete, got alice=%v bob=%v", okA, okB)
	}
	if !dhA.Result.Verified || !dhB.Result.Verified {
		t.Fatalf("expected both sides to verify, got alice=%v bob=%v", dhA.Result.Verified, dhB.Result.Verified)
	}
	if dhA.Result.Value.Cmp(dhB.Result.Value) != 0 {
		t.Fatalf("shared secrets differ: alice=%s bob=%s", dhA.Result.Value, dhB.Result.Value)
	}
}
