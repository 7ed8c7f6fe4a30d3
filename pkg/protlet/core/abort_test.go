package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/internal/linktest"
	"github.com/go-protlet/protlet/pkg/protlet/types"
	"go.uber.org/goleak"
)

// misbehaving sends a message then, upon hearing back, aborts
// unconditionally — standing in for a Protlet that detects a protocol
// violation.
type misbehaving struct{}

func (m *misbehaving) Name() string { return "test.misbehaving" }

func (m *misbehaving) Start(ctx *core.Context) {
	var other types.Identity
	ctx.Peers().ForEach(func(id types.Identity) {
		if !id.Equal(ctx.Self()) {
			other = id
		}
	})
	ctx.Send(types.NewOutgoing(other))
}

func (m *misbehaving) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	ctx.Abort()
}

func (m *misbehaving) HandleChildComplete(ctx *core.Context, child core.Protlet) {}
func (m *misbehaving) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

// wellBehaved sends one message and then ignores whatever arrives; it
// never completes and never calls Abort itself, so its run can only end
// (in failure) because the peer's ABORT frame reached it.
type wellBehaved struct{}

func (w *wellBehaved) Name() string { return "test.wellBehaved" }

func (w *wellBehaved) Start(ctx *core.Context) {
	var other types.Identity
	ctx.Peers().ForEach(func(id types.Identity) {
		if !id.Equal(ctx.Self()) {
			other = id
		}
	})
	ctx.Send(types.NewOutgoing(other))
}

func (w *wellBehaved) HandleMessage(ctx *core.Context, msg *types.Incoming) {}
func (w *wellBehaved) HandleChildComplete(ctx *core.Context, child core.Protlet) {}
func (w *wellBehaved) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

func TestEngine_AbortPropagatesToPeer(t *testing.T) {
	defer goleak.VerifyNone(t)

	alice := types.NewIdentity("alice")
	bob := types.NewIdentity("bob")
	peers := types.NewPeerSet(alice, bob)

	sinkA := linktest.New(alice)
	sinkB := linktest.New(bob)
	linktest.Connect(sinkA, sinkB)
	defer sinkA.Close()
	defer sinkB.Close()

	log := newTestLogger()

	var wg sync.WaitGroup
	var okA, okB bool
	wg.Add(2)
	go func() { defer wg.Done(); okA = core.Run(alice, peers.Copy(), &misbehaving{}, sinkA, log) }()
	go func() { defer wg.Done(); okB = core.Run(bob, peers.Copy(), &wellBehaved{}, sinkB, log) }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("abort propagation test timed out")
	}

	if okA {
		t.Error("expected alice's run to end in abort")
	}
	if okB {
		t.Error("expected bob's run to end in abort once alice's ABORT frame arrived")
	}
}
