package transport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/definition"
	"github.com/go-protlet/protlet/pkg/protlet/internal/linktest"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// freeTCPPort grabs and releases a loopback port; good enough for a test
// that immediately rebinds it.
func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freeTCPPort: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// pingPong sends one message to its peer and completes either on reply or
// immediately if it has none.
type pingPong struct {
	Replied bool
}

func (p *pingPong) Name() string { return "test.pingPong" }

func (p *pingPong) Start(ctx *core.Context) {
	var other types.Identity
	ctx.Peers().ForEach(func(id types.Identity) {
		if !id.Equal(ctx.Self()) {
			other = id
		}
	})
	if other.IsZero() {
		ctx.Complete()
		return
	}
	msg := types.NewOutgoing(other)
	msg.Append([]byte("ping"))
	ctx.Send(msg)
}

func (p *pingPong) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	p.Replied = true
	ctx.Complete()
}

func (p *pingPong) HandleChildComplete(ctx *core.Context, child core.Protlet)  {}
func (p *pingPong) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

func TestTransport_EndToEndLoopback(t *testing.T) {
	alice := types.NewIdentity("alice")
	bob := types.NewIdentity("bob")

	portA := freeTCPPort(t)
	portB := freeTCPPort(t)

	peerAddrs := []definition.PeerAddress{
		{Identity: alice, Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: portA}},
		{Identity: bob, Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: portB}},
	}

	log := linktest.DiscardLogger{}
	trA := NewTransport(alice, peerAddrs, "1.0.0", log)
	trB := NewTransport(bob, peerAddrs, "1.0.0", log)
	defer trA.Close()
	defer trB.Close()

	if err := trA.Listen(); err != nil {
		t.Fatalf("alice Listen: %v", err)
	}
	if err := trB.Listen(); err != nil {
		t.Fatalf("bob Listen: %v", err)
	}
	trA.Connect()
	trB.Connect()

	peers := types.NewPeerSet(alice, bob)
	pA := &pingPong{}
	pB := &pingPong{}

	var wg sync.WaitGroup
	var okA, okB bool
	wg.Add(2)
	go func() { defer wg.Done(); okA = core.Run(alice, peers.Copy(), pA, trA, log) }()
	go func() { defer wg.Done(); okB = core.Run(bob, peers.Copy(), pB, trB, log) }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("loopback transport run timed out")
	}

	if !okA || !okB {
		t.Fatalf("expected both runs to complete, got alice=%v bob=%v", okA, okB)
	}
	if !pB.Replied {
		t.Error("expected bob to have received alice's ping")
	}
}
