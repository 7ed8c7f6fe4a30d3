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

// pairSum is the simplest two-party child: send own value, add whatever
// the peer sends back, complete.
type pairSum struct {
	value  int
	result int
}

func newPairSum(value int) *pairSum { return &pairSum{value: value} }

func (p *pairSum) Name() string { return "test.pairSum" }

func (p *pairSum) Start(ctx *core.Context) {
	var other types.Identity
	ctx.Peers().ForEach(func(id types.Identity) {
		if !id.Equal(ctx.Self()) {
			other = id
		}
	})
	out := types.NewOutgoing(other)
	types.WriteInt32(out, int32(p.value))
	ctx.Send(out)
}

func (p *pairSum) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	theirs, _ := types.ReadInt32(msg)
	p.result = p.value + int(theirs)
	ctx.Complete()
}

func (p *pairSum) HandleChildComplete(ctx *core.Context, child core.Protlet) {}
func (p *pairSum) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

// batchRoot invokes several pairSum children in one Start call and waits
// for every one of them to be delivered before completing itself,
// exercising the "batched children" property from spec §8.
type batchRoot struct {
	children []*pairSum
	pending  int
	Results  []int
}

func newBatchRoot(values []int) *batchRoot {
	children := make([]*pairSum, len(values))
	for i, v := range values {
		children[i] = newPairSum(v)
	}
	return &batchRoot{children: children, pending: len(children), Results: make([]int, len(children))}
}

func (b *batchRoot) Name() string { return "test.batchRoot" }

func (b *batchRoot) Start(ctx *core.Context) {
	for _, child := range b.children {
		ctx.Invoke(child, ctx.Peers().Copy())
	}
}

func (b *batchRoot) HandleMessage(ctx *core.Context, msg *types.Incoming) {}

func (b *batchRoot) HandleChildComplete(ctx *core.Context, child core.Protlet) {
	ps := child.(*pairSum)
	for i, c := range b.children {
		if c == ps {
			b.Results[i] = ps.result
		}
	}
	b.pending--
	if b.pending == 0 {
		ctx.Complete()
	}
}

func (b *batchRoot) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

func TestEngine_BatchedChildren(t *testing.T) {
	defer goleak.VerifyNone(t)

	alice := types.NewIdentity("alice")
	bob := types.NewIdentity("bob")
	peers := types.NewPeerSet(alice, bob)

	sinkA := linktest.New(alice)
	sinkB := linktest.New(bob)
	linktest.Connect(sinkA, sinkB)
	defer sinkA.Close()
	defer sinkB.Close()

	rootA := newBatchRoot([]int{1, 2, 3})
	rootB := newBatchRoot([]int{10, 20, 30})

	log := newTestLogger()

	var wg sync.WaitGroup
	var okA, okB bool
	wg.Add(2)
	go func() { defer wg.Done(); okA = core.Run(alice, peers.Copy(), rootA, sinkA, log) }()
	go func() { defer wg.Done(); okB = core.Run(bob, peers.Copy(), rootB, sinkB, log) }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batched children run timed out")
	}

	if !okA || !okB {
		t.Fatalf("expected both runs to complete, got alice=%v bob=%v", okA, okB)
	}
	want := []int{11, 22, 33}
	for i, w := range want {
		if rootA.Results[i] != w {
			t.Errorf("alice result %d: got %d, want %d", i, rootA.Results[i], w)
		}
		if rootB.Results[i] != w {
			t.Errorf("bob result %d: got %d, want %d", i, rootB.Results[i], w)
		}
	}
}
