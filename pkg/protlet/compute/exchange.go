package compute

import (
	"math/big"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// IntegerExchange is the simplest possible two-party Protlet: it sends
// its own value to its one peer and, on receiving the peer's value,
// stores their sum in Result before completing. BatchedExchange invokes
// many of these as non-promised children to exercise spec §8's "batched
// children" property.
type IntegerExchange struct {
	Value  *big.Int
	Result *big.Int
}

// NewIntegerExchange creates an IntegerExchange that will contribute
// value to the sum.
func NewIntegerExchange(value *big.Int) *IntegerExchange {
	return &IntegerExchange{Value: value}
}

func (e *IntegerExchange) Name() string { return "compute.IntegerExchange" }

func (e *IntegerExchange) Start(ctx *core.Context) {
	out := types.NewOutgoing(otherPeer(ctx))
	types.WriteBigInt(out, e.Value)
	ctx.Send(out)
}

func (e *IntegerExchange) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	theirs, ok := types.ReadBigInt(msg)
	if !ok {
		ctx.Abort()
		return
	}
	e.Result = new(big.Int).Add(e.Value, theirs)
	ctx.Complete()
}

func (e *IntegerExchange) HandleChildComplete(ctx *core.Context, child core.Protlet) {}

func (e *IntegerExchange) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

// BatchedExchange invokes one IntegerExchange per value in Values,
// concurrently (from the engine's perspective: all Invoke actions are
// appended in the same handler call), and collects their results in
// order once every child has been delivered.
type BatchedExchange struct {
	Results []*big.Int

	children  []*IntegerExchange
	remaining int
}

// NewBatchedExchange creates a BatchedExchange over values.
func NewBatchedExchange(values []*big.Int) *BatchedExchange {
	children := make([]*IntegerExchange, len(values))
	for i, v := range values {
		children[i] = NewIntegerExchange(v)
	}
	return &BatchedExchange{
		children:  children,
		remaining: len(children),
		Results:   make([]*big.Int, len(children)),
	}
}

func (b *BatchedExchange) Name() string { return "compute.BatchedExchange" }

func (b *BatchedExchange) Start(ctx *core.Context) {
	if len(b.children) == 0 {
		ctx.Complete()
		return
	}
	peers := ctx.Peers()
	for _, child := range b.children {
		ctx.Invoke(child, peers.Copy())
	}
}

func (b *BatchedExchange) HandleMessage(ctx *core.Context, msg *types.Incoming) {}

func (b *BatchedExchange) HandleChildComplete(ctx *core.Context, child core.Protlet) {
	ie, ok := child.(*IntegerExchange)
	if !ok {
		ctx.Abort()
		return
	}
	for i, c := range b.children {
		if c == ie {
			b.Results[i] = ie.Result
			break
		}
	}
	b.remaining--
	if b.remaining == 0 {
		ctx.Complete()
	}
}

func (b *BatchedExchange) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}
