package compute

import (
	"crypto/rand"
	"math/big"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// DHPrime and DHBase are the toy group parameters named in spec §8
// scenario 1. They are intentionally small: DiffieHellman exists to
// exercise the framework end-to-end, not to provide real security.
const (
	DHPrime = 23
	DHBase  = 5
)

// DiffieHellman runs two-party key agreement over the named toy group: it
// exchanges public values with its one peer, derives the shared secret,
// and invokes CheckField to confirm both sides landed on the same value
// before completing. The computed result is exposed through Result,
// valid once the host observes this Protlet delivered (spec's
// caller-owned-memory convention, §7).
type DiffieHellman struct {
	Result SharedSecret

	prime   *big.Int
	base    *big.Int
	private *big.Int
}

// SharedSecret is the caller-owned memory DiffieHellman mutates in place.
type SharedSecret struct {
	Value    *big.Int
	Verified bool
}

// NewDiffieHellman creates a DiffieHellman Protlet over the default toy
// group parameters.
func NewDiffieHellman() *DiffieHellman {
	return &DiffieHellman{
		prime: big.NewInt(DHPrime),
		base:  big.NewInt(DHBase),
	}
}

func (d *DiffieHellman) Name() string { return "compute.DiffieHellman" }

func (d *DiffieHellman) Start(ctx *core.Context) {
	exponentRange := new(big.Int).Sub(d.prime, big.NewInt(2))
	priv, err := rand.Int(rand.Reader, exponentRange)
	if err != nil {
		ctx.Abort()
		return
	}
	priv.Add(priv, big.NewInt(1)) // exponents live in [1, prime-2]
	d.private = priv

	public := new(big.Int).Exp(d.base, d.private, d.prime)

	other := otherPeer(ctx)
	out := types.NewOutgoing(other)
	types.WriteBigInt(out, public)
	ctx.Send(out)
}

func (d *DiffieHellman) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	theirPublic, ok := types.ReadBigInt(msg)
	if !ok {
		ctx.Abort()
		return
	}
	d.Result.Value = new(big.Int).Exp(theirPublic, d.private, d.prime)
	ctx.Invoke(NewCheckField(d.Result.Value, &d.Result.Verified), ctx.Peers().Copy())
}

func (d *DiffieHellman) HandleChildComplete(ctx *core.Context, child core.Protlet) {
	ctx.Complete()
}

func (d *DiffieHellman) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}

// otherPeer returns the single peer in ctx's PeerSet that is not self. It
// panics on a PeerSet that doesn't have exactly one other member, which
// would be a caller error for a two-party Protlet.
func otherPeer(ctx *core.Context) types.Identity {
	var other types.Identity
	found := 0
	ctx.Peers().ForEach(func(p types.Identity) {
		if !p.Equal(ctx.Self()) {
			other = p
			found++
		}
	})
	if found != 1 {
		panic("compute: two-party protlet invoked without exactly one other peer")
	}
	return other
}
