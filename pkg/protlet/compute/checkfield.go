package compute

import (
	"bytes"
	"crypto/sha256"
	"math/big"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// CheckField confirms that every peer in its PeerSet independently
// derived the same field element, without revealing the element itself
// to anyone who doesn't already have it: each peer exchanges a SHA-256
// commitment of its own value and compares it against every peer's.
// Verified (via the pointer the caller supplies) is only ever set to
// true; any mismatch aborts the run rather than reporting false, since a
// mismatch here means the parties are no longer executing the same
// protocol instance.
type CheckField struct {
	value    *big.Int
	verified *bool

	ownHash [sha256.Size]byte
	pending int
}

// NewCheckField creates a CheckField for value, setting *verified to true
// once every peer's commitment matches.
func NewCheckField(value *big.Int, verified *bool) *CheckField {
	return &CheckField{value: value, verified: verified}
}

func (c *CheckField) Name() string { return "compute.CheckField" }

func (c *CheckField) Start(ctx *core.Context) {
	c.ownHash = sha256.Sum256(c.value.Bytes())

	var peers []types.Identity
	ctx.Peers().ForEach(func(p types.Identity) {
		if !p.Equal(ctx.Self()) {
			peers = append(peers, p)
		}
	})
	c.pending = len(peers)
	if c.pending == 0 {
		*c.verified = true
		ctx.Complete()
		return
	}
	for _, p := range peers {
		out := types.NewOutgoing(p)
		out.Append(c.ownHash[:])
		ctx.Send(out)
	}
}

func (c *CheckField) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	theirHash := make([]byte, sha256.Size)
	if msg.Remove(theirHash) != sha256.Size {
		ctx.Abort()
		return
	}
	if !bytes.Equal(theirHash, c.ownHash[:]) {
		ctx.Abort()
		return
	}
	c.pending--
	if c.pending == 0 {
		*c.verified = true
		ctx.Complete()
	}
}

func (c *CheckField) HandleChildComplete(ctx *core.Context, child core.Protlet) {}

func (c *CheckField) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}
