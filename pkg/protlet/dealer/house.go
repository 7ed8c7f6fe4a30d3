package dealer

import (
	"bytes"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
	"github.com/sirupsen/logrus"
)

// House is the dealer side of the correlated-randomness pattern: invoked
// once, at whichever peer plays the dealer role for a batch, it first
// waits for every peer to request the randomness it wants (Kind, desired
// count, and a fingerprint of the Kind's defining parameters), validates
// those requests against its own configured catalog, and only then
// produces shares and completes. Any mismatch between what a peer
// requests and what the House is configured to produce — an unknown
// Kind, or a Kind whose fingerprint disagrees with the catalog's — is a
// fatal configuration error and aborts the run. Peers disagreeing only on
// the desired count for a Kind is not fatal: the House serves the
// maximum of what was requested and logs a warning.
type House struct {
	catalog map[Kind]Info
	log     *logrus.Entry

	peers     []types.Identity
	requested map[string]bool
	counts    map[Kind]int
}

// NewHouse creates a House configured to produce the randomness described
// by infos, once every peer in its invocation's PeerSet has requested it.
// fields, if non-nil, are attached to every structured log entry.
func NewHouse(fields logrus.Fields, infos ...Info) *House {
	catalog := make(map[Kind]Info, len(infos))
	for _, info := range infos {
		catalog[info.Kind()] = info
	}
	return &House{catalog: catalog, log: logrus.WithFields(fields)}
}

func (h *House) Name() string { return "dealer.House" }

func (h *House) Start(ctx *core.Context) {
	ctx.Peers().ForEach(func(p types.Identity) {
		if !p.Equal(ctx.Self()) {
			h.peers = append(h.peers, p)
		}
	})
	h.requested = make(map[string]bool, len(h.peers))
	h.counts = make(map[Kind]int)
	if len(h.peers) == 0 {
		ctx.Complete()
	}
}

// HandleMessage decodes one peer's randomness request: a sequence of
// (kind, desired count, fingerprint) tuples. Once every peer has
// requested, the House validates, generates, and sends the shares.
func (h *House) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	from := msg.Sender()
	if h.requested[from.String()] {
		h.log.WithField("peer", from).Warn("dealer: duplicate randomness request, ignoring")
		return
	}

	for msg.Length() > 0 {
		kindName, ok := types.ReadString(msg)
		if !ok {
			h.log.Error("dealer: truncated request kind from peer")
			ctx.Abort()
			return
		}
		count, ok := types.ReadUint32(msg)
		if !ok {
			h.log.Error("dealer: truncated request count from peer")
			ctx.Abort()
			return
		}
		fpLen, ok := types.ReadUint32(msg)
		if !ok {
			h.log.Error("dealer: truncated request fingerprint length from peer")
			ctx.Abort()
			return
		}
		if msg.Length() < int(fpLen) {
			h.log.Error("dealer: truncated request fingerprint from peer")
			ctx.Abort()
			return
		}
		fp := make([]byte, fpLen)
		if fpLen > 0 {
			msg.Remove(fp)
		}

		kind := Kind(kindName)
		canonical, ok := h.catalog[kind]
		if !ok {
			h.log.WithFields(logrus.Fields{"peer": from, "kind": kind}).
				Error("dealer: request for unconfigured randomness kind, aborting")
			ctx.Abort()
			return
		}
		if !bytes.Equal(canonical.Fingerprint(), fp) {
			h.log.WithFields(logrus.Fields{"peer": from, "kind": kind}).
				Error("dealer: mismatched randomness parameters, aborting")
			ctx.Abort()
			return
		}
		if existing, ok := h.counts[kind]; ok && existing != int(count) {
			h.log.WithFields(logrus.Fields{"kind": kind, "existing": existing, "requested": count}).
				Warn("dealer: peers disagree on randomness count, serving the max")
		}
		if int(count) > h.counts[kind] {
			h.counts[kind] = int(count)
		}
	}

	h.requested[from.String()] = true
	if len(h.requested) == len(h.peers) {
		h.deliver(ctx)
	}
}

func (h *House) deliver(ctx *core.Context) {
	outgoing := make(map[string]*types.Outgoing, len(h.peers))
	for _, p := range h.peers {
		outgoing[p.String()] = types.NewOutgoing(p)
	}

	for kind, n := range h.counts {
		info := h.catalog[kind]
		for inst := 0; inst < n; inst++ {
			shares, err := info.Share(len(h.peers))
			if err != nil {
				ctx.Abort()
				return
			}
			for idx, p := range h.peers {
				out := outgoing[p.String()]
				types.WriteString(out, string(kind))
				types.WriteUint32(out, uint32(len(shares[idx].Data)))
				out.Append(shares[idx].Data)
			}
		}
	}

	for _, p := range h.peers {
		ctx.Send(outgoing[p.String()])
	}
	ctx.Complete()
}

func (h *House) HandleChildComplete(ctx *core.Context, child core.Protlet) {}

func (h *House) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}
