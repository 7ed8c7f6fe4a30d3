package dealer

import (
	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
	"github.com/sirupsen/logrus"
)

// Patron is the consumer side of the correlated-randomness pattern: it
// expects the shares described by infos from a single House peer, queues
// each decoded share into a per-Kind RandomnessDispenser as it arrives,
// and completes once every requested instance has been received.
type Patron struct {
	house        types.Identity
	expected     map[Kind]int
	fingerprints map[Kind][]byte
	received     map[Kind]int
	dispensers   map[Kind]*RandomnessDispenser[Share]
	log          *logrus.Entry
}

// NewPatron creates a Patron expecting the randomness described by infos
// from the given House peer. fields, if non-nil, are attached to every
// structured warning the Patron logs (typically at least the peer's own
// Identity).
func NewPatron(house types.Identity, fields logrus.Fields, infos ...Info) *Patron {
	expected := make(map[Kind]int)
	fingerprints := make(map[Kind][]byte)
	dispensers := make(map[Kind]*RandomnessDispenser[Share])
	for _, info := range infos {
		expected[info.Kind()] += info.Count()
		if _, ok := fingerprints[info.Kind()]; !ok {
			fingerprints[info.Kind()] = info.Fingerprint()
		}
		if _, ok := dispensers[info.Kind()]; !ok {
			dispensers[info.Kind()] = NewRandomnessDispenser[Share]()
		}
	}
	return &Patron{
		house:        house,
		expected:     expected,
		fingerprints: fingerprints,
		received:     make(map[Kind]int),
		dispensers:   dispensers,
		log:          logrus.WithFields(fields),
	}
}

func (p *Patron) Name() string { return "dealer.Patron" }

// Start sends the House one request listing every Kind this Patron
// expects, its desired count, and a fingerprint of that Kind's defining
// parameters, so the House can validate before it produces anything
// (spec's request/validate handshake, §4.5). Every other peer in the run
// is left untouched: the request/share exchange is strictly between a
// Patron and its House.
func (p *Patron) Start(ctx *core.Context) {
	if len(p.expected) == 0 || p.house.Equal(ctx.Self()) {
		ctx.Complete()
		return
	}

	out := types.NewOutgoing(p.house)
	for kind, count := range p.expected {
		types.WriteString(out, string(kind))
		types.WriteUint32(out, uint32(count))
		fp := p.fingerprints[kind]
		types.WriteUint32(out, uint32(len(fp)))
		out.Append(fp)
	}
	ctx.Send(out)
}

func (p *Patron) HandleMessage(ctx *core.Context, msg *types.Incoming) {
	for msg.Length() > 0 {
		kindName, ok := types.ReadString(msg)
		if !ok {
			p.log.Error("dealer: truncated share header from house")
			ctx.Abort()
			return
		}
		n, ok := types.ReadUint32(msg)
		if !ok {
			p.log.Error("dealer: truncated share length from house")
			ctx.Abort()
			return
		}
		if msg.Length() < int(n) {
			p.log.Error("dealer: truncated share payload from house")
			ctx.Abort()
			return
		}
		data := make([]byte, n)
		msg.Remove(data)

		kind := Kind(kindName)
		d, ok := p.dispensers[kind]
		if !ok {
			p.log.WithField("kind", kind).Warn("dealer: received unrequested randomness kind")
			continue
		}
		d.Push(Share{Kind: kind, Data: data})
		p.received[kind]++
	}

	if p.allReceived() {
		ctx.Complete()
	}
}

func (p *Patron) allReceived() bool {
	for k, want := range p.expected {
		if p.received[k] < want {
			return false
		}
	}
	return true
}

// Dispenser returns the RandomnessDispenser backing kind, or nil if this
// Patron was never asked for that kind.
func (p *Patron) Dispenser(kind Kind) *RandomnessDispenser[Share] {
	return p.dispensers[kind]
}

func (p *Patron) HandleChildComplete(ctx *core.Context, child core.Protlet) {}

func (p *Patron) HandlePromiseDone(ctx *core.Context, promised core.Protlet) {}
