package core

import "github.com/go-protlet/protlet/pkg/protlet/types"

// protletState mirrors the per-Protlet state machine from spec §4.4.
type protletState int

const (
	stateCreated protletState = iota
	stateRunning
	stateLocalComplete
	stateDelivered
	stateDestroyed
)

// rootID is the engine-reserved id for the top-level Protlet. Every peer
// assigns the same value without needing an announce handshake, since the
// root's PeerSet is constructed identically (from the host-supplied peer
// table) at every participant.
const rootID uint64 = 0

// protletHandler is the engine-internal record the spec calls
// "ProtletHandler": everything the engine tracks about one running
// Protlet, as distinct from the Protlet's own (user-defined) state.
//
// Id namespace (resolving spec §9's open question): ids are assigned from
// a single monotonic counter per engine (per peer process), not reset per
// parent. A handler addresses an outbound frame to peer p using the value
// p announced for it (peers[p].remoteID); this is simpler than threading
// per-parent counters through the ANNOUNCE_CHILD_ID correlation and still
// satisfies "unique across one peer's run" (invariant 1) by construction.
type protletHandler struct {
	id     uint64
	self   types.Identity
	peers  *types.PeerSet
	parent *protletHandler
	impl   Protlet
	state  protletState

	// awaitingAnnounce[p] is the FIFO of this handler's own children
	// (in invocation order) whose PeerSet still lacks peer p's
	// remote id for them. Receiving ANNOUNCE_CHILD_ID from p, addressed
	// to this handler as the parent, pops the front entry and resolves
	// it — matching spec's requirement that a parent's children line up
	// with a peer's announces in invocation order.
	awaitingAnnounce map[types.Identity][]*protletHandler

	// earlyAnnounce[p] caches ids p has already announced for children
	// of this handler that have not been invoked locally yet.
	earlyAnnounce map[types.Identity][]uint64

	// pendingSends[p] holds application Sends to p queued because p's
	// remote id for this handler is not known yet.
	pendingSends map[types.Identity][]*types.Outgoing

	// pendingAnnounces[p] holds ANNOUNCE_CHILD_ID frames (for children
	// of this handler) queued because p's remote id for THIS handler
	// (the parent) is not known yet.
	pendingAnnounces map[types.Identity][]uint64

	// pendingComplete[p] records that a PROTLET_COMPLETE for this
	// handler is owed to p once p's remote id for it becomes known.
	pendingComplete map[types.Identity]bool

	promised  bool
	completed bool

	awaiter *protletHandler
}

func newHandler(self types.Identity, peers *types.PeerSet) *protletHandler {
	return &protletHandler{
		self:             self,
		peers:            peers,
		awaitingAnnounce: make(map[types.Identity][]*protletHandler),
		earlyAnnounce:    make(map[types.Identity][]uint64),
		pendingSends:     make(map[types.Identity][]*types.Outgoing),
		pendingAnnounces: make(map[types.Identity][]uint64),
		pendingComplete:  make(map[types.Identity]bool),
	}
}
