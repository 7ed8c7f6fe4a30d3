package core

import (
	"sync"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// FrameSink is the one thing the engine needs from the transport layer:
// the ability to hand a framed message to a peer. The transport package
// implements this and is handed to the engine via SetSink; the engine
// itself never opens a socket.
type FrameSink interface {
	SendFrame(to types.Identity, control types.Control, dst uint64, payload []byte) error
}

// Engine owns every running Protlet's ProtletHandler record, converts
// Actions into wire events, and drives handler invocations (spec §4.4).
// It is strictly single-threaded: DeliverFrame and the internal dispatch
// loop are never called concurrently (the transport's multiplexer
// serializes all calls through one goroutine).
type Engine struct {
	self types.Identity
	log  types.Logger
	sink FrameSink

	mu       sync.Mutex
	handlers map[uint64]*protletHandler
	nextID   uint64
	root     *protletHandler
	allPeers []types.Identity

	pendingMessages map[uint64][]types.Cache

	done    chan struct{}
	result  bool
	aborted bool
	closed  bool
}

// NewEngine creates an Engine for the local peer identified by self.
func NewEngine(self types.Identity, logger types.Logger) *Engine {
	return &Engine{
		self:            self,
		log:             logger,
		handlers:        make(map[uint64]*protletHandler),
		nextID:          rootID + 1,
		pendingMessages: make(map[uint64][]types.Cache),
		done:            make(chan struct{}),
	}
}

// SetSink wires the engine to a transport.
func (e *Engine) SetSink(sink FrameSink) {
	e.sink = sink
}

// Done returns a channel closed once the run has finished, successfully
// or by abort.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Result reports whether the root Protlet completed (true) or the run was
// aborted (false). Only meaningful after Done() is closed.
func (e *Engine) Result() bool {
	return e.result
}

// Start creates the root Protlet's handler and runs its Start handler.
// peers must fully enumerate the run, including an entry for self.
//
// Run binds the transport only after this call, but a caller that feeds
// DeliverFrame before Start can address the well-known root id (0) early
// — a peer that reached its own Start first may already have sent to us.
// Any message cached under rootID by handleMessage is therefore replayed
// immediately after the root's Start handler, the same way doInvoke
// replays a child's cache.
func (e *Engine) Start(root Protlet, peers *types.PeerSet) {
	e.mu.Lock()
	h := newHandler(e.self, peers)
	h.id = rootID
	h.impl = root
	h.state = stateRunning
	e.handlers[rootID] = h
	e.root = h
	e.allPeers = peers.Identities()
	cached := e.pendingMessages[rootID]
	delete(e.pendingMessages, rootID)
	e.mu.Unlock()

	e.dispatch(h, func(ctx *Context) {
		root.Start(ctx)
	})
	for _, c := range cached {
		if e.aborted || h.state == stateDestroyed {
			return
		}
		e.dispatch(h, func(ctx *Context) {
			h.impl.HandleMessage(ctx, c.Message)
		})
	}
}

// DeliverFrame routes one inbound frame from peer `from` into the engine.
// It is the only entry point the transport layer calls.
func (e *Engine) DeliverFrame(from types.Identity, control types.Control, dst uint64, payload []byte) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	switch control {
	case types.Abort:
		e.log.Warnf("received ABORT from %s", from)
		e.finish(false)
	case types.AnnounceChildID:
		e.handleAnnounce(from, dst, payload)
	case types.ProtletMessage:
		e.handleMessage(from, dst, payload)
	case types.ProtletComplete:
		e.handleRemoteComplete(from, dst)
	default:
		e.log.Errorf("invalid control code %d from %s, aborting run", control, from)
		e.abortLocally()
	}
}

// dispatch hands h an empty action list, invokes fn (a handler call), then
// interprets the resulting actions in order, per spec §4.4.
func (e *Engine) dispatch(h *protletHandler, fn func(ctx *Context)) {
	actions := &ActionList{}
	ctx := &Context{handler: h, actions: actions}
	fn(ctx)
	for _, a := range actions.Drain() {
		e.interpret(h, a)
		if e.aborted {
			return
		}
	}
}

func (e *Engine) interpret(h *protletHandler, a Action) {
	switch a.Type {
	case ActionSend:
		e.doSend(h, a.Outgoing)
	case ActionInvoke:
		e.doInvoke(h, a)
	case ActionComplete:
		e.doComplete(h)
	case ActionAwait:
		e.doAwait(h, a.AwaitPromise)
	case ActionAbort:
		e.log.Errorf("protlet %s (%d) requested abort", h.impl.Name(), h.id)
		e.abortLocally()
	}
}

// doSend emits msg to its recipient, addressed using the value that peer
// announced for h (h.peers remoteID), or queues it if not known yet.
func (e *Engine) doSend(h *protletHandler, msg *types.Outgoing) {
	to := msg.Recipient()
	if to.Equal(h.self) {
		// Loopback: deliver directly without touching the transport.
		e.routeLocalMessage(h, msg)
		return
	}
	if !h.peers.HasPeer(to) {
		e.log.Errorf("protlet %d sent to non-peer %s, aborting run", h.id, to)
		e.abortLocally()
		return
	}
	// The root Protlet is globally known as rootID to every peer without
	// an ANNOUNCE_CHILD_ID round trip, so it never waits on one.
	remoteID := rootID
	if h.id != rootID {
		remoteID = h.peers.FindPeerId(to)
		if remoteID == types.InvalidProtletID {
			h.pendingSends[to] = append(h.pendingSends[to], msg)
			return
		}
	}
	if err := e.sink.SendFrame(to, types.ProtletMessage, remoteID, msg.Bytes()); err != nil {
		e.log.Errorf("transport failed sending to %s: %v", to, err)
		e.abortLocally()
	}
}

func (e *Engine) routeLocalMessage(h *protletHandler, msg *types.Outgoing) {
	incoming := types.NewIncoming(h.self, append([]byte{}, msg.Bytes()...))
	e.dispatch(h, func(ctx *Context) {
		h.impl.HandleMessage(ctx, incoming)
	})
}

// doInvoke creates a child handler, assigns it a global id, announces it
// to every other peer in its PeerSet, and immediately runs its Start.
func (e *Engine) doInvoke(parent *protletHandler, a Action) {
	e.mu.Lock()
	child := newHandler(e.self, a.Peers)
	child.id = e.nextID
	e.nextID++
	child.impl = a.Child
	child.parent = parent
	child.promised = a.Promised
	e.handlers[child.id] = child
	e.mu.Unlock()

	if a.PromiseHandle != nil {
		a.PromiseHandle.resolve(child.id)
	}

	child.peers.ForEach(func(p types.Identity) {
		if p.Equal(e.self) {
			return
		}
		if ids := parent.earlyAnnounce[p]; len(ids) > 0 {
			child.peers.SetId(p, ids[0])
			parent.earlyAnnounce[p] = ids[1:]
		} else {
			parent.awaitingAnnounce[p] = append(parent.awaitingAnnounce[p], child)
		}
		e.announceChild(parent, p, child.id)
	})

	if ids, ok := e.pendingMessages[child.id]; ok {
		delete(e.pendingMessages, child.id)
		child.state = stateRunning
		e.dispatch(child, func(ctx *Context) { child.impl.Start(ctx) })
		for _, c := range ids {
			if e.aborted || child.state == stateDestroyed {
				return
			}
			e.dispatch(child, func(ctx *Context) { child.impl.HandleMessage(ctx, c.Message) })
		}
		return
	}

	child.state = stateRunning
	e.dispatch(child, func(ctx *Context) {
		child.impl.Start(ctx)
	})
}

// announceChild addresses an ANNOUNCE_CHILD_ID frame to peer p using
// parent's remote id for p (known to p already, by induction from root),
// or queues it until parent's own handshake with p completes.
func (e *Engine) announceChild(parent *protletHandler, p types.Identity, childID uint64) {
	if parent.id == rootID {
		e.sendAnnounce(parent, p, childID)
		return
	}
	remoteID := parent.peers.FindPeerId(p)
	if remoteID == types.InvalidProtletID {
		parent.pendingAnnounces[p] = append(parent.pendingAnnounces[p], childID)
		return
	}
	e.sendAnnounceTo(p, remoteID, childID)
}

func (e *Engine) sendAnnounce(parent *protletHandler, p types.Identity, childID uint64) {
	e.sendAnnounceTo(p, rootID, childID)
}

func (e *Engine) sendAnnounceTo(p types.Identity, parentRemoteID, childID uint64) {
	payload := make([]byte, 8)
	for i := 0; i < 8; i++ {
		payload[7-i] = byte(childID >> (8 * i))
	}
	if err := e.sink.SendFrame(p, types.AnnounceChildID, parentRemoteID, payload); err != nil {
		e.log.Errorf("transport failed announcing to %s: %v", p, err)
		e.abortLocally()
	}
}

// handleAnnounce processes an inbound ANNOUNCE_CHILD_ID frame. dst names
// the parent as we know it locally; payload carries the sender's own id
// for the newly invoked child.
func (e *Engine) handleAnnounce(from types.Identity, dst uint64, payload []byte) {
	if len(payload) != 8 {
		e.log.Errorf("malformed ANNOUNCE_CHILD_ID from %s, aborting run", from)
		e.abortLocally()
		return
	}
	var id uint64
	for _, b := range payload {
		id = (id << 8) | uint64(b)
	}

	e.mu.Lock()
	parent, ok := e.handlers[dst]
	e.mu.Unlock()
	if !ok {
		e.log.Warnf("ANNOUNCE_CHILD_ID for unknown parent %d from %s; parent not yet created locally", dst, from)
		// The parent genuinely does not exist yet on this side; there is
		// nothing to correlate this announce to. This can only happen if
		// the remote peer is ahead of us on a shared ancestor we have not
		// invoked yet, which would itself have been queued the same way;
		// drop defensively rather than silently hang a peer forever.
		return
	}

	if q := parent.awaitingAnnounce[from]; len(q) > 0 {
		child := q[0]
		parent.awaitingAnnounce[from] = q[1:]
		child.peers.SetId(from, id)
		e.flushPendingSends(child, from)
	} else {
		parent.earlyAnnounce[from] = append(parent.earlyAnnounce[from], id)
	}
}

// flushPendingSends drains everything h owed to p once p's remote id for h
// became known (via SetId, just before this is called).
func (e *Engine) flushPendingSends(h *protletHandler, p types.Identity) {
	remoteID := h.peers.FindPeerId(p)

	if queued := h.pendingSends[p]; len(queued) > 0 {
		delete(h.pendingSends, p)
		for _, msg := range queued {
			if err := e.sink.SendFrame(p, types.ProtletMessage, remoteID, msg.Bytes()); err != nil {
				e.log.Errorf("transport failed flushing queued send to %s: %v", p, err)
				e.abortLocally()
				return
			}
		}
	}
	if h.pendingComplete[p] {
		delete(h.pendingComplete, p)
		if err := e.sink.SendFrame(p, types.ProtletComplete, remoteID, nil); err != nil {
			e.log.Errorf("transport failed flushing queued complete to %s: %v", p, err)
			e.abortLocally()
			return
		}
	}
	if queued := h.pendingAnnounces[p]; len(queued) > 0 {
		delete(h.pendingAnnounces, p)
		for _, childID := range queued {
			e.sendAnnounceTo(p, remoteID, childID)
		}
	}
}

// handleMessage processes an inbound PROTLET_MESSAGE frame, caching it if
// the named local Protlet does not exist yet.
func (e *Engine) handleMessage(from types.Identity, dst uint64, payload []byte) {
	e.mu.Lock()
	h, ok := e.handlers[dst]
	e.mu.Unlock()
	incoming := types.NewIncoming(from, payload)
	if !ok {
		e.pendingMessages[dst] = append(e.pendingMessages[dst], types.Cache{
			Control: byte(types.ProtletMessage),
			Message: incoming,
		})
		return
	}
	if h.state == stateDestroyed {
		return
	}
	e.dispatch(h, func(ctx *Context) {
		h.impl.HandleMessage(ctx, incoming)
	})
}

// handleRemoteComplete records that peer `from`'s counterpart for local
// Protlet dst has completed, delivering to the parent/awaiter once every
// peer has reported in.
func (e *Engine) handleRemoteComplete(from types.Identity, dst uint64) {
	e.mu.Lock()
	h, ok := e.handlers[dst]
	e.mu.Unlock()
	if !ok {
		e.log.Errorf("PROTLET_COMPLETE for unknown local id %d from %s, aborting run", dst, from)
		e.abortLocally()
		return
	}
	h.peers.SetCompleted(from)
	e.maybeDeliver(h)
}

func (e *Engine) doComplete(h *protletHandler) {
	h.completed = true
	h.state = stateLocalComplete
	h.peers.SetCompleted(h.self)

	h.peers.ForEach(func(p types.Identity) {
		if p.Equal(h.self) {
			return
		}
		if h.id == rootID {
			if err := e.sink.SendFrame(p, types.ProtletComplete, rootID, nil); err != nil {
				e.abortLocally()
			}
			return
		}
		remoteID := h.peers.FindPeerId(p)
		if remoteID == types.InvalidProtletID {
			h.pendingComplete[p] = true
			return
		}
		if err := e.sink.SendFrame(p, types.ProtletComplete, remoteID, nil); err != nil {
			e.log.Errorf("transport failed sending complete to %s: %v", p, err)
			e.abortLocally()
		}
	})

	e.maybeDeliver(h)
}

// maybeDeliver checks whether h is ready to be delivered to its parent
// (or awaiter, or the engine itself for the root) and does so exactly
// once (spec invariant 4: no handler runs after DELIVERED).
func (e *Engine) maybeDeliver(h *protletHandler) {
	if !h.completed || !h.peers.CheckAllComplete() || h.state == stateDelivered || h.state == stateDestroyed {
		return
	}
	h.state = stateDelivered

	if h.id == rootID {
		e.finish(true)
		return
	}

	if h.promised {
		if h.awaiter != nil {
			awaiter := h.awaiter
			e.dispatch(awaiter, func(ctx *Context) {
				awaiter.impl.HandlePromiseDone(ctx, h.impl)
			})
			h.state = stateDestroyed
			e.destroy(h)
		}
		// If no awaiter has registered yet, h stays in stateDelivered and
		// in the handlers table; doAwait finds it there and delivers
		// immediately once Await is finally issued.
		return
	}

	parent := h.parent
	e.dispatch(parent, func(ctx *Context) {
		parent.impl.HandleChildComplete(ctx, h.impl)
	})
	h.state = stateDestroyed
	e.destroy(h)
}

func (e *Engine) destroy(h *protletHandler) {
	e.mu.Lock()
	delete(e.handlers, h.id)
	e.mu.Unlock()
}

// doAwait registers h as the awaiter of the promised Protlet p refers to,
// delivering immediately if it has already been reached.
func (e *Engine) doAwait(h *protletHandler, p *Promise) {
	e.mu.Lock()
	promised, ok := e.handlers[p.ID()]
	e.mu.Unlock()
	if !ok {
		// Already delivered and destroyed before the await was
		// registered is a programming error in well-formed protocols;
		// spec defines await as idempotent only with respect to
		// re-issuance, not to late registration after destruction.
		e.log.Errorf("await registered for already-destroyed promise %d", p.ID())
		return
	}
	promised.awaiter = h
	if promised.state == stateDelivered {
		e.dispatch(h, func(ctx *Context) {
			h.impl.HandlePromiseDone(ctx, promised.impl)
		})
		promised.state = stateDestroyed
		e.destroy(promised)
	}
}

func (e *Engine) abortLocally() {
	e.mu.Lock()
	if e.aborted {
		e.mu.Unlock()
		return
	}
	e.aborted = true
	peers := append([]types.Identity{}, e.allPeers...)
	e.mu.Unlock()

	for _, p := range peers {
		if p.Equal(e.self) {
			continue
		}
		_ = e.sink.SendFrame(p, types.Abort, 0, nil)
	}
	e.finish(false)
}

func (e *Engine) finish(ok bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.result = ok
	if !ok {
		e.aborted = true
	}
	e.mu.Unlock()
	close(e.done)
}
