package core

import "github.com/go-protlet/protlet/pkg/protlet/types"

// Protlet is a cooperative unit of protocol execution: a state object with
// four event handlers and an action list (spec §3). Implementations are
// user-defined; the engine never enumerates them, it only calls through
// this interface.
//
// Every handler runs to completion without suspension: it may append any
// number of Actions to ctx before returning, but must never block.
type Protlet interface {
	// Name identifies this Protlet kind for logging and metrics.
	Name() string

	// Start runs once, immediately after the engine assigns this
	// Protlet its id and (for non-root Protlets) its PeerSet.
	Start(ctx *Context)

	// HandleMessage is called once per PROTLET_MESSAGE frame addressed
	// to this Protlet, in arrival order.
	HandleMessage(ctx *Context, msg *types.Incoming)

	// HandleChildComplete is called once a non-promised child has been
	// delivered: every peer's counterpart for that child has reported
	// completion.
	HandleChildComplete(ctx *Context, child Protlet)

	// HandlePromiseDone is called on the awaiter of a promised child
	// once that child has been delivered.
	HandlePromiseDone(ctx *Context, promised Protlet)
}

// Context is handed to a Protlet's handler for exactly the duration of one
// invocation. It exposes the handler's identity, peer set and id (spec:
// "Protlets expose their own identity, their PeerSet, and their
// engine-assigned id only during handler execution"), and threads the
// action list the engine will interpret once the handler returns.
type Context struct {
	handler *protletHandler
	actions *ActionList
}

// Self returns the identity of the local peer running this Protlet.
func (c *Context) Self() types.Identity {
	return c.handler.self
}

// Peers returns this Protlet's PeerSet.
func (c *Context) Peers() *types.PeerSet {
	return c.handler.peers
}

// ID returns this Protlet's engine-assigned id.
func (c *Context) ID() uint64 {
	return c.handler.id
}

// Send enqueues msg for delivery to its recipient.
func (c *Context) Send(msg *types.Outgoing) {
	c.actions.Append(Send(msg))
}

// Invoke creates a child Protlet with the given peer set. The parent will
// be notified via HandleChildComplete once the child is delivered.
func (c *Context) Invoke(child Protlet, peers *types.PeerSet) {
	c.actions.Append(Invoke(child, peers, false))
}

// InvokePromise creates a child Protlet as a promise: its completion is
// not delivered to this Protlet, but to whichever Protlet later Awaits the
// returned handle. This lets precomputation overlap with the online phase.
func (c *Context) InvokePromise(child Protlet, peers *types.PeerSet) *Promise {
	p := &Promise{}
	action := Invoke(child, peers, true)
	action.PromiseHandle = p
	c.actions.Append(action)
	return p
}

// Await registers this Protlet to be notified, via HandlePromiseDone, when
// the promised Protlet referenced by p completes. Awaiting the same
// Promise more than once is undefined.
func (c *Context) Await(p *Promise) {
	action := Action{Type: ActionAwait}
	action.AwaitPromise = p
	c.actions.Append(action)
}

// Complete marks this Protlet as finished.
func (c *Context) Complete() {
	c.actions.Append(Complete())
}

// Abort unwinds everything and stops the run at every peer.
func (c *Context) Abort() {
	c.actions.Append(AbortRun())
}
