package core

import "github.com/go-protlet/protlet/pkg/protlet/types"

// ActionType discriminates the closed set of side effects a handler can
// request (spec §3, "Action"). The engine switches on this tag instead of
// using virtual dispatch.
type ActionType int

const (
	ActionSend ActionType = iota
	ActionInvoke
	ActionComplete
	ActionAwait
	ActionAbort
)

// Action is a tagged record describing one side effect emitted by a
// Protlet handler. Exactly one of the payload fields is meaningful,
// selected by Type.
type Action struct {
	Type ActionType

	// ActionSend
	Outgoing *types.Outgoing

	// ActionInvoke
	Child         Protlet
	Peers         *types.PeerSet
	Promised      bool
	PromiseHandle *Promise

	// ActionAwait
	AwaitPromise *Promise
}

// Send enqueues msg for delivery to its recipient.
func Send(msg *types.Outgoing) Action {
	return Action{Type: ActionSend, Outgoing: msg}
}

// Invoke creates child with the given peer set. A promised child does not
// notify its parent via HandleChildComplete; see Promised.
func Invoke(child Protlet, peers *types.PeerSet, promised bool) Action {
	return Action{Type: ActionInvoke, Child: child, Peers: peers, Promised: promised}
}

// Complete marks the emitting Protlet as finished.
func Complete() Action {
	return Action{Type: ActionComplete}
}

// Await registers the emitting Protlet as the awaiter of the promised
// Protlet referenced by p. At most one awaiter may be registered per
// promise.
func Await(p *Promise) Action {
	return Action{Type: ActionAwait, AwaitPromise: p}
}

// AbortRun unwinds everything and stops the run at every peer.
func AbortRun() Action {
	return Action{Type: ActionAbort}
}

// ActionList is the per-invocation buffer a handler appends Actions into.
// After the handler returns, the engine owns and drains it; no
// process-wide mutable state is involved.
type ActionList struct {
	actions []Action
}

// Append records action for the engine to interpret once the handler
// returns.
func (l *ActionList) Append(a Action) {
	l.actions = append(l.actions, a)
}

// Drain returns the accumulated actions and resets the list.
func (l *ActionList) Drain() []Action {
	out := l.actions
	l.actions = nil
	return out
}
