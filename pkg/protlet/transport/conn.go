package transport

import (
	"net"
	"sync"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// peerConn owns one established, post-handshake TCP connection to a single
// peer. Reads and writes each run on their own goroutine; outbound frames
// are fanned in through outbox so the connection's own write ordering
// never blocks on whatever the multiplexer is doing with other peers.
// This is the idiomatic-Go stand-in for spec's literal "single-threaded,
// non-blocking sockets" wording — see SPEC_FULL.md's transport section.
type peerConn struct {
	identity types.Identity
	conn     net.Conn
	outbox   chan frame

	closeOnce sync.Once
	closed    chan struct{}
}

func newPeerConn(identity types.Identity, conn net.Conn) *peerConn {
	return &peerConn{
		identity: identity,
		conn:     conn,
		outbox:   make(chan frame, 64),
		closed:   make(chan struct{}),
	}
}

// send enqueues f for the write loop. It never blocks the caller on
// network I/O; it blocks only if the outbox itself is full, which signals
// a genuinely wedged peer.
func (c *peerConn) send(f frame) {
	select {
	case c.outbox <- f:
	case <-c.closed:
	}
}

func (c *peerConn) writeLoop(onError func(types.Identity, error)) {
	for {
		select {
		case f := <-c.outbox:
			if err := writeFrame(c.conn, f); err != nil {
				onError(c.identity, err)
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *peerConn) readLoop(onFrame func(types.Identity, frame), onError func(types.Identity, error)) {
	for {
		f, err := readFrame(c.conn)
		if err != nil {
			onError(c.identity, err)
			return
		}
		onFrame(c.identity, f)
	}
}

func (c *peerConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
