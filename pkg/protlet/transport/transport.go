package transport

import (
	"net"
	"sync"
	"time"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/definition"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// dialRetryInterval bounds how eagerly a peer re-dials a peer that isn't
// listening yet (processes in a run are started independently and race
// each other up).
const dialRetryInterval = 200 * time.Millisecond

type inboundFrame struct {
	from types.Identity
	f    frame
}

// Transport is the L0-L2 layer from SPEC_FULL.md: raw TCP connections
// (L0), control/dst/length framing (L1) and a single-threaded multiplexer
// (L2) that hands every inbound frame to the engine in arrival order
// regardless of which connection it arrived on. It implements
// core.FrameSink.
//
// Connections are established deterministically to avoid a double-dial
// race: for any pair of peers, the one with the lexicographically smaller
// Identity listens and the other dials (see connect()).
type Transport struct {
	self    types.Identity
	version string
	log     types.Logger

	addrOf map[string]*net.TCPAddr

	listener net.Listener

	mu         sync.Mutex
	conns      map[string]*peerConn
	pendingOut map[string][]frame

	inbound chan inboundFrame
	engine  *core.Engine

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTransport prepares a Transport for self but does not yet open any
// sockets; call Listen followed by Connect to bring the peer group up.
func NewTransport(self types.Identity, peers []definition.PeerAddress, version string, log types.Logger) *Transport {
	addrOf := make(map[string]*net.TCPAddr, len(peers))
	for _, p := range peers {
		addrOf[p.Identity.String()] = p.Addr
	}
	return &Transport{
		self:       self,
		version:    version,
		log:        log,
		addrOf:     addrOf,
		conns:      make(map[string]*peerConn),
		pendingOut: make(map[string][]frame),
		inbound:    make(chan inboundFrame, 256),
		stop:       make(chan struct{}),
	}
}

// Bind registers engine as the receiver of every inbound frame and starts
// the multiplexer goroutine. core.Run calls this automatically when sink
// implements the optional Bind(*core.Engine) interface.
func (t *Transport) Bind(engine *core.Engine) {
	t.engine = engine
	go t.multiplex()
}

func (t *Transport) multiplex() {
	for {
		select {
		case in := <-t.inbound:
			t.engine.DeliverFrame(in.from, in.f.control, in.f.dst, in.f.payload)
		case <-t.stop:
			return
		}
	}
}

// Listen opens self's own listening socket and accepts connections from
// every peer with a lexicographically greater Identity.
func (t *Transport) Listen() error {
	addr, ok := t.addrOf[t.self.String()]
	if !ok {
		return nil
	}
	ln, err := net.ListenTCP("tcp4", addr)
	if err != nil {
		return err
	}
	t.listener = ln
	go t.acceptLoop(ln)
	return nil
}

func (t *Transport) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-t.stop:
				return
			default:
				t.log.Errorf("transport: accept failed: %v", err)
				return
			}
		}
		go t.handleAccepted(conn)
	}
}

func (t *Transport) handleAccepted(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	identity, version, err := t.exchangeHandshake(conn)
	if err != nil {
		t.log.Warnf("transport: handshake with %s failed: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}
	if err := checkVersion(t.version, version); err != nil {
		t.log.Errorf("transport: %v", err)
		_ = conn.Close()
		return
	}
	t.register(identity, conn)
}

// Connect dials every peer with a lexicographically smaller Identity than
// self, retrying until the run tears down or the dial succeeds. It
// returns once every such peer is either connected or being retried in
// the background.
func (t *Transport) Connect() {
	for name, addr := range t.addrOf {
		if name == t.self.String() {
			continue
		}
		identity := types.NewIdentity(name)
		if !identity.Less(t.self) {
			continue
		}
		go t.dialLoop(identity, addr)
	}
}

func (t *Transport) dialLoop(identity types.Identity, addr *net.TCPAddr) {
	ticker := time.NewTicker(dialRetryInterval)
	defer ticker.Stop()
	for {
		conn, err := net.DialTCP("tcp4", nil, addr)
		if err == nil {
			_ = conn.SetNoDelay(true)
			if _, version, hsErr := t.exchangeHandshake(conn); hsErr != nil {
				t.log.Warnf("transport: handshake with %s failed: %v", identity, hsErr)
				_ = conn.Close()
			} else if vErr := checkVersion(t.version, version); vErr != nil {
				t.log.Errorf("transport: %v", vErr)
				_ = conn.Close()
			} else {
				t.register(identity, conn)
				return
			}
		}
		select {
		case <-ticker.C:
		case <-t.stop:
			return
		}
	}
}

func (t *Transport) exchangeHandshake(conn net.Conn) (types.Identity, string, error) {
	var sendErr error
	done := make(chan struct{})
	go func() {
		sendErr = sendHandshake(conn, t.self, t.version)
		close(done)
	}()
	identity, version, err := readHandshake(conn)
	<-done
	if err != nil {
		return types.Identity{}, "", err
	}
	if sendErr != nil {
		return types.Identity{}, "", sendErr
	}
	return identity, version, nil
}

func (t *Transport) register(identity types.Identity, conn net.Conn) {
	pc := newPeerConn(identity, conn)

	t.mu.Lock()
	t.conns[identity.String()] = pc
	queued := t.pendingOut[identity.String()]
	delete(t.pendingOut, identity.String())
	t.mu.Unlock()

	go pc.writeLoop(t.onConnError)
	if len(queued) > 0 {
		t.log.Debugf("transport: flushing %d queued frames to %s", len(queued), identity)
	}
	for _, f := range queued {
		pc.send(f)
	}

	go pc.readLoop(t.onFrame, t.onConnError)
	t.log.Infof("transport: connected to %s", identity)
}

func (t *Transport) onFrame(from types.Identity, f frame) {
	select {
	case t.inbound <- inboundFrame{from: from, f: f}:
	case <-t.stop:
	}
}

func (t *Transport) onConnError(identity types.Identity, err error) {
	t.log.Warnf("transport: connection to %s lost: %v", identity, err)
	t.mu.Lock()
	if pc, ok := t.conns[identity.String()]; ok {
		pc.close()
		delete(t.conns, identity.String())
	}
	t.mu.Unlock()
	// Hand the abort to the multiplexer so the engine is still entered
	// from one goroutine only.
	t.onFrame(identity, frame{control: types.Abort})
}

// SendFrame implements core.FrameSink.
func (t *Transport) SendFrame(to types.Identity, control types.Control, dst uint64, payload []byte) error {
	f := frame{control: control, dst: dst, payload: payload}

	t.mu.Lock()
	pc, ok := t.conns[to.String()]
	if !ok {
		t.pendingOut[to.String()] = append(t.pendingOut[to.String()], f)
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	pc.send(f)
	return nil
}

// Close tears down every connection and the listening socket.
func (t *Transport) Close() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pc := range t.conns {
		pc.close()
	}
}
