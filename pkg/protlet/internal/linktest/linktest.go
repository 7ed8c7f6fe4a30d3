// Package linktest is a test-only in-process core.FrameSink, shared by the
// core, compute, and dealer package tests so each one wires a small group
// of engines together without a real transport (spec §4.4 concerns itself
// with engine semantics, not sockets).
package linktest

import (
	"fmt"

	"github.com/go-protlet/protlet/pkg/protlet/core"
	"github.com/go-protlet/protlet/pkg/protlet/types"
)

type frame struct {
	from    types.Identity
	control types.Control
	dst     uint64
	payload []byte
}

// Sink is a core.FrameSink that delivers directly to other Sinks it has
// been Connect-ed to, in-process.
type Sink struct {
	self    types.Identity
	inbound chan frame
	peers   map[string]*Sink
}

// New creates a Sink for self. Call Connect to wire it to its peers before
// use.
func New(self types.Identity) *Sink {
	return &Sink{self: self, inbound: make(chan frame, 256), peers: make(map[string]*Sink)}
}

// Connect wires every given Sink to every other one.
func Connect(sinks ...*Sink) {
	for _, a := range sinks {
		for _, b := range sinks {
			if a != b {
				a.peers[b.self.String()] = b
			}
		}
	}
}

// SendFrame implements core.FrameSink.
func (s *Sink) SendFrame(to types.Identity, control types.Control, dst uint64, payload []byte) error {
	target, ok := s.peers[to.String()]
	if !ok {
		return fmt.Errorf("linktest: unknown peer %s", to)
	}
	target.inbound <- frame{from: s.self, control: control, dst: dst, payload: payload}
	return nil
}

// Bind satisfies the optional interface core.Run looks for.
func (s *Sink) Bind(engine *core.Engine) {
	go func() {
		for f := range s.inbound {
			engine.DeliverFrame(f.from, f.control, f.dst, f.payload)
		}
	}()
}

// Close stops the Sink's delivery goroutine.
func (s *Sink) Close() {
	close(s.inbound)
}

// DiscardLogger is a types.Logger that drops everything, for tests that
// only care about engine/protocol outcomes.
type DiscardLogger struct{}

func (DiscardLogger) Info(v ...interface{})         {}
func (DiscardLogger) Infof(string, ...interface{})  {}
func (DiscardLogger) Warn(v ...interface{})         {}
func (DiscardLogger) Warnf(string, ...interface{})  {}
func (DiscardLogger) Error(v ...interface{})        {}
func (DiscardLogger) Errorf(string, ...interface{}) {}
func (DiscardLogger) Debug(v ...interface{})        {}
func (DiscardLogger) Debugf(string, ...interface{}) {}
func (DiscardLogger) Fatal(v ...interface{})        {}
func (DiscardLogger) Fatalf(string, ...interface{}) {}
func (DiscardLogger) Panic(v ...interface{})        {}
func (DiscardLogger) Panicf(string, ...interface{}) {}
func (DiscardLogger) ToggleDebug(bool) bool         { return false }
