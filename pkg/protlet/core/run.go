package core

import "github.com/go-protlet/protlet/pkg/protlet/types"

// Run drives root to completion against sink, blocking until the run
// finishes or is aborted. It returns true if root completed normally and
// false if the run was aborted, mirroring the C++ original's boolean
// return from runFortissimoPosixNet.
//
// sink's transport may already be holding connections open and buffering
// inbound frames before Run is called; Run only starts delivering them
// (via the optional Bind hook) once the local root has been registered,
// so the engine is never entered from two goroutines at once.
func Run(self types.Identity, peers *types.PeerSet, root Protlet, sink FrameSink, logger types.Logger) bool {
	engine := NewEngine(self, logger)
	engine.SetSink(sink)
	engine.Start(root, peers)
	if binder, ok := sink.(interface{ Bind(*Engine) }); ok {
		binder.Bind(engine)
	}
	<-engine.Done()
	return engine.Result()
}
