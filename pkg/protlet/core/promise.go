package core

// Promise is the opaque handle a parent receives from InvokePromise. Its
// only data is the promised child's engine-assigned id; the engine fills
// that in as soon as it interprets the Invoke action that created the
// handle, which happens strictly before any Await action appended later
// in the same handler invocation is interpreted.
type Promise struct {
	childID  uint64
	assigned bool
}

// ID returns the promised child's engine-assigned id. It is only valid
// once the engine has interpreted the Invoke action that produced this
// handle, which for any Await referencing it has already happened by
// construction.
func (p *Promise) ID() uint64 {
	return p.childID
}

func (p *Promise) resolve(id uint64) {
	p.childID = id
	p.assigned = true
}
