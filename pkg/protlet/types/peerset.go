package types

import "sort"

// InvalidProtletID is the sentinel value for a remote Protlet id that has
// not been announced yet.
const InvalidProtletID uint64 = 0

type peerEntry struct {
	identity  Identity
	remoteID  uint64
	completed bool
}

// PeerSet is the ordered collection of peers participating in one Protlet.
// Identities are kept sorted so that every participant derives the same
// comparison order. Copying a PeerSet (via Copy) keeps the identities but
// resets every remote-id slot to InvalidProtletID and every completed flag
// to false, as required when a PeerSet is handed to a freshly invoked
// child.
type PeerSet struct {
	entries []peerEntry
}

// NewPeerSet builds a PeerSet out of the given identities, sorted and
// deduplicated.
func NewPeerSet(identities ...Identity) *PeerSet {
	p := &PeerSet{}
	for _, id := range identities {
		p.Add(id)
	}
	return p
}

// Add inserts peer into the set if it is not already present. Only
// meaningful before a corresponding Protlet has been invoked.
func (p *PeerSet) Add(peer Identity) {
	for _, e := range p.entries {
		if e.identity.Equal(peer) {
			return
		}
	}
	p.entries = append(p.entries, peerEntry{identity: peer})
	sort.Slice(p.entries, func(i, j int) bool {
		return p.entries[i].identity.Less(p.entries[j].identity)
	})
}

// Remove drops peer from the set. Only meaningful before a corresponding
// Protlet has been invoked.
func (p *PeerSet) Remove(peer Identity) {
	out := p.entries[:0]
	for _, e := range p.entries {
		if !e.identity.Equal(peer) {
			out = append(out, e)
		}
	}
	p.entries = out
}

// Size returns the number of peers in the set.
func (p *PeerSet) Size() int {
	return len(p.entries)
}

// ForEach calls fn once per peer, in sorted order, exposing each peer's
// identity only (the form intended for Protlet implementors).
func (p *PeerSet) ForEach(fn func(Identity)) {
	for _, e := range p.entries {
		fn(e.identity)
	}
}

// Identities returns a snapshot slice of the peers, in sorted order.
func (p *PeerSet) Identities() []Identity {
	out := make([]Identity, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.identity
	}
	return out
}

// Copy returns a new PeerSet with the same identities but all remote-id
// slots reset to InvalidProtletID and all completed flags reset to false.
func (p *PeerSet) Copy() *PeerSet {
	out := &PeerSet{entries: make([]peerEntry, len(p.entries))}
	for i, e := range p.entries {
		out.entries[i] = peerEntry{identity: e.identity}
	}
	return out
}

// Equal compares two PeerSets by identity membership alone; remote-id
// slots and completed flags are ignored.
func (p *PeerSet) Equal(other *PeerSet) bool {
	if other == nil || len(p.entries) != len(other.entries) {
		return false
	}
	for i, e := range p.entries {
		if !e.identity.Equal(other.entries[i].identity) {
			return false
		}
	}
	return true
}

// HasPeer reports whether peer is a member of this set.
func (p *PeerSet) HasPeer(peer Identity) bool {
	for _, e := range p.entries {
		if e.identity.Equal(peer) {
			return true
		}
	}
	return false
}

func (p *PeerSet) find(peer Identity) int {
	for i, e := range p.entries {
		if e.identity.Equal(peer) {
			return i
		}
	}
	return -1
}

// CheckAndSetId assigns id to peer's remote-id slot if it is still
// InvalidProtletID, returning true if the assignment happened. A second
// call for the same peer returns false.
func (p *PeerSet) CheckAndSetId(peer Identity, id uint64) bool {
	i := p.find(peer)
	if i < 0 {
		return false
	}
	if p.entries[i].remoteID != InvalidProtletID {
		return false
	}
	p.entries[i].remoteID = id
	return true
}

// SetId assigns id to peer's remote-id slot unconditionally.
func (p *PeerSet) SetId(peer Identity, id uint64) {
	if i := p.find(peer); i >= 0 {
		p.entries[i].remoteID = id
	}
}

// HasAllPeerIds reports whether every peer in the set has a remote id.
func (p *PeerSet) HasAllPeerIds() bool {
	for _, e := range p.entries {
		if e.remoteID == InvalidProtletID {
			return false
		}
	}
	return true
}

// FindPeerId returns the remote id known for peer, or InvalidProtletID.
func (p *PeerSet) FindPeerId(peer Identity) uint64 {
	if i := p.find(peer); i >= 0 {
		return p.entries[i].remoteID
	}
	return InvalidProtletID
}

// SetCompleted marks peer's counterpart as having reported completion.
func (p *PeerSet) SetCompleted(peer Identity) {
	if i := p.find(peer); i >= 0 {
		p.entries[i].completed = true
	}
}

// FindCompletionStatus reports whether peer's counterpart has reported
// completion.
func (p *PeerSet) FindCompletionStatus(peer Identity) bool {
	if i := p.find(peer); i >= 0 {
		return p.entries[i].completed
	}
	return false
}

// CheckAllComplete reports whether every peer's counterpart has reported
// completion.
func (p *PeerSet) CheckAllComplete() bool {
	for _, e := range p.entries {
		if !e.completed {
			return false
		}
	}
	return true
}
