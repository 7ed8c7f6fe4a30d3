package types

import "fmt"

// Identity names a single peer taking part in a run. It is opaque to the
// engine beyond equality, ordering and wire serialization.
type Identity struct {
	name string
}

// NewIdentity wraps a peer name as an Identity.
func NewIdentity(name string) Identity {
	return Identity{name: name}
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.name
}

// Equal reports whether the two identities name the same peer.
func (i Identity) Equal(other Identity) bool {
	return i.name == other.name
}

// Less gives identities a total order, used to keep a PeerSet sorted the
// same way at every participant.
func (i Identity) Less(other Identity) bool {
	return i.name < other.name
}

// IsZero reports whether this Identity was never assigned a name.
func (i Identity) IsZero() bool {
	return i.name == ""
}

// MarshalBinary encodes the Identity using the wire string format (u32
// length prefix, then raw bytes).
func (i Identity) MarshalBinary() ([]byte, error) {
	out := NewOutgoing(Identity{})
	if !WriteString(out, i.name) {
		return nil, fmt.Errorf("types: failed encoding identity %q", i.name)
	}
	return out.Bytes(), nil
}

// UnmarshalBinary decodes an Identity encoded with MarshalBinary.
func (i *Identity) UnmarshalBinary(data []byte) error {
	in := NewIncoming(Identity{}, data)
	name, ok := ReadString(in)
	if !ok {
		return fmt.Errorf("types: failed decoding identity from %d bytes", len(data))
	}
	i.name = name
	return nil
}
