package types

// Control identifies the kind of frame carried on the wire, per the
// closed set in spec §6.
type Control uint8

const (
	// AnnounceChildID: "the child I invoked with parent-id = dst has my
	// local id = first 8 bytes of payload."
	AnnounceChildID Control = 1

	// ProtletMessage carries an opaque application payload for the
	// Protlet whose local id is dst.
	ProtletMessage Control = 2

	// ProtletComplete announces that the sender's local Protlet dst has
	// completed. It carries no payload.
	ProtletComplete Control = 3

	// Abort announces unrecoverable failure; every recipient must abort.
	Abort Control = 4
)

func (c Control) String() string {
	switch c {
	case AnnounceChildID:
		return "ANNOUNCE_CHILD_ID"
	case ProtletMessage:
		return "PROTLET_MESSAGE"
	case ProtletComplete:
		return "PROTLET_COMPLETE"
	case Abort:
		return "ABORT"
	default:
		return "UNKNOWN_CONTROL"
	}
}
