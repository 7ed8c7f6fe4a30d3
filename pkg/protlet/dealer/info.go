package dealer

// Info describes one batch of correlated randomness a House should
// produce: how many instances (Count), how to turn one instance into
// nPeers shares (Share), and a byte fingerprint of its defining
// parameters excluding Count (Fingerprint) — the House compares a
// Patron's requested fingerprint against its own configured Info for the
// same Kind and aborts on a mismatch, per the dealer's request/validate
// handshake. Every randomness kind in kinds.go implements this.
type Info interface {
	Kind() Kind
	Count() int
	Fingerprint() []byte
	Share(nPeers int) ([]Share, error)
}
