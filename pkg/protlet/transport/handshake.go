package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-protlet/protlet/pkg/protlet/types"
	hashiversion "github.com/hashicorp/go-version"
)

// maxHandshakeField bounds the identity name and version strings exchanged
// during the handshake, guarding against a hostile or corrupt pre-auth
// length prefix forcing an unbounded allocation (mirrors frame.go's
// maxPayload guard for the same class of attack).
const maxHandshakeField = 4 << 10

// handshakePayload is exchanged once, immediately after a TCP connection is
// established, before any framed traffic: the sender's own Identity and the
// protocol version it speaks. Both sides must agree on the major version;
// a minor/patch mismatch is tolerated (spec §6's ProtocolVersion note).
func sendHandshake(w io.Writer, self types.Identity, version string) error {
	name := self.String()
	buf := make([]byte, 4+len(name)+4+len(version))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(name)))
	copy(buf[4:], name)
	off := 4 + len(name)
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(version)))
	copy(buf[off+4:], version)
	_, err := w.Write(buf)
	return err
}

func readHandshake(r io.Reader) (types.Identity, string, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return types.Identity{}, "", err
	}
	nameLen := binary.BigEndian.Uint32(lenBuf)
	if nameLen > maxHandshakeField {
		return types.Identity{}, "", fmt.Errorf("transport: handshake name length %d exceeds limit", nameLen)
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return types.Identity{}, "", err
	}
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return types.Identity{}, "", err
	}
	verLen := binary.BigEndian.Uint32(lenBuf)
	if verLen > maxHandshakeField {
		return types.Identity{}, "", fmt.Errorf("transport: handshake version length %d exceeds limit", verLen)
	}
	verBuf := make([]byte, verLen)
	if _, err := io.ReadFull(r, verBuf); err != nil {
		return types.Identity{}, "", err
	}
	return types.NewIdentity(string(nameBuf)), string(verBuf), nil
}

// checkVersion reports whether remote is wire-compatible with local: same
// major version, per semver.
func checkVersion(local, remote string) error {
	lv, err := hashiversion.NewVersion(local)
	if err != nil {
		return fmt.Errorf("transport: invalid local version %q: %w", local, err)
	}
	rv, err := hashiversion.NewVersion(remote)
	if err != nil {
		return fmt.Errorf("transport: invalid remote version %q: %w", remote, err)
	}
	if lv.Segments()[0] != rv.Segments()[0] {
		return fmt.Errorf("transport: incompatible protocol versions: local %s, remote %s", local, remote)
	}
	return nil
}
