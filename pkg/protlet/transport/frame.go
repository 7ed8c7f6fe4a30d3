package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// maxPayload bounds a single frame's application payload, guarding against
// a corrupt or hostile length prefix forcing an unbounded allocation.
const maxPayload = 64 << 20

// frame is the wire unit described in spec §6:
//
//	control(1) | dst_protlet_id(8, BE) | length(4, BE) | payload(length)
//
// The length prefix is a transport-layer addition: spec's control/dst
// header has no self-delimiting payload boundary over a byte stream, so
// the frame carries an explicit length rather than relying on connection
// boundaries.
type frame struct {
	control types.Control
	dst     uint64
	payload []byte
}

func writeFrame(w io.Writer, f frame) error {
	header := make([]byte, 1+8+4)
	header[0] = byte(f.control)
	binary.BigEndian.PutUint64(header[1:9], f.dst)
	binary.BigEndian.PutUint32(header[9:13], uint32(len(f.payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("transport: write frame header: %w", err)
	}
	if len(f.payload) == 0 {
		return nil
	}
	if _, err := w.Write(f.payload); err != nil {
		return fmt.Errorf("transport: write frame payload: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) (frame, error) {
	header := make([]byte, 1+8+4)
	if _, err := io.ReadFull(r, header); err != nil {
		return frame{}, err
	}
	n := binary.BigEndian.Uint32(header[9:13])
	if n > maxPayload {
		return frame{}, fmt.Errorf("transport: frame payload %d exceeds limit", n)
	}
	f := frame{
		control: types.Control(header[0]),
		dst:     binary.BigEndian.Uint64(header[1:9]),
	}
	if n > 0 {
		f.payload = make([]byte, n)
		if _, err := io.ReadFull(r, f.payload); err != nil {
			return frame{}, err
		}
	}
	return f, nil
}
