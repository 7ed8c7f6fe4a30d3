package types

import (
	"encoding/binary"
	"math/big"
)

// Outgoing is a byte stream under construction, destined for a single
// recipient. Bytes are appended (normally) or prepended. The transport
// layer does not prepend: it writes the control byte, destination id and
// length as a separate frame header.
type Outgoing struct {
	recipient Identity
	buf       []byte
}

// NewOutgoing creates an empty outbound message addressed to recipient.
func NewOutgoing(recipient Identity) *Outgoing {
	return &Outgoing{recipient: recipient}
}

// Recipient returns the identity this message is addressed to.
func (o *Outgoing) Recipient() Identity {
	return o.recipient
}

// Append copies buf onto the end of the message.
func (o *Outgoing) Append(buf []byte) int {
	o.buf = append(o.buf, buf...)
	return len(buf)
}

// Prepend copies buf onto the beginning of the message.
func (o *Outgoing) Prepend(buf []byte) int {
	o.buf = append(append([]byte{}, buf...), o.buf...)
	return len(buf)
}

// Length returns the number of bytes already written.
func (o *Outgoing) Length() int {
	return len(o.buf)
}

// Clear empties the message before it is sent.
func (o *Outgoing) Clear() {
	o.buf = nil
}

// Bytes returns the message's current contents. Callers must not retain a
// reference past a subsequent Clear.
func (o *Outgoing) Bytes() []byte {
	return o.buf
}

// Incoming is a byte stream received from sender, read with a cursor.
type Incoming struct {
	sender Identity
	buf    []byte
	pos    int
}

// NewIncoming wraps buf as a message received from sender.
func NewIncoming(sender Identity, buf []byte) *Incoming {
	return &Incoming{sender: sender, buf: buf}
}

// Sender returns the identity that sent this message.
func (m *Incoming) Sender() Identity {
	return m.sender
}

// Remove copies up to len(buf) unread bytes into buf, advancing the cursor,
// and returns how many bytes were actually copied.
func (m *Incoming) Remove(buf []byte) int {
	n := copy(buf, m.buf[m.pos:])
	m.pos += n
	return n
}

// Length returns how many unread bytes remain.
func (m *Incoming) Length() int {
	return len(m.buf) - m.pos
}

// Clear discards the remaining unread bytes without reading them.
func (m *Incoming) Clear() {
	m.pos = len(m.buf)
}

// Cache captures a message whose destination Protlet did not exist yet,
// tagged with the control byte it arrived under so it can be replayed into
// the right handler path once the Protlet is created.
type Cache struct {
	Control byte
	Message *Incoming
}

func readExact(m *Incoming, n int) ([]byte, bool) {
	if m.Length() < n {
		return nil, false
	}
	buf := make([]byte, n)
	m.Remove(buf)
	return buf, true
}

// ReadUint8 reads a single byte.
func ReadUint8(m *Incoming) (uint8, bool) {
	b, ok := readExact(m, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

// WriteUint8 writes a single byte.
func WriteUint8(o *Outgoing, v uint8) bool {
	o.Append([]byte{v})
	return true
}

// ReadUint16 reads a big-endian uint16.
func ReadUint16(m *Incoming) (uint16, bool) {
	b, ok := readExact(m, 2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

// WriteUint16 writes a big-endian uint16.
func WriteUint16(o *Outgoing, v uint16) bool {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	o.Append(b[:])
	return true
}

// ReadUint32 reads a big-endian uint32.
func ReadUint32(m *Incoming) (uint32, bool) {
	b, ok := readExact(m, 4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

// WriteUint32 writes a big-endian uint32.
func WriteUint32(o *Outgoing, v uint32) bool {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	o.Append(b[:])
	return true
}

// ReadUint64 reads a big-endian uint64.
func ReadUint64(m *Incoming) (uint64, bool) {
	b, ok := readExact(m, 8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// WriteUint64 writes a big-endian uint64.
func WriteUint64(o *Outgoing, v uint64) bool {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	o.Append(b[:])
	return true
}

// ReadInt8 reads a signed byte.
func ReadInt8(m *Incoming) (int8, bool) {
	v, ok := ReadUint8(m)
	return int8(v), ok
}

// WriteInt8 writes a signed byte.
func WriteInt8(o *Outgoing, v int8) bool {
	return WriteUint8(o, uint8(v))
}

// ReadInt16 reads a big-endian signed 16-bit integer.
func ReadInt16(m *Incoming) (int16, bool) {
	v, ok := ReadUint16(m)
	return int16(v), ok
}

// WriteInt16 writes a big-endian signed 16-bit integer.
func WriteInt16(o *Outgoing, v int16) bool {
	return WriteUint16(o, uint16(v))
}

// ReadInt32 reads a big-endian signed 32-bit integer.
func ReadInt32(m *Incoming) (int32, bool) {
	v, ok := ReadUint32(m)
	return int32(v), ok
}

// WriteInt32 writes a big-endian signed 32-bit integer.
func WriteInt32(o *Outgoing, v int32) bool {
	return WriteUint32(o, uint32(v))
}

// ReadInt64 reads a big-endian signed 64-bit integer.
func ReadInt64(m *Incoming) (int64, bool) {
	v, ok := ReadUint64(m)
	return int64(v), ok
}

// WriteInt64 writes a big-endian signed 64-bit integer.
func WriteInt64(o *Outgoing, v int64) bool {
	return WriteUint64(o, uint64(v))
}

// ReadString reads a u32-length-prefixed string.
func ReadString(m *Incoming) (string, bool) {
	n, ok := ReadUint32(m)
	if !ok {
		return "", false
	}
	b, ok := readExact(m, int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

// WriteString writes a u32-length-prefixed string.
func WriteString(o *Outgoing, s string) bool {
	if !WriteUint32(o, uint32(len(s))) {
		return false
	}
	o.Append([]byte(s))
	return true
}

// ReadBigInt reads a u16-length-prefixed, big-endian magnitude arbitrary
// precision non-negative integer.
func ReadBigInt(m *Incoming) (*big.Int, bool) {
	n, ok := ReadUint16(m)
	if !ok {
		return nil, false
	}
	b, ok := readExact(m, int(n))
	if !ok {
		return nil, false
	}
	return new(big.Int).SetBytes(b), true
}

// WriteBigInt writes a u16-length-prefixed, big-endian magnitude arbitrary
// precision non-negative integer. v must fit in 65535 bytes.
func WriteBigInt(o *Outgoing, v *big.Int) bool {
	magnitude := v.Bytes()
	if len(magnitude) > 0xFFFF {
		return false
	}
	if !WriteUint16(o, uint16(len(magnitude))) {
		return false
	}
	o.Append(magnitude)
	return true
}
