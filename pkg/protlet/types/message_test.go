package types

import (
	"math/big"
	"testing"
)

func TestMessage_RoundTrip(t *testing.T) {
	out := NewOutgoing(NewIdentity("bob"))
	WriteUint8(out, 7)
	WriteUint16(out, 1000)
	WriteUint32(out, 100000)
	WriteUint64(out, 1<<40)
	WriteInt8(out, -5)
	WriteInt16(out, -1000)
	WriteInt32(out, -100000)
	WriteInt64(out, -(1 << 40))
	WriteString(out, "hello protlet")
	WriteBigInt(out, big.NewInt(123456789))

	in := NewIncoming(NewIdentity("alice"), out.Bytes())

	if v, ok := ReadUint8(in); !ok || v != 7 {
		t.Fatalf("ReadUint8: got %v, %v", v, ok)
	}
	if v, ok := ReadUint16(in); !ok || v != 1000 {
		t.Fatalf("ReadUint16: got %v, %v", v, ok)
	}
	if v, ok := ReadUint32(in); !ok || v != 100000 {
		t.Fatalf("ReadUint32: got %v, %v", v, ok)
	}
	if v, ok := ReadUint64(in); !ok || v != 1<<40 {
		t.Fatalf("ReadUint64: got %v, %v", v, ok)
	}
	if v, ok := ReadInt8(in); !ok || v != -5 {
		t.Fatalf("ReadInt8: got %v, %v", v, ok)
	}
	if v, ok := ReadInt16(in); !ok || v != -1000 {
		t.Fatalf("ReadInt16: got %v, %v", v, ok)
	}
	if v, ok := ReadInt32(in); !ok || v != -100000 {
		t.Fatalf("ReadInt32: got %v, %v", v, ok)
	}
	if v, ok := ReadInt64(in); !ok || v != -(1<<40) {
		t.Fatalf("ReadInt64: got %v, %v", v, ok)
	}
	if v, ok := ReadString(in); !ok || v != "hello protlet" {
		t.Fatalf("ReadString: got %q, %v", v, ok)
	}
	if v, ok := ReadBigInt(in); !ok || v.Cmp(big.NewInt(123456789)) != 0 {
		t.Fatalf("ReadBigInt: got %v, %v", v, ok)
	}
	if in.Length() != 0 {
		t.Fatalf("expected message fully consumed, %d bytes remain", in.Length())
	}
}

func TestMessage_ReadPastEndFails(t *testing.T) {
	in := NewIncoming(NewIdentity("alice"), []byte{1, 2})
	if _, ok := ReadUint32(in); ok {
		t.Fatal("expected ReadUint32 to fail on truncated input")
	}
}

func TestIdentity_BinaryRoundTrip(t *testing.T) {
	id := NewIdentity("carol")
	data, err := id.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var got Identity
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !got.Equal(id) {
		t.Fatalf("roundtrip mismatch: got %v, want %v", got, id)
	}
}
