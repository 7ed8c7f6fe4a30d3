package dealer

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// Kind names one of the closed set of correlated-randomness shapes the
// dealer can produce (spec §4.5).
type Kind string

const (
	KindBeaverTriple        Kind = "BeaverTriple"
	KindTypeCastTriple      Kind = "TypeCastTriple"
	KindExponentSeries      Kind = "ExponentSeries"
	KindWaksmanBits         Kind = "WaksmanBits"
	KindDecomposedBitSet    Kind = "DecomposedBitSet"
	KindBooleanBeaverTriple Kind = "BooleanBeaverTriple"
)

// Share is one peer's piece of one instance of correlated randomness,
// opaque to the engine and the transport: it travels as the payload of an
// ordinary PROTLET_MESSAGE.
type Share struct {
	Kind Kind
	Data []byte
}

func randMod(modulus *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, modulus)
}

// additiveShares splits v into n values modulo modulus that sum to v.
func additiveShares(v *big.Int, n int, modulus *big.Int) ([]*big.Int, error) {
	shares := make([]*big.Int, n)
	sum := new(big.Int)
	for i := 0; i < n-1; i++ {
		s, err := randMod(modulus)
		if err != nil {
			return nil, err
		}
		shares[i] = s
		sum.Add(sum, s)
	}
	last := new(big.Int).Sub(v, sum)
	last.Mod(last, modulus)
	shares[n-1] = last
	return shares, nil
}

// xorShares splits a bit into n booleans that XOR to bit.
func xorShares(bit bool, n int) ([]bool, error) {
	shares := make([]bool, n)
	acc := false
	for i := 0; i < n-1; i++ {
		b := make([]byte, 1)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		shares[i] = b[0]&1 == 1
		acc = acc != shares[i]
	}
	shares[n-1] = acc != bit
	return shares, nil
}

func encodeBigInts(vals ...*big.Int) []byte {
	out := types.NewOutgoing(types.Identity{})
	for _, v := range vals {
		if !types.WriteBigInt(out, v) {
			panic("dealer: value too large to encode (exceeds WriteBigInt's u16 length prefix)")
		}
	}
	return out.Bytes()
}

func decodeBigInts(data []byte, n int) ([]*big.Int, error) {
	in := types.NewIncoming(types.Identity{}, data)
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		v, ok := types.ReadBigInt(in)
		if !ok {
			return nil, fmt.Errorf("dealer: truncated big.Int share at index %d", i)
		}
		out[i] = v
	}
	return out, nil
}

func encodeBools(vals ...bool) []byte {
	out := make([]byte, len(vals))
	for i, b := range vals {
		if b {
			out[i] = 1
		}
	}
	return out
}

func decodeBools(data []byte, n int) ([]bool, error) {
	if len(data) != n {
		return nil, fmt.Errorf("dealer: expected %d boolean shares, got %d bytes", n, len(data))
	}
	out := make([]bool, n)
	for i, b := range data {
		out[i] = b != 0
	}
	return out, nil
}

// BeaverTripleInfo requests additively-shared triples (a, b, c = a*b mod
// Modulus), the standard primitive for secure multiplication.
type BeaverTripleInfo struct {
	N       int
	Modulus *big.Int
}

func (i *BeaverTripleInfo) Kind() Kind        { return KindBeaverTriple }
func (i *BeaverTripleInfo) Count() int        { return i.N }
func (i *BeaverTripleInfo) Fingerprint() []byte { return encodeBigInts(i.Modulus) }

func (i *BeaverTripleInfo) Share(nPeers int) ([]Share, error) {
	a, err := randMod(i.Modulus)
	if err != nil {
		return nil, err
	}
	b, err := randMod(i.Modulus)
	if err != nil {
		return nil, err
	}
	c := new(big.Int).Mul(a, b)
	c.Mod(c, i.Modulus)

	as, err := additiveShares(a, nPeers, i.Modulus)
	if err != nil {
		return nil, err
	}
	bs, err := additiveShares(b, nPeers, i.Modulus)
	if err != nil {
		return nil, err
	}
	cs, err := additiveShares(c, nPeers, i.Modulus)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		shares[p] = Share{Kind: KindBeaverTriple, Data: encodeBigInts(as[p], bs[p], cs[p])}
	}
	return shares, nil
}

// TypeCastTripleInfo requests a value shared once arithmetically (mod
// Modulus) and once as a boolean (its parity), used to move a value
// between an arithmetic and a boolean circuit without revealing it.
type TypeCastTripleInfo struct {
	N       int
	Modulus *big.Int
}

func (i *TypeCastTripleInfo) Kind() Kind        { return KindTypeCastTriple }
func (i *TypeCastTripleInfo) Count() int        { return i.N }
func (i *TypeCastTripleInfo) Fingerprint() []byte { return encodeBigInts(i.Modulus) }

func (i *TypeCastTripleInfo) Share(nPeers int) ([]Share, error) {
	v, err := randMod(i.Modulus)
	if err != nil {
		return nil, err
	}
	bit := v.Bit(0) == 1

	arithShares, err := additiveShares(v, nPeers, i.Modulus)
	if err != nil {
		return nil, err
	}
	boolShares, err := xorShares(bit, nPeers)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		data := append(encodeBigInts(arithShares[p]), encodeBools(boolShares[p])...)
		shares[p] = Share{Kind: KindTypeCastTriple, Data: data}
	}
	return shares, nil
}

// ExponentSeriesInfo requests additive shares of a geometric run of
// exponents e, e*Base, e*Base^2, ... (mod Modulus), used by compute
// Protlets that need a shared exponent schedule without any party
// learning the exponents themselves.
type ExponentSeriesInfo struct {
	N       int
	Length  int
	Base    *big.Int
	Modulus *big.Int
}

func (i *ExponentSeriesInfo) Kind() Kind { return KindExponentSeries }
func (i *ExponentSeriesInfo) Count() int { return i.N }

func (i *ExponentSeriesInfo) Fingerprint() []byte {
	out := types.NewOutgoing(types.Identity{})
	types.WriteUint32(out, uint32(i.Length))
	out.Append(encodeBigInts(i.Base, i.Modulus))
	return out.Bytes()
}

func (i *ExponentSeriesInfo) Share(nPeers int) ([]Share, error) {
	e, err := randMod(i.Modulus)
	if err != nil {
		return nil, err
	}
	series := make([]*big.Int, i.Length)
	series[0] = e
	for k := 1; k < i.Length; k++ {
		series[k] = new(big.Int).Mul(series[k-1], i.Base)
		series[k].Mod(series[k], i.Modulus)
	}

	perPeer := make([][]*big.Int, nPeers)
	for k := 0; k < i.Length; k++ {
		shares, err := additiveShares(series[k], nPeers, i.Modulus)
		if err != nil {
			return nil, err
		}
		for p := 0; p < nPeers; p++ {
			perPeer[p] = append(perPeer[p], shares[p])
		}
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		shares[p] = Share{Kind: KindExponentSeries, Data: encodeBigInts(perPeer[p]...)}
	}
	return shares, nil
}

// WaksmanBitsInfo requests XOR-shared control bits for a Waksman
// permutation network over Width wires, used by oblivious-shuffle
// compute Protlets.
type WaksmanBitsInfo struct {
	N     int
	Width int
}

func (i *WaksmanBitsInfo) Kind() Kind { return KindWaksmanBits }
func (i *WaksmanBitsInfo) Count() int { return i.N }

func (i *WaksmanBitsInfo) Fingerprint() []byte {
	out := types.NewOutgoing(types.Identity{})
	types.WriteUint32(out, uint32(i.Width))
	return out.Bytes()
}

func (i *WaksmanBitsInfo) gateCount() int {
	if i.Width <= 1 {
		return 0
	}
	return i.Width*log2Ceil(i.Width) - i.Width + 1
}

func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	b := 0
	n--
	for n > 0 {
		n >>= 1
		b++
	}
	return b
}

func (i *WaksmanBitsInfo) Share(nPeers int) ([]Share, error) {
	gates := i.gateCount()
	controlBits := make([]bool, gates)
	for g := 0; g < gates; g++ {
		b := make([]byte, 1)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		controlBits[g] = b[0]&1 == 1
	}

	perPeer := make([][]bool, nPeers)
	for g := 0; g < gates; g++ {
		shares, err := xorShares(controlBits[g], nPeers)
		if err != nil {
			return nil, err
		}
		for p := 0; p < nPeers; p++ {
			perPeer[p] = append(perPeer[p], shares[p])
		}
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		shares[p] = Share{Kind: KindWaksmanBits, Data: encodeBools(perPeer[p]...)}
	}
	return shares, nil
}

// DecomposedBitSetInfo requests the bit decomposition of a random value
// mod Modulus, each bit independently XOR-shared, used by compute
// Protlets that need a boolean-circuit view of an arithmetically-shared
// value's bits.
type DecomposedBitSetInfo struct {
	N       int
	Modulus *big.Int
}

func (i *DecomposedBitSetInfo) Kind() Kind        { return KindDecomposedBitSet }
func (i *DecomposedBitSetInfo) Count() int        { return i.N }
func (i *DecomposedBitSetInfo) Fingerprint() []byte { return encodeBigInts(i.Modulus) }

func (i *DecomposedBitSetInfo) bitLength() int {
	return i.Modulus.BitLen()
}

func (i *DecomposedBitSetInfo) Share(nPeers int) ([]Share, error) {
	v, err := randMod(i.Modulus)
	if err != nil {
		return nil, err
	}
	width := i.bitLength()

	perPeer := make([][]bool, nPeers)
	for b := 0; b < width; b++ {
		bit := v.Bit(b) == 1
		shares, err := xorShares(bit, nPeers)
		if err != nil {
			return nil, err
		}
		for p := 0; p < nPeers; p++ {
			perPeer[p] = append(perPeer[p], shares[p])
		}
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		shares[p] = Share{Kind: KindDecomposedBitSet, Data: encodeBools(perPeer[p]...)}
	}
	return shares, nil
}

// BooleanBeaverTripleInfo requests a boolean Beaver triple (a, b, c = a
// AND b), XOR-shared, the boolean-circuit analogue of BeaverTripleInfo.
type BooleanBeaverTripleInfo struct {
	N int
}

func (i *BooleanBeaverTripleInfo) Kind() Kind          { return KindBooleanBeaverTriple }
func (i *BooleanBeaverTripleInfo) Count() int          { return i.N }
func (i *BooleanBeaverTripleInfo) Fingerprint() []byte { return nil }

func (i *BooleanBeaverTripleInfo) Share(nPeers int) ([]Share, error) {
	ab := make([]byte, 1)
	if _, err := rand.Read(ab); err != nil {
		return nil, err
	}
	a := ab[0]&1 == 1
	b := ab[0]&2 == 2
	c := a && b

	as, err := xorShares(a, nPeers)
	if err != nil {
		return nil, err
	}
	bs, err := xorShares(b, nPeers)
	if err != nil {
		return nil, err
	}
	cs, err := xorShares(c, nPeers)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, nPeers)
	for p := 0; p < nPeers; p++ {
		shares[p] = Share{Kind: KindBooleanBeaverTriple, Data: encodeBools(as[p], bs[p], cs[p])}
	}
	return shares, nil
}
