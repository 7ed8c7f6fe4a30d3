package dealer

import (
	"math/big"
	"testing"
)

func sumShares(t *testing.T, vals []*big.Int, modulus *big.Int) *big.Int {
	t.Helper()
	sum := new(big.Int)
	for _, v := range vals {
		sum.Add(sum, v)
	}
	sum.Mod(sum, modulus)
	return sum
}

func TestBeaverTripleInfo_ReconstructsMultiplicativeRelation(t *testing.T) {
	modulus := big.NewInt(97)
	info := &BeaverTripleInfo{N: 1, Modulus: modulus}

	nPeers := 3
	shares, err := info.Share(nPeers)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if len(shares) != nPeers {
		t.Fatalf("expected %d shares, got %d", nPeers, len(shares))
	}

	var as, bs, cs []*big.Int
	for _, s := range shares {
		parts, err := decodeBigInts(s.Data, 3)
		if err != nil {
			t.Fatalf("decodeBigInts: %v", err)
		}
		as = append(as, parts[0])
		bs = append(bs, parts[1])
		cs = append(cs, parts[2])
	}

	a := sumShares(t, as, modulus)
	b := sumShares(t, bs, modulus)
	c := sumShares(t, cs, modulus)

	want := new(big.Int).Mul(a, b)
	want.Mod(want, modulus)

	if c.Cmp(want) != 0 {
		t.Fatalf("reconstructed c = %s, want a*b mod p = %s", c, want)
	}
}

func TestBooleanBeaverTripleInfo_ReconstructsANDRelation(t *testing.T) {
	info := &BooleanBeaverTripleInfo{N: 1}
	nPeers := 4

	shares, err := info.Share(nPeers)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	var as, bs, cs []bool
	for _, s := range shares {
		parts, err := decodeBools(s.Data, 3)
		if err != nil {
			t.Fatalf("decodeBools: %v", err)
		}
		as = append(as, parts[0])
		bs = append(bs, parts[1])
		cs = append(cs, parts[2])
	}

	xor := func(bits []bool) bool {
		acc := false
		for _, b := range bits {
			acc = acc != b
		}
		return acc
	}

	a := xor(as)
	b := xor(bs)
	c := xor(cs)

	if c != (a && b) {
		t.Fatalf("reconstructed c = %v, want a AND b = %v", c, a && b)
	}
}

func TestDecomposedBitSetInfo_ReconstructsInRange(t *testing.T) {
	modulus := big.NewInt(251)
	info := &DecomposedBitSetInfo{N: 1, Modulus: modulus}
	nPeers := 2

	shares, err := info.Share(nPeers)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	width := info.bitLength()
	var perPeerBits [][]bool
	for _, s := range shares {
		bits, err := decodeBools(s.Data, width)
		if err != nil {
			t.Fatalf("decodeBools: %v", err)
		}
		perPeerBits = append(perPeerBits, bits)
	}

	reconstructed := new(big.Int)
	for bit := 0; bit < width; bit++ {
		acc := false
		for p := range perPeerBits {
			acc = acc != perPeerBits[p][bit]
		}
		if acc {
			reconstructed.SetBit(reconstructed, bit, 1)
		}
	}

	if reconstructed.Sign() < 0 || reconstructed.Cmp(modulus) >= 0 {
		t.Fatalf("reconstructed value %s out of range [0, %s)", reconstructed, modulus)
	}
}
