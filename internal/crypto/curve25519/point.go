package curve25519

import (
	"fmt"
	"math/big"
	"sync"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

// Point is a 32-byte compressed Ed25519 point.
type Point struct {
	p *edwards25519.Point
}

// PointSize is the wire size of a compressed point.
const PointSize = 32

// IdentityPoint returns the curve's identity element.
func IdentityPoint() Point {
	return Point{p: edwards25519.NewIdentityPoint()}
}

// BasePoint returns the Ed25519 generator G.
func BasePoint() Point {
	return Point{p: edwards25519.NewGeneratorPoint()}
}

// PointFromBytes decodes a compressed point. It does not itself check
// subgroup membership; callers that need a main-subgroup guarantee should
// call InMainSubgroup.
func PointFromBytes(b []byte) (Point, error) {
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return Point{}, fmt.Errorf("curve25519: malformed point: %w", err)
	}
	return Point{p: p}, nil
}

// Bytes returns the compressed 32-byte encoding.
func (p Point) Bytes() []byte {
	return p.p.Bytes()
}

// IsIdentity reports whether p is the identity element.
func (p Point) IsIdentity() bool {
	return p.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

// groupOrderBits is the big-endian bit sequence of ell = 2^252 +
// 27742317777372353535851937790883648493, the prime order of Ed25519's
// main subgroup. It is computed once from the well-known constant.
var groupOrderBits = sync.OnceValue(func() []byte {
	ell, ok := new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)
	if !ok {
		panic("curve25519: bad group order constant")
	}
	bitLen := ell.BitLen()
	bits := make([]byte, bitLen)
	for i := 0; i < bitLen; i++ {
		bits[bitLen-1-i] = byte(ell.Bit(i))
	}
	return bits
})

// InMainSubgroup reports whether p lies in the prime-order subgroup of
// order ell. The full Ed25519 curve group has order 8*ell with ell prime,
// so it decomposes as a direct sum of a Z/8 torsion subgroup and the main
// Z/ell subgroup; p is in the main subgroup iff ell*p is the identity.
// That multiplication is done here with literal double-and-add over the
// point group law directly (not via Scalar, whose canonical values are
// already reduced mod ell and would make this check vacuous).
func (p Point) InMainSubgroup() bool {
	acc := edwards25519.NewIdentityPoint()
	for _, bit := range groupOrderBits() {
		acc = edwards25519.NewIdentityPoint().Add(acc, acc)
		if bit == 1 {
			acc = edwards25519.NewIdentityPoint().Add(acc, p.p)
		}
	}
	return acc.Equal(edwards25519.NewIdentityPoint()) == 1
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	return Point{p: edwards25519.NewIdentityPoint().Add(p.p, o.p)}
}

// ScalarMult returns s*p.
func (p Point) ScalarMult(s Scalar) Point {
	return Point{p: edwards25519.NewIdentityPoint().ScalarMult(s.edScalar(), p.p)}
}

// MulByCofactor returns 8*p, clearing any small-subgroup component.
func (p Point) MulByCofactor() Point {
	return Point{p: edwards25519.NewIdentityPoint().MultByCofactor(p.p)}
}

// Equal reports whether two points have the same canonical encoding.
func (p Point) Equal(o Point) bool {
	return p.p.Equal(o.p) == 1
}

// HashToPoint implements Hp: a deterministic map from an arbitrary byte
// string (normally a compressed point's bytes) to a point in the main
// subgroup. It uses Keccak-256 (Monero's native hash) with a
// try-and-increment search for a valid compressed encoding, then clears
// the cofactor. This is not bit-compatible with mainnet Monero's
// Elligator-based ge_fromfe_frombytes_vartime construction, which needs
// field-element plumbing this package does not carry; it satisfies the
// contract Hp needs here — deterministic, preimage-resistant, output in
// the main subgroup.
func HashToPoint(data []byte) Point {
	for counter := byte(0); ; counter++ {
		h := sha3.NewLegacyKeccak256()
		h.Write(data)
		h.Write([]byte{counter})
		digest := h.Sum(nil)
		if pt, err := edwards25519.NewIdentityPoint().SetBytes(digest); err == nil {
			return Point{p: pt}.MulByCofactor()
		}
	}
}

// HashToScalar implements H_scalar: Keccak-512 of the concatenated inputs,
// reduced mod ell.
func HashToScalar(parts ...[]byte) Scalar {
	h := sha3.NewLegacyKeccak512()
	for _, part := range parts {
		h.Write(part)
	}
	var wide [64]byte
	copy(wide[:], h.Sum(nil))
	return ScalarFromWideBytes(wide)
}
