// Package curve25519 wraps filippo.io/edwards25519 with the handful of
// scalar/point operations the multisig protocol needs: canonical encode/decode,
// hash-to-scalar and hash-to-point with domain separation, cofactor-8
// clearing, and a deterministic Schnorr signature. Secret scalars are wiped
// only by an explicit call to Scalar.Zero; nothing is wiped automatically
// when a value is dropped or replaced.
package curve25519

import (
	"crypto/subtle"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/smallyu/go-monero-multisig/internal/crypto/zeroizing"
)

// Scalar is a 32-byte Ed25519 scalar in canonical reduced form.
type Scalar struct {
	s *edwards25519.Scalar
}

// ScalarSize is the wire size of a canonical scalar.
const ScalarSize = 32

// NullScalar is the canonical zero scalar. It is never a valid secret.
func NullScalar() Scalar {
	return Scalar{s: edwards25519.NewScalar()}
}

// ScalarFromCanonicalBytes decodes a 32-byte little-endian reduced scalar.
func ScalarFromCanonicalBytes(b []byte) (Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return Scalar{}, fmt.Errorf("curve25519: malformed scalar: %w", err)
	}
	return Scalar{s: s}, nil
}

// ScalarFromWideBytes reduces an arbitrary 64-byte buffer mod the group order.
// Used by hash-to-scalar.
func ScalarFromWideBytes(b [64]byte) Scalar {
	s, err := edwards25519.NewScalar().SetUniformBytes(b[:])
	if err != nil {
		// SetUniformBytes only errors on wrong input length; b is fixed-size.
		panic(fmt.Sprintf("curve25519: unreachable: %v", err))
	}
	return Scalar{s: s}
}

// IsNull reports whether the scalar is zero.
func (s Scalar) IsNull() bool {
	return s.s == nil || s.s.Equal(edwards25519.NewScalar()) == 1
}

// Bytes returns the canonical 32-byte little-endian encoding.
func (s Scalar) Bytes() []byte {
	return s.s.Bytes()
}

// Equal reports byte-wise equality. Ordering secret scalars does not need
// to be constant-time, but equality checks are cheap to make constant-time
// and there is no reason not to prefer the safer primitive here (use Less
// for the one place, common-key sorting, that needs raw byte order).
func (s Scalar) Equal(o Scalar) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), o.Bytes()) == 1
}

// Less implements a non-constant-time lexicographic byte ordering of the
// canonical encodings (first byte most significant), used only for
// sorting participants' common-key contributions into a canonical order.
func (s Scalar) Less(o Scalar) bool {
	a, b := s.Bytes(), o.Bytes()
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Add returns s + o.
func (s Scalar) Add(o Scalar) Scalar {
	return Scalar{s: edwards25519.NewScalar().Add(s.s, o.s)}
}

// Mul returns s * o.
func (s Scalar) Mul(o Scalar) Scalar {
	return Scalar{s: edwards25519.NewScalar().Multiply(s.s, o.s)}
}

// Point returns s*G.
func (s Scalar) Point() Point {
	return Point{p: edwards25519.NewIdentityPoint().ScalarBaseMult(s.s)}
}

// Zero wipes the scalar's backing bytes. Call when a secret scalar is
// dropped or superseded so it does not linger in memory afterward.
//
// filippo.io/edwards25519 does not expose its internal limb representation
// for in-place mutation, so this wipes the exported copy and drops the
// reference to the original; the original becomes unreachable but is not
// forcibly overwritten before the garbage collector reclaims it. This is
// the same caveat every Go secret-handling type inherits from a library
// with no zeroize hook, not something specific to this package.
func (s *Scalar) Zero() {
	if s.s == nil {
		return
	}
	b := s.s.Bytes()
	zeroizing.Wipe(b)
	s.s = edwards25519.NewScalar()
}

// edScalar exposes the underlying filippo.io/edwards25519 scalar to sibling
// files in this package (point.go, schnorr.go) without widening the public API.
func (s Scalar) edScalar() *edwards25519.Scalar {
	if s.s == nil {
		return edwards25519.NewScalar()
	}
	return s.s
}
