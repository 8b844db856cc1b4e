package curve25519

import (
	"filippo.io/edwards25519"
)

// Signature is a deterministic Schnorr signature over the Ed25519 group.
// Determinism comes from deriving the nonce as H_scalar(signing_priv ||
// message) rather than from a random source, so the same (key, message)
// pair always produces the same signature and public verification does
// not depend on a fresh source of randomness at signing time.
type Signature struct {
	R Point
	S Scalar
}

// domainSchnorrNonce and domainSchnorrChallenge separate the nonce
// derivation and challenge hash from every other H_scalar use in the
// package, so a signature can never be reinterpreted as a blinded key or
// aggregation coefficient.
var (
	domainSchnorrNonce     = []byte("multisig-kex-schnorr-nonce")
	domainSchnorrChallenge = []byte("multisig-kex-schnorr-challenge")
)

// Sign produces a deterministic Schnorr signature over message, proving
// knowledge of priv such that priv*G == pub.
func Sign(priv Scalar, pub Point, message []byte) Signature {
	nonce := HashToScalar(domainSchnorrNonce, priv.Bytes(), message)
	r := nonce.Point()
	challenge := HashToScalar(domainSchnorrChallenge, r.Bytes(), pub.Bytes(), message)

	// s = nonce + challenge*priv
	s := Scalar{s: edwards25519.NewScalar().MultiplyAdd(challenge.edScalar(), priv.edScalar(), nonce.edScalar())}
	return Signature{R: r, S: s}
}

// Verify checks that sig proves knowledge of the secret behind pub for
// message: s*G == R + challenge*pub.
func Verify(pub Point, message []byte, sig Signature) bool {
	challenge := HashToScalar(domainSchnorrChallenge, sig.R.Bytes(), pub.Bytes(), message)
	lhs := sig.S.Point()
	rhs := sig.R.Add(pub.ScalarMult(challenge))
	return lhs.Equal(rhs)
}
