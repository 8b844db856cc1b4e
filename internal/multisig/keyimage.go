package multisig

import "github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"

// GenerateMultisigKeyImage returns the local signer's single-share
// contribution to the key image of output P: Hp(P) * privkeys[idx].
func GenerateMultisigKeyImage(privkeys []curve25519.Scalar, idx int, p curve25519.Point) (curve25519.Point, error) {
	if idx < 0 || idx >= len(privkeys) {
		return curve25519.Point{}, ErrOutOfRange
	}
	hp := curve25519.HashToPoint(p.Bytes())
	return hp.ScalarMult(privkeys[idx]), nil
}

// GenerateMultisigCompositeKeyImage folds peer-supplied key-image
// components into a key image the local signer has already partially
// computed. partialKeyImage is the result of the host's own one-time-key
// derivation (view key, subaddress component, and every local share in
// privkeys already summed into its scalar before multiplying by Hp(P));
// deriving that one-time secret from a transaction's public keys is an
// ecosystem-specific operation this package does not implement.
//
// Each local share's own component is recorded in a "used" set so that a
// peer_component equal to one of them (which can legitimately happen
// when the same share is distributed to more than one signer) is folded
// in at most once.
func GenerateMultisigCompositeKeyImage(
	privkeys []curve25519.Scalar,
	p curve25519.Point,
	partialKeyImage curve25519.Point,
	peerComponents []curve25519.Point,
) (curve25519.Point, error) {
	hp := curve25519.HashToPoint(p.Bytes())

	used := newKeyPointSet()
	for _, s := range privkeys {
		used.add(hp.ScalarMult(s))
	}

	result := partialKeyImage
	for _, c := range peerComponents {
		if used.contains(c) {
			continue
		}
		used.add(c)
		result = result.Add(c)
	}

	return result, nil
}

// GenerateMultisigLR computes the (L, R) pair a higher-level signing
// protocol combines across signers: L = k*G, R = k*Hp(P).
func GenerateMultisigLR(p curve25519.Point, k curve25519.Scalar) (curve25519.Point, curve25519.Point) {
	l := k.Point()
	r := curve25519.HashToPoint(p.Bytes()).ScalarMult(k)
	return l, r
}
