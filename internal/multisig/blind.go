package multisig

import (
	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
	"github.com/smallyu/go-monero-multisig/internal/crypto/zeroizing"
)

// blind deterministically converts a secret scalar into a blinded multisig
// private key: blind(x) = H_scalar(x || DOMAIN_MULTISIG). Nothing in this
// package calls it: NewAccount takes its base keys as given,
// makeCommonPrivkey hashes the raw common-key shares, and the penultimate
// kex round blinds DH derivations through blindRawBytes.
func blind(x curve25519.Scalar) (curve25519.Scalar, error) {
	if x.IsNull() {
		return curve25519.Scalar{}, ErrNullSecret
	}
	return blindRawBytes(x.Bytes())
}

// blindRawBytes is blind's underlying byte-level operation. It exists
// separately because the penultimate kex round blinds a DH derivation
// (a curve point's raw encoding, not a reduced scalar) into a multisig
// private key share: the derivation's 32 bytes are hashed exactly like a
// secret scalar would be, without ever treating them as one.
func blindRawBytes(raw []byte) (curve25519.Scalar, error) {
	allZero := true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return curve25519.Scalar{}, ErrNullSecret
	}

	buf := append(append([]byte{}, raw...), domainMultisig...)
	defer zeroizing.Wipe(buf)

	return curve25519.HashToScalar(buf), nil
}
