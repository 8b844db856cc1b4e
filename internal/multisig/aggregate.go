package multisig

import (
	"bytes"
	"sort"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

// aggregationCoefficient computes coeff(K, sortedKeys) = H_scalar(K ||
// sortedKeys || DOMAIN_AGG). The caller must ensure sortedKeys is sorted
// and contains key, since the coefficient is only deterministic under
// those conditions.
func aggregationCoefficient(sortedKeys []curve25519.Point, key curve25519.Point) curve25519.Scalar {
	parts := make([][]byte, 0, len(sortedKeys)+2)
	parts = append(parts, key.Bytes())
	for _, k := range sortedKeys {
		parts = append(parts, k.Bytes())
	}
	parts = append(parts, domainKeyAggregation)
	return curve25519.HashToScalar(parts...)
}

// GenerateMultisigAggregateKey merges otherKeys (the final key shares
// recommended by other signers) with the public keys of privkeys (the
// local signer's own shares) into one aggregate public key, using
// per-key aggregation coefficients to prevent key-cancellation attacks.
// It returns the aggregate public key and the local private key shares
// with their coefficients applied; privkeys itself is left untouched.
func GenerateMultisigAggregateKey(otherKeys []curve25519.Point, privkeys []curve25519.Scalar) (curve25519.Point, []curve25519.Scalar, error) {
	ownIndex := make(map[[curve25519.PointSize]byte]int, len(privkeys))
	all := make([]curve25519.Point, 0, len(otherKeys)+len(privkeys))
	all = append(all, otherKeys...)
	for i, sk := range privkeys {
		pk := sk.Point()
		ownIndex[pointKey(pk)] = i
		all = append(all, pk)
	}

	sort.Slice(all, func(i, j int) bool {
		return bytes.Compare(all[i].Bytes(), all[j].Bytes()) < 0
	})
	for i := 1; i < len(all); i++ {
		if all[i].Equal(all[i-1]) {
			return curve25519.Point{}, nil, ErrDuplicateSigner
		}
	}

	updated := append([]curve25519.Scalar{}, privkeys...)
	aggregate := curve25519.IdentityPoint()

	for _, key := range all {
		coeff := aggregationCoefficient(all, key)

		if idx, ok := ownIndex[pointKey(key)]; ok {
			updated[idx] = updated[idx].Mul(coeff)
			if updated[idx].IsNull() {
				return curve25519.Point{}, nil, ErrNullSecret
			}
		}

		aggregate = aggregate.Add(key.ScalarMult(coeff))
	}

	return aggregate, updated, nil
}
