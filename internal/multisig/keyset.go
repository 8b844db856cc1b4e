package multisig

import "github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"

// keyOriginsMap is a "pubkey -> set of recommending signers" structure,
// keyed by the canonical 32-byte point encoding so distinct Point values
// that encode to the same bytes collapse to one entry.
type keyOriginsMap map[[curve25519.PointSize]byte]*keyOrigins

// keyOrigins pairs a point with the set of signer identities that
// recommended it, so callers can both iterate sorted keys and look up a
// point's origins without decoding bytes back to a Point on every access.
type keyOrigins struct {
	key     curve25519.Point
	origins map[[curve25519.PointSize]byte]curve25519.Point
}

func pointKey(p curve25519.Point) [curve25519.PointSize]byte {
	var k [curve25519.PointSize]byte
	copy(k[:], p.Bytes())
	return k
}

func newKeyOriginsMap() keyOriginsMap {
	return make(keyOriginsMap)
}

// insert records that signer recommended key, creating the entry if this
// is the first recommendation seen for key.
func (m keyOriginsMap) insert(key, signer curve25519.Point) {
	kk := pointKey(key)
	entry, ok := m[kk]
	if !ok {
		entry = &keyOrigins{key: key, origins: make(map[[curve25519.PointSize]byte]curve25519.Point)}
		m[kk] = entry
	}
	entry.origins[pointKey(signer)] = signer
}

// removeSigner deletes signer from every origins set and drops any key
// whose origins set becomes empty as a result.
func (m keyOriginsMap) removeSigner(signer curve25519.Point) {
	sk := pointKey(signer)
	for kk, entry := range m {
		delete(entry.origins, sk)
		if len(entry.origins) == 0 {
			delete(m, kk)
		}
	}
}

// keys returns the set of keys present, in no particular order; callers
// that need a canonical order must sort the result themselves.
func (m keyOriginsMap) keys() []curve25519.Point {
	out := make([]curve25519.Point, 0, len(m))
	for _, entry := range m {
		out = append(out, entry.key)
	}
	return out
}

func (m keyOriginsMap) contains(key curve25519.Point) bool {
	_, ok := m[pointKey(key)]
	return ok
}

func (m keyOriginsMap) originsOf(key curve25519.Point) map[[curve25519.PointSize]byte]curve25519.Point {
	entry, ok := m[pointKey(key)]
	if !ok {
		return nil
	}
	return entry.origins
}

// keyPointSet is a deduplicating set of points keyed by canonical bytes,
// used both for the local signer's "exclude" set and for the "used"
// dedup set in composite key-image construction.
type keyPointSet map[[curve25519.PointSize]byte]curve25519.Point

func newKeyPointSet(points ...curve25519.Point) keyPointSet {
	s := make(keyPointSet, len(points))
	for _, p := range points {
		s[pointKey(p)] = p
	}
	return s
}

func (s keyPointSet) contains(p curve25519.Point) bool {
	_, ok := s[pointKey(p)]
	return ok
}

func (s keyPointSet) add(p curve25519.Point) {
	s[pointKey(p)] = p
}

func (s keyPointSet) slice() []curve25519.Point {
	out := make([]curve25519.Point, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}
	return out
}
