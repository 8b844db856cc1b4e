package multisig

import (
	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

// checkMessagesRound requires every message in msgs to carry the same
// round number and for that number to equal expectedRound.
func checkMessagesRound(msgs []KexMsg, expectedRound uint32) error {
	if len(msgs) == 0 {
		return ErrIncompleteRound
	}
	round := msgs[0].Round
	if round != expectedRound {
		return ErrWrongRound
	}
	for _, m := range msgs {
		if m.Round != round {
			return ErrWrongRound
		}
	}
	return nil
}

// sanitizePubkeys builds a pubkey -> origins map out of a batch of
// same-round messages. In round 1 the only "pubkey" a message recommends
// is its own signing key; in every later round it's the message's list of
// msgPubkeys, with anything in excludePubkeys dropped.
func sanitizePubkeys(msgs []KexMsg, excludePubkeys keyPointSet) (uint32, keyOriginsMap, error) {
	if len(msgs) == 0 {
		return 0, nil, ErrIncompleteRound
	}
	round := msgs[0].Round
	if err := checkMessagesRound(msgs, round); err != nil {
		return 0, nil, err
	}

	origins := newKeyOriginsMap()
	for _, m := range msgs {
		if round == 1 {
			origins.insert(m.SigningPub, m.SigningPub)
			continue
		}
		for _, pk := range m.MsgPubkeys {
			if excludePubkeys != nil && excludePubkeys.contains(pk) {
				continue
			}
			origins.insert(pk, m.SigningPub)
		}
	}
	return round, origins, nil
}

// evaluateKexRoundMsgs sanitizes a batch of round messages and validates
// the combinatorial recommendation counts an M-of-N exchange requires at
// this round: every surviving pubkey must be recommended by the expected
// number of distinct other signers, every one of those signers must be a
// known signer, and (unless incompleteSignerSet relaxes the requirement)
// every other signer must be present.
func evaluateKexRoundMsgs(
	basePubkey curve25519.Point,
	expectedRound uint32,
	signers []curve25519.Point,
	msgs []KexMsg,
	excludePubkeys []curve25519.Point,
	incompleteSignerSet bool,
) (keyOriginsMap, error) {
	if err := distinctPoints(excludePubkeys); err != nil {
		return nil, err
	}

	excludeSet := newKeyPointSet(excludePubkeys...)
	round, origins, err := sanitizePubkeys(msgs, excludeSet)
	if err != nil {
		return nil, err
	}
	if round != expectedRound {
		return nil, ErrWrongRound
	}

	origins.removeSigner(basePubkey)

	originPubkeys := make(map[[curve25519.PointSize]byte]keyPointSet)
	signerOf := make(map[[curve25519.PointSize]byte]curve25519.Point)
	for _, key := range origins.keys() {
		for ok, op := range origins.originsOf(key) {
			if originPubkeys[ok] == nil {
				originPubkeys[ok] = newKeyPointSet()
				signerOf[ok] = op
			}
			originPubkeys[ok].add(key)
		}
	}

	requiredSigners := len(signers) - 1
	if incompleteSignerSet {
		requiredSigners = len(signers) - 1 - int(round-1)
	}
	if requiredSigners < 0 {
		requiredSigners = 0
	}
	if len(originPubkeys) < requiredSigners {
		return nil, ErrIncompleteRound
	}

	requiredPerPubkey := uint32(round)
	if incompleteSignerSet {
		requiredPerPubkey = 1
	}
	for _, key := range origins.keys() {
		if uint32(len(origins.originsOf(key))) < requiredPerPubkey {
			return nil, ErrUnexpectedRecCount
		}
	}

	expectedOthers := nChooseK(len(signers)-2, int(round)-1)
	expectedSelf := nChooseK(len(signers)-1, int(round)-1)
	if expectedSelf == 0 || expectedOthers == 0 {
		return nil, ErrUnexpectedRecCount
	}
	if uint32(len(excludePubkeys)) != expectedSelf {
		return nil, ErrUnexpectedRecCount
	}

	signerSet := newKeyPointSet(signers...)
	for ok, pubkeys := range originPubkeys {
		if uint32(len(pubkeys)) != expectedOthers {
			return nil, newSignerError(round, signerOf[ok], ErrUnexpectedRecCount)
		}
		if !signerSet.contains(signerOf[ok]) {
			return nil, newSignerError(round, signerOf[ok], ErrUnknownSigner)
		}
	}

	return origins, nil
}

// evaluatePostKexRoundMsgs validates the final verification round: exactly
// two pubkeys (the multisig key and the common key) must be recommended,
// both by the same set of signers, and that set must cover every signer
// other than self (unless incompleteSignerSet relaxes it to one message).
func evaluatePostKexRoundMsgs(
	basePubkey curve25519.Point,
	expectedRound uint32,
	signers []curve25519.Point,
	msgs []KexMsg,
	incompleteSignerSet bool,
) (keyOriginsMap, error) {
	round, origins, err := sanitizePubkeys(msgs, nil)
	if err != nil {
		return nil, err
	}
	if round != expectedRound {
		return nil, ErrWrongRound
	}

	keys := origins.keys()
	if len(keys) != 2 {
		return nil, ErrPostKexMismatch
	}

	firstOrigins := origins.originsOf(keys[0])
	secondOrigins := origins.originsOf(keys[1])
	if len(firstOrigins) != len(secondOrigins) {
		return nil, ErrPostKexMismatch
	}
	for k := range firstOrigins {
		if _, ok := secondOrigins[k]; !ok {
			return nil, ErrPostKexMismatch
		}
	}

	combined := newKeyPointSet()
	for _, p := range firstOrigins {
		combined.add(p)
	}
	combined.add(basePubkey)

	requiredSigners := len(signers)
	if incompleteSignerSet {
		requiredSigners = 1
	}
	if len(combined) < requiredSigners {
		return nil, ErrIncompleteRound
	}

	signerSet := newKeyPointSet(signers...)
	for _, p := range combined.slice() {
		if !signerSet.contains(p) {
			return nil, ErrUnknownSigner
		}
	}

	return origins, nil
}

// makeRoundKeys performs the DH step of an intermediate kex round: for
// every pubkey recommended to the local signer, it derives the
// cofactor-cleared shared secret with basePriv and carries the pubkey's
// origins set forward keyed by the derivation instead of by the pubkey.
func makeRoundKeys(basePriv curve25519.Scalar, pubkeyOrigins keyOriginsMap) keyOriginsMap {
	derivations := newKeyOriginsMap()
	for _, pubkey := range pubkeyOrigins.keys() {
		derivation := pubkey.ScalarMult(basePriv).MulByCofactor()
		for _, origin := range pubkeyOrigins.originsOf(pubkey) {
			derivations.insert(derivation, origin)
		}
	}
	return derivations
}

// processRoundMsgs is the single entry point that decides, based on where
// current round sits relative to the number of rounds required, whether
// to run the normal round evaluation or the post-kex verification
// evaluation, and whether the result needs one more DH step applied
// before it becomes the keyset for the next outgoing message.
func processRoundMsgs(
	basePriv curve25519.Scalar,
	basePubkey curve25519.Point,
	currentRound uint32,
	threshold uint32,
	signers []curve25519.Point,
	msgs []KexMsg,
	excludePubkeys []curve25519.Point,
	incompleteSignerSet bool,
) (keyOriginsMap, error) {
	kexRoundsRequired, err := KexRoundsRequired(uint32(len(signers)), threshold)
	if err != nil {
		return nil, err
	}

	var evaluated keyOriginsMap
	switch {
	case threshold == 1 && currentRound == kexRoundsRequired:
		evaluated = newKeyOriginsMap()
	case currentRound <= kexRoundsRequired:
		evaluated, err = evaluateKexRoundMsgs(basePubkey, currentRound, signers, msgs, excludePubkeys, incompleteSignerSet)
	default:
		evaluated, err = evaluatePostKexRoundMsgs(basePubkey, currentRound, signers, msgs, incompleteSignerSet)
	}
	if err != nil {
		return nil, err
	}

	if currentRound < kexRoundsRequired {
		return makeRoundKeys(basePriv, evaluated), nil
	}
	return evaluated, nil
}

func distinctPoints(points []curve25519.Point) error {
	seen := newKeyPointSet()
	for _, p := range points {
		if seen.contains(p) {
			return ErrDuplicateSigner
		}
		seen.add(p)
	}
	return nil
}
