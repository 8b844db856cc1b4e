package multisig

import (
	"bytes"
	"sort"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

// Account holds one participant's state in an M-of-N multisig key
// exchange: its own long-term keys, the shared keys produced so far, and
// the outgoing message for whichever round is currently in progress.
// InitializeKex and KexUpdate follow a copy-mutate-commit pattern: a
// working copy is updated first, and the receiver is only overwritten once
// every step has succeeded.
type Account struct {
	threshold uint32
	signers   []curve25519.Point

	basePrivkey       curve25519.Scalar
	basePubkey        curve25519.Point
	baseCommonPrivkey curve25519.Scalar

	multisigPrivkeys []curve25519.Scalar
	commonPrivkey    curve25519.Scalar
	multisigPubkey   curve25519.Point
	commonPubkey     curve25519.Point

	kexRoundsComplete uint32
	kexKeysToOrigins  keyOriginsMap
	nextRoundMsg      []byte
}

// NewAccount creates a freshly seeded account, not yet bound to any
// signer set. Call InitializeKex with the round-1 messages collected from
// the other participants to activate it.
func NewAccount(basePrivkey, baseCommonPrivkey curve25519.Scalar) (*Account, error) {
	if basePrivkey.IsNull() || baseCommonPrivkey.IsNull() {
		return nil, ErrNullSecret
	}

	basePubkey := basePrivkey.Point()
	msg, err := BuildKexMsg(1, basePrivkey, nil, baseCommonPrivkey)
	if err != nil {
		return nil, err
	}

	return &Account{
		basePrivkey:       basePrivkey,
		basePubkey:        basePubkey,
		baseCommonPrivkey: baseCommonPrivkey,
		multisigPubkey:    curve25519.IdentityPoint(),
		commonPubkey:      curve25519.IdentityPoint(),
		nextRoundMsg:      msg,
	}, nil
}

func (a *Account) Threshold() uint32                { return a.threshold }
func (a *Account) Signers() []curve25519.Point      { return append([]curve25519.Point{}, a.signers...) }
func (a *Account) BasePubkey() curve25519.Point     { return a.basePubkey }
func (a *Account) MultisigPubkey() curve25519.Point { return a.multisigPubkey }
func (a *Account) CommonPubkey() curve25519.Point   { return a.commonPubkey }
func (a *Account) CommonPrivkey() curve25519.Scalar { return a.commonPrivkey }
func (a *Account) KexRoundsComplete() uint32        { return a.kexRoundsComplete }
func (a *Account) NextRoundMessage() []byte         { return append([]byte{}, a.nextRoundMsg...) }

func (a *Account) MultisigPrivkeys() []curve25519.Scalar {
	return append([]curve25519.Scalar{}, a.multisigPrivkeys...)
}

// KexKeysToOrigins returns, for the round currently in progress, every key
// the local signer is tracking and the other signers that share it. Empty
// once the main kex rounds are complete.
func (a *Account) KexKeysToOrigins() []KeyOrigins {
	if a.kexKeysToOrigins == nil {
		return nil
	}
	out := make([]KeyOrigins, 0, len(a.kexKeysToOrigins))
	for _, key := range a.kexKeysToOrigins.keys() {
		out = append(out, KeyOrigins{
			Key:     key,
			Origins: valuesOf(a.kexKeysToOrigins.originsOf(key)),
		})
	}
	return out
}

// AccountStatus identifies where an account sits in its lifecycle. The
// lifecycle only moves forward: an account never re-enters an earlier
// status.
type AccountStatus int

const (
	StatusInactive AccountStatus = iota
	StatusActive
	StatusMainKexDone
	StatusReady
)

func (s AccountStatus) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusMainKexDone:
		return "main_kex_done"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

func (a *Account) Status() AccountStatus {
	switch {
	case a.IsReady():
		return StatusReady
	case a.MainKexRoundsDone():
		return StatusMainKexDone
	case a.IsActive():
		return StatusActive
	default:
		return StatusInactive
	}
}

// Wipe zeroizes every secret scalar the account holds. The account is not
// usable afterward; hosts call this when an account is discarded before
// process exit rather than waiting for the garbage collector.
func (a *Account) Wipe() {
	a.basePrivkey.Zero()
	a.baseCommonPrivkey.Zero()
	a.commonPrivkey.Zero()
	for i := range a.multisigPrivkeys {
		a.multisigPrivkeys[i].Zero()
	}
	a.multisigPrivkeys = nil
	a.kexKeysToOrigins = nil
	a.nextRoundMsg = nil
}

// IsActive reports whether the account has been bound to a signer set
// and completed at least its first kex round.
func (a *Account) IsActive() bool {
	return a.kexRoundsComplete > 0
}

// MainKexRoundsDone reports whether the account has finished every main
// key-exchange round; only the post-kex verification round remains.
func (a *Account) MainKexRoundsDone() bool {
	if !a.IsActive() {
		return false
	}
	required, err := KexRoundsRequired(uint32(len(a.signers)), a.threshold)
	return err == nil && a.kexRoundsComplete >= required
}

// IsReady reports whether the account can participate in multisig
// signing: all kex rounds and the post-kex verification round are done.
func (a *Account) IsReady() bool {
	if !a.MainKexRoundsDone() {
		return false
	}
	required, err := SetupRoundsRequired(uint32(len(a.signers)), a.threshold)
	return err == nil && a.kexRoundsComplete >= required
}

// InitializeKex binds the account to a threshold/signer configuration
// and processes the round-1 messages from the other participants.
func (a *Account) InitializeKex(threshold uint32, signers []curve25519.Point, round1Msgs [][]byte) error {
	if a.IsActive() {
		return ErrAlreadyActive
	}

	tmp := a.clone()
	if err := tmp.setConfig(threshold, signers); err != nil {
		return err
	}

	parsed, err := parseMessages(round1Msgs)
	if err != nil {
		return err
	}
	if err := tmp.kexUpdateImpl(parsed, false); err != nil {
		return err
	}

	*a = *tmp
	return nil
}

// KexUpdate processes the messages for the account's in-progress round
// and prepares the message for the next round. forceUpdate relaxes the
// recommendation-count requirements to accept an incomplete signer set;
// the resulting account is only as trustworthy as the honesty of the
// signers it was completed with.
func (a *Account) KexUpdate(msgs [][]byte, forceUpdate bool) error {
	if !a.IsActive() {
		return ErrNotActive
	}
	if a.IsReady() {
		return ErrAlreadyReady
	}

	tmp := a.clone()
	parsed, err := parseMessages(msgs)
	if err != nil {
		return err
	}
	if err := tmp.kexUpdateImpl(parsed, forceUpdate); err != nil {
		return err
	}

	*a = *tmp
	return nil
}

func (a *Account) clone() *Account {
	c := *a
	c.signers = append([]curve25519.Point{}, a.signers...)
	c.multisigPrivkeys = append([]curve25519.Scalar{}, a.multisigPrivkeys...)
	c.nextRoundMsg = append([]byte{}, a.nextRoundMsg...)
	if a.kexKeysToOrigins != nil {
		c.kexKeysToOrigins = newKeyOriginsMap()
		for _, key := range a.kexKeysToOrigins.keys() {
			for _, origin := range a.kexKeysToOrigins.originsOf(key) {
				c.kexKeysToOrigins.insert(key, origin)
			}
		}
	}
	return &c
}

// setConfig validates and installs the threshold/signer configuration.
// Signers are sorted into canonical order and must be unique, in the
// main subgroup, non-identity, and must include the account's own
// base pubkey.
func (a *Account) setConfig(threshold uint32, signers []curve25519.Point) error {
	if len(signers) < 2 || len(signers) > MaxSigners {
		return ErrInvalidConfig
	}
	if threshold < 1 || threshold > uint32(len(signers)) {
		return ErrInvalidConfig
	}

	for _, s := range signers {
		if s.IsIdentity() || !s.InMainSubgroup() {
			return ErrInvalidSigner
		}
	}

	foundSelf := false
	for _, s := range signers {
		if s.Equal(a.basePubkey) {
			foundSelf = true
			break
		}
	}
	if !foundSelf {
		return ErrMissingSelf
	}

	sorted := append([]curve25519.Point{}, signers...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Bytes(), sorted[j].Bytes()) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Equal(sorted[i-1]) {
			return ErrDuplicateSigner
		}
	}

	a.threshold = threshold
	a.signers = sorted
	return nil
}

func parseMessages(wire [][]byte) ([]KexMsg, error) {
	out := make([]KexMsg, len(wire))
	for i, w := range wire {
		m, err := ParseKexMsg(w)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// kexUpdateImpl is the non-transactional core shared by InitializeKex and
// KexUpdate: validate the round, gather the keys the local signer should
// not recommend to itself, evaluate the round's messages, and finalize.
func (a *Account) kexUpdateImpl(msgs []KexMsg, incompleteSignerSet bool) error {
	if err := checkMessagesRound(msgs, a.kexRoundsComplete+1); err != nil {
		return err
	}

	kexRoundsRequired, err := KexRoundsRequired(uint32(len(a.signers)), a.threshold)
	if err != nil {
		return err
	}
	if a.kexRoundsComplete >= kexRoundsRequired+1 {
		return ErrAlreadyReady
	}

	excludePubkeys, err := a.initializeKexUpdate(msgs, kexRoundsRequired)
	if err != nil {
		return err
	}

	result, err := processRoundMsgs(
		a.basePrivkey,
		a.basePubkey,
		a.kexRoundsComplete+1,
		a.threshold,
		a.signers,
		msgs,
		excludePubkeys,
		incompleteSignerSet,
	)
	if err != nil {
		return err
	}

	return a.finalizeKexUpdate(kexRoundsRequired, result)
}

// initializeKexUpdate prepares the exclude set for the current round. In
// round 1 it also collects the common privkey shares into the group
// common key, and seeds multisigPrivkeys directly from the base privkey
// when an N-of-N configuration needs no DH rounds at all.
func (a *Account) initializeKexUpdate(msgs []KexMsg, kexRoundsRequired uint32) ([]curve25519.Point, error) {
	if a.kexRoundsComplete != 0 {
		return a.kexKeysToOrigins.keys(), nil
	}

	commonShares := make([]curve25519.Scalar, 0, len(msgs)+1)
	commonShares = append(commonShares, a.baseCommonPrivkey)
	for _, m := range msgs {
		if !m.SigningPub.Equal(a.basePubkey) {
			commonShares = append(commonShares, m.MsgPrivkey)
		}
	}

	commonPrivkey, err := makeCommonPrivkey(commonShares)
	if err != nil {
		return nil, err
	}
	a.commonPrivkey = commonPrivkey
	a.commonPubkey = commonPrivkey.Point()

	if kexRoundsRequired == 1 {
		a.multisigPrivkeys = []curve25519.Scalar{a.basePrivkey}
	}

	return []curve25519.Point{a.basePubkey}, nil
}

// makeCommonPrivkey derives the group's shared common private key from
// every participant's base common privkey share: common = H_scalar(sorted
// shares). The sort compares the share bytes themselves in lexicographic
// order with Scalar.Less, which is not constant-time; every share has
// already been sent to all participants in their round-1 messages.
func makeCommonPrivkey(shares []curve25519.Scalar) (curve25519.Scalar, error) {
	sorted := append([]curve25519.Scalar{}, shares...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	parts := make([][]byte, len(sorted))
	for i, s := range sorted {
		parts[i] = s.Bytes()
	}

	result := curve25519.HashToScalar(parts...)
	if result.IsNull() {
		return curve25519.Scalar{}, ErrNullSecret
	}
	return result, nil
}

// deriveMultisigKeypair turns a DH derivation (a shared point, not a
// reduced scalar) into the private/public keypair that round's
// contribution to the final multisig key. The derivation's raw bytes are
// blinded exactly the way a secret scalar would be.
func deriveMultisigKeypair(derivation curve25519.Point) (curve25519.Scalar, curve25519.Point, error) {
	sk, err := blindRawBytes(derivation.Bytes())
	if err != nil {
		return curve25519.Scalar{}, curve25519.Point{}, err
	}
	return sk, sk.Point(), nil
}

// finalizeKexUpdate advances the account past the round whose messages
// were just processed: for normal rounds it prepares the next message
// from derived keys; for the final main round it aggregates the group
// key; for the post-kex round it only confirms everyone converged on the
// same aggregate and common keys.
func (a *Account) finalizeKexUpdate(kexRoundsRequired uint32, result keyOriginsMap) error {
	var nextMsgKeys []curve25519.Point

	switch {
	case a.kexRoundsComplete == kexRoundsRequired:
		if !result.contains(a.multisigPubkey) || !result.contains(a.commonPubkey) {
			return ErrPostKexMismatch
		}
		nextMsgKeys = []curve25519.Point{a.multisigPubkey, a.commonPubkey}

	case a.kexRoundsComplete+1 == kexRoundsRequired:
		resultKeys := result.keys()
		aggPub, updatedPrivkeys, err := GenerateMultisigAggregateKey(resultKeys, a.multisigPrivkeys)
		if err != nil {
			return err
		}
		a.multisigPubkey = aggPub
		a.multisigPrivkeys = updatedPrivkeys
		a.kexKeysToOrigins = nil
		nextMsgKeys = []curve25519.Point{a.multisigPubkey, a.commonPubkey}

	case a.kexRoundsComplete+2 == kexRoundsRequired:
		derivations := result.keys()
		newPrivkeys := make([]curve25519.Scalar, 0, len(derivations))
		newOrigins := newKeyOriginsMap()
		nextMsgKeys = make([]curve25519.Point, 0, len(derivations))

		for _, derivation := range derivations {
			sk, pk, err := deriveMultisigKeypair(derivation)
			if err != nil {
				return err
			}
			newPrivkeys = append(newPrivkeys, sk)
			for _, origin := range result.originsOf(derivation) {
				newOrigins.insert(pk, origin)
			}
			nextMsgKeys = append(nextMsgKeys, pk)
		}

		a.multisigPrivkeys = newPrivkeys
		a.kexKeysToOrigins = newOrigins

	default:
		nextMsgKeys = result.keys()
		a.kexKeysToOrigins = result
	}

	a.kexRoundsComplete++

	msgRound := a.kexRoundsComplete + 1
	if a.kexRoundsComplete > kexRoundsRequired {
		msgRound = kexRoundsRequired + 1
	}

	msg, err := BuildKexMsg(msgRound, a.basePrivkey, nextMsgKeys, curve25519.NullScalar())
	if err != nil {
		return err
	}
	a.nextRoundMsg = msg
	return nil
}
