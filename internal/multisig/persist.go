package multisig

import "github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"

// Snapshot is the full persisted state of an Account, suitable for
// serialization by a host between process restarts. It deliberately
// exposes every field instead of wrapping Account directly, so the host
// can choose its own wire format for storage.
type Snapshot struct {
	Threshold         uint32
	Signers           []curve25519.Point
	BasePrivkey       curve25519.Scalar
	BaseCommonPrivkey curve25519.Scalar
	MultisigPrivkeys  []curve25519.Scalar
	CommonPrivkey     curve25519.Scalar
	MultisigPubkey    curve25519.Point
	CommonPubkey      curve25519.Point
	KexRoundsComplete uint32
	KexOrigins        []KeyOrigins
}

// KeyOrigins pairs a round key with the signers who recommended it. It is
// a slice rather than a map keyed by Point because Point wraps a pointer
// and is only comparable by identity, not by the value it encodes.
type KeyOrigins struct {
	Key     curve25519.Point
	Origins []curve25519.Point
}

// Snapshot captures the account's current state for persistence. It is
// only meaningful for an active account; a fresh account (kex not yet
// initialized) has nothing worth persisting beyond its own seed keys.
func (a *Account) Snapshot() (Snapshot, error) {
	if !a.IsActive() {
		return Snapshot{}, ErrNotActive
	}

	return Snapshot{
		Threshold:         a.threshold,
		Signers:           append([]curve25519.Point{}, a.signers...),
		BasePrivkey:       a.basePrivkey,
		BaseCommonPrivkey: a.baseCommonPrivkey,
		MultisigPrivkeys:  append([]curve25519.Scalar{}, a.multisigPrivkeys...),
		CommonPrivkey:     a.commonPrivkey,
		MultisigPubkey:    a.multisigPubkey,
		CommonPubkey:      a.commonPubkey,
		KexRoundsComplete: a.kexRoundsComplete,
		KexOrigins:        a.KexKeysToOrigins(),
	}, nil
}

// FromSnapshot reconstructs an Account from previously persisted state and
// rebuilds its outgoing message: this is how a host resumes a long-lived
// kex session across restarts. It rechecks the threshold/signer
// configuration the way InitializeKex does (set size, threshold range,
// subgroup membership, duplicates, own key present), requires a non-null
// base privkey, and requires 1 <= KexRoundsComplete <= R+1. It does not
// recheck the number of multisig privkeys, the multisig or common pubkeys
// against the private keys, or the sizes of the origins sets; those
// fields are restored as stored.
func FromSnapshot(s Snapshot) (*Account, error) {
	if s.KexRoundsComplete == 0 {
		return nil, ErrNotActive
	}
	if s.BasePrivkey.IsNull() {
		return nil, ErrNullSecret
	}

	a := &Account{basePrivkey: s.BasePrivkey, basePubkey: s.BasePrivkey.Point()}
	if err := a.setConfig(s.Threshold, s.Signers); err != nil {
		return nil, err
	}

	kexRoundsRequired, err := KexRoundsRequired(uint32(len(a.signers)), a.threshold)
	if err != nil {
		return nil, err
	}
	if s.KexRoundsComplete > kexRoundsRequired+1 {
		return nil, ErrInvalidConfig
	}

	a.baseCommonPrivkey = s.BaseCommonPrivkey
	a.multisigPrivkeys = append([]curve25519.Scalar{}, s.MultisigPrivkeys...)
	a.commonPrivkey = s.CommonPrivkey
	a.multisigPubkey = s.MultisigPubkey
	a.commonPubkey = s.CommonPubkey
	a.kexRoundsComplete = s.KexRoundsComplete

	if len(s.KexOrigins) > 0 {
		a.kexKeysToOrigins = newKeyOriginsMap()
		for _, entry := range s.KexOrigins {
			for _, origin := range entry.Origins {
				a.kexKeysToOrigins.insert(entry.Key, origin)
			}
		}
	}

	msgRound := kexRoundsRequired + 1
	if a.kexRoundsComplete < kexRoundsRequired {
		msgRound = a.kexRoundsComplete + 1
	}

	var msgKeys []curve25519.Point
	switch {
	case a.MainKexRoundsDone():
		msgKeys = []curve25519.Point{a.multisigPubkey, a.commonPubkey}
	case a.kexKeysToOrigins != nil:
		msgKeys = a.kexKeysToOrigins.keys()
	}

	msg, err := BuildKexMsg(msgRound, a.basePrivkey, msgKeys, curve25519.NullScalar())
	if err != nil {
		return nil, err
	}
	a.nextRoundMsg = msg

	return a, nil
}

func valuesOf(m map[[curve25519.PointSize]byte]curve25519.Point) []curve25519.Point {
	out := make([]curve25519.Point, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}
