package multisig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

func seededScalar(seed byte) curve25519.Scalar {
	var wide [64]byte
	for i := range wide {
		wide[i] = seed + byte(i)
	}
	return curve25519.ScalarFromWideBytes(wide)
}

// participant bundles one signer's account with the keys used to seed it,
// purely for test bookkeeping.
type participant struct {
	account *Account
	base    curve25519.Scalar
}

func newParticipants(t *testing.T, n int) []*participant {
	t.Helper()
	out := make([]*participant, n)
	for i := 0; i < n; i++ {
		base := seededScalar(byte(10 + i))
		common := seededScalar(byte(100 + i))
		acct, err := NewAccount(base, common)
		require.NoError(t, err)
		out[i] = &participant{account: acct, base: base}
	}
	return out
}

func signerSet(t *testing.T, ps []*participant) []curve25519.Point {
	t.Helper()
	out := make([]curve25519.Point, len(ps))
	for i, p := range ps {
		out[i] = p.account.BasePubkey()
	}
	return out
}

// runFullKex drives threshold/n participants through initialize_kex and
// every kex_update round until every account reports ready, and returns
// the participants for further assertions.
func runFullKex(t *testing.T, n int, threshold uint32) []*participant {
	t.Helper()
	ps := newParticipants(t, n)
	signers := signerSet(t, ps)

	round1 := make([][]byte, n)
	for i, p := range ps {
		round1[i] = p.account.NextRoundMessage()
	}

	for i, p := range ps {
		msgs := otherMessages(round1, i)
		require.NoError(t, p.account.InitializeKex(threshold, signers, msgs))
	}

	for !ps[0].account.IsReady() {
		outgoing := make([][]byte, n)
		for i, p := range ps {
			outgoing[i] = p.account.NextRoundMessage()
		}
		for i, p := range ps {
			msgs := otherMessages(outgoing, i)
			require.NoError(t, p.account.KexUpdate(msgs, false))
		}
	}

	return ps
}

func otherMessages(all [][]byte, exclude int) [][]byte {
	out := make([][]byte, 0, len(all)-1)
	for i, m := range all {
		if i != exclude {
			out = append(out, m)
		}
	}
	return out
}

func TestKexRoundsRequired(t *testing.T) {
	r, err := KexRoundsRequired(3, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), r)

	_, err = KexRoundsRequired(1, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFullKexTwoOfThreeConverges(t *testing.T) {
	ps := runFullKex(t, 3, 2)

	for _, p := range ps {
		require.True(t, p.account.IsReady())
	}

	first := ps[0].account.MultisigPubkey()
	firstCommon := ps[0].account.CommonPubkey()
	for _, p := range ps[1:] {
		require.True(t, p.account.MultisigPubkey().Equal(first))
		require.True(t, p.account.CommonPubkey().Equal(firstCommon))
	}
	require.False(t, first.IsIdentity())
}

func TestFullKexTwoOfTwoConverges(t *testing.T) {
	ps := runFullKex(t, 2, 2)
	require.True(t, ps[0].account.MultisigPubkey().Equal(ps[1].account.MultisigPubkey()))
}

func TestFullKexOneOfTwoConverges(t *testing.T) {
	ps := runFullKex(t, 2, 1)
	require.True(t, ps[0].account.MultisigPubkey().Equal(ps[1].account.MultisigPubkey()))
}

func TestFullKexThreeOfFiveConverges(t *testing.T) {
	ps := runFullKex(t, 5, 3)
	first := ps[0].account.MultisigPubkey()
	for _, p := range ps[1:] {
		require.True(t, p.account.MultisigPubkey().Equal(first))
	}
}

func TestKexUpdateRejectsTamperedMessage(t *testing.T) {
	ps := newParticipants(t, 3)
	signers := signerSet(t, ps)

	round1 := make([][]byte, 3)
	for i, p := range ps {
		round1[i] = p.account.NextRoundMessage()
	}
	tampered := append([]byte{}, round1[1]...)
	tampered[len(tampered)-1] ^= 0xFF

	err := ps[0].account.InitializeKex(2, signers, [][]byte{tampered, round1[2]})
	require.Error(t, err)
}

func TestKexUpdateRejectsIncompleteRoundWithoutForce(t *testing.T) {
	ps := newParticipants(t, 3)
	signers := signerSet(t, ps)

	round1 := make([][]byte, 3)
	for i, p := range ps {
		round1[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.InitializeKex(2, signers, otherMessages(round1, i)))
	}

	round2 := make([][]byte, 3)
	for i, p := range ps {
		round2[i] = p.account.NextRoundMessage()
	}

	// signer 0 only hears from signer 1, not signer 2
	err := ps[0].account.KexUpdate([][]byte{round2[1]}, false)
	require.Error(t, err)

	require.NoError(t, ps[0].account.KexUpdate([][]byte{round2[1]}, true))
}

func TestKeyImageComponentsCombine(t *testing.T) {
	ps := runFullKex(t, 3, 2)

	outputPoint := seededScalar(55).Point()

	components := make([]curve25519.Point, len(ps))
	for i, p := range ps {
		ki, err := GenerateMultisigKeyImage(p.account.MultisigPrivkeys(), 0, outputPoint)
		require.NoError(t, err)
		components[i] = ki
	}

	partial, err := GenerateMultisigCompositeKeyImage(
		ps[0].account.MultisigPrivkeys(),
		outputPoint,
		components[0],
		[]curve25519.Point{components[1]},
	)
	require.NoError(t, err)
	require.False(t, partial.IsIdentity())
}

func TestGenerateMultisigKeyImageOutOfRange(t *testing.T) {
	_, err := GenerateMultisigKeyImage(nil, 0, curve25519.BasePoint())
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ps := runFullKex(t, 3, 2)

	snap, err := ps[0].account.Snapshot()
	require.NoError(t, err)

	restored, err := FromSnapshot(snap)
	require.NoError(t, err)
	require.True(t, restored.MultisigPubkey().Equal(ps[0].account.MultisigPubkey()))
	require.True(t, restored.IsReady())
}

func TestAccountStatusLifecycle(t *testing.T) {
	ps := newParticipants(t, 3)
	signers := signerSet(t, ps)

	require.Equal(t, StatusInactive, ps[0].account.Status())

	round1 := make([][]byte, 3)
	for i, p := range ps {
		round1[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.InitializeKex(2, signers, otherMessages(round1, i)))
	}
	// 2-of-3 needs R=2 main rounds, so one completed round is mid-kex
	require.Equal(t, StatusActive, ps[0].account.Status())

	round2 := make([][]byte, 3)
	for i, p := range ps {
		round2[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.KexUpdate(otherMessages(round2, i), false))
	}
	require.Equal(t, StatusMainKexDone, ps[0].account.Status())

	round3 := make([][]byte, 3)
	for i, p := range ps {
		round3[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.KexUpdate(otherMessages(round3, i), false))
	}
	require.Equal(t, StatusReady, ps[0].account.Status())

	err := ps[0].account.KexUpdate(otherMessages(round3, 0), false)
	require.ErrorIs(t, err, ErrAlreadyReady)
}

func TestKexKeysToOriginsTracksRoundShares(t *testing.T) {
	ps := newParticipants(t, 3)
	signers := signerSet(t, ps)

	round1 := make([][]byte, 3)
	for i, p := range ps {
		round1[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.InitializeKex(2, signers, otherMessages(round1, i)))
	}

	// after round 1 of 2-of-3, each signer tracks one derived key per
	// other signer, each shared with exactly that one signer
	entries := ps[0].account.KexKeysToOrigins()
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Len(t, e.Origins, 1)
	}

	round2 := make([][]byte, 3)
	for i, p := range ps {
		round2[i] = p.account.NextRoundMessage()
	}
	for i, p := range ps {
		require.NoError(t, p.account.KexUpdate(otherMessages(round2, i), false))
	}
	require.Empty(t, ps[0].account.KexKeysToOrigins())
}

func TestWipeClearsSecretState(t *testing.T) {
	ps := runFullKex(t, 2, 2)
	acct := ps[0].account

	acct.Wipe()
	require.Empty(t, acct.MultisigPrivkeys())
	require.True(t, acct.CommonPrivkey().IsNull())
	require.Empty(t, acct.NextRoundMessage())
}

func TestGenerateMultisigLR(t *testing.T) {
	k := seededScalar(9)
	p := seededScalar(8).Point()
	l, r := GenerateMultisigLR(p, k)
	require.True(t, l.Equal(k.Point()))
	require.False(t, r.IsIdentity())
}
