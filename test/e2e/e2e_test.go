// Package e2e drives the multisig key-exchange engine end to end through
// its public API exactly the way a host application would: seed accounts,
// shuttle wire messages between them via pkg/host, and check every
// participant converges on the same group keys.
package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
	"github.com/smallyu/go-monero-multisig/internal/multisig"
	"github.com/smallyu/go-monero-multisig/pkg/host"
)

func seededScalar(seed byte) curve25519.Scalar {
	var wide [64]byte
	for i := range wide {
		wide[i] = seed + byte(i)
	}
	return curve25519.ScalarFromWideBytes(wide)
}

func newParticipants(t *testing.T, n int) []*host.Participant {
	t.Helper()
	out := make([]*host.Participant, n)
	for i := 0; i < n; i++ {
		acct, err := multisig.NewAccount(seededScalar(byte(20+i)), seededScalar(byte(120+i)))
		require.NoError(t, err)
		out[i] = &host.Participant{Label: string(rune('A' + i)), Account: acct}
	}
	return out
}

// 1-of-2: either participant can spend alone, so both must end up holding
// the full group secret. Each side's sole multisig privkey is the blinded
// DH derivation between the two base keys, bit-identical on both sides.
func TestOneOfTwo(t *testing.T) {
	people := newParticipants(t, 2)
	labels := []string{"A", "B"}
	s, err := host.NewSession(host.SessionConfig{Threshold: 1, Participants: labels}, people, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run())

	for _, p := range people {
		require.True(t, p.Account.IsReady())
		require.Len(t, p.Account.MultisigPrivkeys(), 1)
	}
	sharedA := people[0].Account.MultisigPrivkeys()[0]
	sharedB := people[1].Account.MultisigPrivkeys()[0]
	require.True(t, sharedA.Equal(sharedB))
	require.True(t, people[0].Account.MultisigPubkey().Equal(people[1].Account.MultisigPubkey()))
	require.False(t, people[0].Account.MultisigPubkey().IsIdentity())
}

// 2-of-2: one main round, no DH step at all. Each side keeps its own
// base privkey as its single share, so the aggregate key must equal the
// coefficient-weighted sum of the two base pubkeys.
func TestTwoOfTwo(t *testing.T) {
	people := newParticipants(t, 2)
	s, err := host.NewSession(host.SessionConfig{Threshold: 2, Participants: []string{"A", "B"}}, people, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run())

	for _, p := range people {
		require.Len(t, p.Account.MultisigPrivkeys(), 1)
	}
	require.True(t, people[0].Account.MultisigPubkey().Equal(people[1].Account.MultisigPubkey()))
	require.True(t, people[0].Account.CommonPubkey().Equal(people[1].Account.CommonPubkey()))

	expected, _, err := multisig.GenerateMultisigAggregateKey(
		[]curve25519.Point{people[0].Account.BasePubkey(), people[1].Account.BasePubkey()}, nil)
	require.NoError(t, err)
	require.True(t, people[0].Account.MultisigPubkey().Equal(expected))
}

// 2-of-3: R=2 main rounds. Every signer ends up holding
// exactly C(2,1)=2 shares, and across the three signers there are only
// C(3,1)=3 distinct shares total (each shared by exactly 2 signers), so
// removing any one signer still leaves a spend-capable pair.
func TestTwoOfThreeShareCoverage(t *testing.T) {
	people := newParticipants(t, 3)
	s, err := host.NewSession(host.SessionConfig{Threshold: 2, Participants: []string{"A", "B", "C"}}, people, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run())

	groupKey := people[0].Account.MultisigPubkey()
	distinctShares := make(map[string]curve25519.Scalar)
	for _, p := range people {
		require.True(t, p.Account.IsReady())
		require.True(t, p.Account.MultisigPubkey().Equal(groupKey))
		require.Len(t, p.Account.MultisigPrivkeys(), 2)
		for _, sk := range p.Account.MultisigPrivkeys() {
			distinctShares[string(sk.Point().Bytes())] = sk
		}
	}
	require.Len(t, distinctShares, 3)

	// the distinct aggregated shares, summed once each, reconstruct the
	// group spend key
	sum := curve25519.NullScalar()
	for _, sk := range distinctShares {
		sum = sum.Add(sk)
	}
	require.True(t, sum.Point().Equal(groupKey))
}

// 3-of-5: R=3 main rounds, each signer ends with C(4,2)=6 shares.
func TestThreeOfFiveShareCount(t *testing.T) {
	people := newParticipants(t, 5)
	labels := []string{"A", "B", "C", "D", "E"}
	s, err := host.NewSession(host.SessionConfig{Threshold: 3, Participants: labels}, people, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run())

	groupKey := people[0].Account.MultisigPubkey()
	shareHolders := make(map[string]int)
	for _, p := range people {
		require.True(t, p.Account.IsReady())
		require.True(t, p.Account.MultisigPubkey().Equal(groupKey))
		require.Len(t, p.Account.MultisigPrivkeys(), 6)
		for _, sk := range p.Account.MultisigPrivkeys() {
			shareHolders[string(sk.Point().Bytes())]++
		}
	}

	// every component is shared by exactly N-M+1 = 3 signers, and there
	// are C(5,3) = 10 distinct components in total
	require.Len(t, shareHolders, 10)
	for _, holders := range shareHolders {
		require.Equal(t, 3, holders)
	}
}

// 2-of-3 with force update: signer A only ever hears from B,
// never from C. A non-force update must fail with IncompleteRound; a
// force update lets A and B converge on a shared key capable of
// producing composite key images between just the two of them.
func TestForceUpdateWithSilentSigner(t *testing.T) {
	people := newParticipants(t, 3)
	signers := make([]curve25519.Point, 3)
	for i, p := range people {
		signers[i] = p.Account.BasePubkey()
	}

	round1 := make([][]byte, 3)
	for i, p := range people {
		round1[i] = p.Account.NextRoundMessage()
	}
	for i, p := range people {
		others := exclude(round1, i)
		require.NoError(t, p.Account.InitializeKex(2, signers, others))
	}

	round2A := people[0].Account.NextRoundMessage()
	round2B := people[1].Account.NextRoundMessage()

	err := people[0].Account.KexUpdate([][]byte{round2B}, false)
	require.ErrorIs(t, err, multisig.ErrIncompleteRound)

	require.NoError(t, people[0].Account.KexUpdate([][]byte{round2B}, true))
	require.NoError(t, people[1].Account.KexUpdate([][]byte{round2A}, true))

	require.NoError(t, people[0].Account.KexUpdate([][]byte{people[1].Account.NextRoundMessage()}, true))
	require.NoError(t, people[1].Account.KexUpdate([][]byte{people[0].Account.NextRoundMessage()}, true))

	require.True(t, people[0].Account.IsReady())
	require.True(t, people[1].Account.IsReady())
	require.True(t, people[0].Account.MultisigPubkey().Equal(people[1].Account.MultisigPubkey()))

	outputPoint := seededScalar(99).Point()
	kiA, err := multisig.GenerateMultisigKeyImage(people[0].Account.MultisigPrivkeys(), 0, outputPoint)
	require.NoError(t, err)
	kiB, err := multisig.GenerateMultisigKeyImage(people[1].Account.MultisigPrivkeys(), 0, outputPoint)
	require.NoError(t, err)

	composite, err := multisig.GenerateMultisigCompositeKeyImage(
		people[0].Account.MultisigPrivkeys(), outputPoint, kiA, []curve25519.Point{kiB})
	require.NoError(t, err)
	require.False(t, composite.IsIdentity())
}

// A single tampered byte in a round-2 message must be rejected, leaving
// the receiving account's completed-round count unchanged. Flipping every
// bit of the last character takes it outside the base58 alphabet, so the
// message fails to parse before its signature is checked.
func TestTamperedRoundMessageLeavesAccountUnchanged(t *testing.T) {
	people := newParticipants(t, 3)
	signers := make([]curve25519.Point, 3)
	for i, p := range people {
		signers[i] = p.Account.BasePubkey()
	}

	round1 := make([][]byte, 3)
	for i, p := range people {
		round1[i] = p.Account.NextRoundMessage()
	}
	for i, p := range people {
		require.NoError(t, p.Account.InitializeKex(2, signers, exclude(round1, i)))
	}

	round2 := make([][]byte, 3)
	for i, p := range people {
		round2[i] = p.Account.NextRoundMessage()
	}

	before := people[0].Account.KexRoundsComplete()
	tampered := append([]byte{}, round2[1]...)
	tampered[len(tampered)-1] ^= 0xFF

	err := people[0].Account.KexUpdate([][]byte{tampered, round2[2]}, false)
	require.Error(t, err)
	require.Equal(t, before, people[0].Account.KexRoundsComplete())
}

func exclude(all [][]byte, skip int) [][]byte {
	out := make([][]byte, 0, len(all)-1)
	for i, m := range all {
		if i != skip {
			out = append(out, m)
		}
	}
	return out
}
