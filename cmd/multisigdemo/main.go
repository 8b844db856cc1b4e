// Command multisigdemo drives an N-participant multisig key exchange to
// completion in a single process, using an in-memory transport
// (pkg/host) in place of the file/Bitmessage transports a real wallet
// would use, and then produces a composite key image for a synthetic
// output point derived from a random scalar.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
	"github.com/smallyu/go-monero-multisig/internal/multisig"
	"github.com/smallyu/go-monero-multisig/pkg/host"
)

func main() {
	n := flag.Int("n", 3, "number of signers")
	m := flag.Int("m", 2, "signing threshold")
	verbose := flag.Bool("v", false, "log every round")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "multisigdemo: logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}

	if err := run(*n, *m, logger); err != nil {
		fmt.Fprintf(os.Stderr, "multisigdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(n, m int, logger *zap.Logger) error {
	people := make([]*host.Participant, n)
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		base, err := randomScalar()
		if err != nil {
			return fmt.Errorf("base key: %w", err)
		}
		common, err := randomScalar()
		if err != nil {
			return fmt.Errorf("common key: %w", err)
		}
		acct, err := multisig.NewAccount(base, common)
		if err != nil {
			return fmt.Errorf("new account: %w", err)
		}
		label := fmt.Sprintf("signer-%d", i+1)
		labels[i] = label
		people[i] = &host.Participant{Label: label, Account: acct}
	}

	cfg := host.SessionConfig{Threshold: uint32(m), Participants: labels}
	session, err := host.NewSession(cfg, people, logger)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	if err := session.Run(); err != nil {
		return fmt.Errorf("run kex: %w", err)
	}

	groupKey := people[0].Account.MultisigPubkey()
	fmt.Printf("%d-of-%d group ready: spend key %x, view key %x\n",
		m, n, groupKey.Bytes(), people[0].Account.CommonPubkey().Bytes())

	output, err := randomScalar()
	if err != nil {
		return fmt.Errorf("synthetic output: %w", err)
	}
	outputPoint := output.Point()

	components := make([]curve25519.Point, n)
	for i, p := range people {
		ki, err := multisig.GenerateMultisigKeyImage(p.Account.MultisigPrivkeys(), 0, outputPoint)
		if err != nil {
			return fmt.Errorf("key image component for %s: %w", p.Label, err)
		}
		components[i] = ki
	}

	composite, err := multisig.GenerateMultisigCompositeKeyImage(
		people[0].Account.MultisigPrivkeys(), outputPoint, components[0], components[1:m])
	if err != nil {
		return fmt.Errorf("composite key image: %w", err)
	}

	fmt.Printf("composite key image from %d signers: %x\n", m, composite.Bytes())
	return nil
}

func randomScalar() (curve25519.Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return curve25519.Scalar{}, err
	}
	return curve25519.ScalarFromWideBytes(wide), nil
}
