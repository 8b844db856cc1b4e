package multisig

import (
	"errors"
	"fmt"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

// Sentinel errors that carry no extra context beyond their message.
var (
	ErrInvalidConfig      = errors.New("multisig: invalid threshold/signer configuration")
	ErrInvalidSigner      = errors.New("multisig: signer not in main subgroup or is identity")
	ErrDuplicateSigner    = errors.New("multisig: duplicate signer in signer set")
	ErrMissingSelf        = errors.New("multisig: own base pubkey not present in signer set")
	ErrNullSecret         = errors.New("multisig: secret scalar is unexpectedly null")
	ErrMalformedMessage   = errors.New("multisig: malformed kex message")
	ErrBadSignature       = errors.New("multisig: kex message signature verification failed")
	ErrWrongRound         = errors.New("multisig: kex message round mismatch")
	ErrUnknownSigner      = errors.New("multisig: message signed by a key outside the signer set")
	ErrIncompleteRound    = errors.New("multisig: insufficient distinct recommenders for this round")
	ErrUnexpectedRecCount = errors.New("multisig: key recommendation count inconsistent with round arithmetic")
	ErrPostKexMismatch    = errors.New("multisig: peers did not recommend the locally computed group keys")
	ErrOutOfRange         = errors.New("multisig: multisig key index out of range")
	// ErrAddressDerivationFail completes the taxonomy for hosts that wrap
	// an ecosystem-specific one-time-output derivation (generate_key_image_helper)
	// around GenerateMultisigCompositeKeyImage; this package never returns
	// it directly since it doesn't implement that derivation itself.
	ErrAddressDerivationFail = errors.New("multisig: key image helper failed for the given output")
	ErrAlreadyActive         = errors.New("multisig: account is already active")
	ErrNotActive             = errors.New("multisig: account is not active")
	ErrAlreadyReady          = errors.New("multisig: account has already completed key exchange")
)

// SignerError wraps one of the sentinel errors above with the round and
// the offending signer's public key, so callers can report which
// participant caused a failure without ever including a secret.
type SignerError struct {
	Round  uint32
	Signer curve25519.Point
	Reason error
}

func (e *SignerError) Error() string {
	return fmt.Sprintf("multisig: round %d, signer %x: %v", e.Round, e.Signer.Bytes(), e.Reason)
}

func (e *SignerError) Unwrap() error {
	return e.Reason
}

func newSignerError(round uint32, signer curve25519.Point, reason error) *SignerError {
	return &SignerError{Round: round, Signer: signer, Reason: reason}
}
