// Package multisig implements the M-of-N threshold multisignature key
// exchange (KEX) state machine and the composite key-image construction for
// a Cryptonote-style group spend key. The package has no dynamic dispatch,
// no concurrency, and no logging: every operation is a synchronous, pure
// transformation of an Account and its inputs.
package multisig

// MaxSigners is the hard cap on N. Beyond this the number of key shares a
// signer must hold mid-exchange, C(N-1, N-M), grows too large to be
// practical; FROST-style aggregation is the documented escape hatch,
// explicitly out of scope here.
const MaxSigners = 16

// domainMultisig and domainKeyAggregation are the fixed domain separation
// tags used across this package. They must never collide: blinding a key
// and computing its aggregation coefficient are different operations even
// when applied to the same scalar.
var (
	domainMultisig       = []byte("MoneroMultisigKeyExchange")
	domainKeyAggregation = []byte("MoneroMultisigKeyAggregation")
)
