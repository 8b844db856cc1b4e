package multisig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mr-tron/base58"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
)

// maxMsgPubkeys bounds msg_pubkeys so a malformed or hostile length
// prefix can't force an oversized allocation before signature
// verification has even had a chance to reject the message. The real
// bound (C(MaxSigners-1, MaxSigners/2)) is always far smaller than this.
const maxMsgPubkeys = 1 << 16

// domainTag and the version bytes are the fixed ASCII prefixes used to
// discriminate messages at parse time, before any base58 decoding or
// signature check happens.
var domainTag = []byte("MSKEX1")

const (
	versionV1 byte = 0x01 // round-1 messages never carry msg_privkey
	versionV2 byte = 0x02 // round-1 messages carry msg_privkey
)

// KexMsg is a parsed, signature-verified key-exchange message.
type KexMsg struct {
	Round      uint32
	SigningPub curve25519.Point
	MsgPubkeys []curve25519.Point
	MsgPrivkey curve25519.Scalar // null scalar unless Round == 1
}

// BuildKexMsg signs and wire-encodes a key exchange message for the given
// round, using basePriv both to derive SigningPub and to sign the payload.
// Builders always emit v2; msgPrivkey must be the null scalar for every
// round other than 1.
func BuildKexMsg(round uint32, basePriv curve25519.Scalar, msgPubkeys []curve25519.Point, msgPrivkey curve25519.Scalar) ([]byte, error) {
	if round == 0 {
		return nil, ErrInvalidConfig
	}
	if round != 1 && !msgPrivkey.IsNull() {
		return nil, ErrInvalidConfig
	}

	signingPub := basePriv.Point()
	payload := encodePayload(round, signingPub, msgPubkeys, round == 1, msgPrivkey)

	toSign := signedDigest(versionV2, payload)
	sig := curve25519.Sign(basePriv, signingPub, toSign)

	body := append(payload, sigBytes(sig)...)
	wire := append(append([]byte{}, domainTag...), versionV2)
	wire = append(wire, []byte(base58.Encode(body))...)
	return wire, nil
}

// ParseKexMsg decodes and signature-verifies a wire message, returning
// ErrMalformedMessage on any structural error and ErrBadSignature when the
// signature does not verify.
func ParseKexMsg(wire []byte) (KexMsg, error) {
	if len(wire) < len(domainTag)+1 {
		return KexMsg{}, ErrMalformedMessage
	}
	if !bytes.Equal(wire[:len(domainTag)], domainTag) {
		return KexMsg{}, ErrMalformedMessage
	}
	version := wire[len(domainTag)]
	if version != versionV1 && version != versionV2 {
		return KexMsg{}, ErrMalformedMessage
	}

	body, err := base58.Decode(string(wire[len(domainTag)+1:]))
	if err != nil {
		return KexMsg{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	round, signingPub, msgPubkeys, msgPrivkey, payload, rest, err := decodePayload(body, version)
	if err != nil {
		return KexMsg{}, err
	}

	sig, err := sigFromBytes(rest)
	if err != nil {
		return KexMsg{}, err
	}

	toSign := signedDigest(version, payload)
	if !curve25519.Verify(signingPub, toSign, sig) {
		return KexMsg{}, ErrBadSignature
	}

	return KexMsg{
		Round:      round,
		SigningPub: signingPub,
		MsgPubkeys: msgPubkeys,
		MsgPrivkey: msgPrivkey,
	}, nil
}

func signedDigest(version byte, payload []byte) []byte {
	digest := make([]byte, 0, len(domainTag)+1+len(payload))
	digest = append(digest, domainTag...)
	digest = append(digest, version)
	digest = append(digest, payload...)
	return digest
}

func encodePayload(round uint32, signingPub curve25519.Point, msgPubkeys []curve25519.Point, includePrivkey bool, msgPrivkey curve25519.Scalar) []byte {
	var buf bytes.Buffer
	writeUvarint(&buf, uint64(round))
	buf.Write(signingPub.Bytes())
	writeUvarint(&buf, uint64(len(msgPubkeys)))
	for _, k := range msgPubkeys {
		buf.Write(k.Bytes())
	}
	if includePrivkey {
		buf.Write(msgPrivkey.Bytes())
	}
	return buf.Bytes()
}

// decodePayload returns the parsed fields, the exact payload bytes consumed
// (needed to recompute the signed digest), and whatever bytes follow the
// payload (the signature).
func decodePayload(body []byte, version byte) (round uint32, signingPub curve25519.Point, msgPubkeys []curve25519.Point, msgPrivkey curve25519.Scalar, payload []byte, rest []byte, err error) {
	r := bytes.NewReader(body)
	start := len(body)

	roundU, err := binary.ReadUvarint(r)
	if err != nil {
		err = ErrMalformedMessage
		return
	}
	round = uint32(roundU)
	if round == 0 {
		err = ErrMalformedMessage
		return
	}

	signingPubBytes := make([]byte, curve25519.PointSize)
	if _, e := io.ReadFull(r, signingPubBytes); e != nil {
		err = ErrMalformedMessage
		return
	}
	signingPub, e := curve25519.PointFromBytes(signingPubBytes)
	if e != nil {
		err = ErrMalformedMessage
		return
	}

	nPubkeysU, e := binary.ReadUvarint(r)
	if e != nil {
		err = ErrMalformedMessage
		return
	}
	if nPubkeysU > maxMsgPubkeys {
		err = ErrMalformedMessage
		return
	}
	msgPubkeys = make([]curve25519.Point, nPubkeysU)
	for i := range msgPubkeys {
		kb := make([]byte, curve25519.PointSize)
		if _, e := io.ReadFull(r, kb); e != nil {
			err = ErrMalformedMessage
			return
		}
		k, e := curve25519.PointFromBytes(kb)
		if e != nil {
			err = ErrMalformedMessage
			return
		}
		msgPubkeys[i] = k
	}

	msgPrivkey = curve25519.NullScalar()
	if version == versionV2 && round == 1 {
		pk := make([]byte, curve25519.ScalarSize)
		if _, e := io.ReadFull(r, pk); e != nil {
			err = ErrMalformedMessage
			return
		}
		sk, e := curve25519.ScalarFromCanonicalBytes(pk)
		if e != nil {
			err = ErrMalformedMessage
			return
		}
		msgPrivkey = sk
	}

	consumed := start - r.Len()
	payload = body[:consumed]
	rest = body[consumed:]
	return
}

func sigBytes(sig curve25519.Signature) []byte {
	out := make([]byte, 0, curve25519.PointSize+curve25519.ScalarSize)
	out = append(out, sig.R.Bytes()...)
	out = append(out, sig.S.Bytes()...)
	return out
}

func sigFromBytes(b []byte) (curve25519.Signature, error) {
	if len(b) != curve25519.PointSize+curve25519.ScalarSize {
		return curve25519.Signature{}, ErrMalformedMessage
	}
	r, err := curve25519.PointFromBytes(b[:curve25519.PointSize])
	if err != nil {
		return curve25519.Signature{}, ErrMalformedMessage
	}
	s, err := curve25519.ScalarFromCanonicalBytes(b[curve25519.PointSize:])
	if err != nil {
		return curve25519.Signature{}, ErrMalformedMessage
	}
	return curve25519.Signature{R: r, S: s}, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}
