//go:build js && wasm

// Command wasm exposes the multisig key-exchange engine to a JavaScript
// host (a browser-based wallet UI) through syscall/js bindings. It holds
// no cryptographic logic of its own: every call is a thin JSON/hex
// marshaling layer in front of package multisig.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
	"github.com/smallyu/go-monero-multisig/internal/multisig"
)

// sessions holds every account created by this JS context, keyed by a
// caller-chosen session ID. There is no concurrency here: syscall/js
// callbacks run on the single WASM goroutine, matching the engine's
// single-threaded-per-account contract.
var sessions = make(map[string]*multisig.Account)

func main() {
	c := make(chan struct{}, 0)

	fmt.Println("Go monero-multisig WASM initialized")

	js.Global().Set("GoMultisig", map[string]interface{}{
		"NewAccount":     js.FuncOf(NewAccountJS),
		"InitializeKex":  js.FuncOf(InitializeKexJS),
		"KexUpdate":      js.FuncOf(KexUpdateJS),
		"Status":         js.FuncOf(StatusJS),
		"NextMessage":    js.FuncOf(NextMessageJS),
		"CompositeImage": js.FuncOf(CompositeImageJS),
	})

	<-c
}

type newAccountParams struct {
	SessionID     string `json:"sessionID"`
	BasePrivHex   string `json:"basePrivHex"`
	BaseCommonHex string `json:"baseCommonPrivHex"`
}

// NewAccountJS(jsonParams) -> {"round1Message": "<base58>", "basePubHex": "..."} or {"error": "..."}
func NewAccountJS(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errResult("expected 1 argument (jsonParams)")
	}

	var p newAccountParams
	if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
		return errResult(fmt.Sprintf("invalid json: %v", err))
	}

	basePriv, err := scalarFromHex(p.BasePrivHex)
	if err != nil {
		return errResult(err.Error())
	}
	baseCommon, err := scalarFromHex(p.BaseCommonHex)
	if err != nil {
		return errResult(err.Error())
	}

	acct, err := multisig.NewAccount(basePriv, baseCommon)
	if err != nil {
		return errResult(err.Error())
	}
	sessions[p.SessionID] = acct

	return okResult(map[string]interface{}{
		"round1Message": string(acct.NextRoundMessage()),
		"basePubHex":    hex.EncodeToString(acct.BasePubkey().Bytes()),
	})
}

type initializeKexParams struct {
	Threshold  uint32   `json:"threshold"`
	SignerHex  []string `json:"signerHex"`
	Round1Msgs []string `json:"round1Msgs"`
}

// InitializeKexJS(sessionID, jsonParams) -> {"nextMessage": "..."} or {"error": "..."}
func InitializeKexJS(this js.Value, args []js.Value) interface{} {
	acct, err := lookup(args, 0)
	if err != nil {
		return errResult(err.Error())
	}

	var p initializeKexParams
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return errResult(fmt.Sprintf("invalid json: %v", err))
	}

	signers := make([]curve25519.Point, len(p.SignerHex))
	for i, h := range p.SignerHex {
		pt, err := pointFromHex(h)
		if err != nil {
			return errResult(err.Error())
		}
		signers[i] = pt
	}

	msgs := make([][]byte, len(p.Round1Msgs))
	for i, m := range p.Round1Msgs {
		msgs[i] = []byte(m)
	}

	if err := acct.InitializeKex(p.Threshold, signers, msgs); err != nil {
		return errResult(err.Error())
	}

	return okResult(map[string]interface{}{"nextMessage": string(acct.NextRoundMessage())})
}

type kexUpdateParams struct {
	Msgs        []string `json:"msgs"`
	ForceUpdate bool     `json:"forceUpdate"`
}

// KexUpdateJS(sessionID, jsonParams) -> {"nextMessage": "...", "ready": bool} or {"error": "..."}
func KexUpdateJS(this js.Value, args []js.Value) interface{} {
	acct, err := lookup(args, 0)
	if err != nil {
		return errResult(err.Error())
	}

	var p kexUpdateParams
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return errResult(fmt.Sprintf("invalid json: %v", err))
	}

	msgs := make([][]byte, len(p.Msgs))
	for i, m := range p.Msgs {
		msgs[i] = []byte(m)
	}

	if err := acct.KexUpdate(msgs, p.ForceUpdate); err != nil {
		return errResult(err.Error())
	}

	return okResult(map[string]interface{}{
		"nextMessage": string(acct.NextRoundMessage()),
		"ready":       acct.IsReady(),
	})
}

// StatusJS(sessionID) -> {"status", "active", "mainKexDone", "ready",
// "kexRoundsComplete", "multisigPubHex", "commonPubHex"} or {"error": "..."}
func StatusJS(this js.Value, args []js.Value) interface{} {
	acct, err := lookup(args, 0)
	if err != nil {
		return errResult(err.Error())
	}

	return okResult(map[string]interface{}{
		"status":            acct.Status().String(),
		"active":            acct.IsActive(),
		"mainKexDone":       acct.MainKexRoundsDone(),
		"ready":             acct.IsReady(),
		"kexRoundsComplete": acct.KexRoundsComplete(),
		"multisigPubHex":    hex.EncodeToString(acct.MultisigPubkey().Bytes()),
		"commonPubHex":      hex.EncodeToString(acct.CommonPubkey().Bytes()),
	})
}

// NextMessageJS(sessionID) -> {"message": "<base58>"} or {"error": "..."}
func NextMessageJS(this js.Value, args []js.Value) interface{} {
	acct, err := lookup(args, 0)
	if err != nil {
		return errResult(err.Error())
	}
	return okResult(map[string]interface{}{"message": string(acct.NextRoundMessage())})
}

type compositeImageParams struct {
	OutputPointHex    string   `json:"outputPointHex"`
	PartialImageHex   string   `json:"partialImageHex"`
	PeerComponentsHex []string `json:"peerComponentsHex"`
}

// CompositeImageJS(sessionID, jsonParams) -> {"keyImageHex": "..."} or {"error": "..."}
func CompositeImageJS(this js.Value, args []js.Value) interface{} {
	acct, err := lookup(args, 0)
	if err != nil {
		return errResult(err.Error())
	}

	var p compositeImageParams
	if err := json.Unmarshal([]byte(args[1].String()), &p); err != nil {
		return errResult(fmt.Sprintf("invalid json: %v", err))
	}

	outputPoint, err := pointFromHex(p.OutputPointHex)
	if err != nil {
		return errResult(err.Error())
	}
	partial, err := pointFromHex(p.PartialImageHex)
	if err != nil {
		return errResult(err.Error())
	}
	peers := make([]curve25519.Point, len(p.PeerComponentsHex))
	for i, h := range p.PeerComponentsHex {
		pt, err := pointFromHex(h)
		if err != nil {
			return errResult(err.Error())
		}
		peers[i] = pt
	}

	ki, err := multisig.GenerateMultisigCompositeKeyImage(acct.MultisigPrivkeys(), outputPoint, partial, peers)
	if err != nil {
		return errResult(err.Error())
	}

	return okResult(map[string]interface{}{"keyImageHex": hex.EncodeToString(ki.Bytes())})
}

func lookup(args []js.Value, idx int) (*multisig.Account, error) {
	if len(args) <= idx {
		return nil, fmt.Errorf("missing sessionID argument")
	}
	acct, ok := sessions[args[idx].String()]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	return acct, nil
}

func scalarFromHex(h string) (curve25519.Scalar, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return curve25519.Scalar{}, fmt.Errorf("invalid hex scalar: %v", err)
	}
	s, err := curve25519.ScalarFromCanonicalBytes(b)
	if err != nil {
		return curve25519.Scalar{}, fmt.Errorf("invalid scalar: %v", err)
	}
	return s, nil
}

func pointFromHex(h string) (curve25519.Point, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return curve25519.Point{}, fmt.Errorf("invalid hex point: %v", err)
	}
	p, err := curve25519.PointFromBytes(b)
	if err != nil {
		return curve25519.Point{}, fmt.Errorf("invalid point: %v", err)
	}
	return p, nil
}

func okResult(fields map[string]interface{}) string {
	b, _ := json.Marshal(fields)
	return string(b)
}

func errResult(msg string) string {
	b, _ := json.Marshal(map[string]interface{}{"error": msg})
	return string(b)
}
