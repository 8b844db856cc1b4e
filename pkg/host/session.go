// Package host provides an in-memory transport and session driver for
// running a multisig key exchange end to end: something a CLI demo or a
// test can use without standing up real network plumbing. The multisig
// package itself never imports this one.
package host

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/smallyu/go-monero-multisig/internal/crypto/curve25519"
	"github.com/smallyu/go-monero-multisig/internal/multisig"
)

var (
	// ErrSessionDone is returned when a caller tries to advance a
	// session that has already produced a ready account for every
	// participant.
	ErrSessionDone = errors.New("host: session has already completed key exchange")

	// ErrUnknownParticipant is returned by NewSession when the number of
	// participants does not match the number of labels in SessionConfig.
	ErrUnknownParticipant = errors.New("host: participant not recognized in this session")
)

// SessionConfig parameterizes a key-exchange session: the threshold/N the
// accounts will be configured with, and the human-facing labels used in
// log output. Nothing here is secret.
type SessionConfig struct {
	Threshold    uint32
	Participants []string
	ForceUpdate  bool
}

func (c SessionConfig) Validate() error {
	if len(c.Participants) < 2 {
		return multisig.ErrInvalidConfig
	}
	if c.Threshold < 1 || int(c.Threshold) > len(c.Participants) {
		return multisig.ErrInvalidConfig
	}
	return nil
}

// Participant couples a live multisig Account with a human-readable
// label, used only for logging and for addressing it within a Session.
type Participant struct {
	Label   string
	Account *multisig.Account
}

// Session drives a group of Participants through initialize_kex and
// every kex_update round by broadcasting each round's outgoing messages
// to every other participant, the way a real transport would deliver
// them over the wire.
type Session struct {
	cfg    SessionConfig
	logger *zap.Logger
	people []*Participant
}

// NewSession wraps an already-seeded set of participants (each produced
// by multisig.NewAccount) into a session ready to run key exchange.
func NewSession(cfg SessionConfig, people []*Participant, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(people) != len(cfg.Participants) {
		return nil, ErrUnknownParticipant
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger, people: people}, nil
}

// signers returns the base pubkeys of every participant, in the order
// NewSession received them, ready to pass to InitializeKex.
func (s *Session) signers() []curve25519.Point {
	out := make([]curve25519.Point, len(s.people))
	for i, p := range s.people {
		out[i] = p.Account.BasePubkey()
	}
	return out
}

// Run drives the session to completion: initialize_kex with round-1
// messages, then kex_update once per remaining round, broadcasting every
// participant's outgoing message to every other participant each round.
func (s *Session) Run() error {
	if s.allReady() {
		return ErrSessionDone
	}
	signers := s.signers()

	round1 := s.collectOutgoing()
	for i, p := range s.people {
		if err := p.Account.InitializeKex(s.cfg.Threshold, signers, exclude(round1, i)); err != nil {
			return fmt.Errorf("host: participant %q failed round 1: %w", p.Label, err)
		}
		s.logger.Info("participant initialized",
			zap.String("participant", p.Label),
			zap.Uint32("kex_rounds_complete", p.Account.KexRoundsComplete()))
	}

	for !s.allReady() {
		outgoing := s.collectOutgoing()
		for i, p := range s.people {
			if err := p.Account.KexUpdate(exclude(outgoing, i), s.cfg.ForceUpdate); err != nil {
				return fmt.Errorf("host: participant %q failed round %d: %w", p.Label, p.Account.KexRoundsComplete()+1, err)
			}
			s.logger.Info("participant advanced",
				zap.String("participant", p.Label),
				zap.Uint32("kex_rounds_complete", p.Account.KexRoundsComplete()))
		}
	}

	s.logger.Info("session complete", zap.Int("participants", len(s.people)))
	return nil
}

func (s *Session) allReady() bool {
	for _, p := range s.people {
		if !p.Account.IsReady() {
			return false
		}
	}
	return true
}

func (s *Session) collectOutgoing() [][]byte {
	out := make([][]byte, len(s.people))
	for i, p := range s.people {
		out[i] = p.Account.NextRoundMessage()
	}
	return out
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
