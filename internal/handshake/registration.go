// Package handshake drives the two MiAuth state machines — registration
// and login — described in spec.md §4.5, turning a raw transport.Transport
// into either a fresh token (Register) or an authenticated session.Session
// (Login).
//
// Grounded on the teacher's Controller/stage-sequencing shape in
// controller.go: a small struct holding its collaborators plus one
// exported method per top-level operation, with unexported step helpers
// doing one state transition each rather than a generic FSM runtime.
package handshake

import (
	"context"
	"fmt"
	"log"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/transport"
)

// RegState names a point in the registration sequence, mostly useful for
// logging and tests; callers drive Registrar.Register rather than stepping
// through these themselves.
type RegState int

const (
	RegIdle RegState = iota
	RegSentCmdGetInfo
	RegRecvRemoteInfo
	RegSentPubKey
	RegRecvScooterPubKey
	RegSentDidCt
	RegDone
)

// devIDAAD is the fixed associated data spec.md §4.5 names for the
// registration did_ct ceremony.
var devIDAAD = []byte("devID")

// zeroNonce is the fixed nonce spec.md §4.5 calls out for the one-shot
// did_ct CCM encryption: this ceremony runs exactly once per registration,
// so there is no counter to advance and no reuse risk within a single
// attempt.
var zeroNonce [cryptox.NonceLen]byte

// Registrar runs the registration handshake over a transport.Transport.
type Registrar struct {
	Transport transport.Transport
	Config    config.Config
	Logger    *log.Logger

	state RegState
}

// NewRegistrar builds a Registrar. A nil logger defaults to log.Default().
func NewRegistrar(tp transport.Transport, cfg config.Config, logger *log.Logger) *Registrar {
	if logger == nil {
		logger = log.Default()
	}
	return &Registrar{Transport: tp, Config: cfg, Logger: logger}
}

// State reports the Registrar's current step, for tests and diagnostics.
func (r *Registrar) State() RegState { return r.state }

// Register runs the full registration sequence and returns the 12-byte
// token the scooter will expect on every future login.
func (r *Registrar) Register(ctx context.Context) ([cryptox.TokenLen]byte, error) {
	upnpCh, err := r.Transport.Subscribe(ctx, transport.UPNP)
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: subscribe UPNP: %w", err)
	}
	avdtpCh, err := r.Transport.Subscribe(ctx, transport.AVDTP)
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: subscribe AVDTP: %w", err)
	}

	remoteInfo, err := r.exchangeInfo(ctx, upnpCh)
	if err != nil {
		return [cryptox.TokenLen]byte{}, err
	}

	priv, pub, err := cryptox.GenerateKeyPair()
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: generate key pair: %w", err)
	}
	r.state = RegSentPubKey
	if err := r.stepCtx(ctx, func(stepCtx context.Context) error {
		return sendPacket(stepCtx, r.Transport, transport.AVDTP, append(cmdSetKey[:], pub[:]...), r.Config.MTU)
	}); err != nil {
		return [cryptox.TokenLen]byte{}, err
	}

	scooterPub, err := r.stepRecv(ctx, avdtpCh)
	if err != nil {
		return [cryptox.TokenLen]byte{}, err
	}
	if len(scooterPub) != cryptox.PubKeyLen {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: scooter public key is %d bytes, want %d", len(scooterPub), cryptox.PubKeyLen)
	}
	r.state = RegRecvScooterPubKey
	var scooterPubArr [cryptox.PubKeyLen]byte
	copy(scooterPubArr[:], scooterPub)

	shared, err := cryptox.SharedSecret(priv, scooterPubArr)
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: shared secret: %w", err)
	}
	keys, err := cryptox.DeriveRegistrationKeys(shared[:])
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: derive registration keys: %w", err)
	}

	if len(remoteInfo) < 4 {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: remote_info is %d bytes, want at least 4", len(remoteInfo))
	}
	didCt, err := cryptox.SealCCM(keys.AKey[:], zeroNonce, remoteInfo[4:], devIDAAD)
	if err != nil {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("handshake: seal did_ct: %w", err)
	}

	r.state = RegSentDidCt
	if err := r.stepCtx(ctx, func(stepCtx context.Context) error {
		if err := sendPacket(stepCtx, r.Transport, transport.AVDTP, didCt, r.Config.MTU); err != nil {
			return err
		}
		return sendPacket(stepCtx, r.Transport, transport.AVDTP, cmdAuth[:], r.Config.MTU)
	}); err != nil {
		return [cryptox.TokenLen]byte{}, err
	}

	result, err := r.stepRecv(ctx, avdtpCh)
	if err != nil {
		return [cryptox.TokenLen]byte{}, err
	}
	if tagEqual(authErr, result) {
		return [cryptox.TokenLen]byte{}, ErrRegistrationRejected
	}
	if !tagEqual(authOK, result) {
		return [cryptox.TokenLen]byte{}, fmt.Errorf("%w: got %x during registration auth", ErrUnexpectedTag, result)
	}

	r.state = RegDone
	r.Logger.Printf("handshake: registration complete")
	return keys.Token, nil
}

func (r *Registrar) exchangeInfo(ctx context.Context, upnpCh <-chan []byte) ([]byte, error) {
	r.state = RegSentCmdGetInfo
	if err := r.stepCtx(ctx, func(stepCtx context.Context) error {
		return sendPacket(stepCtx, r.Transport, transport.UPNP, cmdGetInfo[:], r.Config.MTU)
	}); err != nil {
		return nil, err
	}

	remoteInfo, err := r.stepRecv(ctx, upnpCh)
	if err != nil {
		return nil, err
	}
	r.state = RegRecvRemoteInfo
	return remoteInfo, nil
}

func (r *Registrar) stepCtx(ctx context.Context, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.Config.HandshakeStepTimeout)
	defer cancel()
	return fn(stepCtx)
}

func (r *Registrar) stepRecv(ctx context.Context, ch <-chan []byte) ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.Config.HandshakeStepTimeout)
	defer cancel()
	return recvPacket(stepCtx, ch, r.Config.MaxReassembled)
}
