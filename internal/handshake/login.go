package handshake

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/session"
	"scooterble/transport"
)

// LoginState names a point in the login sequence (spec.md §4.5).
type LoginState int

const (
	LoginIdle LoginState = iota
	LoginSentCmdLogin
	LoginSentRandom
	LoginRecvRemote
	LoginVerified
	LoginSentInfo
	LoginDone
)

const clientRandLen = 16

// Authenticator runs the login handshake over a transport.Transport using
// a token obtained from a prior Registrar.Register.
type Authenticator struct {
	Transport transport.Transport
	Config    config.Config
	Logger    *log.Logger

	state LoginState
}

// NewAuthenticator builds an Authenticator. A nil logger defaults to
// log.Default().
func NewAuthenticator(tp transport.Transport, cfg config.Config, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	return &Authenticator{Transport: tp, Config: cfg, Logger: logger}
}

// State reports the Authenticator's current step, for tests and
// diagnostics.
func (a *Authenticator) State() LoginState { return a.state }

// Login runs the full login sequence for the given registration token and
// returns an authenticated, ready-to-use Session.
func (a *Authenticator) Login(ctx context.Context, token [cryptox.TokenLen]byte) (*session.Session, error) {
	upnpCh, err := a.Transport.Subscribe(ctx, transport.UPNP)
	if err != nil {
		return nil, fmt.Errorf("handshake: subscribe UPNP: %w", err)
	}

	a.state = LoginSentCmdLogin
	if err := a.stepCtx(ctx, func(stepCtx context.Context) error {
		return sendPacket(stepCtx, a.Transport, transport.UPNP, cmdLogin[:], a.Config.MTU)
	}); err != nil {
		return nil, err
	}

	clientRand := make([]byte, clientRandLen)
	if _, err := rand.Read(clientRand); err != nil {
		return nil, fmt.Errorf("handshake: generate client_rand: %w", err)
	}

	a.state = LoginSentRandom
	if err := a.stepCtx(ctx, func(stepCtx context.Context) error {
		return sendPacket(stepCtx, a.Transport, transport.UPNP, clientRand, a.Config.MTU)
	}); err != nil {
		return nil, err
	}

	scooterRand, err := a.stepRecv(ctx, upnpCh)
	if err != nil {
		return nil, err
	}
	remoteInfo, err := a.stepRecv(ctx, upnpCh)
	if err != nil {
		return nil, err
	}
	a.state = LoginRecvRemote

	sessKeys, err := cryptox.DeriveSessionKeys(token[:], clientRand, scooterRand)
	if err != nil {
		return nil, fmt.Errorf("handshake: derive session keys: %w", err)
	}

	expectedInfo := cryptox.HMACSHA256(sessKeys.DevKey[:], append(append([]byte{}, scooterRand...), clientRand...))
	if !cryptox.ConstantTimeEqual(remoteInfo, expectedInfo) {
		return nil, ErrAuthBadMac
	}
	a.state = LoginVerified

	localInfo := cryptox.HMACSHA256(sessKeys.AppKey[:], append(append([]byte{}, clientRand...), scooterRand...))
	a.state = LoginSentInfo
	if err := a.stepCtx(ctx, func(stepCtx context.Context) error {
		return sendPacket(stepCtx, a.Transport, transport.UPNP, localInfo, a.Config.MTU)
	}); err != nil {
		return nil, err
	}

	result, err := a.stepRecv(ctx, upnpCh)
	if err != nil {
		return nil, err
	}
	if tagEqual(loginErr, result) {
		return nil, ErrLoginRejected
	}
	if !tagEqual(loginOK, result) {
		return nil, fmt.Errorf("%w: got %x during login", ErrUnexpectedTag, result)
	}

	rxCh, err := a.Transport.Subscribe(ctx, transport.RX)
	if err != nil {
		return nil, fmt.Errorf("handshake: subscribe RX: %w", err)
	}

	a.state = LoginDone
	a.Logger.Printf("handshake: login complete")
	return session.New(a.Transport, a.Config, session.Keys{
		DevKey: sessKeys.DevKey,
		AppKey: sessKeys.AppKey,
		DevIV:  sessKeys.DevIV,
		AppIV:  sessKeys.AppIV,
	}, rxCh, a.Logger), nil
}

func (a *Authenticator) stepCtx(ctx context.Context, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, a.Config.HandshakeStepTimeout)
	defer cancel()
	return fn(stepCtx)
}

func (a *Authenticator) stepRecv(ctx context.Context, ch <-chan []byte) ([]byte, error) {
	stepCtx, cancel := context.WithTimeout(ctx, a.Config.HandshakeStepTimeout)
	defer cancel()
	return recvPacket(stepCtx, ch, a.Config.MaxReassembled)
}
