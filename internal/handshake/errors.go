package handshake

import "errors"

var (
	// ErrRegistrationRejected is returned when the scooter answers a
	// registration attempt with AUTH_ERR.
	ErrRegistrationRejected = errors.New("handshake: registration rejected by scooter")
	// ErrLoginRejected is returned when the scooter answers a login
	// attempt with LOGIN_ERR.
	ErrLoginRejected = errors.New("handshake: login rejected by scooter")
	// ErrAuthBadMac is returned when the scooter's remote_info MAC does
	// not match what this client derives from token, client_rand and
	// scooter_rand — the token is stale or wrong.
	ErrAuthBadMac = errors.New("handshake: remote_info MAC mismatch")
	// ErrHandshakeTimeout is returned when a handshake step does not
	// complete before its configured deadline.
	ErrHandshakeTimeout = errors.New("handshake: step timed out")
	// ErrUnexpectedTag is returned when a reply packet's command tag does
	// not match any tag the current state expects.
	ErrUnexpectedTag = errors.New("handshake: unexpected command tag")
)
