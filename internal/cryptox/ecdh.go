// Package cryptox holds the cryptographic primitives the MiAuth handshake
// and session layer are built from: P-256 ECDH, the two HKDF ceremonies,
// HMAC-SHA256 verification, and AES-128-CCM sealing.
//
// Everything here is built directly on crypto/ecdh, crypto/hkdf,
// crypto/hmac and crypto/aes rather than a wrapper library — the same way
// the reference device code reaches for crypto/aes, crypto/cipher and
// crypto/sha256 directly instead of a crypto framework. AES-CCM has no
// ecosystem package to reach for (neither the standard library nor
// golang.org/x/crypto ship a CCM AEAD), so it is implemented here from the
// AES block primitive per RFC 3610; see DESIGN.md.
package cryptox

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// PubKeyLen is the length of an uncompressed P-256 public point, X || Y.
const PubKeyLen = 64

// GenerateKeyPair creates an ephemeral P-256 key pair and returns the
// public point in the uncompressed X||Y wire format the handshake sends
// over AVDTP.
func GenerateKeyPair() (*ecdh.PrivateKey, [PubKeyLen]byte, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, [PubKeyLen]byte{}, fmt.Errorf("cryptox: generate key pair: %w", err)
	}
	var pub [PubKeyLen]byte
	// crypto/ecdh's uncompressed encoding is 0x04 || X || Y; strip the
	// leading format byte to get the bare X||Y the protocol puts on the wire.
	raw := priv.PublicKey().Bytes()
	copy(pub[:], raw[1:])
	return priv, pub, nil
}

// SharedSecret performs ECDH between priv and the peer's uncompressed
// X||Y point, returning the 32-byte big-endian X coordinate of the
// resulting point.
func SharedSecret(priv *ecdh.PrivateKey, peerPub [PubKeyLen]byte) ([32]byte, error) {
	wire := make([]byte, 1+PubKeyLen)
	wire[0] = 0x04
	copy(wire[1:], peerPub[:])

	peer, err := ecdh.P256().NewPublicKey(wire)
	if err != nil {
		return [32]byte{}, fmt.Errorf("cryptox: decode peer public key: %w", err)
	}

	secret, err := priv.ECDH(peer)
	if err != nil {
		return [32]byte{}, fmt.Errorf("cryptox: ecdh: %w", err)
	}

	var out [32]byte
	copy(out[:], secret)
	return out, nil
}
