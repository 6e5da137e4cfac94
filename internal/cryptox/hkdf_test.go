package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRegistrationKeysDeterministic(t *testing.T) {
	secret := bytes.Repeat([]byte{0x5A}, 32)

	a, err := DeriveRegistrationKeys(secret)
	require.NoError(t, err)
	b, err := DeriveRegistrationKeys(secret)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, [TokenLen]byte{}, a.Token)
}

func TestDeriveSessionKeysDeterministic(t *testing.T) {
	token := bytes.Repeat([]byte{0x01}, TokenLen)
	clientRand := bytes.Repeat([]byte{0x02}, 16)
	scooterRand := bytes.Repeat([]byte{0x03}, 16)

	a, err := DeriveSessionKeys(token, clientRand, scooterRand)
	require.NoError(t, err)
	b, err := DeriveSessionKeys(token, clientRand, scooterRand)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Different scooter_rand must yield a different bundle.
	c, err := DeriveSessionKeys(token, clientRand, bytes.Repeat([]byte{0x04}, 16))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestLoginMACLength(t *testing.T) {
	clientRand := bytes.Repeat([]byte{0xAA}, 16)
	scooterRand := bytes.Repeat([]byte{0xBB}, 16)
	token := bytes.Repeat([]byte{0xCC}, TokenLen)

	keys, err := DeriveSessionKeys(token, clientRand, scooterRand)
	require.NoError(t, err)

	infoSent := HMACSHA256(keys.AppKey[:], append(append([]byte{}, clientRand...), scooterRand...))
	infoExpected := HMACSHA256(keys.DevKey[:], append(append([]byte{}, scooterRand...), clientRand...))

	// These are computed with different keys and different byte orders, so
	// they are not expected to match each other here; the genuine equality
	// check happens on the scooter side against its own HMAC. What this
	// test guards is the 32-byte MAC length.
	assert.Len(t, infoSent, 32)
	assert.Len(t, infoExpected, 32)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeEqual([]byte("abc"), []byte("ab")))
}
