package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeASCIITrimsPadding(t *testing.T) {
	assert.Equal(t, "ABC123", DecodeASCII([]byte("ABC123\x00\x00\x00\x00")))
}

func TestDecodeRemainingKmScenario2(t *testing.T) {
	// spec.md §8 scenario 2: payload [0x26, 0x07] -> 0x0726/10 = 183.0
	km, err := DecodeTenthsScaled([]byte{0x26, 0x07})
	require.NoError(t, err)
	assert.InDelta(t, 183.0, km, 0.001)
}

func TestDecodeBoolU16(t *testing.T) {
	on, err := DecodeBoolU16(EncodeBoolU16(true))
	require.NoError(t, err)
	assert.True(t, on)

	off, err := DecodeBoolU16(EncodeBoolU16(false))
	require.NoError(t, err)
	assert.False(t, off)
}

func TestTailLightRoundTrip(t *testing.T) {
	on, err := DecodeTailLight(EncodeTailLight(true))
	require.NoError(t, err)
	assert.True(t, on)

	off, err := DecodeTailLight(EncodeTailLight(false))
	require.NoError(t, err)
	assert.False(t, off)
}

func TestDecodeFirmwareVersion(t *testing.T) {
	// 0x0134 is BCD for "01.3.4": high byte 0x01 -> major 01, low byte
	// 0x34 -> minor 3, patch 4.
	version, err := DecodeFirmwareVersion(EncodeU16LE(0x0134))
	require.NoError(t, err)
	assert.Equal(t, "01.3.4", version)
}

func TestDecodeBmsVersion(t *testing.T) {
	payload := append(EncodeU16LE(10), EncodeU16LE(20)...)
	major, minor, err := DecodeBmsVersion(payload)
	require.NoError(t, err)
	assert.EqualValues(t, 10, major)
	assert.EqualValues(t, 20, minor)
}

func TestDecodeTripData(t *testing.T) {
	payload := append(EncodeU16LE(600), EncodeU16LE(3000)...)
	seconds, meters, err := DecodeTripData(payload)
	require.NoError(t, err)
	assert.EqualValues(t, 600, seconds)
	assert.EqualValues(t, 3000, meters)
}
