package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSerialNumberRequest(t *testing.T) {
	got := Encode(DeviceMaster, TypeRead, 0x10, []byte{0x0E})
	want := []byte{0x55, 0xAA, 0x03, 0x20, 0x01, 0x10, 0x0E, 0xBD, 0xFF}
	assert.Equal(t, want, got)
}

func TestDecodeRemainingKmReply(t *testing.T) {
	in := []byte{0x55, 0xAA, 0x04, 0x23, 0x01, 0x25, 0x26, 0x07, 0x85, 0xFF}
	f, err := Decode(in)
	require.NoError(t, err)
	assert.Equal(t, DeviceMotor, f.Device)
	assert.Equal(t, TypeRead, f.Type)
	assert.EqualValues(t, 0x25, f.Attr)
	assert.Equal(t, []byte{0x26, 0x07}, f.Payload)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{
		{},
		{0x01},
		{0x00, 0x11, 0x22, 0x33},
		make([]byte, 64),
	} {
		encoded := Encode(DeviceBattery, TypeWrite, 0x31, payload)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, DeviceBattery, decoded.Device)
		assert.Equal(t, TypeWrite, decoded.Type)
		assert.EqualValues(t, 0x31, decoded.Attr)
		assert.Equal(t, payload, decoded.Payload)
	}
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0x55, 0xAA, 0x00})
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestDecodeBadMagic(t *testing.T) {
	in := Encode(DeviceMaster, TypeRead, 0x10, []byte{0x0E})
	in[0] = 0x00
	_, err := Decode(in)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeBadLength(t *testing.T) {
	in := Encode(DeviceMaster, TypeRead, 0x10, []byte{0x0E})
	in[2] = 0x0A
	_, err := Decode(in)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestDecodeBadChecksumOnBitFlip(t *testing.T) {
	base := Encode(DeviceMaster, TypeRead, 0x10, []byte{0x0E})
	for i := range base {
		// Flipping the length byte is covered by TestDecodeBadLength and can
		// legitimately still checksum-match a shorter/garbage buffer; skip it.
		if i == 2 {
			continue
		}
		corrupt := append([]byte(nil), base...)
		corrupt[i] ^= 0x01
		_, err := Decode(corrupt)
		assert.Error(t, err, "byte %d", i)
	}
}
