// Package attributes decodes the fixed little-endian payloads a scooter's
// motor or battery controller returns for each attribute code, and encodes
// the small write payloads the corresponding setters send. Every decoder
// here is a flat function keyed by (device, attr) at the call site in
// session/rpc.go rather than a type hierarchy — spec.md §9 calls this out
// explicitly: no subclassing, attribute decoders are a flat table.
//
// Grounded on the teacher's BitcoinHeader encode/decode pair
// (hardware/bitcoin_header.go): fixed-offset little-endian fields read and
// written with encoding/binary rather than a reflection-based codec.
package attributes

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DecodeASCII trims trailing NUL padding from a fixed-width ASCII field.
func DecodeASCII(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// DecodeU16LE reads a little-endian uint16, erroring if b is too short.
func DecodeU16LE(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("attributes: payload %d bytes, want at least 2", len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

// EncodeU16LE writes v as a 2-byte little-endian payload.
func EncodeU16LE(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// DecodeBoolU16 reads a little-endian uint16 boolean flag (spec.md §4.7:
// "booleans for settings use u16 little-endian").
func DecodeBoolU16(b []byte) (bool, error) {
	v, err := DecodeU16LE(b)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// EncodeBoolU16 writes a u16-little-endian boolean.
func EncodeBoolU16(v bool) []byte {
	if v {
		return EncodeU16LE(1)
	}
	return EncodeU16LE(0)
}

// tailLightOn/tailLightOff are the two values the taillight attribute
// actually uses (spec.md §4.6: "u16 ∈ {0,2}"), not a plain 0/1 boolean.
const (
	tailLightOff uint16 = 0
	tailLightOn  uint16 = 2
)

// DecodeTailLight reads the taillight's on/off state.
func DecodeTailLight(b []byte) (bool, error) {
	v, err := DecodeU16LE(b)
	if err != nil {
		return false, err
	}
	return v == tailLightOn, nil
}

// EncodeTailLight writes the taillight's on/off state.
func EncodeTailLight(on bool) []byte {
	if on {
		return EncodeU16LE(tailLightOn)
	}
	return EncodeU16LE(tailLightOff)
}

// DecodeTenthsScaled reads a little-endian uint16 and scales it by 1/10,
// the convention remaining_km (and similar distance readings) uses.
func DecodeTenthsScaled(b []byte) (float64, error) {
	v, err := DecodeU16LE(b)
	if err != nil {
		return 0, err
	}
	return float64(v) / 10, nil
}

// DecodeFirmwareVersion reads the "MM.m.p" firmware version word. Per
// spec.md §4.6 the word is BCD, not a plain decimal integer: the high
// byte's two nibbles are the major version's decimal digits, and the low
// byte's high/low nibbles are the minor and patch digits.
func DecodeFirmwareVersion(b []byte) (string, error) {
	v, err := DecodeU16LE(b)
	if err != nil {
		return "", err
	}
	hi := byte(v >> 8)
	lo := byte(v)
	major := int(hi>>4)*10 + int(hi&0x0F)
	minor := lo >> 4
	patch := lo & 0x0F
	return fmt.Sprintf("%02d.%d.%d", major, minor, patch), nil
}

// DecodeBmsVersion reads the battery management system's two version
// words.
func DecodeBmsVersion(b []byte) (uint16, uint16, error) {
	if len(b) < 4 {
		return 0, 0, fmt.Errorf("attributes: bms_version payload %d bytes, want at least 4", len(b))
	}
	return binary.LittleEndian.Uint16(b[0:2]), binary.LittleEndian.Uint16(b[2:4]), nil
}

// DecodeTripData reads the current trip's elapsed seconds and distance in
// meters.
func DecodeTripData(b []byte) (seconds, meters uint16, err error) {
	if len(b) < 4 {
		return 0, 0, fmt.Errorf("attributes: trip_data payload %d bytes, want at least 4", len(b))
	}
	return binary.LittleEndian.Uint16(b[0:2]), binary.LittleEndian.Uint16(b[2:4]), nil
}
