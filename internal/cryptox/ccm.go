package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// NonceLen and TagLen are fixed by the protocol: a 12-byte nonce and a
// 4-byte authentication tag, per spec.md §3 and §4.2.
const (
	NonceLen = 12
	TagLen   = 4

	blockSize = aes.BlockSize
	// lenFieldSize is RFC 3610's "L" parameter: 15 - len(nonce).
	lenFieldSize = 15 - NonceLen
)

var ErrAuthTag = errors.New("cryptox: ccm authentication failed")

// Nonce builds the 12-byte AES-CCM nonce from a per-direction IV and the
// monotonic counter for that direction: iv || 0x00000000 || counter_le.
func Nonce(iv [SessionIVLen]byte, counter uint32) [NonceLen]byte {
	var n [NonceLen]byte
	copy(n[0:4], iv[:])
	// bytes 4:8 are the fixed zero block spec.md §3 specifies
	n[8] = byte(counter)
	n[9] = byte(counter >> 8)
	n[10] = byte(counter >> 16)
	n[11] = byte(counter >> 24)
	return n
}

// SealCCM encrypts plaintext under key/nonce/aad and appends a 4-byte tag.
func SealCCM(key []byte, nonce [NonceLen]byte, plaintext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: ccm cipher: %w", err)
	}

	mac, err := cbcMAC(block, nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}

	s0 := counterBlock(block, nonce, 0)
	tag := make([]byte, TagLen)
	for i := range tag {
		tag[i] = mac[i] ^ s0[i]
	}

	out := make([]byte, len(plaintext)+TagLen)
	ctrCrypt(block, nonce, plaintext, out[:len(plaintext)])
	copy(out[len(plaintext):], tag)
	return out, nil
}

// OpenCCM verifies and decrypts a SealCCM output, returning ErrAuthTag on
// tag mismatch (wrapped when the input is shorter than a tag) without
// releasing the (incorrect) plaintext.
func OpenCCM(key []byte, nonce [NonceLen]byte, ciphertextAndTag, aad []byte) ([]byte, error) {
	if len(ciphertextAndTag) < TagLen {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrAuthTag)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: ccm cipher: %w", err)
	}

	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-TagLen]
	gotTag := ciphertextAndTag[len(ciphertextAndTag)-TagLen:]

	plaintext := make([]byte, len(ciphertext))
	ctrCrypt(block, nonce, ciphertext, plaintext)

	mac, err := cbcMAC(block, nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}
	s0 := counterBlock(block, nonce, 0)
	wantTag := make([]byte, TagLen)
	for i := range wantTag {
		wantTag[i] = mac[i] ^ s0[i]
	}

	if !ConstantTimeEqual(gotTag, wantTag) {
		return nil, ErrAuthTag
	}
	return plaintext, nil
}

// counterBlock encrypts RFC 3610 counter block i (flags=L-1, nonce, i as an
// L-byte big-endian counter).
func counterBlock(block cipher.Block, nonce [NonceLen]byte, i uint64) [blockSize]byte {
	var ctr [blockSize]byte
	ctr[0] = byte(lenFieldSize - 1)
	copy(ctr[1:1+NonceLen], nonce[:])
	putCounter(ctr[1+NonceLen:], i)

	var out [blockSize]byte
	block.Encrypt(out[:], ctr[:])
	return out
}

func putCounter(dst []byte, i uint64) {
	for j := len(dst) - 1; j >= 0; j-- {
		dst[j] = byte(i)
		i >>= 8
	}
}

// ctrCrypt XORs src with the CCM keystream (counter blocks starting at 1)
// into dst. Encryption and decryption are the same operation.
func ctrCrypt(block cipher.Block, nonce [NonceLen]byte, src, dst []byte) {
	for offset := 0; offset < len(src); offset += blockSize {
		s := counterBlock(block, nonce, uint64(offset/blockSize)+1)
		end := offset + blockSize
		if end > len(src) {
			end = len(src)
		}
		for i := offset; i < end; i++ {
			dst[i] = src[i] ^ s[i-offset]
		}
	}
}

// cbcMAC computes the RFC 3610 CBC-MAC over B0 (flags/nonce/length),
// the AAD block(s), and the zero-padded plaintext blocks.
func cbcMAC(block cipher.Block, nonce [NonceLen]byte, plaintext, aad []byte) ([blockSize]byte, error) {
	if len(aad) >= 0xFF00 {
		return [blockSize]byte{}, fmt.Errorf("cryptox: aad too long for 2-byte length encoding")
	}

	var b0 [blockSize]byte
	flags := byte(lenFieldSize - 1)
	flags |= 1 << 3 // (M-2)/2 for M=TagLen(4) == 1
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	b0[0] = flags
	copy(b0[1:1+NonceLen], nonce[:])
	putCounter(b0[1+NonceLen:], uint64(len(plaintext)))

	var mac [blockSize]byte
	block.Encrypt(mac[:], b0[:])

	if len(aad) > 0 {
		adataBlocks := encodeAdata(aad)
		for off := 0; off < len(adataBlocks); off += blockSize {
			xorBlockInto(mac[:], adataBlocks[off:off+blockSize])
			block.Encrypt(mac[:], mac[:])
		}
	}

	for off := 0; off < len(plaintext); off += blockSize {
		end := off + blockSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		var chunk [blockSize]byte
		copy(chunk[:], plaintext[off:end])
		xorBlockInto(mac[:], chunk[:])
		block.Encrypt(mac[:], mac[:])
	}

	return mac, nil
}

// encodeAdata prefixes aad with its 2-byte big-endian length and
// zero-pads the result out to a whole number of 16-byte blocks.
func encodeAdata(aad []byte) []byte {
	total := 2 + len(aad)
	if rem := total % blockSize; rem != 0 {
		total += blockSize - rem
	}
	out := make([]byte, total)
	out[0] = byte(len(aad) >> 8)
	out[1] = byte(len(aad))
	copy(out[2:], aad)
	return out
}

func xorBlockInto(dst []byte, src []byte) {
	for i := 0; i < blockSize; i++ {
		dst[i] ^= src[i]
	}
}
