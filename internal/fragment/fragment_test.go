package fragment

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReassembleRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 18, 19, 20, 21, 200, 4096}
	for _, n := range lengths {
		payload := make([]byte, n)
		rng := rand.New(rand.NewSource(int64(n)))
		rng.Read(payload)

		chunks, err := Split(payload, DefaultMTU)
		require.NoError(t, err, "len=%d", n)

		got, err := Reassemble(chunks, 8192)
		require.NoError(t, err, "len=%d", n)
		assert.True(t, bytes.Equal(payload, got), "len=%d", n)
	}
}

func TestSplitChunkZeroAnnouncesCount(t *testing.T) {
	payload := make([]byte, 45) // mtu 20 -> 18 bytes/chunk -> 3 chunks
	chunks, err := Split(payload, DefaultMTU)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x03}, chunks[0])
	assert.Len(t, chunks, 4)
}

func TestReassembleGapFails(t *testing.T) {
	payload := make([]byte, 45)
	chunks, err := Split(payload, DefaultMTU)
	require.NoError(t, err)

	r := NewReassembler(0)
	_, _, err = r.Feed(chunks[0])
	require.NoError(t, err)
	_, _, err = r.Feed(chunks[1])
	require.NoError(t, err)
	// skip chunks[2], feed chunks[3] (seq 3 when 2 expected)
	_, _, err = r.Feed(chunks[3])
	assert.ErrorIs(t, err, ErrFragGap)
}

func TestReassembleOverflowFails(t *testing.T) {
	payload := make([]byte, 100)
	chunks, err := Split(payload, DefaultMTU)
	require.NoError(t, err)

	r := NewReassembler(50)
	var lastErr error
	for _, c := range chunks {
		_, _, lastErr = r.Feed(c)
		if lastErr != nil {
			break
		}
	}
	assert.ErrorIs(t, lastErr, ErrFragOverflow)
}

func TestReassembleMissingCountAnnouncementFails(t *testing.T) {
	r := NewReassembler(0)
	_, _, err := r.Feed([]byte{0x01, 0x00, 0xAA})
	assert.ErrorIs(t, err, ErrFragGap)
}

func TestSplitRejectsTinyMTU(t *testing.T) {
	_, err := Split([]byte{1, 2, 3}, 2)
	assert.Error(t, err)
}
