package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/internal/fragment"
	"scooterble/internal/frame"
	"scooterble/internal/transporttest"
	"scooterble/transport"
)

func testKeys() Keys {
	var k Keys
	for i := range k.AppKey {
		k.AppKey[i] = byte(i + 1)
	}
	for i := range k.DevKey {
		k.DevKey[i] = byte(i + 0x40)
	}
	k.AppIV = [cryptox.SessionIVLen]byte{0x01, 0x02, 0x03, 0x04}
	k.DevIV = [cryptox.SessionIVLen]byte{0x05, 0x06, 0x07, 0x08}
	return k
}

func newTestSession(t *testing.T, fake *transporttest.Fake, keys Keys) *Session {
	t.Helper()
	rxCh, err := fake.Subscribe(context.Background(), transport.RX)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.RPCTimeout = 300 * time.Millisecond
	return New(fake, cfg, keys, rxCh, nil)
}

// replyOnce waits for a TX write then notifies a single sealed reply frame
// on RX under the session's dev_key/dev_iv and counter 0.
func replyOnce(t *testing.T, fake *transporttest.Fake, keys Keys, device frame.Device, typ frame.Type, attr byte, payload []byte) {
	t.Helper()
	go func() {
		for len(fake.Writes(transport.TX)) == 0 {
			time.Sleep(time.Millisecond)
		}
		plain := frame.Encode(device, typ, attr, payload)
		nonce := cryptox.Nonce(keys.DevIV, 0)
		ciphertext, err := cryptox.SealCCM(keys.DevKey[:], nonce, plain, nil)
		require.NoError(t, err)
		wire := make([]byte, 4+len(ciphertext))
		copy(wire[4:], ciphertext)

		chunks, err := fragment.Split(wire, config.Default().MTU)
		require.NoError(t, err)
		for _, c := range chunks {
			fake.Notify(transport.RX, c)
		}
	}()
}

func TestRemainingKmRoundTrip(t *testing.T) {
	keys := testKeys()
	fake := transporttest.New()
	sess := newTestSession(t, fake, keys)
	replyOnce(t, fake, keys, frame.DeviceMotor, frame.TypeRead, 0x25, []byte{0x26, 0x07})

	km, err := sess.RemainingKm(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 183.0, km, 0.001)
}

func TestRpcTimesOutWithNoReply(t *testing.T) {
	keys := testKeys()
	fake := transporttest.New()
	sess := newTestSession(t, fake, keys)

	_, err := sess.RemainingKm(context.Background())

	assert.ErrorIs(t, err, ErrRpcTimeout)
}

func TestRpcRejectsMismatchedAttribute(t *testing.T) {
	keys := testKeys()
	fake := transporttest.New()
	sess := newTestSession(t, fake, keys)
	replyOnce(t, fake, keys, frame.DeviceMotor, frame.TypeRead, 0x99, []byte{0x00, 0x00})

	_, err := sess.RemainingKm(context.Background())

	assert.ErrorIs(t, err, ErrAttributeMismatch)
}

func TestVerifyToken(t *testing.T) {
	assert.True(t, VerifyToken([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, VerifyToken([]byte{1, 2, 3}, []byte{1, 2, 4}))
}

func TestKersWriteRejectsInvalidLevel(t *testing.T) {
	keys := testKeys()
	fake := transporttest.New()
	sess := newTestSession(t, fake, keys)

	err := sess.KersWrite(context.Background(), KersLevel(5))

	assert.ErrorIs(t, err, ErrInvalidArgument)
}
