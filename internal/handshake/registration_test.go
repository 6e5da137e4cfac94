package handshake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/internal/fragment"
	"scooterble/internal/transporttest"
	"scooterble/transport"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.HandshakeStepTimeout = 200 * time.Millisecond
	return cfg
}

// playScooterRegistration drives the fake transport's side of the
// registration sequence on a goroutine, mirroring what a real scooter's
// firmware would send back.
func playScooterRegistration(t *testing.T, fake *transporttest.Fake, remoteInfo []byte, reject bool) {
	t.Helper()
	go func() {
		// CMD_GET_INFO arrives as a split packet on UPNP; reply with
		// remote_info once we see it.
		waitForChunks(fake, transport.UPNP, 1)
		for _, c := range mustSplit(t, remoteInfo) {
			fake.Notify(transport.UPNP, c)
		}

		// CMD_SET_KEY+pubkey arrives on AVDTP; reply with our own pubkey.
		_, scooterPub, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)
		waitForChunks(fake, transport.AVDTP, 1)
		for _, c := range mustSplit(t, scooterPub[:]) {
			fake.Notify(transport.AVDTP, c)
		}

		// did_ct + CMD_AUTH arrive on AVDTP; reply OK or ERR. AVDTP then
		// holds 10 chunks: 5 for CMD_SET_KEY+pubkey (68 bytes), 3 for
		// did_ct (19-byte remote_info tail + 4-byte tag), 2 for CMD_AUTH.
		waitForChunks(fake, transport.AVDTP, 10)
		tag := authOK
		if reject {
			tag = authErr
		}
		for _, c := range mustSplit(t, tag[:]) {
			fake.Notify(transport.AVDTP, c)
		}
	}()
}

func mustSplit(t *testing.T, payload []byte) [][]byte {
	t.Helper()
	chunks, err := fragment.Split(payload, config.Default().MTU)
	require.NoError(t, err)
	return chunks
}

func waitForChunks(fake *transporttest.Fake, ch transport.Channel, minWrites int) {
	for {
		if len(fake.Writes(ch)) >= minWrites {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRegistrationHappyPath(t *testing.T) {
	fake := transporttest.New()
	remoteInfo := append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte("scooter-device-info")...)
	playScooterRegistration(t, fake, remoteInfo, false)

	r := NewRegistrar(fake, testConfig(), nil)
	token, err := r.Register(context.Background())

	require.NoError(t, err)
	assert.Equal(t, RegDone, r.State())
	assert.NotEqual(t, [cryptox.TokenLen]byte{}, token)
}

func TestRegistrationRejected(t *testing.T) {
	fake := transporttest.New()
	remoteInfo := append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte("scooter-device-info")...)
	playScooterRegistration(t, fake, remoteInfo, true)

	r := NewRegistrar(fake, testConfig(), nil)
	_, err := r.Register(context.Background())

	assert.ErrorIs(t, err, ErrRegistrationRejected)
}

func TestRegistrationTimesOutWithNoScooter(t *testing.T) {
	fake := transporttest.New()

	r := NewRegistrar(fake, testConfig(), nil)
	_, err := r.Register(context.Background())

	assert.ErrorIs(t, err, ErrHandshakeTimeout)
	assert.Equal(t, RegSentCmdGetInfo, r.State())
}
