package handshake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scooterble/internal/cryptox"
	"scooterble/internal/transporttest"
	"scooterble/transport"
)

// playScooterLogin drives the fake transport's side of the login
// sequence. When badMac is true it scrambles remote_info so the client's
// MAC check must fail.
func playScooterLogin(t *testing.T, fake *transporttest.Fake, token [cryptox.TokenLen]byte, badMac, reject bool) {
	t.Helper()
	go func() {
		waitForChunks(fake, transport.UPNP, 1) // CMD_LOGIN
		waitForWriteCount(fake, transport.UPNP, 2)

		clientRand := lastPacket(fake, transport.UPNP, 1)

		scooterRand := make([]byte, clientRandLen)
		for i := range scooterRand {
			scooterRand[i] = byte(i + 1)
		}

		sessKeys, err := cryptox.DeriveSessionKeys(token[:], clientRand, scooterRand)
		require.NoError(t, err)

		remoteInfo := cryptox.HMACSHA256(sessKeys.DevKey[:], append(append([]byte{}, scooterRand...), clientRand...))
		if badMac {
			remoteInfo[0] ^= 0xFF
		}

		for _, c := range mustSplit(t, scooterRand) {
			fake.Notify(transport.UPNP, c)
		}
		for _, c := range mustSplit(t, remoteInfo) {
			fake.Notify(transport.UPNP, c)
		}

		if badMac {
			return
		}

		waitForWriteCount(fake, transport.UPNP, 3)
		tag := loginOK
		if reject {
			tag = loginErr
		}
		for _, c := range mustSplit(t, tag[:]) {
			fake.Notify(transport.UPNP, c)
		}
	}()
}

func waitForWriteCount(fake *transporttest.Fake, ch transport.Channel, packetsWritten int) {
	// Polls until packetsWritten count-announcement chunks (one per
	// sendPacket call) have been written to ch, or 2s pass. A packet's
	// data chunks are written right after its announcement, in the same
	// sendPacket call.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countAnnouncements(fake.Writes(ch)) >= packetsWritten {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func countAnnouncements(chunks [][]byte) int {
	n := 0
	for _, c := range chunks {
		if len(c) >= 2 && c[0] == 0x00 {
			n++
		}
	}
	return n
}

// lastPacket reassembles the packetIndex-th (0-based) packet written to ch.
func lastPacket(fake *transporttest.Fake, ch transport.Channel, packetIndex int) []byte {
	writes := fake.Writes(ch)
	groups := splitIntoPackets(writes)
	if packetIndex >= len(groups) {
		return nil
	}
	out, err := reassembleGroup(groups[packetIndex])
	if err != nil {
		return nil
	}
	return out
}

func splitIntoPackets(writes [][]byte) [][][]byte {
	var groups [][][]byte
	var current [][]byte
	for _, c := range writes {
		if len(c) >= 2 && c[0] == 0x00 {
			if current != nil {
				groups = append(groups, current)
			}
			current = [][]byte{c}
			continue
		}
		current = append(current, c)
	}
	if current != nil {
		groups = append(groups, current)
	}
	return groups
}

func reassembleGroup(chunks [][]byte) ([]byte, error) {
	var out []byte
	for _, c := range chunks[1:] {
		out = append(out, c[2:]...)
	}
	return out, nil
}

func registerToken(t *testing.T) [cryptox.TokenLen]byte {
	t.Helper()
	fake := transporttest.New()
	remoteInfo := append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte("scooter-device-info")...)
	playScooterRegistration(t, fake, remoteInfo, false)
	r := NewRegistrar(fake, testConfig(), nil)
	token, err := r.Register(context.Background())
	require.NoError(t, err)
	return token
}

func TestLoginHappyPath(t *testing.T) {
	token := registerToken(t)
	fake := transporttest.New()
	playScooterLogin(t, fake, token, false, false)

	a := NewAuthenticator(fake, testConfig(), nil)
	sess, err := a.Login(context.Background(), token)

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, LoginDone, a.State())
}

func TestLoginBadMacRejected(t *testing.T) {
	token := registerToken(t)
	fake := transporttest.New()
	playScooterLogin(t, fake, token, true, false)

	a := NewAuthenticator(fake, testConfig(), nil)
	sess, err := a.Login(context.Background(), token)

	assert.ErrorIs(t, err, ErrAuthBadMac)
	assert.Nil(t, sess)
}

func TestLoginRejectedByScooter(t *testing.T) {
	token := registerToken(t)
	fake := transporttest.New()
	playScooterLogin(t, fake, token, false, true)

	a := NewAuthenticator(fake, testConfig(), nil)
	sess, err := a.Login(context.Background(), token)

	assert.ErrorIs(t, err, ErrLoginRejected)
	assert.Nil(t, sess)
}
