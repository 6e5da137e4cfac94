// Package demoscooter drives an in-memory transporttest.Fake through the
// registration and login handshakes, then answers RPCs with canned
// telemetry, so cmd/scooterd and cmd/scootermon's -demo flag give
// operators something to poke at without a real scooter. Grounded on the
// handshake package's own test doubles (registration_test.go's
// playScooterRegistration, login_test.go's playScooterLogin,
// session_test.go's replyOnce).
package demoscooter

import (
	"context"
	"log"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/internal/frame"
	"scooterble/internal/fragment"
	"scooterble/internal/transporttest"
	"scooterble/transport"
)

// Sim is a simulated scooter peripheral sitting on the other end of a
// transporttest.Fake.
type Sim struct {
	fake   *transporttest.Fake
	cfg    config.Config
	logger *log.Logger
	done   chan struct{}

	token    [cryptox.TokenLen]byte
	sessKeys cryptox.SessionKeys
}

// New starts a Sim and returns the transport.Transport it answers on.
func New(cfg config.Config, logger *log.Logger) (transport.Transport, *Sim) {
	sim := &Sim{
		fake:   transporttest.New(),
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
	go sim.run()
	return sim.fake, sim
}

// Stop tears down the simulated link.
func (d *Sim) Stop() { close(d.done) }

func (d *Sim) run() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-d.done
		cancel()
	}()

	upnp, err := d.fake.Subscribe(ctx, transport.UPNP)
	if err != nil {
		return
	}
	avdtp, err := d.fake.Subscribe(ctx, transport.AVDTP)
	if err != nil {
		return
	}

	if !d.playRegistration(ctx, upnp, avdtp) {
		return
	}
	if d.playLogin(ctx, upnp) == nil {
		return
	}
	d.serve(ctx)
}

// playRegistration answers a Registrar's CMD_GET_INFO/CMD_SET_KEY/did_ct
// sequence with a fixed remote_info and a fresh key pair.
func (d *Sim) playRegistration(ctx context.Context, upnp, avdtp <-chan []byte) bool {
	if _, ok := recvFragmented(ctx, upnp, d.cfg.MaxReassembled); !ok {
		return false
	}
	remoteInfo := append([]byte{0x00, 0x00, 0x00, 0x01}, []byte("demo-scooter-serial")...)
	d.sendFragmented(transport.UPNP, remoteInfo)

	clientKeyMsg, ok := recvFragmented(ctx, avdtp, d.cfg.MaxReassembled)
	if !ok || len(clientKeyMsg) < 4+cryptox.PubKeyLen {
		return false
	}
	var clientPub [cryptox.PubKeyLen]byte
	copy(clientPub[:], clientKeyMsg[4:])

	priv, pub, err := cryptox.GenerateKeyPair()
	if err != nil {
		return false
	}
	d.sendFragmented(transport.AVDTP, pub[:])

	shared, err := cryptox.SharedSecret(priv, clientPub)
	if err != nil {
		return false
	}
	keys, err := cryptox.DeriveRegistrationKeys(shared[:])
	if err != nil {
		return false
	}

	if _, ok := recvFragmented(ctx, avdtp, d.cfg.MaxReassembled); !ok { // did_ct
		return false
	}
	if _, ok := recvFragmented(ctx, avdtp, d.cfg.MaxReassembled); !ok { // CMD_AUTH
		return false
	}
	d.sendFragmented(transport.AVDTP, []byte{0x00, 0x00, 0x00, 0x04}) // AUTH_OK

	d.token = keys.Token
	return true
}

func (d *Sim) playLogin(ctx context.Context, upnp <-chan []byte) []byte {
	if _, ok := recvFragmented(ctx, upnp, d.cfg.MaxReassembled); !ok { // CMD_LOGIN
		return nil
	}
	clientRand, ok := recvFragmented(ctx, upnp, d.cfg.MaxReassembled)
	if !ok {
		return nil
	}

	scooterRand := []byte("0123456789abcdef")
	d.sendFragmented(transport.UPNP, scooterRand)

	sessKeys, err := cryptox.DeriveSessionKeys(d.token[:], clientRand, scooterRand)
	if err != nil {
		return nil
	}
	d.sessKeys = sessKeys
	remoteInfo := cryptox.HMACSHA256(sessKeys.DevKey[:], append(append([]byte{}, scooterRand...), clientRand...))
	d.sendFragmented(transport.UPNP, remoteInfo)

	if _, ok := recvFragmented(ctx, upnp, d.cfg.MaxReassembled); !ok { // client's info HMAC
		return nil
	}
	d.sendFragmented(transport.UPNP, []byte{0x00, 0x00, 0x01, 0x02}) // LOGIN_OK
	return clientRand
}

// serve answers every sealed RPC on TX with a small set of canned
// telemetry replies, looping until Stop is called.
func (d *Sim) serve(ctx context.Context) {
	tx, err := d.fake.Subscribe(ctx, transport.TX)
	if err != nil {
		return
	}
	var rxCounter uint32
	reassembler := fragment.NewReassembler(d.cfg.MaxReassembled)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-tx:
			if !ok {
				return
			}
			complete, wire, err := reassembler.Feed(chunk)
			if err != nil {
				reassembler = fragment.NewReassembler(d.cfg.MaxReassembled)
				continue
			}
			if !complete {
				continue
			}
			reassembler = fragment.NewReassembler(d.cfg.MaxReassembled)
			if len(wire) < 4 {
				continue
			}
			counter := uint32LE(wire)
			nonce := cryptox.Nonce(d.sessKeys.AppIV, counter)
			plain, err := cryptox.OpenCCM(d.sessKeys.AppKey[:], nonce, wire[4:], nil)
			if err != nil {
				continue
			}
			req, err := frame.Decode(plain)
			if err != nil {
				continue
			}
			reply := d.canned(req)
			sealed, err := cryptox.SealCCM(d.sessKeys.DevKey[:], cryptox.Nonce(d.sessKeys.DevIV, rxCounter), reply, nil)
			if err != nil {
				continue
			}
			out := make([]byte, 4+len(sealed))
			putUint32LE(out, rxCounter)
			copy(out[4:], sealed)
			rxCounter++
			d.sendFragmented(transport.RX, out)
		}
	}
}

// canned returns a fixed, plausible reply frame for the handful of
// attributes this demo answers; anything else gets its request payload
// echoed back.
func (d *Sim) canned(req frame.Frame) []byte {
	replyDevice := frame.DeviceMotor
	if req.Device == frame.DeviceBattery {
		replyDevice = frame.DeviceBatRply
	}
	switch req.Attr {
	case 0x25: // remaining_km
		return frame.Encode(replyDevice, req.Type, req.Attr, []byte{0x26, 0x07})
	case 0xB0: // motor_status, the §8 scenario 3 worked example payload
		return frame.Encode(replyDevice, req.Type, req.Attr, []byte{
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x3D, 0x00, 0x00, 0x00, 0x50, 0x46, 0x8A, 0x08,
			0x00, 0x00, 0x05, 0x00, 0x7C, 0x02, 0x18, 0x01,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		})
	case 0x31: // battery_basic
		return frame.Encode(replyDevice, req.Type, req.Attr, []byte{
			0x88, 0x13, 0x3C, 0x00, 0xCE, 0xFF, 0xA8, 0x0F, 0x19, 0x1A,
		})
	case 0x10: // serial_number / battery_serial share the code; reply by device
		if req.Device == frame.DeviceBattery {
			payload := append([]byte("PACK123456\x00\x00"), 0xE6, 0x07, 0x06, 0x0F, 0x88, 0x13)
			return frame.Encode(replyDevice, req.Type, req.Attr, payload)
		}
		return frame.Encode(replyDevice, req.Type, req.Attr, []byte("DEMO00000000\x00\x00"))
	case 0x40: // cell_voltages
		payload := make([]byte, 30)
		for i := 0; i < 10; i++ {
			putUint16LE(payload[i*2:], uint16(3700+i))
		}
		return frame.Encode(replyDevice, req.Type, req.Attr, payload)
	default:
		return frame.Encode(replyDevice, req.Type, req.Attr, req.Payload)
	}
}

func (d *Sim) sendFragmented(ch transport.Channel, data []byte) {
	chunks, err := fragment.Split(data, d.cfg.MTU)
	if err != nil {
		return
	}
	for _, c := range chunks {
		d.fake.Notify(ch, c)
	}
}

func recvFragmented(ctx context.Context, ch <-chan []byte, maxBytes int) ([]byte, bool) {
	reassembler := fragment.NewReassembler(maxBytes)
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case chunk, ok := <-ch:
			if !ok {
				return nil, false
			}
			complete, data, err := reassembler.Feed(chunk)
			if err != nil {
				return nil, false
			}
			if complete {
				return data, true
			}
		}
	}
}

func putUint16LE(dst []byte, v uint16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func putUint32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func uint32LE(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}
