// Package session implements the post-login request/reply cycle over the
// Nordic UART characteristics: frame composition, AES-CCM sealing with
// per-direction monotonic counters, fragmentation, and reassembly, wrapped
// in typed RPCs per spec.md §4.6.
//
// Grounded on the teacher's CGMinerClient (cgminer_client.go): a struct
// holding one connection plus a mutex serializing request/reply pairs,
// with a generic send-and-wait-for-matching-reply core that typed methods
// are built on top of.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"scooterble/internal/config"
	"scooterble/internal/cryptox"
	"scooterble/internal/fragment"
	"scooterble/internal/frame"
	"scooterble/transport"
)

var (
	ErrRpcTimeout        = fmt.Errorf("session: rpc timed out")
	ErrAttributeMismatch = fmt.Errorf("session: reply attribute does not match request")
	ErrDecryptFailed     = fmt.Errorf("session: decrypt failed")
	ErrNotAuthenticated  = fmt.Errorf("session: no active session")
	ErrInvalidArgument   = fmt.Errorf("session: invalid argument")
)

// Keys is the per-direction key/IV bundle a Session encrypts and decrypts
// under, produced by the login handshake's HKDF ceremony.
type Keys struct {
	DevKey [cryptox.SessionKeyLen]byte
	AppKey [cryptox.SessionKeyLen]byte
	DevIV  [cryptox.SessionIVLen]byte
	AppIV  [cryptox.SessionIVLen]byte
}

// Session is one authenticated, encrypted link to a scooter's Nordic UART
// service. It is safe for concurrent use: RPCs are serialized internally,
// matching the protocol's single-request-in-flight model (spec.md §4.6).
type Session struct {
	transport transport.Transport
	cfg       config.Config
	logger    *log.Logger
	keys      Keys

	mu         sync.Mutex
	txCounter  uint32
	rxHighSeen uint32
	notifyCh   <-chan []byte
}

// New builds a Session over an already-subscribed RX channel. Callers
// normally obtain a Session from handshake.Login rather than calling this
// directly.
func New(tp transport.Transport, cfg config.Config, keys Keys, notifyCh <-chan []byte, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{transport: tp, cfg: cfg, keys: keys, notifyCh: notifyCh, logger: logger}
}

// VerifyToken reports whether got matches want in constant time — the
// supplemented guard spec.md §5 calls for wherever a token or MAC crosses
// a trust boundary, not just inside the handshake.
func VerifyToken(got, want []byte) bool {
	return cryptox.ConstantTimeEqual(got, want)
}

// rpc composes a request frame, seals it, fragments and writes it to TX,
// then waits for a matching decrypted reply on RX. attr on the reply must
// match the request's attr or ErrAttributeMismatch is returned.
func (s *Session) rpc(ctx context.Context, device frame.Device, typ frame.Type, attr byte, payload []byte) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rpcCtx, cancel := context.WithTimeout(ctx, s.cfg.RPCTimeout)
	defer cancel()

	plain := frame.Encode(device, typ, attr, payload)
	nonce := cryptox.Nonce(s.keys.AppIV, s.txCounter)
	ciphertext, err := cryptox.SealCCM(s.keys.AppKey[:], nonce, plain, nil)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("session: seal request: %w", err)
	}

	wire := make([]byte, 4+len(ciphertext))
	putUint32LE(wire, s.txCounter)
	copy(wire[4:], ciphertext)
	s.txCounter++

	if err := s.writeFragmented(rpcCtx, wire); err != nil {
		return frame.Frame{}, err
	}

	reply, err := s.awaitReply(rpcCtx)
	if err != nil {
		return frame.Frame{}, err
	}
	if reply.Attr != attr {
		return frame.Frame{}, fmt.Errorf("%w: want attr 0x%02x, got 0x%02x", ErrAttributeMismatch, attr, reply.Attr)
	}
	if want := replyDevice(device); reply.Device != want {
		return frame.Frame{}, fmt.Errorf("%w: want device 0x%02x, got 0x%02x", ErrAttributeMismatch, want, reply.Device)
	}
	return reply, nil
}

// replyDevice maps a request's target device to the device code its
// controller replies with: the motor controller answers 0x20 requests as
// 0x23, the battery controller answers 0x22 requests as 0x25 (spec.md
// §4.6, §8 scenario 2).
func replyDevice(request frame.Device) frame.Device {
	switch request {
	case frame.DeviceBattery:
		return frame.DeviceBatRply
	default:
		return frame.DeviceMotor
	}
}

func (s *Session) writeFragmented(ctx context.Context, sealed []byte) error {
	chunks, err := fragment.Split(sealed, s.cfg.MTU)
	if err != nil {
		return fmt.Errorf("session: split request: %w", err)
	}
	for _, c := range chunks {
		if err := s.transport.Write(ctx, transport.TX, c); err != nil {
			return fmt.Errorf("session: write TX: %w", err)
		}
	}
	return nil
}

func (s *Session) awaitReply(ctx context.Context) (frame.Frame, error) {
	r := fragment.NewReassembler(s.cfg.MaxReassembled)
	for {
		select {
		case <-ctx.Done():
			return frame.Frame{}, ErrRpcTimeout
		case chunk, ok := <-s.notifyCh:
			if !ok {
				return frame.Frame{}, transport.ErrTransportClosed
			}
			complete, sealed, err := r.Feed(chunk)
			if err != nil {
				return frame.Frame{}, fmt.Errorf("session: reassemble reply: %w", err)
			}
			if !complete {
				continue
			}
			return s.decryptReply(sealed)
		}
	}
}

func (s *Session) decryptReply(wire []byte) (frame.Frame, error) {
	if len(wire) < 4 {
		return frame.Frame{}, fmt.Errorf("%w: reply shorter than counter prefix", ErrDecryptFailed)
	}
	counter := uint32LE(wire)
	ciphertext := wire[4:]

	nonce := cryptox.Nonce(s.keys.DevIV, counter)
	plain, err := cryptox.OpenCCM(s.keys.DevKey[:], nonce, ciphertext, nil)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	if s.cfg.RXCounterPolicy == config.CounterMonotonic && counter < s.rxHighSeen {
		return frame.Frame{}, fmt.Errorf("session: rx_counter %d below highest seen %d", counter, s.rxHighSeen)
	}
	if counter > s.rxHighSeen {
		s.rxHighSeen = counter
	} else if counter < s.rxHighSeen {
		s.logger.Printf("session: rx_counter %d is below highest seen %d (informational)", counter, s.rxHighSeen)
	}

	f, err := frame.Decode(plain)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("session: decode reply frame: %w", err)
	}
	return f, nil
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
