package handshake

import (
	"context"
	"fmt"

	"scooterble/internal/fragment"
	"scooterble/transport"
)

// sendPacket fragments payload per cfg's MTU and writes every chunk, in
// order, to ch. Grounded on the teacher's CGMinerClient.sendCommand shape
// (cgminer_client.go): one small synchronous helper the state machine
// calls at each step rather than a general-purpose stream writer.
func sendPacket(ctx context.Context, tp transport.Transport, ch transport.Channel, payload []byte, mtu int) error {
	chunks, err := fragment.Split(payload, mtu)
	if err != nil {
		return fmt.Errorf("handshake: split packet for %s: %w", ch, err)
	}
	for _, c := range chunks {
		if err := tp.Write(ctx, ch, c); err != nil {
			return fmt.Errorf("handshake: write to %s: %w", ch, err)
		}
	}
	return nil
}

// recvPacket reassembles one MiAuth packet from notifCh, returning
// ErrHandshakeTimeout if ctx is done first and transport.ErrTransportClosed
// if the channel closes before reassembly completes.
func recvPacket(ctx context.Context, notifCh <-chan []byte, maxBytes int) ([]byte, error) {
	r := fragment.NewReassembler(maxBytes)
	for {
		select {
		case <-ctx.Done():
			return nil, ErrHandshakeTimeout
		case chunk, ok := <-notifCh:
			if !ok {
				return nil, transport.ErrTransportClosed
			}
			complete, payload, err := r.Feed(chunk)
			if err != nil {
				return nil, fmt.Errorf("handshake: reassemble: %w", err)
			}
			if complete {
				return payload, nil
			}
		}
	}
}
