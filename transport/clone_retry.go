package transport

import (
	"context"
	"log"
)

// CloneRetry wraps a Transport and, when a handshake-step write to UPNP or
// AVDTP fails, retries the same bytes on the other of the two
// characteristics before giving up. Aftermarket "clone" controllers are
// known to swap which characteristic carries which handshake step
// (spec.md §9); genuine Ninebot/Xiaomi hardware never needs the retry, so
// this only changes behavior against clones.
//
// Grounded on the teacher's decorator-over-a-raw-connection shape
// (CGMinerClient wrapping a TCP conn in cgminer_client.go): CloneRetry
// holds the inner Transport and layers one extra behavior around Write
// without reimplementing Subscribe/Reconnect.
type CloneRetry struct {
	Transport
	logger *log.Logger
}

// NewCloneRetry wraps inner. A nil logger defaults to log.Default().
func NewCloneRetry(inner Transport, logger *log.Logger) *CloneRetry {
	if logger == nil {
		logger = log.Default()
	}
	return &CloneRetry{Transport: inner, logger: logger}
}

func opposite(ch Channel) (Channel, bool) {
	switch ch {
	case UPNP:
		return AVDTP, true
	case AVDTP:
		return UPNP, true
	default:
		return ch, false
	}
}

// Write attempts ch first; on error for a handshake channel (UPNP/AVDTP)
// it retries once on the opposite channel.
func (c *CloneRetry) Write(ctx context.Context, ch Channel, data []byte) error {
	err := c.Transport.Write(ctx, ch, data)
	if err == nil {
		return nil
	}

	alt, retryable := opposite(ch)
	if !retryable {
		return err
	}

	c.logger.Printf("clone-retry: write to %s failed (%v), retrying on %s", ch, err, alt)
	return c.Transport.Write(ctx, alt, data)
}
