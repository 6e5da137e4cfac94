// Package transporttest provides an in-memory transport.Transport double
// for exercising the handshake and session layers without a real BLE
// stack.
package transporttest

import (
	"context"
	"sync"

	"scooterble/transport"
)

// Fake is a transport.Transport whose writes are recorded and whose
// notifications are driven by the test via Notify.
type Fake struct {
	mu          sync.Mutex
	writes      map[transport.Channel][][]byte
	subscribers map[transport.Channel][]chan []byte
	closed      bool
	reconnects  int

	// WriteErr, if set, is returned by Write instead of recording it.
	WriteErr error
}

// New creates an empty Fake transport.
func New() *Fake {
	return &Fake{
		writes:      make(map[transport.Channel][][]byte),
		subscribers: make(map[transport.Channel][]chan []byte),
	}
}

func (f *Fake) Write(ctx context.Context, ch transport.Channel, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	cp := append([]byte(nil), data...)
	f.writes[ch] = append(f.writes[ch], cp)
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, ch transport.Channel) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := make(chan []byte, 64)
	f.subscribers[ch] = append(f.subscribers[ch], c)
	return c, nil
}

func (f *Fake) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return nil
}

// Reconnects reports how many times Reconnect was called.
func (f *Fake) Reconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

// Writes returns a copy of everything written to ch, in order.
func (f *Fake) Writes(ch transport.Channel) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes[ch]...)
}

// Notify delivers data to every current subscriber of ch, as the scooter
// would via a GATT notification.
func (f *Fake) Notify(ch transport.Channel, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	for _, c := range f.subscribers[ch] {
		c <- cp
	}
}

// Close closes every subscriber channel, simulating a dropped link.
func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, subs := range f.subscribers {
		for _, c := range subs {
			close(c)
		}
	}
}
