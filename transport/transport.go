// Package transport defines the abstract BLE surface the handshake and
// session layers are driven through. The concrete BLE stack — device
// discovery, GATT connection, characteristic read/write/notify — is an
// external collaborator (spec.md §1, §4.4, §6); this package only
// specifies the interface callers implement against their platform's BLE
// library (e.g. a JNI bridge on Android, a native CoreBluetooth/BlueZ
// binding elsewhere).
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Channel identifies one of the protocol's four logical GATT
// characteristics.
type Channel int

const (
	UPNP  Channel = iota // control characteristic, handshake traffic
	AVDTP                // data characteristic, handshake public-key traffic
	TX                   // Nordic UART write characteristic, post-login requests
	RX                   // Nordic UART notify characteristic, post-login replies
)

func (c Channel) String() string {
	switch c {
	case UPNP:
		return "UPNP"
	case AVDTP:
		return "AVDTP"
	case TX:
		return "TX"
	case RX:
		return "RX"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Fixed characteristic and service identities, per spec.md §4.4 and §6.
const (
	CharUPNP  = "0010"
	CharAVDTP = "0019"

	ServiceNordicUART = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	CharTX            = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	CharRX            = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"

	ServiceXiaomiAuth = "FE95"

	AdvertisedNamePrefix = "MIScooter"
)

// AdvertisedManufacturerData is the custom AD the scooter's advertisement
// carries, per spec.md §6.
var AdvertisedManufacturerData = []byte{0xFF, 0x4E, 0x42, 0x20, 0x00, 0x00, 0x00, 0x00, 0xDF}

var (
	ErrTransportClosed = errors.New("transport: closed")
	ErrWriteFailed     = errors.New("transport: write failed")
	ErrNotifyFailed    = errors.New("transport: notify failed")
)

// Transport is the abstract BLE peripheral link consumed by the
// handshake engine and Session. Implementations must be safe for one
// writer and one subscriber per channel used concurrently with Reconnect.
type Transport interface {
	// Write sends data on ch and returns once the GATT write completes (or
	// fails). It must not block past ctx's deadline.
	Write(ctx context.Context, ch Channel, data []byte) error

	// Subscribe returns a channel of notification payloads for ch. The
	// returned channel is closed when the subscription ends (disconnect or
	// explicit unsubscribe); callers should treat a closed channel the same
	// as ErrTransportClosed.
	Subscribe(ctx context.Context, ch Channel) (<-chan []byte, error)

	// Reconnect drops and re-establishes the GATT link, clearing any prior
	// pairing state held by the peripheral side. The handshake package does
	// not call it: Registrar.Register and Authenticator.Login run on the
	// link as they find it.
	Reconnect(ctx context.Context) error
}

// Advertisement describes one scanned scooter, for callers whose BLE
// library surfaces raw advertisement data and wants help recognizing this
// protocol's devices (spec.md §6).
type Advertisement struct {
	Name             string
	ManufacturerData []byte
	ServiceUUIDs     []string
}

// Matches reports whether adv looks like a Ninebot/Xiaomi scooter
// advertisement: name prefix, custom manufacturer data, and the Nordic
// UART service UUID in the scan response.
func (adv Advertisement) Matches() bool {
	if len(adv.Name) < len(AdvertisedNamePrefix) || adv.Name[:len(AdvertisedNamePrefix)] != AdvertisedNamePrefix {
		return false
	}
	hasUART := false
	for _, u := range adv.ServiceUUIDs {
		if u == ServiceNordicUART {
			hasUART = true
			break
		}
	}
	if !hasUART {
		return false
	}

	if len(adv.ManufacturerData) < len(AdvertisedManufacturerData) {
		return false
	}
	for i, b := range AdvertisedManufacturerData {
		if adv.ManufacturerData[i] != b {
			return false
		}
	}
	return true
}
