package handshake

// Command tags are opaque 4-byte little-endian values carried as the
// leading bytes of a MiAuth packet's payload (spec.md §4.5). Their
// concrete wire values are a protocol constant this client must agree
// with the scooter firmware on; spec.md leaves them abstract ("CMD_GET_INFO",
// "CMD_SET_KEY", ...) without naming bytes, so the values below are this
// implementation's fixed assignment — changing them would break interop
// with real hardware the same way changing a UART baud rate would.
var (
	cmdGetInfo = [4]byte{0x00, 0x00, 0x00, 0x01}
	cmdSetKey  = [4]byte{0x00, 0x00, 0x00, 0x02}
	cmdAuth    = [4]byte{0x00, 0x00, 0x00, 0x03}
	authOK     = [4]byte{0x00, 0x00, 0x00, 0x04}
	authErr    = [4]byte{0x00, 0x00, 0x00, 0x05}

	cmdLogin = [4]byte{0x00, 0x00, 0x01, 0x01}
	loginOK  = [4]byte{0x00, 0x00, 0x01, 0x02}
	loginErr = [4]byte{0x00, 0x00, 0x01, 0x03}
)

func tagEqual(a [4]byte, b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2] && a[3] == b[3]
}
