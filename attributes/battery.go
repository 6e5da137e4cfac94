package attributes

import (
	"encoding/binary"
	"fmt"
)

const (
	batteryBasicLen  = 10
	batterySerialLen = 18
	cellVoltageCount = 10
	cellVoltagesLen  = 30
)

// BatteryBasic is the decoded battery_basic (0x31) reading. CurrentCentiA
// is signed (charge is positive, discharge negative per the reference
// firmware's convention); VoltageCentiV, PercentCharged, CapacityMah and
// the two temperature readings are unsigned, per spec.md §4.6.
type BatteryBasic struct {
	CapacityMah    uint16
	PercentCharged uint16
	CurrentCentiA  int16
	VoltageCentiV  uint16
	Temperature1C  uint8
	Temperature2C  uint8
}

// DecodeBatteryBasic parses the 10-byte battery_basic payload.
func DecodeBatteryBasic(b []byte) (BatteryBasic, error) {
	if len(b) < batteryBasicLen {
		return BatteryBasic{}, fmt.Errorf("attributes: battery_basic payload %d bytes, want %d", len(b), batteryBasicLen)
	}
	le := binary.LittleEndian
	return BatteryBasic{
		CapacityMah:    le.Uint16(b[0:2]),
		PercentCharged: le.Uint16(b[2:4]),
		CurrentCentiA:  int16(le.Uint16(b[4:6])),
		VoltageCentiV:  le.Uint16(b[6:8]),
		Temperature1C:  b[8],
		Temperature2C:  b[9],
	}, nil
}

// BatterySerial is the decoded battery_serial (0x10, battery device)
// record: a 12-byte ASCII serial, a packed manufacture date, and the
// pack's rated capacity.
type BatterySerial struct {
	Serial          string
	ManufactureYear uint16
	ManufactureMon  uint8
	ManufactureDay  uint8
	CapacityMah     uint16
}

// DecodeBatterySerial parses the 18-byte battery_serial payload: 12 bytes
// ASCII serial, 2-byte LE year, 1-byte month, 1-byte day, 2-byte LE rated
// capacity.
func DecodeBatterySerial(b []byte) (BatterySerial, error) {
	if len(b) < batterySerialLen {
		return BatterySerial{}, fmt.Errorf("attributes: battery_serial payload %d bytes, want %d", len(b), batterySerialLen)
	}
	le := binary.LittleEndian
	return BatterySerial{
		Serial:          DecodeASCII(b[0:12]),
		ManufactureYear: le.Uint16(b[12:14]),
		ManufactureMon:  b[14],
		ManufactureDay:  b[15],
		CapacityMah:     le.Uint16(b[16:18]),
	}, nil
}

// DecodeCellVoltages parses the per-cell millivolt readings out of the
// cell_voltages (0x40) payload, ignoring the trailing padding bytes.
func DecodeCellVoltages(b []byte) ([]uint16, error) {
	if len(b) < cellVoltagesLen {
		return nil, fmt.Errorf("attributes: cell_voltages payload %d bytes, want %d", len(b), cellVoltagesLen)
	}
	out := make([]uint16, cellVoltageCount)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return out, nil
}
