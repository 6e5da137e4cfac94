package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatteryBasic(t *testing.T) {
	payload := []byte{
		0x88, 0x13, // capacity 5000 mAh
		0x3C, 0x00, // percent 60
		0xCE, 0xFF, // current -50 (centi-amps)
		0xA8, 0x0F, // voltage 4008 (centi-volts)
		0x19,       // t1 25C
		0x1A,       // t2 26C
	}
	battery, err := DecodeBatteryBasic(payload)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, battery.CapacityMah)
	assert.EqualValues(t, 60, battery.PercentCharged)
	assert.EqualValues(t, -50, battery.CurrentCentiA)
	assert.EqualValues(t, 4008, battery.VoltageCentiV)
	assert.EqualValues(t, 25, battery.Temperature1C)
	assert.EqualValues(t, 26, battery.Temperature2C)
}

func TestDecodeBatterySerial(t *testing.T) {
	payload := append([]byte("PACK123456\x00\x00"), 0xE6, 0x07, 0x06, 0x0F)
	payload = append(payload, EncodeU16LE(5000)...)
	serial, err := DecodeBatterySerial(payload)
	require.NoError(t, err)
	assert.Equal(t, "PACK123456", serial.Serial)
	assert.EqualValues(t, 2022, serial.ManufactureYear)
	assert.EqualValues(t, 6, serial.ManufactureMon)
	assert.EqualValues(t, 15, serial.ManufactureDay)
	assert.EqualValues(t, 5000, serial.CapacityMah)
}

func TestDecodeCellVoltages(t *testing.T) {
	payload := make([]byte, cellVoltagesLen)
	for i := 0; i < cellVoltageCount; i++ {
		v := EncodeU16LE(uint16(3700 + i))
		copy(payload[i*2:], v)
	}
	voltages, err := DecodeCellVoltages(payload)
	require.NoError(t, err)
	require.Len(t, voltages, cellVoltageCount)
	assert.EqualValues(t, 3700, voltages[0])
	assert.EqualValues(t, 3709, voltages[9])
}
