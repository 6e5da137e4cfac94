package attributes

import (
	"encoding/binary"
	"fmt"
)

// motorStatusLen is the fixed 32-byte payload length the motor_status
// attribute (0xB0) carries, per spec.md §4.6.
const motorStatusLen = 32

// MotorStatus is the decoded motor_status (0xB0) telemetry struct.
type MotorStatus struct {
	Error          uint16
	Warning        uint16
	Flags          uint16
	WorkMode       uint16
	BatteryPercent uint16
	SpeedKmh       float64
	AvgSpeedKmh    float64
	TotalDistanceM uint32
	UptimeS        uint16
	TemperatureC   float64
}

// DecodeMotorStatus parses the 32-byte motor_status payload.
//
// Byte layout (spec.md §4.7, resolved against the §8 scenario 3 worked
// example): error, warning, flags, workmode, battery_percent, speed and
// avg_speed (each u16), total_distance_m (u32), two reserved bytes, then
// uptime_s and frame_temp_deci_c (each u16), followed by 8 trailing
// reserved bytes. The two-byte gap before uptime_s isn't named in the
// attribute's prose description but is required to reproduce the worked
// example's uptime/temperature values.
func DecodeMotorStatus(b []byte) (MotorStatus, error) {
	if len(b) < motorStatusLen {
		return MotorStatus{}, fmt.Errorf("attributes: motor_status payload %d bytes, want %d", len(b), motorStatusLen)
	}

	le := binary.LittleEndian
	speedRaw := le.Uint16(b[10:12])
	avgSpeedRaw := le.Uint16(b[12:14])
	tempRaw := le.Uint16(b[22:24])

	return MotorStatus{
		Error:          le.Uint16(b[0:2]),
		Warning:        le.Uint16(b[2:4]),
		Flags:          le.Uint16(b[4:6]),
		WorkMode:       le.Uint16(b[6:8]),
		BatteryPercent: le.Uint16(b[8:10]),
		SpeedKmh:       float64(speedRaw) / 1000,
		AvgSpeedKmh:    float64(avgSpeedRaw) / 1000,
		TotalDistanceM: le.Uint32(b[14:18]),
		UptimeS:        le.Uint16(b[20:22]),
		TemperatureC:   float64(tempRaw) / 10,
	}, nil
}
