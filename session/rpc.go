package session

import (
	"context"
	"fmt"

	"scooterble/attributes"
	"scooterble/internal/frame"
)

// Attribute codes, per spec.md §4.6/§4.7.
const (
	attrSerialNumber    = 0x10
	attrFirmwareVersion = 0x1A
	attrBmsVersion      = 0x67
	attrMotorStatus     = 0xB0
	attrRemainingKm     = 0x25
	attrTripData        = 0x3A
	attrCruise          = 0x7C
	attrTailLight       = 0x7D
	attrKers            = 0x7B

	attrBatteryBasic  = 0x31
	attrBatterySerial = 0x10
	attrCellVoltages  = 0x40
)

// SerialNumber reads the main board's 14-byte ASCII serial.
func (s *Session) SerialNumber(ctx context.Context) (string, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrSerialNumber, []byte{0x0E})
	if err != nil {
		return "", err
	}
	return attributes.DecodeASCII(reply.Payload), nil
}

// FirmwareVersion reads the main board firmware version as "MM.m.p".
func (s *Session) FirmwareVersion(ctx context.Context) (string, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrFirmwareVersion, []byte{0x02})
	if err != nil {
		return "", err
	}
	return attributes.DecodeFirmwareVersion(reply.Payload)
}

// BmsVersion reads the battery management system's two u16 version words.
func (s *Session) BmsVersion(ctx context.Context) (uint16, uint16, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrBmsVersion, []byte{0x04})
	if err != nil {
		return 0, 0, err
	}
	return attributes.DecodeBmsVersion(reply.Payload)
}

// MotorStatus reads the full motor/main-board telemetry struct.
func (s *Session) MotorStatus(ctx context.Context) (attributes.MotorStatus, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrMotorStatus, []byte{0x20})
	if err != nil {
		return attributes.MotorStatus{}, err
	}
	return attributes.DecodeMotorStatus(reply.Payload)
}

// RemainingKm reads the estimated remaining range in kilometers.
func (s *Session) RemainingKm(ctx context.Context) (float64, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrRemainingKm, []byte{0x02})
	if err != nil {
		return 0, err
	}
	return attributes.DecodeTenthsScaled(reply.Payload)
}

// TripData reads the current trip's elapsed seconds and distance meters.
func (s *Session) TripData(ctx context.Context) (seconds, meters uint16, err error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrTripData, []byte{0x04})
	if err != nil {
		return 0, 0, err
	}
	return attributes.DecodeTripData(reply.Payload)
}

// CruiseRead reports whether cruise control is enabled.
func (s *Session) CruiseRead(ctx context.Context) (bool, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrCruise, []byte{0x02})
	if err != nil {
		return false, err
	}
	return attributes.DecodeBoolU16(reply.Payload)
}

// CruiseWrite enables or disables cruise control.
func (s *Session) CruiseWrite(ctx context.Context, enabled bool) error {
	_, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeWrite, attrCruise, attributes.EncodeBoolU16(enabled))
	return err
}

// TailLightRead reports whether the taillight is on.
func (s *Session) TailLightRead(ctx context.Context) (bool, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrTailLight, []byte{0x02})
	if err != nil {
		return false, err
	}
	return attributes.DecodeTailLight(reply.Payload)
}

// TailLightWrite turns the taillight on or off.
func (s *Session) TailLightWrite(ctx context.Context, on bool) error {
	_, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeWrite, attrTailLight, attributes.EncodeTailLight(on))
	return err
}

// KersLevel is the regenerative-braking strength setting.
type KersLevel uint16

const (
	KersWeak   KersLevel = 0
	KersMedium KersLevel = 1
	KersStrong KersLevel = 2
)

// KersRead reads the current KERS level.
func (s *Session) KersRead(ctx context.Context) (KersLevel, error) {
	reply, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeRead, attrKers, []byte{0x02})
	if err != nil {
		return 0, err
	}
	v, err := attributes.DecodeU16LE(reply.Payload)
	return KersLevel(v), err
}

// KersWrite sets the KERS level. level must be one of KersWeak, KersMedium
// or KersStrong.
func (s *Session) KersWrite(ctx context.Context, level KersLevel) error {
	if level > KersStrong {
		return fmt.Errorf("%w: kers level %d not in {0,1,2}", ErrInvalidArgument, level)
	}
	_, err := s.rpc(ctx, frame.DeviceMaster, frame.TypeWrite, attrKers, attributes.EncodeU16LE(uint16(level)))
	return err
}

// BatteryBasic reads capacity, charge percent, current and voltage from
// the battery controller.
func (s *Session) BatteryBasic(ctx context.Context) (attributes.BatteryBasic, error) {
	reply, err := s.rpc(ctx, frame.DeviceBattery, frame.TypeRead, attrBatteryBasic, []byte{0x0A})
	if err != nil {
		return attributes.BatteryBasic{}, err
	}
	return attributes.DecodeBatteryBasic(reply.Payload)
}

// BatterySerial reads the battery pack's serial/manufacture-date record.
func (s *Session) BatterySerial(ctx context.Context) (attributes.BatterySerial, error) {
	reply, err := s.rpc(ctx, frame.DeviceBattery, frame.TypeRead, attrBatterySerial, []byte{0x12})
	if err != nil {
		return attributes.BatterySerial{}, err
	}
	return attributes.DecodeBatterySerial(reply.Payload)
}

// CellVoltages reads the individual cell voltages, in millivolts.
func (s *Session) CellVoltages(ctx context.Context) ([]uint16, error) {
	reply, err := s.rpc(ctx, frame.DeviceBattery, frame.TypeRead, attrCellVoltages, []byte{0x1E})
	if err != nil {
		return nil, err
	}
	return attributes.DecodeCellVoltages(reply.Payload)
}
