package protocol

import (
	"fmt"
	"strconv"
)

// Dialect selects which firmware variant's grammar and layout are in use.
type Dialect string

const (
	// DialectSingle is the 2x2 single-device dashboard (TEMP/HUMID/MOIST/VOICE)
	DialectSingle Dialect = "single"
	// DialectDual is the 4x2 dashboard for two sensor units tagged A and B
	DialectDual Dialect = "dual"
	// DialectMood is the stat strip plus a healthy/unhealthy face panel
	DialectMood Dialect = "mood"
)

// Voice text caps per dialect. The cap comes from the width of the box the
// text is drawn in, not from the protocol.
const (
	VoiceCapSingle = 10
	VoiceCapDual   = 6
	VoiceCapMood   = 12
)

// ParseDialect converts a config/flag value into a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectSingle, DialectDual, DialectMood:
		return Dialect(s), nil
	case "":
		return DialectSingle, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (expected single, dual or mood)", s)
	}
}

// VoiceCap returns the voice text cap for the dialect
func (d Dialect) VoiceCap() int {
	switch d {
	case DialectDual:
		return VoiceCapDual
	case DialectMood:
		return VoiceCapMood
	default:
		return VoiceCapSingle
	}
}

// Device identifies which remote sensor unit a reading belongs to.
// DeviceNone is used by the single-device dialects.
type Device byte

const (
	DeviceNone Device = 0
	DeviceA    Device = 'A'
	DeviceB    Device = 'B'
)

// Devices lists the device letters accepted by the dual dialect, in
// layout order.
var Devices = []Device{DeviceA, DeviceB}

// ParseDevice accepts "A" or "B". An empty string maps to DeviceNone.
func ParseDevice(s string) (Device, error) {
	switch s {
	case "":
		return DeviceNone, nil
	case "A":
		return DeviceA, nil
	case "B":
		return DeviceB, nil
	default:
		return DeviceNone, fmt.Errorf("unknown device %q (expected A or B)", s)
	}
}

func (d Device) String() string {
	if d == DeviceNone {
		return ""
	}
	return string(rune(d))
}

// Sensor is the sensor letter used on the wire
type Sensor byte

const (
	SensorTemperature Sensor = 'T'
	SensorHumidity    Sensor = 'H'
	SensorMoisture    Sensor = 'M'
)

func (s Sensor) String() string {
	return string(rune(s))
}

// Kind tags the Command variants
type Kind int

const (
	KindUnknown Kind = iota
	KindSetTemperature
	KindSetHumidity
	KindSetMoisture
	KindSetVoiceText
	KindSetHealthState
)

func (k Kind) String() string {
	switch k {
	case KindSetTemperature:
		return "set_temperature"
	case KindSetHumidity:
		return "set_humidity"
	case KindSetMoisture:
		return "set_moisture"
	case KindSetVoiceText:
		return "set_voice_text"
	case KindSetHealthState:
		return "set_health_state"
	default:
		return "unknown"
	}
}

// Command is one parsed protocol line
type Command interface {
	Kind() Kind
	String() string
}

// SetTemperature sets the temperature box (S T <v> / S A T <v>)
type SetTemperature struct {
	Device Device
	Value  float64
}

func (c SetTemperature) Kind() Kind { return KindSetTemperature }

func (c SetTemperature) String() string {
	return fmt.Sprintf("SetTemperature{device=%q, value=%s}", c.Device.String(), FormatTemperature(c.Value))
}

// SetHumidity sets the humidity box (S H <v> / S A H <v>)
type SetHumidity struct {
	Device Device
	Value  int
}

func (c SetHumidity) Kind() Kind { return KindSetHumidity }

func (c SetHumidity) String() string {
	return fmt.Sprintf("SetHumidity{device=%q, value=%d}", c.Device.String(), c.Value)
}

// SetMoisture sets the moisture box (S M <v> / S A M <v>)
type SetMoisture struct {
	Device Device
	Value  int
}

func (c SetMoisture) Kind() Kind { return KindSetMoisture }

func (c SetMoisture) String() string {
	return fmt.Sprintf("SetMoisture{device=%q, value=%d}", c.Device.String(), c.Value)
}

// SetVoiceText sets the voice/message text (V <text> / V A <text>).
// Text is already truncated to the dialect's cap.
type SetVoiceText struct {
	Device Device
	Text   string
}

func (c SetVoiceText) Kind() Kind { return KindSetVoiceText }

func (c SetVoiceText) String() string {
	return fmt.Sprintf("SetVoiceText{device=%q, text=%q}", c.Device.String(), c.Text)
}

// SetHealthState forces the mood (H / U)
type SetHealthState struct {
	Healthy bool
}

func (c SetHealthState) Kind() Kind { return KindSetHealthState }

func (c SetHealthState) String() string {
	return fmt.Sprintf("SetHealthState{healthy=%v}", c.Healthy)
}

// Unknown is any line outside the grammar. Line is kept verbatim for the
// error reply.
type Unknown struct {
	Line string
}

func (c Unknown) Kind() Kind { return KindUnknown }

func (c Unknown) String() string {
	return fmt.Sprintf("Unknown{line=%q}", c.Line)
}

// SensorOf returns the device and sensor letter addressed by a Set command
func SensorOf(cmd Command) (Device, Sensor, bool) {
	switch c := cmd.(type) {
	case SetTemperature:
		return c.Device, SensorTemperature, true
	case SetHumidity:
		return c.Device, SensorHumidity, true
	case SetMoisture:
		return c.Device, SensorMoisture, true
	}
	return DeviceNone, 0, false
}

// FormatTemperature renders a temperature with one decimal, the format the
// hub sends and the display shows.
func FormatTemperature(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
