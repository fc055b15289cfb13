package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Host-side command construction. The hub builds lines with these helpers,
// then checks them against the display's parser before they go out, so a
// malformed line never reaches the serial link.

// HostVoiceCap is the longest voice text the hub sends. The display
// truncates further to its own box width.
const HostVoiceCap = 20

// BuildSetTemperature formats "S T 23.7" or, for a device, "S A T 23.7"
func BuildSetTemperature(dev Device, v float64) string {
	return buildSet(dev, SensorTemperature, FormatTemperature(v))
}

// BuildSetHumidity formats "S H 41" or "S A H 41"
func BuildSetHumidity(dev Device, v int) string {
	return buildSet(dev, SensorHumidity, strconv.Itoa(v))
}

// BuildSetMoisture formats "S M 1800" or "S A M 1800"
func BuildSetMoisture(dev Device, v int) string {
	return buildSet(dev, SensorMoisture, strconv.Itoa(v))
}

func buildSet(dev Device, s Sensor, value string) string {
	if dev != DeviceNone {
		return fmt.Sprintf("S %s %s %s", dev, s, value)
	}
	return fmt.Sprintf("S %s %s", s, value)
}

// BuildVoice formats "V <text>" or "V A <text>". Whitespace runs in text
// are collapsed to single spaces and the text is cut to HostVoiceCap.
func BuildVoice(dev Device, text string) string {
	text = truncate(strings.Join(strings.Fields(text), " "), HostVoiceCap)
	if dev != DeviceNone {
		return fmt.Sprintf("V %s %s", dev, text)
	}
	return "V " + text
}

// BuildHealth formats the mood override "H" or "U"
func BuildHealth(healthy bool) string {
	if healthy {
		return "H"
	}
	return "U"
}

// Encode returns the canonical line for cmd. Unknown commands cannot be
// encoded.
func Encode(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case SetTemperature:
		return BuildSetTemperature(c.Device, c.Value), nil
	case SetHumidity:
		return BuildSetHumidity(c.Device, c.Value), nil
	case SetMoisture:
		return BuildSetMoisture(c.Device, c.Value), nil
	case SetVoiceText:
		return BuildVoice(c.Device, c.Text), nil
	case SetHealthState:
		return BuildHealth(c.Healthy), nil
	}
	return "", fmt.Errorf("cannot encode %s", cmd)
}

// Validate parses line with the dialect's parser and returns the command,
// or an error if the display would answer ERR.
func Validate(d Dialect, line string) (Command, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, fmt.Errorf("line contains a line terminator: %q", line)
	}
	if len(line) > MaxLineLength {
		return nil, fmt.Errorf("line too long: %d bytes (max %d)", len(line), MaxLineLength)
	}
	cmd := NewParser(d).Parse(line)
	if cmd.Kind() == KindUnknown {
		return nil, fmt.Errorf("line %q is not valid in the %s dialect", line, d)
	}
	return cmd, nil
}
