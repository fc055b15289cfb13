package protocol

import (
	"fmt"
	"strings"
)

// ReadyBanner is written once by the display unit after initialization
const ReadyBanner = "LCD Ready"

// Reply prefixes
const (
	ReplyOK    = "OK"
	ReplyError = "ERR"
)

// Reply returns the acknowledgement line the display unit writes after
// handling cmd (without the trailing newline).
func Reply(cmd Command) string {
	switch c := cmd.(type) {
	case SetTemperature:
		return setReply(c.Device, SensorTemperature, "TEMP")
	case SetHumidity:
		return setReply(c.Device, SensorHumidity, "HUMID")
	case SetMoisture:
		return setReply(c.Device, SensorMoisture, "MOIST")
	case SetVoiceText:
		if c.Device != DeviceNone {
			return fmt.Sprintf("%s V %s", ReplyOK, c.Device)
		}
		return ReplyOK + " VOICE"
	case SetHealthState:
		if c.Healthy {
			return ReplyOK + " HEALTHY"
		}
		return ReplyOK + " UNHEALTHY"
	case Unknown:
		return fmt.Sprintf("%s Unknown: %s", ReplyError, c.Line)
	}
	return fmt.Sprintf("%s Unknown: %s", ReplyError, cmd)
}

func setReply(dev Device, s Sensor, name string) string {
	if dev != DeviceNone {
		return fmt.Sprintf("%s %s %s", ReplyOK, dev, s)
	}
	return ReplyOK + " " + name
}

// Ack is a reply line as seen by the host
type Ack struct {
	OK     bool
	Detail string // text after "OK " or "ERR "
	Raw    string
}

// ParseAck parses a reply line read back from the display unit. The ready
// banner is reported as an OK ack with the banner as detail.
func ParseAck(line string) (Ack, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == ReadyBanner:
		return Ack{OK: true, Detail: line, Raw: line}, nil
	case line == ReplyOK:
		return Ack{OK: true, Raw: line}, nil
	case strings.HasPrefix(line, ReplyOK+" "):
		return Ack{OK: true, Detail: line[len(ReplyOK)+1:], Raw: line}, nil
	case strings.HasPrefix(line, ReplyError+" "):
		return Ack{OK: false, Detail: line[len(ReplyError)+1:], Raw: line}, nil
	}
	return Ack{Raw: line}, fmt.Errorf("unrecognized reply %q", line)
}

// Matches reports whether the ack is the expected reply for cmd
func (a Ack) Matches(cmd Command) bool {
	return a.Raw == Reply(cmd)
}

// Answers reports whether the ack is the display's reply to line, parsed
// on the host as cmd. An OK must match cmd; an ERR must echo line.
func (a Ack) Answers(cmd Command, line string) bool {
	if a.OK {
		return a.Matches(cmd)
	}
	return a.Raw == Reply(Unknown{Line: line})
}
