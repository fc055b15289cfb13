package protocol

import (
	"strconv"
	"strings"
)

// Parser turns assembled lines into Commands for one dialect.
//
// The grammar is strict: case-sensitive, exactly one space between fields,
// no leading or doubled spaces. Anything that does not match fails closed
// to Unknown; Parse never panics and never returns nil.
type Parser struct {
	Dialect  Dialect
	VoiceCap int // 0 means the dialect default
}

// NewParser creates a parser with the dialect's default voice cap
func NewParser(d Dialect) Parser {
	return Parser{Dialect: d, VoiceCap: d.VoiceCap()}
}

// Parse classifies one line (already stripped of the newline)
func (p Parser) Parse(line string) Command {
	if line == "" {
		return Unknown{Line: line}
	}

	var cmd Command
	switch p.Dialect {
	case DialectDual:
		cmd = p.parseDual(line)
	case DialectMood:
		cmd = p.parseMood(line)
	default:
		cmd = p.parseSingle(line)
	}
	if cmd == nil {
		return Unknown{Line: line}
	}
	return cmd
}

// S <sensor> <value> | V <text>
func (p Parser) parseSingle(line string) Command {
	switch line[0] {
	case 'S':
		f, ok := fields(line, 3)
		if !ok || f[0] != "S" || len(f[1]) != 1 {
			return nil
		}
		return setCommand(DeviceNone, Sensor(f[1][0]), f[2])
	case 'V':
		f, ok := fields(line, 2)
		if !ok || f[0] != "V" {
			return nil
		}
		return p.voice(DeviceNone, f[1])
	}
	return nil
}

// single grammar plus the bare H / U mood overrides
func (p Parser) parseMood(line string) Command {
	switch line {
	case "H":
		return SetHealthState{Healthy: true}
	case "U":
		return SetHealthState{Healthy: false}
	}
	return p.parseSingle(line)
}

// S <device> <sensor> <value> | V <device> <text>
func (p Parser) parseDual(line string) Command {
	switch line[0] {
	case 'S':
		f, ok := fields(line, 4)
		if !ok || f[0] != "S" || len(f[1]) != 1 || len(f[2]) != 1 {
			return nil
		}
		dev, ok := device(f[1])
		if !ok {
			return nil
		}
		return setCommand(dev, Sensor(f[2][0]), f[3])
	case 'V':
		f, ok := fields(line, 3)
		if !ok || f[0] != "V" || len(f[1]) != 1 {
			return nil
		}
		dev, ok := device(f[1])
		if !ok {
			return nil
		}
		return p.voice(dev, f[2])
	}
	return nil
}

func (p Parser) voice(dev Device, text string) Command {
	text = strings.TrimRight(text, " \t")
	if text == "" || text[0] == ' ' || text[0] == '\t' {
		return nil
	}
	return SetVoiceText{Device: dev, Text: truncate(text, p.voiceCap())}
}

func (p Parser) voiceCap() int {
	if p.VoiceCap > 0 {
		return p.VoiceCap
	}
	return p.Dialect.VoiceCap()
}

func setCommand(dev Device, s Sensor, raw string) Command {
	switch s {
	case SensorTemperature:
		if !isDecimal(raw) {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return SetTemperature{Device: dev, Value: v}
	case SensorHumidity:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		return SetHumidity{Device: dev, Value: v}
	case SensorMoisture:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		return SetMoisture{Device: dev, Value: v}
	}
	return nil
}

func device(s string) (Device, bool) {
	switch s {
	case "A":
		return DeviceA, true
	case "B":
		return DeviceB, true
	}
	return DeviceNone, false
}

// fields splits line into exactly n fields on single spaces. The last field
// is the remainder of the line and may itself contain spaces. Every field
// must be non-empty, so doubled or leading separators are rejected.
func fields(line string, n int) ([]string, bool) {
	f := strings.SplitN(line, " ", n)
	if len(f) != n {
		return nil, false
	}
	for _, s := range f {
		if s == "" {
			return nil, false
		}
	}
	return f, true
}

// isDecimal reports whether s is a plain decimal number: an optional sign,
// digits and at most one point. ParseFloat alone would also take hex
// floats, exponents, underscores, NaN and Inf.
func isDecimal(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	digits, point := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !point:
			point = true
		default:
			return false
		}
	}
	return digits > 0
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
