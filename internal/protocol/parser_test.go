package protocol

import (
	"strings"
	"testing"
)

func TestParseSingle(t *testing.T) {
	p := NewParser(DialectSingle)

	tests := []struct {
		name string
		line string
		want Command
	}{
		{"temperature", "S T 23.7", SetTemperature{Value: 23.7}},
		{"negative temperature", "S T -4.5", SetTemperature{Value: -4.5}},
		{"integer temperature", "S T 21", SetTemperature{Value: 21}},
		{"humidity", "S H 41", SetHumidity{Value: 41}},
		{"moisture", "S M 1800", SetMoisture{Value: 1800}},
		{"voice", "V hello", SetVoiceText{Text: "hello"}},
		{"voice keeps inner spaces", "V LIGHTS ON", SetVoiceText{Text: "LIGHTS ON"}},
		{"voice truncated", "V ABCDEFGHIJKLMNOP", SetVoiceText{Text: "ABCDEFGHIJ"}},
		{"voice device letter is text", "V A x", SetVoiceText{Text: "A x"}},
		{"lower case", "s t 23.7", Unknown{Line: "s t 23.7"}},
		{"unknown sensor", "S X 5", Unknown{Line: "S X 5"}},
		{"non-numeric temperature", "S T warm", Unknown{Line: "S T warm"}},
		{"float humidity", "S H 41.5", Unknown{Line: "S H 41.5"}},
		{"non-numeric moisture", "S M wet", Unknown{Line: "S M wet"}},
		{"NaN temperature", "S T NaN", Unknown{Line: "S T NaN"}},
		{"Inf temperature", "S T +Inf", Unknown{Line: "S T +Inf"}},
		{"hex temperature", "S T 0x1p4", Unknown{Line: "S T 0x1p4"}},
		{"exponent temperature", "S T 2e1", Unknown{Line: "S T 2e1"}},
		{"underscore temperature", "S T 2_3.5", Unknown{Line: "S T 2_3.5"}},
		{"bare point", "S T .", Unknown{Line: "S T ."}},
		{"bare sign", "S T -", Unknown{Line: "S T -"}},
		{"leading point temperature", "S T .5", SetTemperature{Value: 0.5}},
		{"plus temperature", "S T +21.5", SetTemperature{Value: 21.5}},
		{"double space", "S  T 5", Unknown{Line: "S  T 5"}},
		{"double space before value", "S T  5", Unknown{Line: "S T  5"}},
		{"tab separator", "S\tT 5", Unknown{Line: "S\tT 5"}},
		{"missing value", "S T", Unknown{Line: "S T"}},
		{"glued prefix", "ST 5", Unknown{Line: "ST 5"}},
		{"empty voice", "V", Unknown{Line: "V"}},
		{"voice double space", "V  hi", Unknown{Line: "V  hi"}},
		{"health not in single", "H", Unknown{Line: "H"}},
		{"dual form rejected", "S A T 23.7", Unknown{Line: "S A T 23.7"}},
		{"garbage", "hello world", Unknown{Line: "hello world"}},
		{"empty", "", Unknown{Line: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseDual(t *testing.T) {
	p := NewParser(DialectDual)

	tests := []struct {
		name string
		line string
		want Command
	}{
		{"device A temperature", "S A T 23.7", SetTemperature{Device: DeviceA, Value: 23.7}},
		{"device B humidity", "S B H 55", SetHumidity{Device: DeviceB, Value: 55}},
		{"device B moisture", "S B M 900", SetMoisture{Device: DeviceB, Value: 900}},
		{"device voice", "V A hello", SetVoiceText{Device: DeviceA, Text: "hello"}},
		{"device voice truncated", "V B ABCDEFGH", SetVoiceText{Device: DeviceB, Text: "ABCDEF"}},
		{"unknown device", "S C T 1.0", Unknown{Line: "S C T 1.0"}},
		{"lower case device", "S a T 1.0", Unknown{Line: "S a T 1.0"}},
		{"single form rejected", "S T 23.7", Unknown{Line: "S T 23.7"}},
		{"voice without device", "V hello", Unknown{Line: "V hello"}},
		{"voice missing text", "V A", Unknown{Line: "V A"}},
		{"long device token", "S AB T 1.0", Unknown{Line: "S AB T 1.0"}},
		{"health not in dual", "U", Unknown{Line: "U"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMood(t *testing.T) {
	p := NewParser(DialectMood)

	tests := []struct {
		line string
		want Command
	}{
		{"H", SetHealthState{Healthy: true}},
		{"U", SetHealthState{Healthy: false}},
		{"S M 500", SetMoisture{Value: 500}},
		{"V plants are thirsty", SetVoiceText{Text: "plants are t"}},
		{"HU", Unknown{Line: "HU"}},
		{"H ", Unknown{Line: "H "}},
		{"h", Unknown{Line: "h"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := p.Parse(tt.line)
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseVoiceCapOverride(t *testing.T) {
	p := Parser{Dialect: DialectSingle, VoiceCap: 3}
	got := p.Parse("V abcdef")
	want := SetVoiceText{Text: "abc"}
	if got != want {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"S", "V", "S ", "V ", " ", "S T ", "S A", "S A T", "S A T ",
		"\x00", "S T \x00", strings.Repeat("S", MaxLineLength),
	}
	for _, d := range []Dialect{DialectSingle, DialectDual, DialectMood} {
		p := NewParser(d)
		for _, in := range inputs {
			cmd := p.Parse(in)
			if cmd == nil {
				t.Fatalf("%s: Parse(%q) returned nil", d, in)
			}
			if cmd.Kind() != KindUnknown {
				t.Errorf("%s: Parse(%q) = %v, want Unknown", d, in, cmd)
			}
		}
	}
}

func TestReply(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{SetTemperature{Value: 1}, "OK TEMP"},
		{SetHumidity{Value: 1}, "OK HUMID"},
		{SetMoisture{Value: 1}, "OK MOIST"},
		{SetVoiceText{Text: "x"}, "OK VOICE"},
		{SetTemperature{Device: DeviceA, Value: 1}, "OK A T"},
		{SetHumidity{Device: DeviceB, Value: 1}, "OK B H"},
		{SetMoisture{Device: DeviceA, Value: 1}, "OK A M"},
		{SetVoiceText{Device: DeviceB, Text: "x"}, "OK V B"},
		{SetHealthState{Healthy: true}, "OK HEALTHY"},
		{SetHealthState{Healthy: false}, "OK UNHEALTHY"},
		{Unknown{Line: "S  T 5"}, "ERR Unknown: S  T 5"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Reply(tt.cmd); got != tt.want {
				t.Errorf("Reply(%v) = %q, want %q", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		line       string
		wantOK     bool
		wantDetail string
		wantErr    bool
	}{
		{"OK TEMP", true, "TEMP", false},
		{"OK A T\r", true, "A T", false},
		{"ERR Unknown: foo", false, "Unknown: foo", false},
		{"LCD Ready", true, "LCD Ready", false},
		{"garbage", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ack, err := ParseAck(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ack.OK != tt.wantOK {
				t.Errorf("ack.OK = %v, want %v", ack.OK, tt.wantOK)
			}
			if ack.Detail != tt.wantDetail {
				t.Errorf("ack.Detail = %q, want %q", ack.Detail, tt.wantDetail)
			}
		})
	}
}

func TestAckMatches(t *testing.T) {
	ack, err := ParseAck("OK A T")
	if err != nil {
		t.Fatal(err)
	}
	if !ack.Matches(SetTemperature{Device: DeviceA}) {
		t.Error("Matches(SetTemperature A) = false, want true")
	}
	if ack.Matches(SetTemperature{Device: DeviceB}) {
		t.Error("Matches(SetTemperature B) = true, want false")
	}
}

func TestAckAnswers(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		cmd   Command
		line  string
		want  bool
	}{
		{"own ok", "OK HUMID", SetHumidity{Value: 41}, "S H 41", true},
		{"stale ok", "OK TEMP", SetHumidity{Value: 41}, "S H 41", false},
		{"own err", "ERR Unknown: S H 41", SetHumidity{Value: 41}, "S H 41", true},
		{"stale err", "ERR Unknown: S T 23.7", SetHumidity{Value: 41}, "S H 41", false},
		{"other device", "OK B T", SetTemperature{Device: DeviceA}, "S A T 20.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := ParseAck(tt.reply)
			if err != nil {
				t.Fatalf("ParseAck(%q) error = %v", tt.reply, err)
			}
			if got := ack.Answers(tt.cmd, tt.line); got != tt.want {
				t.Errorf("Answers(%v, %q) = %v, want %v", tt.cmd, tt.line, got, tt.want)
			}
		})
	}
}
