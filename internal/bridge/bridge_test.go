package bridge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/firmware"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/serialport"
)

// displayPort is an in-memory serial port with a display unit on the
// other end
type displayPort struct {
	mu       sync.Mutex
	ctrl     *firmware.Controller
	out      bytes.Buffer
	written  bytes.Buffer
	silent   bool
	writeErr error
	closed   bool
	// late is queued ahead of the reply to the next write
	late     string
}

func newDisplayPort(t *testing.T, d protocol.Dialect) *displayPort {
	t.Helper()
	p := &displayPort{}
	ctrl, err := firmware.New(firmware.Config{Dialect: d}, display.LogRenderer{}, &p.out)
	if err != nil {
		t.Fatalf("firmware.New() error = %v", err)
	}
	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	p.ctrl = ctrl
	return p
}

func (p *displayPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out.Len() == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		p.mu.Lock()
		return 0, nil
	}
	return p.out.Read(b)
}

func (p *displayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written.Write(b)
	if p.late != "" {
		p.out.WriteString(p.late)
		p.late = ""
	}
	if !p.silent {
		p.ctrl.Feed(b)
	}
	return len(b), nil
}

func (p *displayPort) Drain() error { return nil }

func (p *displayPort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Reset()
	return nil
}

func (p *displayPort) SetReadTimeout(time.Duration) error { return nil }

func (p *displayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func connectedBridge(t *testing.T, cfg Config, port *displayPort, opts ...Option) *Bridge {
	t.Helper()
	if cfg.Port == "" {
		cfg.Port = "/dev/ttyTEST"
	}
	opts = append(opts,
		WithOpener(func(serialport.Config) (serialport.Port, error) { return port, nil }),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	b, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBridgeSendDual(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectDual)
	b := connectedBridge(t, Config{Dialect: protocol.DialectDual}, port)

	ack, err := b.Send(context.Background(), "S A T 23.7")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ack.Raw != "OK A T" {
		t.Errorf("reply = %q, want %q", ack.Raw, "OK A T")
	}

	got := port.ctrl.State().DisplayValue(display.BoxID{Device: protocol.DeviceA, Kind: display.KindTemp})
	if got != "23.7C" {
		t.Errorf("display shows %q, want %q", got, "23.7C")
	}
	if port.written.String() != "S A T 23.7\n" {
		t.Errorf("written = %q", port.written.String())
	}
}

func TestBridgeTypedHelpers(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectSingle)
	b := connectedBridge(t, Config{}, port)
	ctx := context.Background()

	tests := []struct {
		name string
		send func() (protocol.Ack, error)
		want string
	}{
		{"temperature", func() (protocol.Ack, error) { return b.SendTemperature(ctx, protocol.DeviceNone, 21) }, "OK TEMP"},
		{"humidity", func() (protocol.Ack, error) { return b.SendHumidity(ctx, protocol.DeviceNone, 41) }, "OK HUMID"},
		{"moisture", func() (protocol.Ack, error) { return b.SendMoisture(ctx, protocol.DeviceNone, 1800) }, "OK MOIST"},
		{"voice", func() (protocol.Ack, error) { return b.SendVoice(ctx, protocol.DeviceNone, "lights on") }, "OK VOICE"},
		{"command", func() (protocol.Ack, error) {
			return b.SendCommand(ctx, protocol.SetHumidity{Value: 50})
		}, "OK HUMID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := tt.send()
			if err != nil {
				t.Fatalf("send error = %v", err)
			}
			if ack.Raw != tt.want {
				t.Errorf("reply = %q, want %q", ack.Raw, tt.want)
			}
		})
	}

	if got := port.ctrl.State().DisplayValue(display.BoxID{Kind: display.KindTemp}); got != "21.0C" {
		t.Errorf("TEMP = %q, want %q", got, "21.0C")
	}
	if stats := b.Stats(); stats.Sent != 5 || stats.Failed != 0 || stats.LastReply != "OK HUMID" {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestBridgeConnectWaitsForReset(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectSingle)
	var slept time.Duration
	b, err := New(Config{Port: "/dev/ttyTEST"},
		WithOpener(func(serialport.Config) (serialport.Port, error) { return port, nil }),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if slept != DefaultResetDelay {
		t.Errorf("reset wait = %v, want %v", slept, DefaultResetDelay)
	}
	if port.out.Len() != 0 {
		t.Errorf("boot output not discarded: %q", port.out.String())
	}
	if !b.Connected() {
		t.Error("Connected() = false after Connect")
	}
}

func TestBridgeConnectFailure(t *testing.T) {
	b, err := New(Config{Port: "/dev/ttyMISSING"},
		WithOpener(func(serialport.Config) (serialport.Port, error) {
			return nil, errors.New("open /dev/ttyMISSING: no such device")
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	err = b.Connect(context.Background())
	if !IsPortError(err) {
		t.Fatalf("Connect() error = %v, want port error", err)
	}
	if b.Connected() {
		t.Error("Connected() = true after failed Connect")
	}

	_, err = b.Send(context.Background(), "S T 20.0")
	if !IsNotConnectedError(err) {
		t.Errorf("Send() error = %v, want not connected", err)
	}
}

func TestBridgeSkipsReadyBanner(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectSingle)
	b, err := New(Config{Port: "/dev/ttyTEST"})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	b.Attach(port)

	ack, err := b.Send(context.Background(), "S M 700")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ack.Raw != "OK MOIST" {
		t.Errorf("reply = %q, want %q", ack.Raw, "OK MOIST")
	}
}

func TestBridgeErrors(t *testing.T) {
	tests := []struct {
		name    string
		display protocol.Dialect
		setup   func(p *displayPort)
		line    string
		check   func(error) bool
		written bool
	}{
		{
			name:    "invalid never written",
			display: protocol.DialectSingle,
			line:    "S X 5",
			check:   IsInvalidError,
		},
		{
			name:    "rejected by display",
			display: protocol.DialectDual,
			line:    "S T 20.0",
			check:   IsRejectedError,
			written: true,
		},
		{
			name:    "no reply",
			display: protocol.DialectSingle,
			setup:   func(p *displayPort) { p.silent = true },
			line:    "S T 20.0",
			check:   IsTimeoutError,
			written: true,
		},
		{
			name:    "write fails",
			display: protocol.DialectSingle,
			setup:   func(p *displayPort) { p.writeErr = errors.New("write /dev/ttyTEST: input/output error") },
			line:    "S T 20.0",
			check:   IsPortError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newDisplayPort(t, tt.display)
			if tt.setup != nil {
				tt.setup(port)
			}
			b := connectedBridge(t, Config{ReplyTimeout: 30 * time.Millisecond}, port)

			_, err := b.Send(context.Background(), tt.line)
			if !tt.check(err) {
				t.Errorf("Send() error = %v", err)
			}
			if got := port.written.Len() > 0; got != tt.written {
				t.Errorf("line written = %v, want %v", got, tt.written)
			}
			if b.Stats().Failed != 1 {
				t.Errorf("Failed = %d, want 1", b.Stats().Failed)
			}
		})
	}
}

func TestBridgeRejectedCarriesAck(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectDual)
	b := connectedBridge(t, Config{}, port)

	ack, err := b.Send(context.Background(), "V hello")
	if !IsRejectedError(err) {
		t.Fatalf("Send() error = %v, want rejected", err)
	}
	if ack.OK || ack.Raw != "ERR Unknown: V hello" {
		t.Errorf("ack = %+v", ack)
	}
	if IsRetryable(err) {
		t.Error("rejected command reported as retryable")
	}
}

func TestBridgeIgnoresLateReplies(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *displayPort)
	}{
		{
			name:  "late reply buffered before the next send",
			setup: func(p *displayPort) { p.out.WriteString("OK TEMP\n") },
		},
		{
			name:  "late reply read together with the real one",
			setup: func(p *displayPort) { p.late = "OK TEMP\n" },
		},
		{
			name:  "late rejection",
			setup: func(p *displayPort) { p.late = "ERR Unknown: S T 23.7\n" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newDisplayPort(t, protocol.DialectSingle)
			b := connectedBridge(t, Config{ReplyTimeout: 30 * time.Millisecond}, port)
			ctx := context.Background()

			port.silent = true
			if _, err := b.Send(ctx, "S T 23.7"); !IsTimeoutError(err) {
				t.Fatalf("Send(S T 23.7) error = %v, want timeout", err)
			}
			port.silent = false
			tt.setup(port)

			ack, err := b.Send(ctx, "S H 41")
			if err != nil {
				t.Fatalf("Send(S H 41) error = %v", err)
			}
			if ack.Raw != "OK HUMID" {
				t.Errorf("Send(S H 41) reply = %q, want %q", ack.Raw, "OK HUMID")
			}

			ack, err = b.Send(ctx, "S M 5")
			if err != nil {
				t.Fatalf("Send(S M 5) error = %v", err)
			}
			if ack.Raw != "OK MOIST" {
				t.Errorf("Send(S M 5) reply = %q, want %q", ack.Raw, "OK MOIST")
			}
		})
	}
}

func TestBridgeWriteFailureDisconnects(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectSingle)
	port.writeErr = errors.New("write: broken pipe")
	b := connectedBridge(t, Config{}, port)

	if _, err := b.Send(context.Background(), "S H 40"); err == nil {
		t.Fatal("Send() error = nil")
	}
	if b.Connected() {
		t.Error("Connected() = true after port failure")
	}
	if !port.closed {
		t.Error("failed port was not closed")
	}
	if _, err := b.Send(context.Background(), "S H 40"); !IsNotConnectedError(err) {
		t.Errorf("second Send() error = %v, want not connected", err)
	}
}

func TestBridgeObserver(t *testing.T) {
	port := newDisplayPort(t, protocol.DialectMood)
	var got []Exchange
	b := connectedBridge(t, Config{Dialect: protocol.DialectMood}, port,
		WithObserver(func(ex Exchange) { got = append(got, ex) }))

	if _, err := b.SendHealth(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("exchanges = %d, want 1", len(got))
	}
	if got[0].Command != (protocol.SetHealthState{Healthy: false}) || got[0].Ack.Raw != "OK UNHEALTHY" {
		t.Errorf("exchange = %+v", got[0])
	}
	if port.ctrl.State().Mood() != display.Unhealthy {
		t.Errorf("Mood = %v, want %v", port.ctrl.State().Mood(), display.Unhealthy)
	}
}

func TestBridgeCapture(t *testing.T) {
	dir := t.TempDir()
	port := newDisplayPort(t, protocol.DialectSingle)
	b := connectedBridge(t, Config{AnalysisDir: dir}, port)
	filename := b.capture.Filename()

	ctx := context.Background()
	if _, err := b.Send(ctx, "S T 19.5"); err != nil {
		t.Fatal(err)
	}
	_, _ = b.Send(ctx, "nonsense")
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := ReadCapture(f)
	if err != nil {
		t.Fatalf("ReadCapture() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if r := records[0]; r.Seq != 1 || r.Line != "S T 19.5" || r.Reply != "OK TEMP" || !r.OK || r.Kind != "set_temperature" {
		t.Errorf("records[0] = %+v", r)
	}
	if r := records[1]; r.OK || r.Error == "" || r.LineHex != "6e6f6e73656e7365" {
		t.Errorf("records[1] = %+v", r)
	}
}
