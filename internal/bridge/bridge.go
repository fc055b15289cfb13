package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/retry"
	"github.com/muurk/sensordash/internal/serialport"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// DefaultResetDelay is how long the display needs after the port opens.
	// Opening the port toggles DTR, which reboots most USB boards.
	DefaultResetDelay = 2 * time.Second

	// DefaultReplyTimeout bounds the wait for one reply line
	DefaultReplyTimeout = time.Second

	// pollInterval is the read timeout used while waiting for a reply
	pollInterval = 50 * time.Millisecond
)

// Config holds the bridge configuration
type Config struct {
	Port         string
	Baud         int
	Dialect      protocol.Dialect
	ResetDelay   time.Duration // 0 = DefaultResetDelay, negative = none
	ReplyTimeout time.Duration

	// AnalysisDir, when set, receives a JSONL record of every exchange
	AnalysisDir string
}

// Opener opens the configured port. serialport.OpenAny is the default.
type Opener func(cfg serialport.Config) (serialport.Port, error)

// Exchange is one command line and what became of it
type Exchange struct {
	Time    time.Time
	Line    string
	Command protocol.Command
	Ack     protocol.Ack
	Err     error
}

// Stats is a snapshot of the bridge counters
type Stats struct {
	Connected bool   `json:"connected"`
	Sent      int64  `json:"sent"`
	Failed    int64  `json:"failed"`
	LastReply string `json:"last_reply"`
}

// Option configures a Bridge
type Option func(*Bridge)

// WithOpener replaces the function used to open the port
func WithOpener(fn Opener) Option {
	return func(b *Bridge) { b.open = fn }
}

// WithSleep replaces the wall-clock wait used for the reset delay
func WithSleep(fn retry.SleepFunc) Option {
	return func(b *Bridge) { b.sleep = fn }
}

// WithObserver registers a callback run after every Send
func WithObserver(fn func(Exchange)) Option {
	return func(b *Bridge) { b.observers = append(b.observers, fn) }
}

// Bridge forwards command lines to the display unit over a serial link
// and waits for each acknowledgement. One command is in flight at a time.
type Bridge struct {
	config    Config
	open      Opener
	sleep     retry.SleepFunc
	observers []func(Exchange)

	mu      sync.Mutex
	port    serialport.Port
	asm     *protocol.LineAssembler
	capture *Capture

	connected atomic.Bool
	sent      atomic.Int64
	failed    atomic.Int64
	lastReply atomic.String
}

// New creates an unconnected bridge
func New(cfg Config, opts ...Option) (*Bridge, error) {
	if cfg.Baud == 0 {
		cfg.Baud = serialport.DefaultBaud
	}
	if cfg.Dialect == "" {
		cfg.Dialect = protocol.DialectSingle
	}
	switch {
	case cfg.ResetDelay == 0:
		cfg.ResetDelay = DefaultResetDelay
	case cfg.ResetDelay < 0:
		cfg.ResetDelay = 0
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}

	b := &Bridge{
		config: cfg,
		open:   serialport.OpenAny,
		sleep:  retry.Sleep,
		asm:    protocol.NewLineAssembler(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if cfg.AnalysisDir != "" {
		capture, err := NewCapture(cfg.AnalysisDir, cfg.Port)
		if err != nil {
			return nil, err
		}
		b.capture = capture
	}
	return b, nil
}

// Config returns the bridge configuration
func (b *Bridge) Config() Config {
	return b.config
}

// Connect opens the port, waits out the display's reset and discards
// anything it printed while booting.
func (b *Bridge) Connect(ctx context.Context) error {
	if b.config.Port == "" {
		return &Error{Type: ErrTypePort, Message: "no serial port configured"}
	}

	port, err := b.open(serialport.Config{
		Name:        b.config.Port,
		Baud:        b.config.Baud,
		ReadTimeout: pollInterval,
	})
	if err != nil {
		return ClassifyPortError(err, b.config.Port)
	}

	logging.Info("Waiting for display reset",
		zap.String("port", b.config.Port),
		zap.Duration("delay", b.config.ResetDelay),
	)
	if err := b.sleep(ctx, b.config.ResetDelay); err != nil {
		_ = port.Close()
		return err
	}

	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return ClassifyPortError(err, b.config.Port)
	}

	b.Attach(port)
	logging.Info("Connected to display", zap.String("port", b.config.Port))
	return nil
}

// Attach uses an already open port, replacing any current one
func (b *Bridge) Attach(port serialport.Port) {
	if err := port.SetReadTimeout(pollInterval); err != nil {
		logging.Warn("Failed to set read timeout", zap.String("port", b.config.Port), zap.Error(err))
	}

	b.mu.Lock()
	if b.port != nil && b.port != port {
		_ = b.port.Close()
	}
	b.port = port
	b.asm.Reset()
	b.mu.Unlock()
	b.connected.Store(true)
}

// Connected reports whether a port is open
func (b *Bridge) Connected() bool {
	return b.connected.Load()
}

// Stats returns the current counters
func (b *Bridge) Stats() Stats {
	return Stats{
		Connected: b.connected.Load(),
		Sent:      b.sent.Load(),
		Failed:    b.failed.Load(),
		LastReply: b.lastReply.Load(),
	}
}

// Close closes the port and the capture file
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.port != nil {
		errs = append(errs, b.port.Close())
		b.port = nil
	}
	b.connected.Store(false)
	if b.capture != nil {
		errs = append(errs, b.capture.Close())
		b.capture = nil
	}
	return errors.Join(errs...)
}

// Send validates line against the display's dialect, writes it and waits
// for the reply. An ERR reply is returned as a rejected error together
// with the ack.
func (b *Bridge) Send(ctx context.Context, line string) (protocol.Ack, error) {
	ex := Exchange{Time: time.Now(), Line: line}
	ex.Ack, ex.Err = b.send(ctx, line, &ex)

	if ex.Err != nil {
		b.failed.Inc()
		logging.Warn("Send failed", zap.String("line", line), zap.Error(ex.Err))
	} else {
		b.sent.Inc()
	}
	b.record(ex)
	for _, fn := range b.observers {
		fn(ex)
	}
	return ex.Ack, ex.Err
}

func (b *Bridge) send(ctx context.Context, line string, ex *Exchange) (protocol.Ack, error) {
	cmd, err := protocol.Validate(b.config.Dialect, line)
	if err != nil {
		return protocol.Ack{}, newInvalidError(line, err)
	}
	ex.Command = cmd

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return protocol.Ack{}, newNotConnectedError()
	}

	// a reply that outlived its own send must not be read as this one's
	if err := b.port.ResetInputBuffer(); err != nil {
		return protocol.Ack{}, b.dropLocked(err)
	}
	b.asm.Reset()

	logging.LogSerialLine(b.config.Port, "tx", line)
	if _, err := b.port.Write([]byte(line + "\n")); err != nil {
		return protocol.Ack{}, b.dropLocked(err)
	}
	if err := b.port.Drain(); err != nil {
		return protocol.Ack{}, b.dropLocked(err)
	}

	reply, err := b.readReplyLocked(ctx, cmd, line)
	if err != nil {
		return protocol.Ack{}, err
	}
	logging.LogSerialLine(b.config.Port, "rx", reply)
	b.lastReply.Store(reply)

	ack, err := protocol.ParseAck(reply)
	if err != nil {
		return ack, newInvalidError(line, err)
	}
	if !ack.OK {
		return ack, newRejectedError(line, reply)
	}
	return ack, nil
}

// readReplyLocked reads until the reply to line arrives or the reply
// timeout passes. A ready banner means the display rebooted, and an ack
// for some other command is a late reply to an earlier send; both are
// skipped and the wait goes on.
func (b *Bridge) readReplyLocked(ctx context.Context, cmd protocol.Command, line string) (string, error) {
	deadline := time.Now().Add(b.config.ReplyTimeout)
	buf := make([]byte, protocol.MaxLineLength)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", newTimeoutError(line)
		}

		n, err := b.port.Read(buf)
		for _, reply := range b.asm.Write(buf[:n]) {
			if reply == protocol.ReadyBanner {
				logging.Info("Display restarted", zap.String("port", b.config.Port))
				continue
			}
			if ack, err := protocol.ParseAck(reply); err == nil && !ack.Answers(cmd, line) {
				logging.Debug("Discarding stale reply",
					zap.String("port", b.config.Port),
					zap.String("line", line),
					zap.String("reply", reply),
				)
				continue
			}
			return reply, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", b.dropLocked(err)
		}
	}
}

// dropLocked closes a failed port so the next Send reports not connected
func (b *Bridge) dropLocked(err error) error {
	classified := ClassifyPortError(err, b.config.Port)
	if b.port != nil {
		_ = b.port.Close()
		b.port = nil
	}
	b.connected.Store(false)
	logging.Error("Serial port lost", zap.String("port", b.config.Port), zap.Error(err))
	return classified
}

func (b *Bridge) record(ex Exchange) {
	b.mu.Lock()
	capture := b.capture
	b.mu.Unlock()
	if capture != nil {
		capture.Record(ex)
	}
}

// SendCommand encodes cmd and sends it
func (b *Bridge) SendCommand(ctx context.Context, cmd protocol.Command) (protocol.Ack, error) {
	line, err := protocol.Encode(cmd)
	if err != nil {
		return protocol.Ack{}, newInvalidError(cmd.String(), err)
	}
	return b.Send(ctx, line)
}

// SendTemperature sends a temperature reading
func (b *Bridge) SendTemperature(ctx context.Context, dev protocol.Device, v float64) (protocol.Ack, error) {
	return b.Send(ctx, protocol.BuildSetTemperature(dev, v))
}

// SendHumidity sends a humidity reading
func (b *Bridge) SendHumidity(ctx context.Context, dev protocol.Device, v int) (protocol.Ack, error) {
	return b.Send(ctx, protocol.BuildSetHumidity(dev, v))
}

// SendMoisture sends a moisture reading
func (b *Bridge) SendMoisture(ctx context.Context, dev protocol.Device, v int) (protocol.Ack, error) {
	return b.Send(ctx, protocol.BuildSetMoisture(dev, v))
}

// SendVoice sends voice text; the host trims it to 20 characters and the
// display trims it again to what its boxes hold.
func (b *Bridge) SendVoice(ctx context.Context, dev protocol.Device, text string) (protocol.Ack, error) {
	return b.Send(ctx, protocol.BuildVoice(dev, text))
}

// SendHealth overrides the mood (mood dialect only)
func (b *Bridge) SendHealth(ctx context.Context, healthy bool) (protocol.Ack, error) {
	return b.Send(ctx, protocol.BuildHealth(healthy))
}
