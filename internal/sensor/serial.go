package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/serialport"
	"go.uber.org/zap"
)

// Lines printed by the ESP32 sensor sketch
const (
	lineInitialized  = "DHT11 sensor initialized"
	lineSensorError  = "Sensor error:"
	lineHumidity     = "Humidity ="
	lineTemperature  = "Temperature ="
	lineOK           = "-- OK"
	lineMoistureHead = "Moisture Sensor Value:"
)

// TextParser turns the sensor sketch's text output into readings. A block
// looks like:
//
//	Humidity = 41.0%
//	Temperature = 23.7C
//	-- OK
//	Moisture Sensor Value:
//	1800
//
// and a failed DHT read prints "Sensor error: <status>" instead.
type TextParser struct {
	humidity     float64
	temperature  float64
	haveHumidity bool
	haveTemp     bool
	wantMoisture bool
}

// Feed consumes one line. It returns the reading and true when the line
// completes a block, and a sensor error when the sketch reported one.
func (p *TextParser) Feed(line string) (Reading, bool, error) {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return Reading{}, false, nil

	case line == lineInitialized:
		logging.Debug("Sensor node reset")
		p.reset()
		return Reading{}, false, nil

	case strings.HasPrefix(line, lineSensorError):
		p.reset()
		status := strings.TrimSpace(strings.TrimPrefix(line, lineSensorError))
		return Reading{}, false, NewSensorError(status)

	case strings.HasPrefix(line, lineHumidity):
		v, err := parseNumber(line, lineHumidity, "%")
		if err != nil {
			logging.Debug("Bad humidity line", zap.String("line", line), zap.Error(err))
			return Reading{}, false, nil
		}
		p.humidity, p.haveHumidity = v, true

	case strings.HasPrefix(line, lineTemperature):
		v, err := parseNumber(line, lineTemperature, "C")
		if err != nil {
			logging.Debug("Bad temperature line", zap.String("line", line), zap.Error(err))
			return Reading{}, false, nil
		}
		p.temperature, p.haveTemp = v, true

	case line == lineOK:

	case line == lineMoistureHead:
		p.wantMoisture = true

	case p.wantMoisture:
		p.wantMoisture = false
		moisture, err := strconv.Atoi(line)
		if err != nil {
			logging.Debug("Bad moisture line", zap.String("line", line), zap.Error(err))
			return Reading{}, false, nil
		}
		if !p.haveHumidity || !p.haveTemp {
			return Reading{}, false, nil
		}
		r := Reading{
			Temperature: p.temperature,
			Humidity:    p.humidity,
			Moisture:    moisture,
		}
		p.reset()
		return r, true, nil

	default:
		logging.Debug("Ignoring sensor line", zap.String("line", line))
	}

	return Reading{}, false, nil
}

func (p *TextParser) reset() {
	*p = TextParser{}
}

func parseNumber(line, prefix, suffix string) (float64, error) {
	s := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

// SerialSource reads the sensor sketch's output from a port
type SerialSource struct {
	port    io.Reader
	closer  io.Closer
	asm     *protocol.LineAssembler
	parser  TextParser
	pending []string
	buf     [64]byte
	now     func() time.Time
}

// NewSerialSource reads from r. Reads that return no data are retried, so
// r should have a read timeout if ctx is to be honoured.
func NewSerialSource(r io.Reader) *SerialSource {
	s := &SerialSource{
		port: r,
		asm:  protocol.NewLineAssembler(),
		now:  time.Now,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerialSource opens the node's USB serial port, or a tcp:// address
func OpenSerialSource(cfg serialport.Config) (*SerialSource, error) {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	port, err := serialport.OpenAny(cfg)
	if err != nil {
		return nil, err
	}
	logging.Info("Reading sensor node", zap.String("port", cfg.Name))
	return NewSerialSource(port), nil
}

// Read blocks until the sketch prints a complete block or an error line
func (s *SerialSource) Read(ctx context.Context) (Reading, error) {
	for {
		for len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]
			r, ok, err := s.parser.Feed(line)
			if err != nil {
				return Reading{}, err
			}
			if ok {
				r.Time = s.now()
				return r, nil
			}
		}

		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}

		n, err := s.port.Read(s.buf[:])
		if n > 0 {
			s.pending = append(s.pending, s.asm.Write(s.buf[:n])...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Reading{}, fmt.Errorf("sensor port closed: %w", err)
			}
			return Reading{}, fmt.Errorf("failed to read sensor port: %w", err)
		}
	}
}

// Close closes the underlying port
func (s *SerialSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
