package bridge

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// Record is one line of a capture file
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Seq       int       `json:"seq"`
	Port      string    `json:"port"`
	Line      string    `json:"line"`
	LineHex   string    `json:"line_hex"`
	Kind      string    `json:"kind,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}

// Capture appends exchanges to a JSONL file (one JSON object per line)
type Capture struct {
	mu       sync.Mutex
	port     string
	filename string
	file     *os.File
	seq      int
}

// NewCapture creates dir if needed and opens a capture file named after
// the current time.
func NewCapture(dir, port string) (*Capture, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create analysis directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl",
		time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open analysis file: %w", err)
	}

	logging.Info("Capturing serial exchanges", zap.String("filename", filename))
	return &Capture{port: port, filename: filename, file: f}, nil
}

// Filename returns the path of the capture file
func (c *Capture) Filename() string {
	return c.filename
}

// Record appends ex to the file. Failures are logged, never returned.
func (c *Capture) Record(ex Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return
	}
	c.seq++

	rec := Record{
		Timestamp: ex.Time,
		Seq:       c.seq,
		Port:      c.port,
		Line:      ex.Line,
		LineHex:   hex.EncodeToString([]byte(ex.Line)),
		Reply:     ex.Ack.Raw,
		OK:        ex.Err == nil,
	}
	if ex.Command != nil {
		rec.Kind = ex.Command.Kind().String()
	}
	if ex.Err != nil {
		rec.Error = ex.Err.Error()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}
	if _, err := c.file.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to analysis file",
			zap.String("filename", c.filename),
			zap.Error(err),
		)
		return
	}

	logging.Debug("Saved exchange to analysis file",
		zap.String("filename", c.filename),
		zap.Int("seq", c.seq),
	)
}

// Close closes the capture file
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// ReadCapture decodes every record in a capture file. Blank lines are
// skipped; a malformed line stops the read with an error naming it.
func ReadCapture(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read capture: %w", err)
	}
	return records, nil
}
