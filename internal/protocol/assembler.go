package protocol

import (
	"strings"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// MaxLineLength is the number of bytes buffered without a newline before
// the buffer is thrown away.
const MaxLineLength = 64

// LineAssembler turns a byte stream into newline-terminated command lines.
//
// It never blocks and never grows past MaxLineLength: an overlong line is
// dropped silently and assembly restarts with the next byte.
type LineAssembler struct {
	buf       []byte
	overflows int
}

// NewLineAssembler creates an empty assembler
func NewLineAssembler() *LineAssembler {
	return &LineAssembler{buf: make([]byte, 0, MaxLineLength+1)}
}

// Feed consumes one byte. It returns the completed line and true when b is
// the newline ending a non-empty line.
func (a *LineAssembler) Feed(b byte) (string, bool) {
	switch b {
	case '\n':
		line := strings.TrimSpace(string(a.buf))
		a.buf = a.buf[:0]
		if line == "" {
			return "", false
		}
		return line, true
	case '\r':
		return "", false
	}

	a.buf = append(a.buf, b)
	if len(a.buf) > MaxLineLength {
		logging.Debug("Line buffer overflow, discarding",
			zap.Int("buffered", len(a.buf)),
			zap.String("head", string(a.buf[:16])),
		)
		a.buf = a.buf[:0]
		a.overflows++
	}
	return "", false
}

// Write feeds every byte of p and returns the lines completed along the way
func (a *LineAssembler) Write(p []byte) []string {
	var lines []string
	for _, b := range p {
		if line, ok := a.Feed(b); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// Buffered returns the number of bytes waiting for a newline
func (a *LineAssembler) Buffered() int {
	return len(a.buf)
}

// Overflows returns how many times the buffer was discarded
func (a *LineAssembler) Overflows() int {
	return a.overflows
}

// Reset drops any partial line
func (a *LineAssembler) Reset() {
	a.buf = a.buf[:0]
}
