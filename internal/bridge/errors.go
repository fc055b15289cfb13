package bridge

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// ErrorType represents the category of a bridge failure
type ErrorType int

const (
	// ErrTypeNotConnected indicates no port is open
	ErrTypeNotConnected ErrorType = iota
	// ErrTypePort indicates the serial port failed (missing, busy, unplugged)
	ErrTypePort
	// ErrTypeTimeout indicates the display did not reply in time
	ErrTypeTimeout
	// ErrTypeRejected indicates the display answered ERR
	ErrTypeRejected
	// ErrTypeInvalid indicates the line failed host-side validation
	ErrTypeInvalid
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypePort:
		return "Port Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeInvalid:
		return "Invalid Command"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Bridge operation that fails
type Error struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Line      string    // Command line involved (if any)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether sending again may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyPortError turns a serial or I/O failure into a bridge Error.
// Disconnections are retryable after a reconnect; configuration and
// permission problems are not.
func ClassifyPortError(err error, port string) *Error {
	if err == nil {
		return nil
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial port %s not found", port), Err: err, Retryable: true}
		case serial.PortClosed, serial.InvalidSerialPort:
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial port %s disconnected", port), Err: err, Retryable: true}
		case serial.PortBusy:
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial port %s is busy", port), Err: err, Retryable: true}
		case serial.PermissionDenied:
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("permission denied opening %s", port), Err: err, Retryable: false}
		default:
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial port %s misconfigured", port), Err: err, Retryable: false}
		}
	}

	// OS-level errors that the serial library passes through unwrapped
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"input/output error", "no such device", "device not configured", "broken pipe", "connection reset", "use of closed"} {
		if strings.Contains(msg, s) {
			return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial port %s disconnected", port), Err: err, Retryable: true}
		}
	}

	return &Error{Type: ErrTypePort, Message: fmt.Sprintf("serial I/O on %s failed", port), Err: err, Retryable: true}
}

func newNotConnectedError() *Error {
	return &Error{Type: ErrTypeNotConnected, Message: "serial port not open", Retryable: true}
}

func newTimeoutError(line string) *Error {
	return &Error{Type: ErrTypeTimeout, Message: fmt.Sprintf("no reply to %q", line), Line: line, Retryable: true}
}

func newRejectedError(line, reply string) *Error {
	return &Error{Type: ErrTypeRejected, Message: fmt.Sprintf("display replied %q to %q", reply, line), Line: line}
}

func newInvalidError(line string, err error) *Error {
	return &Error{Type: ErrTypeInvalid, Message: "command failed validation", Line: line, Err: err}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsNotConnectedError checks if an error means the port is not open
func IsNotConnectedError(err error) bool { return isType(err, ErrTypeNotConnected) }

// IsPortError checks if an error is a serial port failure
func IsPortError(err error) bool { return isType(err, ErrTypePort) }

// IsTimeoutError checks if the display failed to reply
func IsTimeoutError(err error) bool { return isType(err, ErrTypeTimeout) }

// IsRejectedError checks if the display answered ERR
func IsRejectedError(err error) bool { return isType(err, ErrTypeRejected) }

// IsInvalidError checks if the command never left the host
func IsInvalidError(err error) bool { return isType(err, ErrTypeInvalid) }

// IsRetryable checks if sending again may succeed
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
