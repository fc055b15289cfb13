package sensor

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of a failed delivery or read
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error reaching the hub
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the hub did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the hub port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the hub hostname did not resolve
	ErrTypeDNS
	// ErrTypeHTTP indicates the hub answered with a non-2xx status
	ErrTypeHTTP
	// ErrTypeSensor indicates the sensor itself reported a failure
	ErrTypeSensor
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeSensor:
		return "Sensor Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error describes a reading that could not be taken or delivered
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int    // HTTP status, when the hub answered
	URL        string // hub endpoint, when posting
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps an HTTP client error onto an Error
func ClassifyNetworkError(err error, endpoint string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:      ErrTypeTimeout,
			Message:   "Request timed out",
			URL:       endpoint,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			URL:     endpoint,
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{
				Type:      ErrTypeConnectionRefused,
				Message:   "Hub refused connection",
				URL:       endpoint,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{
				Type:      ErrTypeNetwork,
				Message:   "Host unreachable",
				URL:       endpoint,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{
				Type:      ErrTypeNetwork,
				Message:   "Network unreachable",
				URL:       endpoint,
				Err:       err,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, endpoint)
	}

	return &Error{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		URL:       endpoint,
		Err:       err,
		Retryable: true,
	}
}

// NewHTTPError creates an error for a non-2xx hub response
func NewHTTPError(statusCode int, message string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewSensorError creates an error for a failed sensor read
func NewSensorError(message string) *Error {
	return &Error{
		Type:      ErrTypeSensor,
		Message:   message,
		Retryable: true,
	}
}

func errorType(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsTimeoutError checks if an error is a timeout
func IsTimeoutError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// IsConnectionRefusedError checks if the hub refused the connection
func IsConnectionRefusedError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConnectionRefused
}

// IsHTTPError checks if the hub answered with an error status
func IsHTTPError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeHTTP
}

// IsSensorError checks if the sensor failed to produce a reading
func IsSensorError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeSensor
}

// IsRetryable checks if trying again later could succeed
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetShortErrorMessage returns a one-line message for terminal output
func GetShortErrorMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Hub not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Hub refused connection - is sensordash-hub running?"
	case ErrTypeDNS:
		return "Cannot resolve hub hostname"
	case ErrTypeHTTP:
		return fmt.Sprintf("Hub returned HTTP %d: %s", e.StatusCode, e.Message)
	case ErrTypeSensor:
		return "Sensor error: " + e.Message
	default:
		return e.Message
	}
}
