package sensor

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClassifyNetworkError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if ClassifyNetworkError(nil, "") != nil {
			t.Error("ClassifyNetworkError(nil) != nil")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := listener.Addr().String()
		listener.Close()

		_, err = http.Get("http://" + addr + "/health")
		classified := ClassifyNetworkError(err, addr)
		if classified.Type != ErrTypeConnectionRefused || !classified.Retryable {
			t.Errorf("Type = %v, want %v", classified.Type, ErrTypeConnectionRefused)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer listener.Close()
		go func() {
			conn, err := listener.Accept()
			if err == nil {
				time.Sleep(500 * time.Millisecond)
				conn.Close()
			}
		}()

		client := &http.Client{Timeout: 50 * time.Millisecond}
		_, err = client.Get("http://" + listener.Addr().String() + "/")
		if got := ClassifyNetworkError(err, ""); got.Type != ErrTypeTimeout {
			t.Errorf("Type = %v, want %v", got.Type, ErrTypeTimeout)
		}
	})

	t.Run("dns", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", &net.DNSError{Err: "no such host", Name: "hub.invalid", IsNotFound: true})
		got := ClassifyNetworkError(err, "")
		if got.Type != ErrTypeDNS || got.Retryable {
			t.Errorf("got %+v, want non-retryable DNS error", got)
		}
	})

	t.Run("other", func(t *testing.T) {
		got := ClassifyNetworkError(errors.New("boom"), "")
		if got.Type != ErrTypeNetwork {
			t.Errorf("Type = %v, want %v", got.Type, ErrTypeNetwork)
		}
	})
}

func TestShortErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewHTTPError(400, "No JSON data"), "Hub returned HTTP 400: No JSON data"},
		{NewSensorError("TIMEOUT"), "Sensor error: TIMEOUT"},
		{&Error{Type: ErrTypeConnectionRefused}, "is sensordash-hub running"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := GetShortErrorMessage(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("GetShortErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("reset by peer")
	err := fmt.Errorf("post: %w", ClassifyNetworkError(cause, ""))
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
	if IsRetryable(cause) {
		t.Error("IsRetryable(plain) = true, want false")
	}
}
