package server

import (
	"crypto/tls"
	"fmt"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// NewTLSConfig loads a certificate for serving the hub over HTTPS.
// TLS 1.2 is the floor: the ESP32 HTTP client does not do 1.3 on every
// core version.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
