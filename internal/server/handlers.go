package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/version"
	"go.uber.org/zap"
)

// SensorResponse is the reply to POST /sensor. Sent maps each reading
// present in the request to whether the display acknowledged it.
type SensorResponse struct {
	Status string          `json:"status"`
	Sent   map[string]bool `json:"sent"`
}

// VoiceResponse is the reply to POST /voice
type VoiceResponse struct {
	Status      string `json:"status"`
	DisplayText string `json:"display_text"`
}

// HealthResponse is the reply to GET /health
type HealthResponse struct {
	Status          string `json:"status"`
	SerialConnected bool   `json:"serial_connected"`
	Sent            int64  `json:"sent"`
	Failed          int64  `json:"failed"`
	Clients         int    `json:"clients"`
	Version         string `json:"version"`
}

// field decodes obj[key] into v. present is false when the key is absent
// or null.
func field(obj map[string]json.RawMessage, key string, v interface{}) (present bool, err error) {
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("invalid %s: %w", key, err)
	}
	return true, nil
}

// device picks the target device. Only the dual dialect addresses
// devices; elsewhere the field is ignored.
func (s *Server) device(obj map[string]json.RawMessage) (protocol.Device, error) {
	if s.config.Dialect != protocol.DialectDual {
		return protocol.DeviceNone, nil
	}
	var name string
	if _, err := field(obj, "device", &name); err != nil {
		return protocol.DeviceNone, err
	}
	if name == "" {
		return s.config.DefaultDevice, nil
	}
	return protocol.ParseDevice(name)
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	obj, ok := readJSONObject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "No JSON data")
		return
	}

	dev, err := s.device(obj)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// humidity and moisture arrive as numbers and are sent as integers
	var temp, humidity, moisture float64
	var lines []struct{ key, line string }
	for _, f := range []struct {
		key   string
		value *float64
		build func() string
	}{
		{"temp", &temp, func() string { return protocol.BuildSetTemperature(dev, temp) }},
		{"humidity", &humidity, func() string { return protocol.BuildSetHumidity(dev, int(humidity)) }},
		{"moisture", &moisture, func() string { return protocol.BuildSetMoisture(dev, int(moisture)) }},
	} {
		present, err := field(obj, f.key, f.value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if present {
			lines = append(lines, struct{ key, line string }{f.key, f.build()})
		}
	}

	logging.Info("Sensor reading received",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("device", dev.String()),
		zap.Int("values", len(lines)),
	)

	resp := SensorResponse{Status: "ok", Sent: make(map[string]bool, len(lines))}
	for _, l := range lines {
		_, err := s.send(r.Context(), l.line)
		resp.Sent[l.key] = err == nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	obj, ok := readJSONObject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing 'text' field")
		return
	}

	var text string
	present, err := field(obj, "text", &text)
	if err != nil || !present {
		writeError(w, http.StatusBadRequest, "Missing 'text' field")
		return
	}

	doShrink := true
	if _, err := field(obj, "shrink", &doShrink); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if doShrink {
		text = s.shrinker.Shrink(text)
	}

	dev, err := s.device(obj)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := "ok"
	if _, err := s.send(r.Context(), protocol.BuildVoice(dev, text)); err != nil {
		status = "error"
	}
	writeJSON(w, http.StatusOK, VoiceResponse{Status: status, DisplayText: text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.display.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		SerialConnected: s.display.Connected(),
		Sent:            stats.Sent,
		Failed:          stats.Failed,
		Clients:         s.events.Clients(),
		Version:         version.Version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}
