package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/sensordash/internal/bridge"
	"github.com/muurk/sensordash/internal/display"
	"github.com/muurk/sensordash/internal/firmware"
	"github.com/muurk/sensordash/internal/protocol"
	"github.com/muurk/sensordash/internal/serialport"
)

// startDisplay runs an emulated display unit on a local TCP port and
// returns a bridge connected to it
func startDisplay(t *testing.T, ctx context.Context, d protocol.Dialect) *bridge.Bridge {
	t.Helper()
	return startDisplayConfig(t, ctx, firmware.Config{Dialect: d})
}

// startDisplayConfig is startDisplay for a display with its own settings
func startDisplayConfig(t *testing.T, ctx context.Context, cfg firmware.Config) *bridge.Bridge {
	t.Helper()
	d := cfg.Dialect
	ctrl, err := firmware.New(cfg, display.LogRenderer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = firmware.Serve(ctx, ctrl, listener) }()

	b, err := bridge.New(bridge.Config{
		Port:       serialport.TCPPrefix + listener.Addr().String(),
		Dialect:    d,
		ResetDelay: -1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newTestServer(t *testing.T, d protocol.Dialect, disp Display) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if disp == nil {
		disp = startDisplay(t, ctx, d)
	}
	return startServer(t, ctx, &Config{Dialect: d}, disp)
}

func startServer(t *testing.T, ctx context.Context, cfg *Config, disp Display) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(cfg, disp, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	go func() { _ = srv.events.Run(ctx) }()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.events.CloseAll()
		ts.Close()
	})
	return srv, ts
}

func post(t *testing.T, url, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("response %q is not JSON: %v", data, err)
	}
	return resp.StatusCode, out
}

func boxValue(snap display.Snapshot, id string) string {
	for _, b := range snap.Boxes {
		if b.ID == id {
			return b.Value
		}
	}
	return ""
}

func TestSensorForwardsReadings(t *testing.T) {
	srv, ts := newTestServer(t, protocol.DialectSingle, nil)

	status, body := post(t, ts.URL+"/sensor", `{"temp": 23.7, "humidity": 41, "moisture": 1800}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", status, body)
	}
	sent, _ := body["sent"].(map[string]interface{})
	for _, key := range []string{"temp", "humidity", "moisture"} {
		if sent[key] != true {
			t.Errorf("sent[%s] = %v, want true", key, sent[key])
		}
	}

	snap := srv.Snapshot()
	for id, want := range map[string]string{"TEMP": "23.7C", "HUMID": "41%", "MOIST": "1800"} {
		if got := boxValue(snap, id); got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}
}

func TestSensorPartialReading(t *testing.T) {
	srv, ts := newTestServer(t, protocol.DialectSingle, nil)

	status, body := post(t, ts.URL+"/sensor", `{"humidity": 55.9}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	sent := body["sent"].(map[string]interface{})
	if len(sent) != 1 || sent["humidity"] != true {
		t.Errorf("sent = %v, want only humidity", sent)
	}
	if got := boxValue(srv.Snapshot(), "HUMID"); got != "55%" {
		t.Errorf("HUMID = %q, want %q", got, "55%")
	}
	if got := boxValue(srv.Snapshot(), "TEMP"); got != "--.-C" {
		t.Errorf("TEMP = %q, want placeholder", got)
	}
}

func TestSensorBadRequests(t *testing.T) {
	_, ts := newTestServer(t, protocol.DialectSingle, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty body", "", "No JSON data"},
		{"not json", "temp=23", "No JSON data"},
		{"empty object", "{}", "No JSON data"},
		{"array", "[1,2]", "No JSON data"},
		{"wrong type", `{"temp": "hot"}`, "invalid temp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, ts.URL+"/sensor", tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			msg, _ := body["error"].(string)
			if !strings.HasPrefix(msg, tt.wantErr) {
				t.Errorf("error = %q, want prefix %q", msg, tt.wantErr)
			}
		})
	}
}

func TestSensorDualDevice(t *testing.T) {
	srv, ts := newTestServer(t, protocol.DialectDual, nil)

	if status, body := post(t, ts.URL+"/sensor", `{"temp": 20, "device": "B"}`); status != http.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	if status, body := post(t, ts.URL+"/sensor", `{"moisture": 900}`); status != http.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}

	snap := srv.Snapshot()
	if got := boxValue(snap, "B/TEMP"); got != "20.0C" {
		t.Errorf("B/TEMP = %q, want %q", got, "20.0C")
	}
	if got := boxValue(snap, "A/MOIST"); got != "900" {
		t.Errorf("A/MOIST = %q, want %q (default device)", got, "900")
	}

	if status, _ := post(t, ts.URL+"/sensor", `{"temp": 1, "device": "C"}`); status != http.StatusBadRequest {
		t.Errorf("unknown device status = %d, want 400", status)
	}
}

func TestVoice(t *testing.T) {
	srv, ts := newTestServer(t, protocol.DialectSingle, nil)

	tests := []struct {
		name string
		body string
		want string
		box  string
	}{
		{"shrunk", `{"text": "could you turn on the lights"}`, "LIGHTS ON", "LIGHTS ON"},
		{"not shrunk", `{"text": "hi there", "shrink": false}`, "hi there", "hi there"},
		{"display truncates", `{"text": "CHECK HUMIDITY LEVEL", "shrink": false}`, "CHECK HUMIDITY LEVEL", "CHECK HUMI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, ts.URL+"/voice", tt.body)
			if status != http.StatusOK {
				t.Fatalf("status = %d (%v)", status, body)
			}
			if body["status"] != "ok" || body["display_text"] != tt.want {
				t.Errorf("response = %v, want display_text %q", body, tt.want)
			}
			if got := boxValue(srv.Snapshot(), "VOICE"); got != tt.box {
				t.Errorf("VOICE = %q, want %q", got, tt.box)
			}
		})
	}

	for _, bad := range []string{"", `{"shrink": true}`, `{"text": 5}`} {
		status, body := post(t, ts.URL+"/voice", bad)
		if status != http.StatusBadRequest || body["error"] != "Missing 'text' field" {
			t.Errorf("POST /voice %q = %d %v, want 400", bad, status, body)
		}
	}
}

func TestVoiceCapMirrorsDisplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	disp := startDisplayConfig(t, ctx, firmware.Config{Dialect: protocol.DialectSingle, VoiceCap: 4})
	srv, ts := startServer(t, ctx, &Config{Dialect: protocol.DialectSingle, VoiceCap: 4}, disp)

	status, body := post(t, ts.URL+"/voice", `{"text": "lights on", "shrink": false}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	if got := boxValue(srv.Snapshot(), "VOICE"); got != "ligh" {
		t.Errorf("VOICE = %q, want %q", got, "ligh")
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, protocol.DialectSingle, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || !health.SerialConnected {
		t.Errorf("health = %+v", health)
	}
}

func TestUnconnectedDisplay(t *testing.T) {
	b, err := bridge.New(bridge.Config{})
	if err != nil {
		t.Fatal(err)
	}
	_, ts := newTestServer(t, protocol.DialectSingle, b)

	status, body := post(t, ts.URL+"/sensor", `{"temp": 21.5}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if sent := body["sent"].(map[string]interface{}); sent["temp"] != false {
		t.Errorf("sent = %v, want temp false", sent)
	}

	status, body = post(t, ts.URL+"/voice", `{"text": "hello"}`)
	if status != http.StatusOK || body["status"] != "error" {
		t.Errorf("voice = %d %v, want status error", status, body)
	}

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health HealthResponse
	_ = json.NewDecoder(resp.Body).Decode(&health)
	if health.SerialConnected || health.Failed != 2 {
		t.Errorf("health = %+v, want disconnected with 2 failures", health)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, protocol.DialectSingle, nil)

	resp, err := http.Get(ts.URL + "/sensor")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /sensor = %d, want 405", resp.StatusCode)
	}
}

func TestWebSocketEvents(t *testing.T) {
	_, ts := newTestServer(t, protocol.DialectSingle, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read state event: %v", err)
	}
	if ev.Type != EventState || ev.State == nil || len(ev.State.Boxes) != 4 {
		t.Fatalf("first event = %+v, want full state", ev)
	}

	if status, _ := post(t, ts.URL+"/sensor", `{"moisture": 640}`); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read exchange event: %v", err)
	}
	if ev.Type != EventExchange || ev.Line != "S M 640" || ev.Reply != "OK MOIST" || !ev.OK {
		t.Errorf("event = %+v", ev)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	b, err := bridge.New(bridge.Config{})
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(&Config{Host: "127.0.0.1"}, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
