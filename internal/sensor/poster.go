package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"github.com/muurk/sensordash/internal/retry"
	"github.com/muurk/sensordash/internal/version"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the time between posted readings
	DefaultInterval = 2 * time.Second

	// DefaultTimeout bounds each request to the hub
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 4096
)

// Publisher is an extra destination for readings, such as an MQTT broker
type Publisher interface {
	Publish(ctx context.Context, r Reading) error
}

// Stats counts what the poster has done
type Stats struct {
	Posted       int64 `json:"posted"`
	Failed       int64 `json:"failed"`
	SensorErrors int64 `json:"sensor_errors"`
	Published    int64 `json:"published"`
}

// Poster reads a Source on a fixed interval and posts each reading to the
// hub. Failures are logged and the next reading is tried on schedule.
type Poster struct {
	// BaseURL is the hub's base URL, e.g. "http://192.168.1.20:5000"
	BaseURL string

	// Device is attached to every reading; only the dual dialect uses it
	Device string

	Interval   time.Duration
	Source     Source
	HTTPClient *http.Client

	// Publisher, when set, receives every good reading as well
	Publisher Publisher

	posted       atomic.Int64
	failed       atomic.Int64
	sensorErrors atomic.Int64
	published    atomic.Int64
}

// NewPoster creates a poster with default interval and timeout
func NewPoster(baseURL string, src Source) *Poster {
	return &Poster{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Interval:   DefaultInterval,
		Source:     src,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SensorURL returns the hub endpoint readings are posted to
func (p *Poster) SensorURL() string {
	return strings.TrimRight(p.BaseURL, "/") + "/sensor"
}

type sensorResponse struct {
	Status string          `json:"status"`
	Sent   map[string]bool `json:"sent"`
	Error  string          `json:"error"`
}

// Post sends one reading and returns which values the hub got onto the
// display.
func (p *Poster) Post(ctx context.Context, r Reading) (map[string]bool, error) {
	if r.Device == "" {
		r.Device = p.Device
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reading: %w", err)
	}

	endpoint := p.SensorURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ClassifyNetworkError(err, endpoint)
	}

	var out sensorResponse
	_ = json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		httpErr := NewHTTPError(resp.StatusCode, msg)
		httpErr.URL = endpoint
		return nil, httpErr
	}
	return out.Sent, nil
}

// Ping checks that the hub answers GET /health
func (p *Poster) Ping(ctx context.Context) error {
	endpoint := strings.TrimRight(p.BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client().Do(req)
	if err != nil {
		return ClassifyNetworkError(err, endpoint)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
		e.URL = endpoint
		return e
	}
	return nil
}

// WaitForHub pings the hub under policy. It reports whether the hub
// answered; when it did not, the caller carries on and posts anyway.
func (p *Poster) WaitForHub(ctx context.Context, policy retry.Policy) bool {
	result := policy.Do(ctx, "hub health check", func(attempt int) error {
		return p.Ping(ctx)
	})
	if !result.Success {
		logging.Warn("Hub not reachable, continuing unconnected",
			zap.String("hub", p.BaseURL),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err),
		)
		return false
	}
	logging.Info("Hub reachable", zap.String("hub", p.BaseURL), zap.Int("attempts", result.Attempts))
	return true
}

// Step reads the source once and delivers the reading
func (p *Poster) Step(ctx context.Context) error {
	r, err := p.Source.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.sensorErrors.Inc()
		logging.Warn("Sensor read failed", zap.String("error", GetShortErrorMessage(err)))
		return err
	}

	sent, err := p.Post(ctx, r)
	if err != nil {
		p.failed.Inc()
		logging.Warn("Failed to post reading",
			zap.String("url", p.SensorURL()),
			zap.String("error", GetShortErrorMessage(err)),
		)
	} else {
		p.posted.Inc()
		logging.Debug("Reading posted",
			zap.String("reading", r.String()),
			zap.Any("sent", sent),
		)
	}

	if p.Publisher != nil {
		if perr := p.Publisher.Publish(ctx, r); perr != nil {
			logging.Warn("Failed to publish reading", zap.Error(perr))
			if err == nil {
				err = perr
			}
		} else {
			p.published.Inc()
		}
	}
	return err
}

// Run posts a reading every Interval until ctx is cancelled
func (p *Poster) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logging.Info("Posting readings",
		zap.String("url", p.SensorURL()),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = p.Step(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stats returns the poster's counters
func (p *Poster) Stats() Stats {
	return Stats{
		Posted:       p.posted.Load(),
		Failed:       p.failed.Load(),
		SensorErrors: p.sensorErrors.Load(),
		Published:    p.published.Load(),
	}
}

func (p *Poster) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}
