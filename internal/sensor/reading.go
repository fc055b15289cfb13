package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Reading is one sample from the sensor node
type Reading struct {
	Temperature float64 // degrees Celsius
	Humidity    float64 // percent relative humidity
	Moisture    int     // raw ADC value, 0-4095 on the ESP32
	Device      string  // display device for the dual dialect, "" otherwise
	Time        time.Time
}

// Source produces readings
type Source interface {
	Read(ctx context.Context) (Reading, error)
}

type wireReading struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
	Moisture int     `json:"moisture"`
	Device   string  `json:"device,omitempty"`
	Time     string  `json:"time,omitempty"`
}

// MarshalJSON encodes the reading the way the hub's /sensor endpoint takes
// it: temperature at one decimal, humidity as a whole percent.
func (r Reading) MarshalJSON() ([]byte, error) {
	w := wireReading{
		Temp:     math.Round(r.Temperature*10) / 10,
		Humidity: int(math.Round(r.Humidity)),
		Moisture: r.Moisture,
		Device:   r.Device,
	}
	if !r.Time.IsZero() {
		w.Time = r.Time.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// String formats the reading like the node's serial output
func (r Reading) String() string {
	return fmt.Sprintf("Temperature = %.1fC Humidity = %.1f%% Moisture = %d", r.Temperature, r.Humidity, r.Moisture)
}
