package sensor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Simulated walks temperature, humidity and soil moisture around plausible
// indoor values. It stands in for a DHT11 and a capacitive moisture probe
// when no hardware is attached.
type Simulated struct {
	mu       sync.Mutex
	rng      *rand.Rand
	temp     float64
	humidity float64
	moisture int
	now      func() time.Time
}

// NewSimulated creates a simulated sensor. The same seed gives the same
// sequence of readings.
func NewSimulated(seed uint64) *Simulated {
	return &Simulated{
		rng:      rand.New(rand.NewPCG(seed, seed^0x5eed)),
		temp:     22.0,
		humidity: 45.0,
		moisture: 1800,
		now:      time.Now,
	}
}

// Read takes one step of the walk
func (s *Simulated) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.temp = clamp(s.temp+(s.rng.Float64()-0.5)*0.6, 15, 35)
	s.humidity = clamp(s.humidity+(s.rng.Float64()-0.5)*3, 20, 90)
	s.moisture = int(clamp(float64(s.moisture+s.rng.IntN(81)-40), 0, 4095))

	// DHT11 reports whole degrees and whole percent at best; keep one decimal
	return Reading{
		Temperature: math.Round(s.temp*10) / 10,
		Humidity:    math.Round(s.humidity*10) / 10,
		Moisture:    s.moisture,
		Time:        s.now(),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
