package sensor

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the DHT11's minimum time between reads
const DefaultMinInterval = 2 * time.Second

// Throttled wraps a Source and limits how often it is read. Within
// MinInterval of the last good read the cached reading is returned; when
// the underlying read fails the cached reading comes back with the error.
type Throttled struct {
	Source      Source
	MinInterval time.Duration

	mu       sync.Mutex
	cached   Reading
	lastRead time.Time
	valid    bool
	now      func() time.Time
}

// NewThrottled wraps src with the DHT11 read interval
func NewThrottled(src Source) *Throttled {
	return &Throttled{
		Source:      src,
		MinInterval: DefaultMinInterval,
		now:         time.Now,
	}
}

// Read returns a reading, from the cache when the interval has not passed
func (t *Throttled) Read(ctx context.Context) (Reading, error) {
	r, _, err := t.ReadCached(ctx)
	return r, err
}

// ReadCached is Read that also reports whether the reading came from the
// cache
func (t *Throttled) ReadCached(ctx context.Context) (Reading, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.valid && now.Sub(t.lastRead) < t.MinInterval {
		return t.cached, true, nil
	}

	r, err := t.Source.Read(ctx)
	if err != nil {
		if t.valid {
			return t.cached, true, err
		}
		return Reading{}, false, err
	}

	t.cached = r
	t.lastRead = now
	t.valid = true
	return r, false, nil
}
