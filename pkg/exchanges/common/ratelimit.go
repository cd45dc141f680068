package common

import (
	"log"
	"strconv"
	"sync"
	"time"
)

// WeightTracker follows the request-weight budget the exchange reports back
// in response headers (1200/min for Binance spot).
type WeightTracker struct {
	mu        sync.RWMutex
	used      int
	limit     int
	window    time.Duration
	lastReset time.Time
}

func NewWeightTracker(limit int, window time.Duration) *WeightTracker {
	return &WeightTracker{limit: limit, window: window, lastReset: time.Now()}
}

// Observe records the used-weight value from a response header.
func (w *WeightTracker) Observe(headerValue string) {
	if headerValue == "" {
		return
	}
	used, err := strconv.Atoi(headerValue)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.lastReset) >= w.window {
		w.lastReset = time.Now()
	}
	w.used = used

	pct := float64(used) / float64(w.limit) * 100
	if pct >= 90 {
		log.Printf("exchange: request weight %d/%d (%.0f%%), backing off next cycle would be wise", used, w.limit, pct)
	}
}

// Usage returns the current used weight and the configured limit.
func (w *WeightTracker) Usage() (used, limit int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if time.Since(w.lastReset) >= w.window {
		return 0, w.limit
	}
	return w.used, w.limit
}
