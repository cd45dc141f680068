package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks controller throughput and latency for the dashboard.
type Metrics struct {
	// Latency histograms
	CycleLatency    *LatencyHistogram
	ExchangeLatency *LatencyHistogram
	AILatency       *LatencyHistogram

	// Counters
	cyclesCompleted uint64
	ordersPlaced    uint64
	aiConsults      uint64
	errorsCount     uint64

	startedAt time.Time
}

// LatencyHistogram tracks latency samples with a sliding window and lazy
// stats computation.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewMetrics creates a metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		CycleLatency:    NewLatencyHistogram(1000),
		ExchangeLatency: NewLatencyHistogram(1000),
		AILatency:       NewLatencyHistogram(1000),
		startedAt:       time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99. Recomputes only when
// samples have changed since the last call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementCycles increments the completed cycle counter.
func (m *Metrics) IncrementCycles() {
	atomic.AddUint64(&m.cyclesCompleted, 1)
}

// IncrementOrders increments the placed orders counter.
func (m *Metrics) IncrementOrders() {
	atomic.AddUint64(&m.ordersPlaced, 1)
}

// IncrementAIConsults increments the AI consultation counter.
func (m *Metrics) IncrementAIConsults() {
	atomic.AddUint64(&m.aiConsults, 1)
}

// IncrementErrors increments the error counter.
func (m *Metrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// Snapshot is a point-in-time view of the metrics.
type Snapshot struct {
	CycleLatency    LatencyStats `json:"cycle_latency"`
	ExchangeLatency LatencyStats `json:"exchange_latency"`
	AILatency       LatencyStats `json:"ai_latency"`
	CyclesCompleted uint64       `json:"cycles_completed"`
	OrdersPlaced    uint64       `json:"orders_placed"`
	AIConsults      uint64       `json:"ai_consults"`
	ErrorsCount     uint64       `json:"errors_count"`
	UptimeSeconds   float64      `json:"uptime_seconds"`
	GoroutineCount  int          `json:"goroutine_count"`
	HeapAlloc       uint64       `json:"heap_alloc_bytes"`
	Timestamp       time.Time    `json:"timestamp"`
}

// GetSnapshot returns the current metrics snapshot.
func (m *Metrics) GetSnapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Snapshot{
		CycleLatency:    m.CycleLatency.Stats(),
		ExchangeLatency: m.ExchangeLatency.Stats(),
		AILatency:       m.AILatency.Stats(),
		CyclesCompleted: atomic.LoadUint64(&m.cyclesCompleted),
		OrdersPlaced:    atomic.LoadUint64(&m.ordersPlaced),
		AIConsults:      atomic.LoadUint64(&m.aiConsults),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		UptimeSeconds:   time.Since(m.startedAt).Seconds(),
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Timestamp:       time.Now(),
	}
}

// Timer measures one operation and records it to a histogram.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records elapsed time to the histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
