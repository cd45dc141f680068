package common

import (
	"sync"
	"time"
)

// TimeSync tracks the millisecond offset between the exchange server clock
// and the local clock so signed request timestamps stay inside recvWindow.
type TimeSync struct {
	mu            sync.RWMutex
	getServerTime func() (int64, error)
	offset        int64
	lastSync      time.Time
}

func NewTimeSync(getServerTime func() (int64, error)) *TimeSync {
	return &TimeSync{getServerTime: getServerTime}
}

// Sync measures the offset once. Network latency is assumed symmetric.
func (ts *TimeSync) Sync() error {
	before := time.Now().UnixMilli()
	serverTime, err := ts.getServerTime()
	if err != nil {
		return err
	}
	after := time.Now().UnixMilli()
	local := before + (after-before)/2

	ts.mu.Lock()
	ts.offset = serverTime - local
	ts.lastSync = time.Now()
	ts.mu.Unlock()
	return nil
}

// Now returns the current time in ms adjusted for the server offset.
func (ts *TimeSync) Now() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Now().UnixMilli() + ts.offset
}

// Offset returns the last measured offset in milliseconds.
func (ts *TimeSync) Offset() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.offset
}
