package command

import (
	"log"
	"sync"
	"time"
)

// WarnThrottle rate-limits repeated warnings by key. Missing-resource skips
// fire every frame during warm-up, so logging each occurrence would flood the
// log; one line per key per interval is enough to diagnose a stuck pipeline.
type WarnThrottle struct {
	mu sync.Mutex

	interval time.Duration
	last     map[string]time.Time
	once     map[string]struct{}

	now func() time.Time
}

// NewWarnThrottle creates a throttled warner emitting at most one warning per
// key per interval.
//
// Parameters:
//   - interval: minimum delay between warnings for the same key
//
// Returns:
//   - *WarnThrottle: the new warner
func NewWarnThrottle(interval time.Duration) *WarnThrottle {
	return &WarnThrottle{
		interval: interval,
		last:     make(map[string]time.Time),
		once:     make(map[string]struct{}),
		now:      time.Now,
	}
}

// Warnf logs the formatted message unless the same key warned within the
// configured interval.
//
// Parameters:
//   - key: the dedup key
//   - format: log format string
//   - args: format arguments
func (w *WarnThrottle) Warnf(key, format string, args ...any) {
	w.mu.Lock()
	now := w.now()
	if last, ok := w.last[key]; ok && now.Sub(last) < w.interval {
		w.mu.Unlock()
		return
	}
	w.last[key] = now
	w.mu.Unlock()

	log.Printf(format, args...)
}

// Oncef logs the formatted message the first time the key is seen and never
// again. Used for vendor-feature fallbacks that would otherwise warn every
// frame.
//
// Parameters:
//   - key: the dedup key
//   - format: log format string
//   - args: format arguments
func (w *WarnThrottle) Oncef(key, format string, args ...any) {
	w.mu.Lock()
	if _, ok := w.once[key]; ok {
		w.mu.Unlock()
		return
	}
	w.once[key] = struct{}{}
	w.mu.Unlock()

	log.Printf(format, args...)
}
