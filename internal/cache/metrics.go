package cache

import "sync/atomic"

// Metrics is a snapshot of cache activity since start or the last reset.
type Metrics struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Sets          int64 `json:"sets"`
	Invalidations int64 `json:"invalidations"`
	Errors        int64 `json:"errors"`
}

var globalMetrics = &Metrics{}

func GetMetrics() Metrics {
	return Metrics{
		Hits:          atomic.LoadInt64(&globalMetrics.Hits),
		Misses:        atomic.LoadInt64(&globalMetrics.Misses),
		Sets:          atomic.LoadInt64(&globalMetrics.Sets),
		Invalidations: atomic.LoadInt64(&globalMetrics.Invalidations),
		Errors:        atomic.LoadInt64(&globalMetrics.Errors),
	}
}

// ResetMetrics resets all counters (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.Hits, 0)
	atomic.StoreInt64(&globalMetrics.Misses, 0)
	atomic.StoreInt64(&globalMetrics.Sets, 0)
	atomic.StoreInt64(&globalMetrics.Invalidations, 0)
	atomic.StoreInt64(&globalMetrics.Errors, 0)
}

// HitRate returns hits as a percentage of reads.
func (m Metrics) HitRate() float64 {
	reads := m.Hits + m.Misses
	if reads == 0 {
		return 0
	}
	return float64(m.Hits) / float64(reads) * 100
}

func recordHit()          { atomic.AddInt64(&globalMetrics.Hits, 1) }
func recordMiss()         { atomic.AddInt64(&globalMetrics.Misses, 1) }
func recordSet()          { atomic.AddInt64(&globalMetrics.Sets, 1) }
func recordInvalidation() { atomic.AddInt64(&globalMetrics.Invalidations, 1) }
func recordError()        { atomic.AddInt64(&globalMetrics.Errors, 1) }
