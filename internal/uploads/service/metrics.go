package service

import "sync/atomic"

// Metrics tracks chunked upload activity
type Metrics struct {
	SessionsCreated   int64 `json:"sessions_created"`
	DedupHits         int64 `json:"dedup_hits"`
	ChunksAccepted    int64 `json:"chunks_accepted"`
	ChunksDuplicate   int64 `json:"chunks_duplicate"`
	ChunkSizeWarnings int64 `json:"chunk_size_warnings"`
	Merges            int64 `json:"merges"`
	IntegrityFailures int64 `json:"integrity_failures"`
	SessionsCancelled int64 `json:"sessions_cancelled"`
	SessionsSwept     int64 `json:"sessions_swept"`
	BytesMerged       int64 `json:"bytes_merged"`
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot
func GetMetrics() Metrics {
	return Metrics{
		SessionsCreated:   atomic.LoadInt64(&globalMetrics.SessionsCreated),
		DedupHits:         atomic.LoadInt64(&globalMetrics.DedupHits),
		ChunksAccepted:    atomic.LoadInt64(&globalMetrics.ChunksAccepted),
		ChunksDuplicate:   atomic.LoadInt64(&globalMetrics.ChunksDuplicate),
		ChunkSizeWarnings: atomic.LoadInt64(&globalMetrics.ChunkSizeWarnings),
		Merges:            atomic.LoadInt64(&globalMetrics.Merges),
		IntegrityFailures: atomic.LoadInt64(&globalMetrics.IntegrityFailures),
		SessionsCancelled: atomic.LoadInt64(&globalMetrics.SessionsCancelled),
		SessionsSwept:     atomic.LoadInt64(&globalMetrics.SessionsSwept),
		BytesMerged:       atomic.LoadInt64(&globalMetrics.BytesMerged),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	*globalMetrics = Metrics{}
}

func incr(counter *int64) { atomic.AddInt64(counter, 1) }
