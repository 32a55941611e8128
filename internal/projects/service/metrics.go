package service

import "sync/atomic"

// Metrics tracks import activity
type Metrics struct {
	Imports        int64 `json:"imports"`
	ImportFailures int64 `json:"import_failures"`
	RowsInserted   int64 `json:"rows_inserted"`
	RowsDuplicate  int64 `json:"rows_duplicate"`
}

var globalMetrics = &Metrics{}

// GetMetrics returns the current metrics snapshot
func GetMetrics() Metrics {
	return Metrics{
		Imports:        atomic.LoadInt64(&globalMetrics.Imports),
		ImportFailures: atomic.LoadInt64(&globalMetrics.ImportFailures),
		RowsInserted:   atomic.LoadInt64(&globalMetrics.RowsInserted),
		RowsDuplicate:  atomic.LoadInt64(&globalMetrics.RowsDuplicate),
	}
}

// ResetMetrics resets all metrics (useful for testing)
func ResetMetrics() {
	atomic.StoreInt64(&globalMetrics.Imports, 0)
	atomic.StoreInt64(&globalMetrics.ImportFailures, 0)
	atomic.StoreInt64(&globalMetrics.RowsInserted, 0)
	atomic.StoreInt64(&globalMetrics.RowsDuplicate, 0)
}

func recordImport(inserted, duplicates int, err error) {
	if err != nil {
		atomic.AddInt64(&globalMetrics.ImportFailures, 1)
		return
	}
	atomic.AddInt64(&globalMetrics.Imports, 1)
	atomic.AddInt64(&globalMetrics.RowsInserted, int64(inserted))
	atomic.AddInt64(&globalMetrics.RowsDuplicate, int64(duplicates))
}
