package server

import (
	"sync"
	"time"
)

// serverMetrics tracks request and file counters under one mutex. The
// counts are small and read rarely, so a mutex beats a pile of
// atomics for clarity.
type serverMetrics struct {
	mu             sync.Mutex
	started        time.Time
	totalRequests  int64
	totalErrors    int64
	filesProcessed int64
	filesFailed    int64
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{started: time.Now()}
}

func (m *serverMetrics) recordRequest() {
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
}

func (m *serverMetrics) recordError() {
	m.mu.Lock()
	m.totalErrors++
	m.mu.Unlock()
}

func (m *serverMetrics) recordFiles(processed, failed int64) {
	m.mu.Lock()
	m.filesProcessed += processed
	m.filesFailed += failed
	m.mu.Unlock()
}

// metricsSnapshot is the JSON shape of GET /metrics.
type metricsSnapshot struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	FilesProcessed int64   `json:"files_processed"`
	FilesFailed    int64   `json:"files_failed"`
}

func (m *serverMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return metricsSnapshot{
		UptimeSeconds:  time.Since(m.started).Seconds(),
		TotalRequests:  m.totalRequests,
		TotalErrors:    m.totalErrors,
		FilesProcessed: m.filesProcessed,
		FilesFailed:    m.filesFailed,
	}
}
