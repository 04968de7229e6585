package go_priority_pool

import (
	"sync"
	"time"
)

// Metrics holds per-worker counters. All methods are safe for concurrent
// use; the worker writes, anyone may read.
type Metrics struct {
	workerID int

	processed       int64
	failed          int64
	totalProcessing time.Duration
	startTime       time.Time
	mu              sync.Mutex
}

func NewMetrics(workerID int) *Metrics {
	return &Metrics{
		workerID:  workerID,
		startTime: time.Now(),
	}
}

func (m *Metrics) WorkerID() int {
	return m.workerID
}

func (m *Metrics) IncProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
}

func (m *Metrics) IncFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalProcessing += duration
}

func (m *Metrics) Processed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed
}

func (m *Metrics) Failed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

func (m *Metrics) AverageProcessingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed == 0 {
		return 0
	}
	return m.totalProcessing / time.Duration(m.processed)
}

func (m *Metrics) TasksPerSecond() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.processed) / elapsed
}
