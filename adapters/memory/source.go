package memory

import (
	"sort"
	"sync"
	"time"

	"go-priority-pool/core"
)

// Source is the in-process backend. Jobs live in a map keyed by id, and a
// per-pool slice keeps the dispatch order: ascending score, stable for
// equal scores, so equal-priority jobs leave in submission order.
type Source struct {
	mu     sync.Mutex
	jobs   map[string]*core.Model
	queued map[string][]*core.Model
}

func NewMemorySource() *Source {
	return &Source{
		jobs:   make(map[string]*core.Model),
		queued: make(map[string][]*core.Model),
	}
}

func (m *Source) ResetRunning(pool string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Pool == pool && job.Status == core.JobRunning {
			job.Status = core.JobQueued
			m.queued[pool] = append(m.queued[pool], job)
		}
	}
	m.sortQueued(pool)

	return nil
}

func (m *Source) Enqueue(job core.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = &job
	m.queued[job.Pool] = append(m.queued[job.Pool], &job)
	m.sortQueued(job.Pool)

	return nil
}

func (m *Source) Dequeue(pool string, limit int) ([]core.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	var dequeued []core.Model
	var remaining []*core.Model

	for _, job := range m.queued[pool] {
		if len(dequeued) == limit || job.AvailableAt.After(now) {
			remaining = append(remaining, job)
			continue
		}
		job.Status = core.JobRunning
		dequeued = append(dequeued, *job)
	}

	m.queued[pool] = remaining

	if len(dequeued) == 0 {
		return nil, core.ErrNoJobsFound
	}

	return dequeued, nil
}

func (m *Source) UpdateJob(job core.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; !exists {
		return core.ErrNoJobFound
	}

	m.jobs[job.ID] = &job
	m.removeFromQueued(job.Pool, job.ID)

	// a retried job goes back to the end of its score bracket
	if job.Status == core.JobQueued {
		m.queued[job.Pool] = append(m.queued[job.Pool], &job)
		m.sortQueued(job.Pool)
	}

	return nil
}

func (m *Source) DeleteJob(pool, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobID]; !exists {
		return core.ErrNoJobFound
	}

	delete(m.jobs, jobID)
	m.removeFromQueued(pool, jobID)

	return nil
}

func (m *Source) Length(pool string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queued[pool]), nil
}

func (m *Source) Count(pool string, status core.Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, job := range m.jobs {
		if job.Pool == pool && job.Status == status {
			count++
		}
	}

	return count, nil
}

func (m *Source) Clear(pool string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.queued[pool] {
		delete(m.jobs, job.ID)
	}

	m.queued[pool] = nil

	return nil
}

func (m *Source) sortQueued(pool string) {
	sort.SliceStable(m.queued[pool], func(i, j int) bool {
		return m.queued[pool][i].Score < m.queued[pool][j].Score
	})
}

func (m *Source) removeFromQueued(pool, jobID string) {
	for i, job := range m.queued[pool] {
		if job.ID == jobID {
			m.queued[pool] = append(m.queued[pool][:i], m.queued[pool][i+1:]...)
			break
		}
	}
}
