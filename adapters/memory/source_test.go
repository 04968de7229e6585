package memory

import (
	"errors"
	"testing"
	"time"

	"go-priority-pool/core"
)

func enqueue(t *testing.T, src *Source, priority core.Priority) core.Model {
	t.Helper()

	model := core.NewModel()
	model.SetPriority(priority)
	if err := src.Enqueue(*model); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return *model
}

func TestDequeuePriorityOrder(t *testing.T) {
	src := NewMemorySource()

	low := enqueue(t, src, core.PriorityLow)
	normal := enqueue(t, src, core.PriorityNormal)
	high := enqueue(t, src, core.PriorityHigh)

	jobs, err := src.Dequeue(core.DefaultPool, 10)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	wantIDs := []string{high.ID, normal.ID, low.ID}
	if len(jobs) != len(wantIDs) {
		t.Fatalf("got %d jobs, want %d", len(jobs), len(wantIDs))
	}
	for i, want := range wantIDs {
		if jobs[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, jobs[i].ID, want)
		}
		if jobs[i].Status != core.JobRunning {
			t.Errorf("job %s not marked running", jobs[i].ID)
		}
	}
}

func TestDequeueKeepsSubmissionOrder(t *testing.T) {
	src := NewMemorySource()

	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, enqueue(t, src, core.PriorityNormal).ID)
	}

	jobs, err := src.Dequeue(core.DefaultPool, 20)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	for i := range ids {
		if jobs[i].ID != ids[i] {
			t.Fatalf("position %d: got %s, want %s", i, jobs[i].ID, ids[i])
		}
	}
}

func TestDequeueLimit(t *testing.T) {
	src := NewMemorySource()

	for i := 0; i < 5; i++ {
		enqueue(t, src, core.PriorityNormal)
	}

	jobs, err := src.Dequeue(core.DefaultPool, 3)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("got %d jobs, want 3", len(jobs))
	}

	length, _ := src.Length(core.DefaultPool)
	if length != 2 {
		t.Errorf("got %d queued jobs, want 2", length)
	}
}

func TestDequeueSkipsDelayedJobs(t *testing.T) {
	src := NewMemorySource()

	delayed := core.NewModel()
	delayed.SetPriority(core.PriorityHigh)
	delayed.SetAvailableAt(time.Now().Add(time.Hour))
	if err := src.Enqueue(*delayed); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ready := enqueue(t, src, core.PriorityLow)

	jobs, err := src.Dequeue(core.DefaultPool, 10)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != ready.ID {
		t.Errorf("expected only the available job, got %d jobs", len(jobs))
	}

	// the delayed job stays queued
	length, _ := src.Length(core.DefaultPool)
	if length != 1 {
		t.Errorf("got %d queued jobs, want 1", length)
	}
}

func TestDequeueEmpty(t *testing.T) {
	src := NewMemorySource()

	_, err := src.Dequeue(core.DefaultPool, 10)
	if !errors.Is(err, core.ErrNoJobsFound) {
		t.Errorf("got %v, want ErrNoJobsFound", err)
	}
}

func TestResetRunning(t *testing.T) {
	src := NewMemorySource()

	enqueue(t, src, core.PriorityNormal)
	if _, err := src.Dequeue(core.DefaultPool, 1); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	if err := src.ResetRunning(core.DefaultPool); err != nil {
		t.Fatalf("ResetRunning: %v", err)
	}

	jobs, err := src.Dequeue(core.DefaultPool, 1)
	if err != nil {
		t.Fatalf("Dequeue after reset: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("running job was not returned to the queue")
	}
}

func TestUpdateJobRequeues(t *testing.T) {
	src := NewMemorySource()

	enqueue(t, src, core.PriorityNormal)
	jobs, err := src.Dequeue(core.DefaultPool, 1)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	job := jobs[0]
	job.SetStatus(core.JobQueued)
	if err := src.UpdateJob(job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	again, err := src.Dequeue(core.DefaultPool, 1)
	if err != nil {
		t.Fatalf("Dequeue after requeue: %v", err)
	}
	if again[0].ID != job.ID {
		t.Errorf("requeued job not dequeued again")
	}
}

func TestUpdateUnknownJob(t *testing.T) {
	src := NewMemorySource()

	if err := src.UpdateJob(*core.NewModel()); !errors.Is(err, core.ErrNoJobFound) {
		t.Errorf("got %v, want ErrNoJobFound", err)
	}
}

func TestDeleteJob(t *testing.T) {
	src := NewMemorySource()

	job := enqueue(t, src, core.PriorityNormal)

	if err := src.DeleteJob(core.DefaultPool, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}

	length, _ := src.Length(core.DefaultPool)
	if length != 0 {
		t.Errorf("got %d queued jobs, want 0", length)
	}

	if err := src.DeleteJob(core.DefaultPool, job.ID); !errors.Is(err, core.ErrNoJobFound) {
		t.Errorf("second delete: got %v, want ErrNoJobFound", err)
	}
}

func TestCountByStatus(t *testing.T) {
	src := NewMemorySource()

	enqueue(t, src, core.PriorityNormal)
	enqueue(t, src, core.PriorityNormal)

	if _, err := src.Dequeue(core.DefaultPool, 1); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	queued, _ := src.Count(core.DefaultPool, core.JobQueued)
	running, _ := src.Count(core.DefaultPool, core.JobRunning)
	if queued != 1 || running != 1 {
		t.Errorf("got queued=%d running=%d, want 1/1", queued, running)
	}
}

func TestClear(t *testing.T) {
	src := NewMemorySource()

	enqueue(t, src, core.PriorityNormal)
	enqueue(t, src, core.PriorityHigh)

	if err := src.Clear(core.DefaultPool); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	length, _ := src.Length(core.DefaultPool)
	if length != 0 {
		t.Errorf("got %d queued jobs after clear, want 0", length)
	}
}
