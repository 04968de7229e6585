package core

// Source is the backing store a pool drains its jobs from. Implementations
// must be safe for concurrent use: Enqueue may be called from any goroutine,
// including from inside an executing job, while the dispatcher is dequeuing.
type Source interface {
	// ResetRunning returns jobs left in JobRunning by a previous process
	// back to JobQueued so they are dispatched again.
	ResetRunning(pool string) error

	Enqueue(job Model) error

	// Dequeue removes up to limit jobs that are available for execution,
	// best priority first, submission order within a priority. Score ties
	// must be broken by insertion order, the timestamp in the score is not
	// granular enough on its own. Dequeued jobs are marked JobRunning.
	// Returns ErrNoJobsFound when nothing is available.
	Dequeue(pool string, limit int) ([]Model, error)

	UpdateJob(job Model) error
	DeleteJob(pool, jobID string) error

	Length(pool string) (int, error)
	Count(pool string, status Status) (int, error)
	Clear(pool string) error
}
