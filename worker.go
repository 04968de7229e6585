package go_priority_pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go-priority-pool/core"
)

type WorkerContext struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	jobCh    chan *core.Model
	inFlight *atomic.Int32

	src      core.Source
	registry core.TaskRegistryInterface

	tryAttempts    int
	retryDelay     time.Duration
	removeDoneJobs bool

	logger *slog.Logger
}

type Worker struct {
	id     int
	ctx    *WorkerContext
	metric *Metrics
}

func NewWorker(id int, ctx *WorkerContext) *Worker {
	ctx.ctx = WithLogWorkerID(ctx.ctx, id)

	return &Worker{
		id:     id,
		ctx:    ctx,
		metric: NewMetrics(id),
	}
}

func (w *Worker) Metric() *Metrics {
	return w.metric
}

// start consumes the job channel until the dispatcher closes it. The
// worker keeps draining after Stop; it exits only when the channel is
// closed and empty.
func (w *Worker) start() {
	defer w.ctx.wg.Done()

	w.ctx.logger.InfoContext(w.ctx.ctx, "start worker")

	for job := range w.ctx.jobCh {
		w.handle(job)
		w.ctx.inFlight.Add(-1)
	}

	w.ctx.logger.InfoContext(w.ctx.ctx, "stop worker")
}

func (w *Worker) handle(job *core.Model) {
	job.Attempt()
	ctx := WithLogJobID(w.ctx.ctx, job.ID)
	start := time.Now()

	pl, err := job.Decode()
	if err != nil {
		w.metric.IncFailed()
		w.ctx.logger.ErrorContext(ctx, "can't decode job", "error", err)
		w.ctx.src.UpdateJob(*job.SetStatus(core.JobError).SetError(err.Error()))
		return
	}

	ctx = WithLogJobType(ctx, pl.Type)
	ctx = WithLogPriority(ctx, job.Priority)

	task, err := w.ctx.registry.ExtractType(pl.Type)
	if err == nil {
		err = json.Unmarshal(pl.Data, task)
	}
	if err != nil {
		w.metric.IncFailed()
		w.ctx.logger.ErrorContext(ctx, "can't restore task", "error", err)
		w.ctx.src.UpdateJob(*job.SetStatus(core.JobError).SetError(err.Error()))
		return
	}

	w.ctx.logger.InfoContext(ctx, "processing job")

	err = w.execute(ctx, task)
	w.metric.RecordProcessingTime(time.Since(start))

	if err != nil {
		w.metric.IncFailed()
		w.ctx.logger.ErrorContext(ctx, "job failed", "error", err, "attempt", job.Attempts)

		job.SetError(err.Error())
		if job.Attempts < w.ctx.tryAttempts {
			delay := time.Now().Add(w.ctx.retryDelay).UTC()
			w.ctx.logger.DebugContext(ctx, "retry scheduled", "available_at", delay)
			w.ctx.src.UpdateJob(*job.SetStatus(core.JobQueued).SetAvailableAt(delay))
		} else {
			w.ctx.logger.DebugContext(ctx, "mark as error")
			w.ctx.src.UpdateJob(*job.SetStatus(core.JobError))
		}
		return
	}

	w.metric.IncProcessed()

	if w.ctx.removeDoneJobs {
		w.ctx.logger.InfoContext(ctx, "processed job", "action", "delete")
		w.ctx.src.DeleteJob(job.Pool, job.ID)
	} else {
		w.ctx.logger.InfoContext(ctx, "processed job", "action", "keep")
		w.ctx.src.UpdateJob(*job.SetStatus(core.JobDone))
	}
}

// execute runs the task body, converting a panic into an error so one bad
// job cannot take down the worker.
func (w *Worker) execute(ctx context.Context, task core.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.ctx.logger.ErrorContext(ctx, "recovered job panic", "panic", r)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return task.Handle()
}
