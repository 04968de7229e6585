package go_priority_pool

import (
	"context"
	"log/slog"

	"go-priority-pool/core"
)

type poolLoggerContext struct {
	Pool     string
	WorkerID int
	JobID    string
	JobType  string
	Priority string
	Enabled  bool
}

type keyType int

const key = keyType(0)

// LogHandlerMiddleware decorates every record with the pool coordinates
// carried by the context: pool name, worker id, job id, job type and
// priority tag.
type LogHandlerMiddleware struct {
	next slog.Handler
}

func NewLogHandlerMiddleware(next slog.Handler) *LogHandlerMiddleware {
	return &LogHandlerMiddleware{next: next}
}

func (h *LogHandlerMiddleware) Enabled(ctx context.Context, rec slog.Level) bool {
	if c, ok := ctx.Value(key).(poolLoggerContext); ok {
		return c.Enabled && h.next.Enabled(ctx, rec)
	}
	return h.next.Enabled(ctx, rec)
}

func (h *LogHandlerMiddleware) Handle(ctx context.Context, rec slog.Record) error {
	if c, ok := ctx.Value(key).(poolLoggerContext); ok {
		if c.Pool != "" {
			rec.Add("pool", c.Pool)
		}
		if c.WorkerID != 0 {
			rec.Add("worker_id", c.WorkerID)
		}
		if c.JobID != "" {
			rec.Add("job_id", c.JobID)
		}
		if c.JobType != "" {
			rec.Add("job_type", c.JobType)
		}
		if c.Priority != "" {
			rec.Add("priority", c.Priority)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *LogHandlerMiddleware) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandlerMiddleware{next: h.next.WithAttrs(attrs)}
}

func (h *LogHandlerMiddleware) WithGroup(name string) slog.Handler {
	return &LogHandlerMiddleware{next: h.next.WithGroup(name)}
}

func withLoggerContext(ctx context.Context, update func(c *poolLoggerContext)) context.Context {
	c, _ := ctx.Value(key).(poolLoggerContext)
	update(&c)
	return context.WithValue(ctx, key, c)
}

func WithLogPool(ctx context.Context, pool string) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.Pool = pool })
}

func WithLogWorkerID(ctx context.Context, workerID int) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.WorkerID = workerID })
}

func WithLogJobID(ctx context.Context, jobID string) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.JobID = jobID })
}

func WithLogJobType(ctx context.Context, jobType string) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.JobType = jobType })
}

func WithLogPriority(ctx context.Context, priority core.Priority) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.Priority = priority.String() })
}

func WithEnabled(ctx context.Context, e bool) context.Context {
	return withLoggerContext(ctx, func(c *poolLoggerContext) { c.Enabled = e })
}
