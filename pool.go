package go_priority_pool

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go-priority-pool/core"
)

const (
	defaultPrefetchFactor = 5
	defaultPollInterval   = time.Second
	drainPollInterval     = 5 * time.Millisecond
)

type Config struct {
	Name           string
	Workers        int
	TryAttempts    int
	RetryDelay     time.Duration
	PrefetchFactor int
	PollInterval   time.Duration
	RemoveDoneJobs bool
	Logger         *slog.Logger
}

// Pool executes enqueued jobs on a fixed set of worker goroutines.
// Jobs are drained from the Source best priority first, submission order
// within a priority. Submission is fire-and-forget: a failed job surfaces
// only in logs and in the stored job record, never to the submitter.
type Pool struct {
	sync.Mutex

	config Config

	ctx    context.Context
	cancel context.CancelFunc

	src       core.Source
	isRunning bool
	finished  bool
	wg        sync.WaitGroup
	jobCh     chan *core.Model
	notifyCh  chan struct{}
	inFlight  atomic.Int32

	registry core.TaskRegistryInterface

	workers []*Worker

	logger *slog.Logger
}

// New builds a pool draining src with config.Workers workers. A worker
// count below 1 is a programming error and is rejected up front; a pool
// that silently ran with zero workers would queue jobs forever.
func New(ctx context.Context, src core.Source, config Config) (*Pool, error) {
	if config.Workers < 1 {
		return nil, core.ErrNoWorkers
	}
	if config.Name == "" {
		config.Name = core.DefaultPool
	}

	newCtx, cancel := context.WithCancel(ctx)

	var lg *slog.Logger
	if config.Logger == nil {
		lg = slog.Default()
		newCtx = WithEnabled(newCtx, false)
	} else {
		lg = config.Logger
		newCtx = WithEnabled(newCtx, true)
	}

	return &Pool{
		ctx:       WithLogPool(newCtx, config.Name),
		cancel:    cancel,
		config:    config,
		isRunning: false,
		src:       src,
		workers:   make([]*Worker, config.Workers),
		jobCh:     make(chan *core.Model, config.Workers),
		notifyCh:  make(chan struct{}, 1),

		registry: NewTaskRegistry(),

		logger: slog.New(NewLogHandlerMiddleware(lg.Handler())),
	}, nil
}

func (p *Pool) RegisterTaskType(typ core.Task) *Pool {
	slog.DebugContext(WithLogJobType(p.ctx, reflect.TypeOf(typ).String()), "register type")

	p.registry.RegisterType(typ)
	return p
}

// Enqueue stores the job and wakes the dispatcher. It never blocks on the
// workers and is safe to call from any goroutine, including from inside an
// executing job.
func (p *Pool) Enqueue(job *Job) error {
	if p.ctx.Err() != nil {
		return core.ErrPoolClosed
	}

	dataType := reflect.TypeOf(job.task)
	ctx := WithLogJobType(p.ctx, dataType.String())

	slog.DebugContext(ctx, "enqueue")

	if !p.registry.ExistType(dataType.String()) {
		slog.ErrorContext(ctx, "registry.ExistType", "error", core.ErrTypeNotRegistered)
		return core.ErrTypeNotRegistered
	}

	job.onPool(p.config.Name)

	model, err := job.getModel()
	if err != nil {
		slog.ErrorContext(ctx, "job.getModel", "error", err)
		return err
	}

	if err = p.src.Enqueue(model); err != nil {
		slog.ErrorContext(ctx, "source.Enqueue", "error", err)
		return err
	}

	select {
	case p.notifyCh <- struct{}{}:
	default:
	}

	return nil
}

// Stop signals shutdown. Workers finish the jobs already queued before
// exiting; Run returns once the last worker is done.
func (p *Pool) Stop() {
	p.logger.InfoContext(p.ctx, "stop pool")

	p.cancel()
}

// Run starts the workers and the dispatcher and blocks until the pool has
// been stopped and every queued job has been drained. A pool runs at most
// once; after Run has returned it cannot be restarted.
func (p *Pool) Run() error {
	p.Lock()
	if p.isRunning {
		p.Unlock()
		return core.ErrAlreadyRunning
	}
	if p.finished {
		p.Unlock()
		return core.ErrPoolClosed
	}
	p.isRunning = true
	p.Unlock()

	if err := p.src.ResetRunning(p.config.Name); err != nil {
		p.Lock()
		p.isRunning = false
		p.Unlock()
		return err
	}

	p.logger.InfoContext(p.ctx, "start pool", "workers", p.config.Workers)

	p.Lock()
	for i := 0; i < p.config.Workers; i++ {
		p.workers[i] = NewWorker(i+1, &WorkerContext{
			ctx:      p.ctx,
			wg:       &p.wg,
			jobCh:    p.jobCh,
			inFlight: &p.inFlight,
			src:      p.src,
			registry: p.registry,
			// Config
			tryAttempts:    p.config.TryAttempts,
			retryDelay:     p.config.RetryDelay,
			removeDoneJobs: p.config.RemoveDoneJobs,

			logger: p.logger,
		})
	}
	p.Unlock()

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.workers[i].start()
	}

	p.dispatch()
	p.wg.Wait()

	p.Lock()
	p.isRunning = false
	p.finished = true
	p.Unlock()

	p.logger.InfoContext(p.ctx, "pool stopped")

	return nil
}

// dispatch forwards available jobs to the workers until Stop is signalled,
// then drains the store and closes the job channel so the workers exit.
func (p *Pool) dispatch() {
	prefetch := p.config.PrefetchFactor
	if prefetch <= 0 {
		prefetch = defaultPrefetchFactor
	}
	limit := p.config.Workers * prefetch

	poll := p.config.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		p.pump(limit)

		select {
		case <-p.ctx.Done():
			p.drain(limit)
			close(p.jobCh)
			return
		case <-p.notifyCh:
		case <-ticker.C:
		}
	}
}

// pump moves every currently-available job from the store to the workers
// and reports how many it forwarded. The in-flight counter is raised
// before the job enters the channel, so it covers buffered jobs too.
func (p *Pool) pump(limit int) int {
	forwarded := 0
	for {
		jobs, err := p.src.Dequeue(p.config.Name, limit)
		if err != nil {
			if !errors.Is(err, core.ErrNoJobsFound) {
				p.logger.ErrorContext(p.ctx, "source.Dequeue", "error", err)
			}
			return forwarded
		}
		if len(jobs) == 0 {
			return forwarded
		}

		p.logger.DebugContext(p.ctx, "found new jobs", "count", len(jobs))

		for i := range jobs {
			p.inFlight.Add(1)
			p.jobCh <- &jobs[i]
		}
		forwarded += len(jobs)
	}
}

// drain runs the queue dry after Stop. New submissions are rejected once
// Stop is signalled, but a failing job may still be re-queued for another
// attempt while it runs, so the store is only considered empty once nothing
// is available and no worker holds a job.
func (p *Pool) drain(limit int) {
	for {
		if p.pump(limit) > 0 {
			continue
		}
		if p.inFlight.Load() > 0 {
			time.Sleep(drainPollInterval)
			continue
		}
		if p.pump(limit) == 0 {
			return
		}
	}
}

func (p *Pool) Metrics() []*Metrics {
	p.Lock()
	defer p.Unlock()

	m := make([]*Metrics, 0, len(p.workers))
	for _, w := range p.workers {
		if w != nil {
			m = append(m, w.Metric())
		}
	}
	return m
}
