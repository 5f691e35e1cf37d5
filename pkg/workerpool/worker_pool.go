// Package workerpool offloads blocking output I/O from the event-loop
// thread, per the concurrency model's rule that only inputs and outputs
// may suspend — an output's Send call runs here instead of inline in the
// dispatch loop.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ssw-logs-capture/pkg/pipeerr"

	"github.com/sirupsen/logrus"
)

// SendJob is one blocking output send offloaded to the pool.
type SendJob struct {
	OutputName string
	Execute    func(ctx context.Context) error
	Created    time.Time
}

type worker struct {
	id       int
	pool     *Pool
	jobChan  chan SendJob
	quit     chan struct{}
	active   int64
	logger   *logrus.Logger
}

// Pool is a fixed-size pool of goroutines that execute SendJobs, each
// bounded by a per-job timeout so one wedged output send can't starve the
// pool indefinitely.
type Pool struct {
	workers []*worker
	queue   chan SendJob
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *logrus.Logger
	config  Config

	totalJobs     int64
	activeJobs    int64
	completedJobs int64
	failedJobs    int64

	mu        sync.RWMutex
	isRunning bool
}

// Config configures a Pool.
type Config struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = c.Workers * 10
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// New constructs a Pool. It does not start any goroutines until Start.
func New(config Config, logger *logrus.Logger) *Pool {
	config = config.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		queue:   make(chan SendJob, config.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		config:  config,
		workers: make([]*worker, 0, config.Workers),
	}
	for i := 0; i < config.Workers; i++ {
		p.workers = append(p.workers, &worker{
			id:      i,
			pool:    p,
			jobChan: make(chan SendJob, 1),
			quit:    make(chan struct{}),
			logger:  logger,
		})
	}
	return p
}

// Start launches every worker goroutine and the dispatcher.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}

	p.logger.WithFields(logrus.Fields{
		"workers":    p.config.Workers,
		"queue_size": p.config.QueueSize,
	}).Info("Starting output worker pool")

	for _, w := range p.workers {
		p.wg.Add(1)
		go w.run()
	}
	p.wg.Add(1)
	go p.dispatch()

	p.isRunning = true
	return nil
}

// Stop cancels in-flight jobs' context, waits up to ShutdownTimeout for
// workers to drain, and returns.
func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return nil
	}

	p.logger.Info("Stopping output worker pool")
	p.cancel()
	for _, w := range p.workers {
		close(w.quit)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Output worker pool stopped")
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("Output worker pool shutdown timed out")
	}

	p.isRunning = false
	return nil
}

// Submit enqueues job without blocking and without waiting for it to
// complete. Returns CodeQueueOverflow if the queue is full — a resource
// error, per the error handling design.
func (p *Pool) Submit(job SendJob) error {
	if !p.running() {
		return pipeerr.New(pipeerr.KindResource, pipeerr.CodeQueueOverflow, "workerpool", "pool is not running")
	}
	job.Created = time.Now()
	atomic.AddInt64(&p.totalJobs, 1)

	select {
	case p.queue <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	default:
		atomic.AddInt64(&p.failedJobs, 1)
		return pipeerr.New(pipeerr.KindResource, pipeerr.CodeQueueOverflow, "workerpool", "send queue is full")
	}
}

func (p *Pool) running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

// Stats is a snapshot of pool activity for metrics export.
type Stats struct {
	Workers       int
	ActiveWorkers int
	QueuedJobs    int
	TotalJobs     int64
	ActiveJobs    int64
	CompletedJobs int64
	FailedJobs    int64
}

// Stats reports a snapshot of the pool's current activity.
func (p *Pool) Stats() Stats {
	active := 0
	for _, w := range p.workers {
		if atomic.LoadInt64(&w.active) > 0 {
			active++
		}
	}
	return Stats{
		Workers:       p.config.Workers,
		ActiveWorkers: active,
		QueuedJobs:    len(p.queue),
		TotalJobs:     atomic.LoadInt64(&p.totalJobs),
		ActiveJobs:    atomic.LoadInt64(&p.activeJobs),
		CompletedJobs: atomic.LoadInt64(&p.completedJobs),
		FailedJobs:    atomic.LoadInt64(&p.failedJobs),
	}
}

func (p *Pool) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.queue:
			p.assign(job)
		case <-p.ctx.Done():
			return
		}
	}
}

// assign hands a job to the first free worker, scanning from worker 0,
// falling back to blocking on worker 0 if every worker is currently busy.
func (p *Pool) assign(job SendJob) {
	for _, w := range p.workers {
		select {
		case w.jobChan <- job:
			return
		default:
		}
	}
	select {
	case p.workers[0].jobChan <- job:
	case <-p.ctx.Done():
		atomic.AddInt64(&p.failedJobs, 1)
	}
}

func (w *worker) run() {
	defer w.pool.wg.Done()
	for {
		select {
		case job := <-w.jobChan:
			w.execute(job)
		case <-w.quit:
			return
		case <-w.pool.ctx.Done():
			return
		}
	}
}

func (w *worker) execute(job SendJob) {
	atomic.StoreInt64(&w.active, 1)
	atomic.AddInt64(&w.pool.activeJobs, 1)
	defer func() {
		atomic.StoreInt64(&w.active, 0)
		atomic.AddInt64(&w.pool.activeJobs, -1)
	}()

	ctx, cancel := context.WithTimeout(w.pool.ctx, w.pool.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Execute(ctx)
	duration := time.Since(start)

	if err != nil {
		atomic.AddInt64(&w.pool.failedJobs, 1)
		w.logger.WithFields(logrus.Fields{
			"worker_id": w.id,
			"output":    job.OutputName,
			"duration":  duration,
			"error":     err,
		}).Error("Output send failed")
		return
	}
	atomic.AddInt64(&w.pool.completedJobs, 1)
	w.logger.WithFields(logrus.Fields{
		"worker_id": w.id,
		"output":    job.OutputName,
		"duration":  duration,
	}).Debug("Output send completed")
}
