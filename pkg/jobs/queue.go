package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcomes reported to QueueConfig.Observer.
const (
	OutcomeDone      = "done"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeCoalesced = "coalesced"
)

var (
	// ErrQueueFull is returned when the buffer has no room for another job.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed is returned by Enqueue before Start or after Stop.
	ErrQueueClosed = errors.New("queue closed")
)

// Job is a unit of background work. Jobs sharing a non-empty Key collapse into one while the
// first is still buffered.
type Job struct {
	ID       string
	Key      string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// QueueConfig tunes a Queue. RetryDelay is the first backoff step; it doubles per attempt up to
// MaxRetryDelay.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Observer      func(queue, outcome string)
	Logger        *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines. Enqueue never blocks.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	log     *zap.Logger

	buf chan Job
	wg  sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	open    bool
	pending map[string]struct{}
}

// NewQueue builds a stopped queue; call Start before enqueueing.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = 30 * cfg.RetryDelay
	}
	if cfg.Observer == nil {
		cfg.Observer = func(string, string) {}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     log.With(zap.String("queue", name)),
		buf:     make(chan Job, cfg.BufferSize),
		pending: make(map[string]struct{}),
	}
}

// Start launches the workers. Calling it again is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.open = true
	q.wg.Add(q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		go q.work()
	}
	q.log.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for in-flight jobs. Buffered jobs are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.ctx == nil || !q.open {
		q.mu.Unlock()
		return
	}
	q.open = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	if dropped := len(q.buf); dropped > 0 {
		q.log.Warn("queue stopped with buffered jobs", zap.Int("dropped", dropped))
		return
	}
	q.log.Info("queue stopped")
}

// Enqueue buffers job. A job whose key is already buffered is merged into it and nil is returned.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.open || q.ctx.Err() != nil {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	if job.Key != "" {
		if _, ok := q.pending[job.Key]; ok {
			q.cfg.Observer(q.name, OutcomeCoalesced)
			return nil
		}
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.buf <- job:
	default:
		q.cfg.Observer(q.name, OutcomeRejected)
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
	if job.Key != "" {
		q.pending[job.Key] = struct{}{}
	}
	return nil
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.buf:
			q.forget(job.Key)
			if err := q.run(job); err != nil {
				q.retry(job, err)
				continue
			}
			q.cfg.Observer(q.name, OutcomeDone)
		}
	}
}

func (q *Queue) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.handler(q.ctx, job)
}

func (q *Queue) forget(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

// backoff returns the wait before the given retry attempt, starting at 1.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.cfg.RetryDelay
	for i := 1; i < attempt && d < q.cfg.MaxRetryDelay; i++ {
		d *= 2
	}
	if d > q.cfg.MaxRetryDelay {
		d = q.cfg.MaxRetryDelay
	}
	return d
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.cfg.MaxRetries {
		q.cfg.Observer(q.name, OutcomeFailed)
		q.log.Error("job gave up", fields...)
		return
	}
	q.cfg.Observer(q.name, OutcomeRetried)
	delay := q.backoff(job.Attempt)
	q.log.Warn("job failed, retrying", append(fields, zap.Duration("backoff", delay))...)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-q.ctx.Done():
		case <-t.C:
			if err := q.Enqueue(job); err != nil {
				q.log.Error("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()
}
